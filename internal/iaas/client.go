// Package iaas is the IaaS Adapter: a hand-rolled client for the
// DigitalOcean-shaped droplet REST API. No DO SDK exists in the reference
// corpus, so this follows the same dependency-minimal, net/http-direct style
// the teacher uses for its own outbound HTTP calls, wrapped in retry/backoff
// the way cenkalti/backoff/v4 is meant to be used.
package iaas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
)

const baseURL = "https://api.digitalocean.com/v2"

const maxAttempts = 3

// Client talks to the DigitalOcean droplet API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string

	// backoffInitialInterval is the delay before the first retry; tests
	// shrink this so the retry/backoff paths don't take seconds to exercise.
	backoffInitialInterval time.Duration
}

// New builds a Client. An empty token is rejected immediately since every
// request would otherwise fail with an opaque 401.
func New(token string) (*Client, error) {
	if token == "" {
		return nil, invalidConfigErr("api token must not be empty")
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext:     (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		baseURL:                baseURL,
		token:                  token,
		backoffInitialInterval: time.Second,
	}, nil
}

func (c *Client) newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.backoffInitialInterval
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, maxAttempts-1)
}

// doWithRetry sends a request built fresh by buildReq on every attempt (so a
// consumed request body is never reused), retrying 500/502/503 responses and
// network errors up to maxAttempts times with exponential backoff. A 429 or,
// when notFoundID is non-zero, a 404 short-circuits immediately without
// retrying.
func (c *Client) doWithRetry(ctx context.Context, notFoundID int64, buildReq func() (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response

	operation := func() error {
		req, err := buildReq()
		if err != nil {
			return backoff.Permanent(err)
		}

		r, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}

		switch r.StatusCode {
		case http.StatusTooManyRequests:
			r.Body.Close()
			return backoff.Permanent(rateLimitedErr())
		case http.StatusNotFound:
			if notFoundID != 0 {
				r.Body.Close()
				return backoff.Permanent(notFoundErr(notFoundID))
			}
			resp = r
			return nil
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			r.Body.Close()
			return fmt.Errorf("retryable status %d", r.StatusCode)
		default:
			resp = r
			return nil
		}
	}

	err := backoff.Retry(operation, backoff.WithContext(c.newBackoff(), ctx))
	if err != nil {
		var ierr *Error
		if e, ok := err.(*Error); ok {
			ierr = e
		} else {
			ierr = requestFailedErr("request failed after retries", err)
		}
		return nil, ierr
	}
	return resp, nil
}

func (c *Client) authedRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// dropletEnvelope is the "{"droplet": {...}}" wrapper every single-droplet DO
// response uses.
type dropletEnvelope struct {
	Droplet dropletResponse `json:"droplet"`
}

type dropletResponse struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	Region   regionResponse `json:"region"`
	SizeSlug string         `json:"size_slug"`
	Image    imageResponse  `json:"image"`
	Status   string         `json:"status"`
	Networks networksResponse `json:"networks"`
}

type regionResponse struct {
	Slug string `json:"slug"`
}

type imageResponse struct {
	Slug string `json:"slug"`
}

type networksResponse struct {
	V4 []networkV4Response `json:"v4"`
}

type networkV4Response struct {
	IPAddress string `json:"ip_address"`
	Type      string `json:"type"`
}

// toDomain converts a DO wire response into this system's Droplet, preferring
// the public network entry for the IP address.
func (r dropletResponse) toDomain() *domain.Droplet {
	var ip *string
	for _, n := range r.Networks.V4 {
		if n.Type == "public" {
			addr := n.IPAddress
			ip = &addr
			break
		}
	}

	return &domain.Droplet{
		ID:        r.ID,
		Name:      r.Name,
		Region:    r.Region.Slug,
		Size:      r.SizeSlug,
		Image:     r.Image.Slug,
		Status:    domain.DropletStatusFromIaaS(r.Status),
		IPAddress: ip,
		CreatedAt: time.Now().UTC(),
	}
}

// CreateDroplet creates a new droplet and returns the control plane's view of
// it. Monitoring is always enabled and IPv6/backups always disabled —
// neither is configurable per spec.md.
func (c *Client) CreateDroplet(ctx context.Context, req domain.CreateRequest) (*domain.Droplet, error) {
	body := map[string]any{
		"name":       req.Name,
		"region":     req.Region,
		"size":       req.Size,
		"image":      req.Image,
		"user_data":  req.UserData,
		"tags":       req.Tags,
		"monitoring": true,
		"ipv6":       false,
		"backups":    false,
	}

	resp, err := c.doWithRetry(ctx, 0, func() (*http.Request, error) {
		return c.authedRequest(ctx, http.MethodPost, c.baseURL+"/droplets", body)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		return nil, creationFailedErr(string(text))
	}

	var envelope dropletEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, invalidResponseErr("decoding create droplet response", err)
	}
	return envelope.Droplet.toDomain(), nil
}

// GetDroplet fetches a droplet's current state by ID.
func (c *Client) GetDroplet(ctx context.Context, id int64) (*domain.Droplet, error) {
	url := fmt.Sprintf("%s/droplets/%d", c.baseURL, id)

	resp, err := c.doWithRetry(ctx, id, func() (*http.Request, error) {
		return c.authedRequest(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		return nil, requestFailedErr(string(text), nil)
	}

	var envelope dropletEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, invalidResponseErr("decoding get droplet response", err)
	}
	return envelope.Droplet.toDomain(), nil
}

// DestroyDroplet permanently deletes a droplet.
func (c *Client) DestroyDroplet(ctx context.Context, id int64) error {
	url := fmt.Sprintf("%s/droplets/%d", c.baseURL, id)

	resp, err := c.doWithRetry(ctx, id, func() (*http.Request, error) {
		return c.authedRequest(ctx, http.MethodDelete, url, nil)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		return requestFailedErr(string(text), nil)
	}
	return nil
}

// ShutdownDroplet issues a graceful power-off action.
func (c *Client) ShutdownDroplet(ctx context.Context, id int64) error {
	return c.dropletAction(ctx, id, "shutdown")
}

// RebootDroplet issues a reboot action.
func (c *Client) RebootDroplet(ctx context.Context, id int64) error {
	return c.dropletAction(ctx, id, "reboot")
}

func (c *Client) dropletAction(ctx context.Context, id int64, actionType string) error {
	url := fmt.Sprintf("%s/droplets/%d/actions", c.baseURL, id)
	body := map[string]string{"type": actionType}

	resp, err := c.doWithRetry(ctx, 0, func() (*http.Request, error) {
		return c.authedRequest(ctx, http.MethodPost, url, body)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		return requestFailedErr(string(text), nil)
	}
	return nil
}
