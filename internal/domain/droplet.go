package domain

import (
	"time"

	"github.com/google/uuid"
)

// DropletStatus mirrors the DigitalOcean droplet lifecycle states this system
// cares about; any other value the IaaS reports collapses to DropletError.
type DropletStatus string

const (
	DropletNew       DropletStatus = "new"
	DropletActive    DropletStatus = "active"
	DropletOff       DropletStatus = "off"
	DropletDestroyed DropletStatus = "destroyed"
	DropletError     DropletStatus = "error"
)

func (DropletStatus) Values() []string {
	return []string{string(DropletNew), string(DropletActive), string(DropletOff), string(DropletDestroyed), string(DropletError)}
}

func (s DropletStatus) Valid() bool {
	switch s {
	case DropletNew, DropletActive, DropletOff, DropletDestroyed, DropletError:
		return true
	default:
		return false
	}
}

// DropletStatusFromIaaS maps a raw DigitalOcean status string, defaulting
// anything unrecognized to DropletError rather than silently accepting it —
// the spec is explicit that unknown droplet states are errors, not "new".
func DropletStatusFromIaaS(raw string) DropletStatus {
	switch raw {
	case "new":
		return DropletNew
	case "active":
		return DropletActive
	case "off":
		return DropletOff
	default:
		return DropletError
	}
}

// Droplet is the control plane's record of a cloud VM. The IaaS is the true
// owner of the resource; this row is a cache of its last known state plus the
// back-reference to the bot it serves.
type Droplet struct {
	ID          int64
	Name        string
	Region      string
	Size        string
	Image       string
	Status      DropletStatus
	IPAddress   *string
	BotID       *uuid.UUID
	CreatedAt   time.Time
	DestroyedAt *time.Time
}

// CreateRequest is the shape the IaaS Adapter needs to create a droplet.
type CreateRequest struct {
	Name     string
	Region   string
	Size     string
	Image    string
	UserData string
	Tags     []string
}
