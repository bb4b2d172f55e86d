package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
)

func TestStatusForKind(t *testing.T) {
	cases := map[domain.Kind]int{
		domain.KindQuota:             http.StatusForbidden,
		domain.KindTransientIaaS:     http.StatusTooManyRequests,
		domain.KindValidation:        http.StatusBadRequest,
		domain.KindNotFound:          http.StatusNotFound,
		domain.KindVersionConflict:   http.StatusConflict,
		domain.KindInvalidState:      http.StatusBadRequest,
		domain.KindAuthFailed:        http.StatusUnauthorized,
		domain.KindInternalInvariant: http.StatusInternalServerError,
		domain.KindTransientStore:    http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusForKind(kind), "kind %s", kind)
	}
}

func TestWriteError_DomainError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, domain.AccountLimitReached(5))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var body errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "account limit reached")
}

func TestWriteError_ConfigVersionConflict(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, &domain.ConfigVersionConflict{Acknowledged: 1, Desired: 3})

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "config version conflict", body.Error)
	assert.Contains(t, body.Details, "acknowledged=1")
}

func TestWriteError_UnclassifiedErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, assertError("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body.Error, "unclassified errors never leak their message to the client")
}

type assertError string

func (e assertError) Error() string { return string(e) }
