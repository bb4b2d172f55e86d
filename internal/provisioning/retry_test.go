package provisioning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWithCompensationRetrySucceedsEventually(t *testing.T) {
	attempts := 0
	err := withCompensationRetry(context.Background(), zap.NewNop(), "test-op", func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWithCompensationRetryReturnsLastErrorAfterExhausting(t *testing.T) {
	attempts := 0
	sentinel := errors.New("persistent")
	err := withCompensationRetry(context.Background(), zap.NewNop(), "test-op", func(ctx context.Context) error {
		attempts++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, compensationAttempts, attempts)
}
