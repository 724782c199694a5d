package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidateCooldown(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		cooldown time.Duration
		delta    time.Duration
		rejected bool
	}{
		{
			name:     "second command inside cooldown rejected",
			cooldown: 5 * time.Second,
			delta:    2 * time.Second,
			rejected: true,
		},
		{
			name:     "second command at cooldown boundary accepted",
			cooldown: 5 * time.Second,
			delta:    5 * time.Second,
			rejected: false,
		},
		{
			name:     "second command after cooldown accepted",
			cooldown: 5 * time.Second,
			delta:    10 * time.Second,
			rejected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.cooldown, zap.NewNop())

			require.NoError(t, limiter.Validate(1, base))

			err := limiter.Validate(1, base.Add(tt.delta))
			if tt.rejected {
				var cooldown *CooldownError
				require.ErrorAs(t, err, &cooldown)
				assert.InDelta(t, (tt.cooldown - tt.delta).Seconds(), cooldown.Remaining.Seconds(), 0.001)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateScenario(t *testing.T) {
	// cooldown=5s: accepted at t=0, rejected at t=2 with ~3s remaining,
	// accepted at t=6.
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := New(5*time.Second, zap.NewNop())

	require.NoError(t, limiter.Validate(42, base))

	err := limiter.Validate(42, base.Add(2*time.Second))
	var cooldown *CooldownError
	require.ErrorAs(t, err, &cooldown)
	assert.InDelta(t, 3.0, cooldown.Remaining.Seconds(), 0.001)

	assert.NoError(t, limiter.Validate(42, base.Add(6*time.Second)))
}

func TestValidateIdentitiesIndependent(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := New(5*time.Second, zap.NewNop())

	require.NoError(t, limiter.Validate(1, base))
	assert.NoError(t, limiter.Validate(2, base), "a different identity is not affected")
}

func TestReset(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := New(5*time.Second, zap.NewNop())

	require.NoError(t, limiter.Validate(1, base))
	require.Error(t, limiter.Validate(1, base.Add(time.Second)))

	limiter.Reset()

	assert.NoError(t, limiter.Validate(1, base.Add(time.Second)), "reset clears history immediately")
}

func TestValidateConcurrentSameIdentity(t *testing.T) {
	// Two near-simultaneous commands from one identity must not both pass.
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := New(5*time.Second, zap.NewNop())

	const workers = 32
	var wg sync.WaitGroup
	accepted := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Validate(7, base); err == nil {
				accepted <- struct{}{}
			} else {
				var cooldown *CooldownError
				assert.True(t, errors.As(err, &cooldown))
			}
		}()
	}
	wg.Wait()
	close(accepted)

	assert.Equal(t, 1, len(accepted), "exactly one concurrent command is accepted")
}
