package sessions

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipedeck/console/internal/metrics"
	"github.com/pipedeck/console/internal/models"
	"github.com/pipedeck/console/internal/storage"
)

func TestAuthenticatedGauge(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		expected float64
	}{
		{
			name:     "enabled by default",
			expected: 1,
		},
		{
			name:     "disabled for per-request managers",
			opts:     []Option{WithAuthenticatedGauge(false)},
			expected: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics.SessionAuthenticated.Set(0.5)
			t.Cleanup(func() { metrics.SessionAuthenticated.Set(0) })

			manager := NewManager(storage.NewMemoryStore(), &fakeIdentity{}, tt.opts...)
			require.NoError(t, manager.Login("tok1", "sess1", models.UserProfile{"name": "Bo"}))

			assert.Equal(t, tt.expected, testutil.ToFloat64(metrics.SessionAuthenticated))
		})
	}
}
