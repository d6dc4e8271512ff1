package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthMonitorNoChecks(t *testing.T) {
	monitor := NewHealthMonitor("1.2.3", nil)

	status := monitor.GetStatus(context.Background())
	assert.Equal(t, StatusHealthy, status.OverallStatus)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Empty(t, status.CheckResults)
}

func TestHealthMonitorAggregation(t *testing.T) {
	failing := func(ctx context.Context) error { return errors.New("connection refused") }
	passing := func(ctx context.Context) error { return nil }

	tests := []struct {
		name     string
		critical bool
		expected HealthStatus
	}{
		{name: "non critical failure degrades", critical: false, expected: StatusDegraded},
		{name: "critical failure is unhealthy", critical: true, expected: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monitor := NewHealthMonitor("dev", nil)
			monitor.RegisterCheck("uploads", tt.critical, failing)
			monitor.RegisterCheck("engine", true, passing)

			status := monitor.GetStatus(context.Background())
			assert.Equal(t, tt.expected, status.OverallStatus)

			require.Contains(t, status.CheckResults, "uploads")
			assert.Equal(t, StatusUnhealthy, status.CheckResults["uploads"].Status)
			assert.Equal(t, "connection refused", status.CheckResults["uploads"].Message)
			assert.Equal(t, StatusHealthy, status.CheckResults["engine"].Status)
		})
	}
}

func TestHealthMonitorCheckGetsDeadline(t *testing.T) {
	monitor := NewHealthMonitor("dev", nil)
	monitor.RegisterCheck("deadline", true, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		if !ok {
			return errors.New("no deadline")
		}
		return nil
	})

	status := monitor.GetStatus(context.Background())
	assert.Equal(t, StatusHealthy, status.OverallStatus)
}
