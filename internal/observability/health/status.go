package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HealthStatus represents the health status
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// DefaultCheckTimeout bounds a single dependency check
const DefaultCheckTimeout = 5 * time.Second

// CheckFunc probes one dependency
type CheckFunc func(ctx context.Context) error

// HealthResult represents the result of a health check
type HealthResult struct {
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Critical bool          `json:"critical"`
	Duration time.Duration `json:"duration"`
}

// SystemStatus represents overall system health
type SystemStatus struct {
	OverallStatus  HealthStatus            `json:"status"`
	Version        string                  `json:"version"`
	Uptime         string                  `json:"uptime"`
	CheckResults   map[string]HealthResult `json:"checks"`
	CriticalIssues []string                `json:"critical_issues,omitempty"`
	LastCheck      time.Time               `json:"last_check"`
}

type registeredCheck struct {
	fn       CheckFunc
	critical bool
}

// HealthMonitor runs dependency checks on demand
type HealthMonitor struct {
	logger    *logrus.Logger
	version   string
	startTime time.Time
	timeout   time.Duration
	mu        sync.RWMutex
	checks    map[string]registeredCheck
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(version string, logger *logrus.Logger) *HealthMonitor {
	if logger == nil {
		logger = logrus.New()
	}

	return &HealthMonitor{
		logger:    logger,
		version:   version,
		startTime: time.Now(),
		timeout:   DefaultCheckTimeout,
		checks:    make(map[string]registeredCheck),
	}
}

// RegisterCheck adds a named check. A failing critical check makes the
// service unhealthy, any other failure only degrades it.
func (hm *HealthMonitor) RegisterCheck(name string, critical bool, fn CheckFunc) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[name] = registeredCheck{fn: fn, critical: critical}
}

// GetStatus runs every check and aggregates the outcome
func (hm *HealthMonitor) GetStatus(ctx context.Context) *SystemStatus {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checks))
	for name := range hm.checks {
		names = append(names, name)
	}
	checks := make(map[string]registeredCheck, len(hm.checks))
	for name, check := range hm.checks {
		checks[name] = check
	}
	hm.mu.RUnlock()
	sort.Strings(names)

	status := &SystemStatus{
		OverallStatus: StatusHealthy,
		Version:       hm.version,
		Uptime:        time.Since(hm.startTime).Round(time.Second).String(),
		CheckResults:  make(map[string]HealthResult, len(names)),
		LastCheck:     time.Now(),
	}

	for _, name := range names {
		result := hm.executeCheck(ctx, name, checks[name])
		status.CheckResults[name] = result
		if result.Status == StatusHealthy {
			continue
		}
		if result.Critical {
			status.CriticalIssues = append(status.CriticalIssues, name)
			status.OverallStatus = StatusUnhealthy
		} else if status.OverallStatus == StatusHealthy {
			status.OverallStatus = StatusDegraded
		}
	}

	return status
}

// executeCheck executes a single health check
func (hm *HealthMonitor) executeCheck(ctx context.Context, name string, check registeredCheck) HealthResult {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, hm.timeout)
	defer cancel()

	result := HealthResult{Status: StatusHealthy, Critical: check.critical}
	if err := check.fn(checkCtx); err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
		hm.logger.WithFields(logrus.Fields{
			"check":    name,
			"critical": check.critical,
		}).WithError(err).Warn("Health check failed")
	}
	result.Duration = time.Since(start)

	return result
}
