package resilience

import (
	"log/slog"
	"sync"
	"time"
)

// ServiceHealth is an observability snapshot for one upstream dependency.
// It never gates or retries calls; failures still propagate to the caller.
type ServiceHealth struct {
	ServiceName   string    `json:"service_name"`
	Healthy       bool      `json:"healthy"`
	TotalRequests int64     `json:"total_requests"`
	ErrorCount    int64     `json:"error_count"`
	ErrorRate     float64   `json:"error_rate"`
	LastError     string    `json:"last_error,omitempty"`
	LastErrorTime time.Time `json:"last_error_time,omitempty"`
	LastSuccess   time.Time `json:"last_success,omitempty"`
}

// HealthTracker tracks request outcomes for registered upstream services
type HealthTracker struct {
	mutex    sync.RWMutex
	services map[string]*ServiceHealth
}

// NewHealthTracker creates an empty tracker
func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		services: make(map[string]*ServiceHealth),
	}
}

// Register adds a service to the tracker
func (t *HealthTracker) Register(serviceName string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.services[serviceName] = &ServiceHealth{
		ServiceName: serviceName,
		Healthy:     true,
	}

	slog.Info("Registered upstream service for health tracking", "service", serviceName)
}

// RecordRequest records the outcome of one call to a registered service
func (t *HealthTracker) RecordRequest(serviceName string, success bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	service, exists := t.services[serviceName]
	if !exists {
		return
	}

	service.TotalRequests++
	if success {
		service.LastSuccess = time.Now()
	} else {
		service.ErrorCount++
		service.LastErrorTime = time.Now()
	}

	if service.TotalRequests > 0 {
		service.ErrorRate = float64(service.ErrorCount) / float64(service.TotalRequests)
	}
	service.Healthy = service.ErrorRate < 0.5
}

// RecordError records a failed call along with its error message
func (t *HealthTracker) RecordError(serviceName string, err error) {
	if err != nil {
		t.mutex.Lock()
		if service, exists := t.services[serviceName]; exists {
			service.LastError = err.Error()
		}
		t.mutex.Unlock()
	}

	t.RecordRequest(serviceName, false)
}

// Snapshot returns a copy of the health state of all registered services
func (t *HealthTracker) Snapshot() map[string]ServiceHealth {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	snapshot := make(map[string]ServiceHealth, len(t.services))
	for name, service := range t.services {
		snapshot[name] = *service
	}
	return snapshot
}
