package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds application metrics
type Metrics struct {
	RequestCount     int64
	ErrorCount       int64
	CacheHits        int64
	CacheMisses      int64
	CompletionCalls  int64
	CompletionErrors int64
	StartTime        time.Time

	responseTimes      []time.Duration
	responseTimesMutex sync.RWMutex

	requestCountByStatus map[int]int64
	statusMutex          sync.RWMutex
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:            time.Now(),
		responseTimes:        make([]time.Duration, 0, 1000),
		requestCountByStatus: make(map[int]int64),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

// IncrementCompletionCall increments the upstream completion call count
func (m *Metrics) IncrementCompletionCall() {
	atomic.AddInt64(&m.CompletionCalls, 1)
}

// IncrementCompletionError increments the upstream completion failure count
func (m *Metrics) IncrementCompletionError() {
	atomic.AddInt64(&m.CompletionErrors, 1)
}

// RecordResponseTime stores a response time sample, keeping the last 1000
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	m.responseTimesMutex.Lock()
	m.responseTimes = append(m.responseTimes, duration)
	if len(m.responseTimes) > 1000 {
		m.responseTimes = m.responseTimes[1:]
	}
	m.responseTimesMutex.Unlock()
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.statusMutex.Lock()
	defer m.statusMutex.Unlock()
	m.requestCountByStatus[statusCode]++
}

// GetStats returns a snapshot of all metrics
func (m *Metrics) GetStats() map[string]interface{} {
	m.statusMutex.RLock()
	byStatus := make(map[int]int64, len(m.requestCountByStatus))
	for status, count := range m.requestCountByStatus {
		byStatus[status] = count
	}
	m.statusMutex.RUnlock()

	p50, p95, p99 := m.percentiles()

	return map[string]interface{}{
		"uptime_seconds":       time.Since(m.StartTime).Seconds(),
		"request_count":        atomic.LoadInt64(&m.RequestCount),
		"error_count":          atomic.LoadInt64(&m.ErrorCount),
		"cache_hits":           atomic.LoadInt64(&m.CacheHits),
		"cache_misses":         atomic.LoadInt64(&m.CacheMisses),
		"completion_calls":     atomic.LoadInt64(&m.CompletionCalls),
		"completion_errors":    atomic.LoadInt64(&m.CompletionErrors),
		"requests_by_status":   byStatus,
		"response_time_p50_ms": p50.Milliseconds(),
		"response_time_p95_ms": p95.Milliseconds(),
		"response_time_p99_ms": p99.Milliseconds(),
	}
}

func (m *Metrics) percentiles() (p50, p95, p99 time.Duration) {
	m.responseTimesMutex.RLock()
	samples := make([]time.Duration, len(m.responseTimes))
	copy(samples, m.responseTimes)
	m.responseTimesMutex.RUnlock()

	if len(samples) == 0 {
		return 0, 0, 0
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	percentile := func(p float64) time.Duration {
		idx := int(p * float64(len(samples)-1))
		return samples[idx]
	}

	return percentile(0.50), percentile(0.95), percentile(0.99)
}
