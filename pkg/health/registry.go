// Package health aggregates dependency checks behind the /health endpoints.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/nimburion/postsvc/pkg/server/router"
)

// Status is the health of one component or of the whole service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name       string    `json:"name"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMS int64     `json:"duration_ms"`
}

// Checker checks one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Report is the aggregated answer of every registered check.
type Report struct {
	Status    Status        `json:"status"`
	Checks    []CheckResult `json:"checks"`
	Timestamp time.Time     `json:"timestamp"`
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool {
	return r.Status == StatusHealthy
}

// Registry runs registered checks concurrently.
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewRegistry creates an empty registry. An empty registry is healthy.
func NewRegistry() *Registry {
	return &Registry{checkers: make(map[string]Checker)}
}

// Register adds checker, replacing any checker with the same name.
func (r *Registry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[checker.Name()] = checker
}

// Check runs every check and aggregates the results, ordered by name.
func (r *Registry) Check(ctx context.Context) Report {
	r.mu.RLock()
	checkers := make([]Checker, 0, len(r.checkers))
	for _, c := range r.checkers {
		checkers = append(checkers, c)
	}
	r.mu.RUnlock()

	results := make([]CheckResult, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()
			results[i] = c.Check(ctx)
		}(i, c)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	status := StatusHealthy
	for _, res := range results {
		if res.Status != StatusHealthy {
			status = StatusUnhealthy
		}
	}
	return Report{Status: status, Checks: results, Timestamp: time.Now().UTC()}
}

// Handler answers 200 with the report when healthy and 503 otherwise.
func (r *Registry) Handler() router.HandlerFunc {
	return func(c router.Context) error {
		report := r.Check(c.Request().Context())
		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, report)
	}
}

// LiveHandler answers 200 as long as the process serves requests.
func LiveHandler() router.HandlerFunc {
	return func(c router.Context) error {
		return c.JSON(http.StatusOK, map[string]Status{"status": StatusHealthy})
	}
}
