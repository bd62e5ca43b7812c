package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Probe checks one backing dependency.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type probeResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "storefront",
	})
}

// Ready runs every probe concurrently and answers 503 if any fails.
func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	results := make([]probeResult, len(a.probes))
	var wg sync.WaitGroup
	wg.Add(len(a.probes))
	for i := range a.probes {
		go func(i int) {
			defer wg.Done()
			res := probeResult{Name: a.probes[i].Name, Status: "ok"}
			if err := a.probes[i].Check(ctx); err != nil {
				res.Status = "down"
				res.Error = err.Error()
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	status, overall := http.StatusOK, "ok"
	for _, res := range results {
		if res.Status != "ok" {
			status, overall = http.StatusServiceUnavailable, "degraded"
			break
		}
	}
	writeJSON(w, status, map[string]any{
		"status":       overall,
		"service":      "storefront",
		"dependencies": results,
	})
}
