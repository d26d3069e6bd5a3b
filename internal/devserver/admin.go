package devserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"

	"github.com/kkookk/kkookk/internal/metrics"
)

// admin serves the /admin control plane used by tests and demos.
type admin struct {
	store *Store
	stats *metrics.RequestMetrics
}

func newAdmin(store *Store, stats *metrics.RequestMetrics) *admin {
	return &admin{store: store, stats: stats}
}

// Routes mounts the admin endpoints on r.
func (a *admin) Routes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/reset", a.handleReset)
		r.Get("/state", a.handleGetState)
		r.Post("/expire", a.handleExpire)
		r.Get("/time", a.handleGetTime)
		r.Post("/time/advance", a.handleTimeAdvance)
		r.Get("/metrics", a.handleMetrics)
	})
}

func (a *admin) handleReset(w http.ResponseWriter, r *http.Request) {
	a.store.Reset()
	a.stats.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (a *admin) handleGetState(w http.ResponseWriter, r *http.Request) {
	data, err := a.store.Snapshot()
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *admin) handleExpire(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"expired": a.store.ExpirePending()})
}

func (a *admin) handleGetTime(w http.ResponseWriter, r *http.Request) {
	_, simulated := a.store.Clock().(*clockwork.FakeClock)
	writeJSON(w, http.StatusOK, map[string]any{
		"now":       a.store.Clock().Now().UTC().Format(time.RFC3339),
		"simulated": simulated,
	})
}

func (a *admin) handleTimeAdvance(w http.ResponseWriter, r *http.Request) {
	requestID := chimw.GetReqID(r.Context())
	fake, ok := a.store.Clock().(*clockwork.FakeClock)
	if !ok {
		writeError(w, requestID, http.StatusBadRequest, "bad_request", "simulated clock not configured")
		return
	}

	var req struct {
		Duration string `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, requestID, http.StatusBadRequest, "bad_request", "invalid request: "+err.Error())
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil || d < 0 {
		writeError(w, requestID, http.StatusBadRequest, "bad_request", "invalid duration")
		return
	}

	fake.Advance(d)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "advanced",
		"duration": d.String(),
		"now":      fake.Now().UTC().Format(time.RFC3339),
	})
}

func (a *admin) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.stats.Snapshot())
}
