package orchestrator

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/loomwork/loom/pkg/datasource"
)

// NewRouter builds the orchestrator's HTTP surface: job submission and
// lifecycle control, datasource CRUD, and health/readiness probes.
func NewRouter(o *Orchestrator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", handleHealth)
	r.Get("/ready", handleReady(o))

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", handleSubmitJob(o))
		r.Get("/", handleListJobs(o))
		r.Get("/{id}", handleGetJob(o))
		r.Post("/{id}/cancel", handleCancelJob(o))
		r.Post("/{id}/resume", handleResumeJob(o))
	})

	r.Route("/datasources", func(r chi.Router) {
		r.Get("/", handleListDatasources(o))
		r.Post("/", handleCreateDatasource(o))
		r.Get("/{id}", handleGetDatasource(o))
		r.Put("/{id}", handleUpdateDatasource(o))
		r.Delete("/{id}", handleDeleteDatasource(o))
	})

	r.Post("/workers/{id}/register", handleRegisterWorker(o))
	r.Post("/workers/{id}/heartbeat", handleWorkerHeartbeat(o))
	r.Post("/callbacks/status", handleStatusCallback(o))
	r.Post("/callbacks/freeze", handleFreezeCallback(o))
	r.Post("/callbacks/complete", handleCompleteCallback(o))
	r.Post("/callbacks/failed", handleFailedCallback(o))

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once at least one worker has registered, since
// an orchestrator with no workers can accept jobs but never assign them.
func handleReady(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o.mu.Lock()
		workerCount := len(o.workers)
		o.mu.Unlock()
		if workerCount == 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not_ready", "workers": 0})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready", "workers": workerCount})
	}
}

func handleSubmitJob(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		job, err := o.Submit(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, job)
	}
}

func handleGetJob(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		job, err := o.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func handleListJobs(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := Status(r.URL.Query().Get("status"))
		jobs, err := o.List(r.Context(), status)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, jobs)
	}
}

func handleCancelJob(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := o.Cancel(r.Context(), id); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

type resumeRequest struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback,omitempty"`
}

func handleResumeJob(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req resumeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := o.Resume(r.Context(), id, req.Approved, req.Feedback); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func handleListDatasources(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, o.datasources.List())
	}
}

func handleCreateDatasource(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ds datasource.Datasource
		if err := decodeJSON(r, &ds); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		id, err := o.datasources.Create(ds)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

func handleGetDatasource(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ds, ok := o.datasources.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, errNotFound("datasource", id))
			return
		}
		writeJSON(w, http.StatusOK, ds)
	}
}

func handleUpdateDatasource(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var ds datasource.Datasource
		if err := decodeJSON(r, &ds); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := o.datasources.Update(id, ds); err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleDeleteDatasource(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := o.datasources.Delete(id); err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type registerWorkerRequest struct {
	Addr string `json:"addr"`
}

func handleRegisterWorker(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req registerWorkerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		o.RegisterWorker(id, req.Addr)
		w.WriteHeader(http.StatusNoContent)
	}
}

type heartbeatRequest struct {
	Busy bool `json:"busy"`
}

func handleWorkerHeartbeat(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req heartbeatRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		o.Heartbeat(id, req.Busy)
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleStatusCallback(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cb StatusCallback
		if err := decodeJSON(r, &cb); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := o.HandleStatusCallback(r.Context(), cb); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type jobIDRequest struct {
	JobID string `json:"job_id"`
}

func handleFreezeCallback(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobIDRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := o.HandleFreeze(r.Context(), req.JobID); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCompleteCallback(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobIDRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := o.HandleComplete(r.Context(), req.JobID); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type failedRequest struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason"`
}

func handleFailedCallback(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req failedRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := o.HandleFailed(r.Context(), req.JobID, req.Reason); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func errNotFound(kind, id string) error {
	return &notFoundError{kind: kind, id: id}
}

type notFoundError struct {
	kind string
	id   string
}

func (e *notFoundError) Error() string {
	return strings.ToUpper(e.kind[:1]) + e.kind[1:] + " " + e.id + " not found"
}
