package worker

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/loomwork/loom/pkg/orchestrator"
)

// NewRouter builds the worker's HTTP surface: job start/resume/cancel,
// status, and health/readiness probes.
func NewRouter(w *Worker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", handleWorkerHealth)
	r.Get("/ready", handleWorkerReady(w))
	r.Get("/status", handleWorkerStatus(w))
	r.Post("/start", handleWorkerStart(w))
	r.Post("/resume", handleWorkerResume(w))
	r.Post("/cancel", handleWorkerCancel(w))

	return r
}

func writeJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, err error) {
	writeJSON(rw, status, map[string]string{"error": err.Error()})
}

func handleWorkerHealth(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
}

func handleWorkerReady(w *Worker) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if w.Busy() {
			writeJSON(rw, http.StatusOK, map[string]interface{}{"status": "ready", "busy": true})
			return
		}
		writeJSON(rw, http.StatusOK, map[string]interface{}{"status": "ready", "busy": false})
	}
}

func handleWorkerStatus(w *Worker) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		jobID, phase, phaseNum, iterations, tokens, ok := w.Status()
		if !ok {
			writeJSON(rw, http.StatusOK, map[string]interface{}{"idle": true})
			return
		}
		writeJSON(rw, http.StatusOK, map[string]interface{}{
			"idle":            false,
			"job_id":          jobID,
			"phase":           phase,
			"phase_number":    phaseNum,
			"iteration_count": iterations,
			"tokens":          tokens,
		})
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func handleWorkerStart(w *Worker) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var payload orchestrator.JobStartPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(rw, http.StatusBadRequest, err)
			return
		}
		if err := w.Start(payload); err != nil {
			writeError(rw, http.StatusConflict, err)
			return
		}
		rw.WriteHeader(http.StatusAccepted)
	}
}

func handleWorkerResume(w *Worker) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var payload orchestrator.JobResumePayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(rw, http.StatusBadRequest, err)
			return
		}
		if err := w.Resume(payload); err != nil {
			writeError(rw, http.StatusConflict, err)
			return
		}
		rw.WriteHeader(http.StatusAccepted)
	}
}

type cancelRequest struct {
	JobID string `json:"job_id"`
}

func handleWorkerCancel(w *Worker) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var req cancelRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(rw, http.StatusBadRequest, err)
			return
		}
		if err := w.Cancel(req.JobID); err != nil {
			writeError(rw, http.StatusNotFound, err)
			return
		}
		rw.WriteHeader(http.StatusAccepted)
	}
}
