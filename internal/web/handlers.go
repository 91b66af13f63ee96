package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/JonMunkholm/stageloader/internal/core"
	"github.com/JonMunkholm/stageloader/internal/logging"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.handler.Status())
}

// handleEvent runs one ingestion synchronously.
//
// Responses map onto trigger retry semantics: 204 for a skip or a
// non-finalize notification (acknowledged, never retried), 200 with the run result on success, 400 for a body that
// can never succeed, 429 when all run slots are busy and 500 for a failed
// run so the platform redelivers.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxEventBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, r, err, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ev, err := decodeEvent(body)
	if err == nil {
		err = checkCloudEventType(r.Header.Get(cloudEventTypeHeader))
	}
	if errors.Is(err, errIgnoredEvent) {
		logging.FromContext(r.Context()).Debug("event skipped", "reason", err.Error())
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	res, err := s.handler.Handle(r.Context(), ev)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrTooManyRuns) {
			w.Header().Set("Retry-After", "30")
			status = http.StatusTooManyRequests
		}
		respondRunError(w, r, res, err, status)
		return
	}

	if res.Status == core.StatusSkipped {
		logging.FromContext(r.Context()).Debug("event skipped", "reason", res.Reason)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, res)
}
