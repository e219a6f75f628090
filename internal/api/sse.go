package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/events"
)

// handleRunEvents streams the progress events of one run as Server-Sent
// Events until the client goes away or the run reaches a terminal status.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if s.eventBus == nil {
		respondError(w, http.StatusServiceUnavailable, "event bus not available")
		return
	}

	cp, err := s.engine.GetState(r.Context(), runID)
	if err != nil {
		s.respondDomainError(w, err, "")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	eventCh := s.eventBus.SubscribeRun(runID)
	defer s.eventBus.Unsubscribe(eventCh)

	ctx := r.Context()
	s.logger.Info("SSE client connected", "remote_addr", r.RemoteAddr, "run_id", runID)

	s.sendSSEEvent(w, flusher, "snapshot", cp.Summary())
	if cp.Status.IsTerminal() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("SSE client disconnected", "remote_addr", r.RemoteAddr, "run_id", runID)
			return

		case event, ok := <-eventCh:
			if !ok {
				return
			}
			s.sendSSEEvent(w, flusher, event.EventType(), event)
			if s.endsRun(r, event) {
				return
			}
		}
	}
}

func (s *Server) endsRun(r *http.Request, e events.Event) bool {
	switch e.EventType() {
	case events.TypeReportCompleted, events.TypeRunFailed, events.TypeRunAbandoned:
		return true
	case events.TypeRunResumed:
		// Approving a persona run completes it without further events.
		cp, err := s.engine.GetState(r.Context(), e.RunID())
		return err == nil && cp.Status.IsTerminal()
	}
	return false
}

// sendSSEEvent writes one event in "event: type\ndata: json\n\n" framing.
func (s *Server) sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}
