package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/mouthwatch/internal/log"
	"github.com/ayusman/mouthwatch/internal/store"
)

// maxEventLimit caps the limit query parameter.
const maxEventLimit = 1000

// EventsHandler lists and prunes the event history.
type EventsHandler struct {
	store *store.Store
}

// NewEventsHandler creates a new EventsHandler with the given store.
func NewEventsHandler(s *store.Store) *EventsHandler {
	return &EventsHandler{store: s}
}

type listEventsResponse struct {
	Events []*store.Event `json:"events"`
	Total  int            `json:"total"`
}

type deleteEventsResponse struct {
	Deleted int64 `json:"deleted"`
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodDelete:
		h.deleteBefore(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// list handles GET /api/events?kind=&limit=&since=.
func (h *EventsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter store.EventFilter

	if kind := q.Get("kind"); kind != "" {
		filter.Kind = store.EventKind(kind)
		if !filter.Kind.Valid() {
			writeError(w, http.StatusBadRequest, "kind must be 'state_change' or 'alert'")
			return
		}
	}

	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = min(n, maxEventLimit)
	}

	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 time")
			return
		}
		filter.Since = t
	}

	events, err := h.store.Events().List(filter)
	if err != nil {
		log.Error("failed to list events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	total, err := h.store.Events().Count(filter)
	if err != nil {
		log.Error("failed to count events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to count events")
		return
	}

	if events == nil {
		events = []*store.Event{}
	}
	writeJSON(w, http.StatusOK, listEventsResponse{Events: events, Total: total})
}

// deleteBefore handles DELETE /api/events?before=.
func (h *EventsHandler) deleteBefore(w http.ResponseWriter, r *http.Request) {
	before := r.URL.Query().Get("before")
	if before == "" {
		writeError(w, http.StatusBadRequest, "before is required")
		return
	}

	t, err := time.Parse(time.RFC3339, before)
	if err != nil {
		writeError(w, http.StatusBadRequest, "before must be an RFC 3339 time")
		return
	}

	n, err := h.store.Events().DeleteBefore(t)
	if err != nil {
		log.Error("failed to delete events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete events")
		return
	}

	writeJSON(w, http.StatusOK, deleteEventsResponse{Deleted: n})
}
