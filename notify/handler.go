package notify

import (
	"errors"
	"net/http"

	"csrdesk/model"
	"csrdesk/render"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AckObserver is told about every accepted acknowledgement.
type AckObserver interface {
	Acknowledged(source model.SourceType)
}

type Handler struct {
	feed     *Feed
	poller   *Poller
	src      Source
	logger   *zap.Logger
	observer AckObserver
}

func NewHandler(feed *Feed, poller *Poller, src Source, logger *zap.Logger, observer AckObserver) *Handler {
	return &Handler{feed: feed, poller: poller, src: src, logger: logger, observer: observer}
}

type listResponse struct {
	Items  []model.NotificationItem `json:"items"`
	Counts map[model.SourceType]int `json:"counts"`
	Total  int                      `json:"total"`
}

// List returns the caller's live notifications. The first request for an
// owner registers it with the poller and fills its feed immediately.
func (h *Handler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := r.URL.Query().Get("referenceId")
		if owner == "" {
			render.Error(w, "referenceId is required", http.StatusBadRequest)
			return
		}
		if h.poller.Watch(owner) {
			if err := h.poller.PollAll(r.Context(), owner); err != nil {
				h.logger.Warn("initial notification poll failed", zap.String("owner", owner), zap.Error(err))
			}
		}
		items := h.feed.Items(owner)
		if items == nil {
			items = []model.NotificationItem{}
		}
		render.JSON(w, http.StatusOK, listResponse{Items: items, Counts: h.feed.Counts(owner), Total: len(items)})
	}
}

// Unwatch stops polling for the caller, as when its screen closes.
func (h *Handler) Unwatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := r.URL.Query().Get("referenceId")
		if owner == "" {
			render.Error(w, "referenceId is required", http.StatusBadRequest)
			return
		}
		h.poller.Unwatch(owner)
		render.Message(w, "Stopped watching notifications.")
	}
}

// MarkRead acknowledges every live item of one record.
func (h *Handler) MarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		source, err := model.ParseSourceType(vars["source"])
		if err != nil {
			render.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		owner := r.URL.Query().Get("referenceId")
		if owner == "" {
			render.Error(w, "referenceId is required", http.StatusBadRequest)
			return
		}

		err = h.feed.Acknowledge(r.Context(), h.src, owner, source, vars["id"])
		switch {
		case errors.Is(err, ErrUnknownItem):
			render.Error(w, "Notification not found", http.StatusNotFound)
			return
		case err != nil:
			h.logger.Error("failed to acknowledge notification",
				zap.String("source", string(source)),
				zap.String("id", vars["id"]),
				zap.Error(err))
			render.Error(w, "Failed to mark notification as read.", http.StatusInternalServerError)
			return
		}
		if h.observer != nil {
			h.observer.Acknowledged(source)
		}
		render.Message(w, "Notification marked as read.")
	}
}
