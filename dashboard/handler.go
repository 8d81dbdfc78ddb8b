// Package dashboard serves the sales conversion summary.
package dashboard

import (
	"context"
	"net/http"
	"time"

	"csrdesk/model"
	"csrdesk/render"
	"csrdesk/resources"

	"go.uber.org/zap"
)

type TicketStore interface {
	FetchAll(ctx context.Context, resource, ownerField, owner string) ([]model.Record, error)
}

type Handler struct {
	store  TicketStore
	loc    *time.Location
	logger *zap.Logger
}

func NewHandler(store TicketStore, loc *time.Location, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{store: store, loc: loc, logger: logger}
}

// SalesConversion summarizes tickets per sales agent.
// Query: referenceId, role, start, end.
func (h *Handler) SalesConversion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := resources.ConversionQuery{
			ReferenceID: q.Get("referenceId"),
			Role:        q.Get("role"),
		}
		if query.Role == resources.RoleStaff && query.ReferenceID == "" {
			render.Error(w, "referenceId is required for staff", http.StatusBadRequest)
			return
		}
		for param, dst := range map[string]*time.Time{"start": &query.Range.Start, "end": &query.Range.End} {
			raw := q.Get(param)
			if raw == "" {
				continue
			}
			t, ok := model.ParseTime(raw, h.loc)
			if !ok {
				render.Error(w, "Invalid "+param+" date", http.StatusBadRequest)
				return
			}
			*dst = t
		}

		tickets, err := h.store.FetchAll(r.Context(), resources.Tickets, "", "")
		if err != nil {
			h.logger.Error("failed to fetch tickets", zap.Error(err))
			render.Error(w, "Failed to fetch tickets.", http.StatusInternalServerError)
			return
		}
		render.JSON(w, http.StatusOK, resources.SalesConversion(tickets, query, h.loc))
	}
}
