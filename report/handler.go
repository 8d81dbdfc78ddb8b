// Package report serves the derived list views and their file exports.
package report

import (
	"context"
	"net/http"
	"time"

	"csrdesk/model"
	"csrdesk/render"
	"csrdesk/resources"
	"csrdesk/view"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Fetcher loads a resource's full record set.
type Fetcher interface {
	FetchAll(ctx context.Context, resource, ownerField, owner string) ([]model.Record, error)
}

type Handler struct {
	store  Fetcher
	engine *view.Engine
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(store Fetcher, engine *view.Engine, logger *zap.Logger) *Handler {
	return &Handler{store: store, engine: engine, logger: logger, now: time.Now}
}

// load resolves the resource, fetches its records and reads the view state
// from the query string. It writes the error response itself.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (resources.Resource, []model.Record, model.ViewState, bool) {
	res, err := resources.LookupIn(mux.Vars(r)["resource"], h.engine.Location())
	if err != nil {
		render.Error(w, err.Error(), http.StatusNotFound)
		return res, nil, model.ViewState{}, false
	}
	q := r.URL.Query()
	recs, err := h.store.FetchAll(r.Context(), res.Collection, res.OwnerField, q.Get("referenceId"))
	if err != nil {
		h.logger.Error("failed to fetch records", zap.String("resource", res.Key), zap.Error(err))
		render.Error(w, "Failed to fetch records.", http.StatusInternalServerError)
		return res, nil, model.ViewState{}, false
	}
	return res, recs, view.StateFromQuery(q, res.View, h.engine.Location()), true
}

// Report returns one page of the derived view. Pass group=1 for the grouped
// variant on resources that define a grouping.
func (h *Handler) Report() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, recs, state, ok := h.load(w, r)
		if !ok {
			return
		}
		spec := res.View
		if r.URL.Query().Get("group") != "1" {
			spec.GroupBy = nil
		}

		dv := h.engine.Compute(recs, state, spec)
		now := h.now()
		loc := h.engine.Location()
		rows := make([]model.Record, 0, len(dv.Rows))
		for _, row := range dv.Rows {
			rows = append(rows, res.Apply(row, now, loc))
		}
		dv.Rows = rows
		for i := range dv.Groups {
			for j, m := range dv.Groups[i].Members {
				dv.Groups[i].Members[j] = res.Apply(m, now, loc)
			}
			dv.Groups[i].Representative = res.Apply(dv.Groups[i].Representative, now, loc)
		}
		render.JSON(w, http.StatusOK, dv)
	}
}
