// Package record serves create, read, update and delete for every registered
// resource over the document store.
package record

import (
	"encoding/json"
	"errors"
	"net/http"

	"csrdesk/database"
	"csrdesk/model"
	"csrdesk/render"
	"csrdesk/resources"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var ErrMissingCompany = errors.New("Missing required fields: name of the company.")

// accountFields are copied from a new ticket into the account it creates.
var accountFields = []string{"CompanyName", "CustomerName", "ContactNumber", "Gender", "Email", "CityAddress", "CustomerSegment", "userName", "ReferenceID"}

type Handler struct {
	store  *database.Store
	logger *zap.Logger
}

func NewHandler(store *database.Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) resource(w http.ResponseWriter, r *http.Request) (resources.Resource, bool) {
	res, err := resources.Lookup(mux.Vars(r)["resource"])
	if err != nil {
		render.Error(w, err.Error(), http.StatusNotFound)
		return res, false
	}
	return res, true
}

// writable resolves the resource for a write. Read-only views answer 405.
func (h *Handler) writable(w http.ResponseWriter, r *http.Request) (resources.Resource, bool) {
	res, err := resources.LookupWritable(mux.Vars(r)["resource"])
	switch {
	case errors.Is(err, resources.ErrReadOnlyResource):
		render.Error(w, err.Error(), http.StatusMethodNotAllowed)
		return res, false
	case err != nil:
		render.Error(w, err.Error(), http.StatusNotFound)
		return res, false
	}
	return res, true
}

// List returns the whole collection, narrowed to one owner with ?referenceId=.
func (h *Handler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := h.resource(w, r)
		if !ok {
			return
		}
		recs, err := h.store.FetchAll(r.Context(), res.Collection, res.OwnerField, r.URL.Query().Get("referenceId"))
		if err != nil {
			h.logger.Error("failed to list records", zap.String("resource", res.Key), zap.Error(err))
			render.Error(w, "Failed to fetch records.", http.StatusInternalServerError)
			return
		}
		render.JSON(w, http.StatusOK, recs)
	}
}

func (h *Handler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := h.resource(w, r)
		if !ok {
			return
		}
		id := mux.Vars(r)["id"]
		rec, err := h.store.Get(r.Context(), res.Collection, id)
		if err != nil {
			h.writeStoreError(w, res, id, err)
			return
		}
		render.JSON(w, http.StatusOK, rec)
	}
}

// Validate applies the create rules of res to rec.
func Validate(res resources.Resource, rec model.Record) error {
	if res.RequireCompany && rec.Text("CompanyName") == "" {
		return ErrMissingCompany
	}
	return nil
}

func (h *Handler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := h.writable(w, r)
		if !ok {
			return
		}
		var rec model.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil || rec == nil {
			render.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := Validate(res, rec); err != nil {
			render.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		created, err := h.store.Insert(r.Context(), res.Collection, rec)
		if err != nil {
			h.logger.Error("failed to create record", zap.String("resource", res.Key), zap.Error(err))
			render.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		message := "Record created."
		if res.Collection == "tickets" {
			message = "Data created in Tickets (and Accounts if new)"
			if err := h.ensureAccount(r, created); err != nil {
				h.logger.Warn("failed to create account for ticket", zap.String("id", created.ID()), zap.Error(err))
			}
		}
		render.JSON(w, http.StatusCreated, map[string]any{
			"message": message,
			"id":      created.ID(),
			"record":  created,
		})
	}
}

// ensureAccount adds an account for the ticket's customer unless one with the
// same company, customer and contact number already exists.
func (h *Handler) ensureAccount(r *http.Request, ticket model.Record) error {
	match := map[string]string{
		"CompanyName":   ticket.Text("CompanyName"),
		"CustomerName":  ticket.Text("CustomerName"),
		"ContactNumber": ticket.Text("ContactNumber"),
	}
	_, err := h.store.FindOne(r.Context(), "accounts", match)
	if err == nil {
		return nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return err
	}
	account := model.Record{}
	for _, f := range accountFields {
		if v, ok := ticket[f]; ok {
			account[f] = v
		}
	}
	_, err = h.store.Insert(r.Context(), "accounts", account)
	return err
}

func (h *Handler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := h.writable(w, r)
		if !ok {
			return
		}
		id := mux.Vars(r)["id"]
		var patch model.Record
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			render.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if v, ok := patch["CompanyName"]; ok && res.RequireCompany && model.Stringify(v) == "" {
			render.Error(w, ErrMissingCompany.Error(), http.StatusBadRequest)
			return
		}
		updated, err := h.store.Update(r.Context(), res.Collection, id, patch)
		if err != nil {
			h.writeStoreError(w, res, id, err)
			return
		}
		render.JSON(w, http.StatusOK, updated)
	}
}

func (h *Handler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := h.writable(w, r)
		if !ok {
			return
		}
		id := mux.Vars(r)["id"]
		if err := h.store.Delete(r.Context(), res.Collection, id); err != nil {
			h.writeStoreError(w, res, id, err)
			return
		}
		render.Message(w, "Record deleted.")
	}
}

// BulkDelete removes the ids listed in {"ids": [...]}.
func (h *Handler) BulkDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := h.writable(w, r)
		if !ok {
			return
		}
		var payload struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.IDs) == 0 {
			render.Error(w, "No IDs provided for bulk delete", http.StatusBadRequest)
			return
		}
		n, err := h.store.BulkDelete(r.Context(), res.Collection, payload.IDs)
		if err != nil {
			h.logger.Error("bulk delete failed", zap.String("resource", res.Key), zap.Error(err))
			render.Error(w, "Failed to delete multiple records", http.StatusInternalServerError)
			return
		}
		render.JSON(w, http.StatusOK, map[string]any{
			"message":      "Bulk delete successful",
			"deletedCount": n,
		})
	}
}

func (h *Handler) writeStoreError(w http.ResponseWriter, res resources.Resource, id string, err error) {
	if errors.Is(err, database.ErrNotFound) {
		render.Error(w, "Record not found", http.StatusNotFound)
		return
	}
	h.logger.Error("record operation failed", zap.String("resource", res.Key), zap.String("id", id), zap.Error(err))
	render.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
