package record

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"csrdesk/database"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*mux.Router, *database.Store) {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.ApplySchema(context.Background(), db))

	store := database.NewStore(db)
	h := NewHandler(store, zap.NewNop())
	r := mux.NewRouter()
	r.HandleFunc("/api/records/{resource}", h.List()).Methods(http.MethodGet)
	r.HandleFunc("/api/records/{resource}", h.Create()).Methods(http.MethodPost)
	r.HandleFunc("/api/records/{resource}", h.BulkDelete()).Methods(http.MethodDelete)
	r.HandleFunc("/api/records/{resource}/{id}", h.Get()).Methods(http.MethodGet)
	r.HandleFunc("/api/records/{resource}/{id}", h.Update()).Methods(http.MethodPut)
	r.HandleFunc("/api/records/{resource}/{id}", h.Delete()).Methods(http.MethodDelete)
	return r, store
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCreate_RequiresCompany(t *testing.T) {
	r, _ := setup(t)
	rr := do(r, http.MethodPost, "/api/records/tickets", `{"CustomerName":"Jo"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"message":"Missing required fields: name of the company."}`, rr.Body.String())

	rr = do(r, http.MethodPost, "/api/records/tickets", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(r, http.MethodPost, "/api/records/invoices", `{}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateTicket_CreatesAccountOnce(t *testing.T) {
	r, store := setup(t)
	body := `{"CompanyName":"Acme","CustomerName":"Jo","ContactNumber":"0917","Email":"jo@acme.test","ReferenceID":"CSR-1","Status":"Open"}`

	rr := do(r, http.MethodPost, "/api/records/tickets", body)
	require.Equal(t, http.StatusCreated, rr.Code)
	var resp struct {
		Message string `json:"message"`
		ID      string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "Data created in Tickets (and Accounts if new)", resp.Message)

	rr = do(r, http.MethodPost, "/api/records/tickets", body)
	require.Equal(t, http.StatusCreated, rr.Code)

	ctx := context.Background()
	accounts, err := store.FetchAll(ctx, "accounts", "", "")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "jo@acme.test", accounts[0].Text("Email"))
	assert.NotContains(t, accounts[0], "Status")

	tickets, err := store.FetchAll(ctx, "tickets", "ReferenceID", "CSR-1")
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
}

func TestGetUpdateDelete(t *testing.T) {
	r, store := setup(t)
	ctx := context.Background()
	rec, err := store.Insert(ctx, "tracking", map[string]any{"CompanyName": "Acme", "TrackingStatus": "Open"})
	require.NoError(t, err)
	path := "/api/records/tracking/" + rec.ID()

	rr := do(r, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"TrackingStatus":"Open"`)

	rr = do(r, http.MethodPut, path, `{"TrackingStatus":"Closed"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"TrackingStatus":"Closed"`)

	rr = do(r, http.MethodPut, path, `{"CompanyName":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(r, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(r, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = do(r, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBulkDelete(t *testing.T) {
	r, store := setup(t)
	ctx := context.Background()
	a, err := store.Insert(ctx, "po", map[string]any{"CompanyName": "A"})
	require.NoError(t, err)
	b, err := store.Insert(ctx, "po", map[string]any{"CompanyName": "B"})
	require.NoError(t, err)

	rr := do(r, http.MethodDelete, "/api/records/po", `{"ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"message":"No IDs provided for bulk delete"}`, rr.Body.String())

	rr = do(r, http.MethodDelete, "/api/records/po", `{"ids":["`+a.ID()+`","`+b.ID()+`"]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Bulk delete successful","deletedCount":2}`, rr.Body.String())

	rr = do(r, http.MethodGet, "/api/records/po", "")
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestWritesThroughReadOnlyViews(t *testing.T) {
	r, store := setup(t)
	seeded, err := store.Insert(context.Background(), "tickets", map[string]any{"CompanyName": "Acme", "Remarks": "Item Not Carried"})
	require.NoError(t, err)

	for _, key := range []string{"sku_report", "automated_tickets"} {
		t.Run(key, func(t *testing.T) {
			rr := do(r, http.MethodPost, "/api/records/"+key, `{"CustomerName":"Jo"}`)
			assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

			rr = do(r, http.MethodPut, "/api/records/"+key+"/"+seeded.ID(), `{"CompanyName":""}`)
			assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

			rr = do(r, http.MethodDelete, "/api/records/"+key+"/"+seeded.ID(), ``)
			assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

			rr = do(r, http.MethodDelete, "/api/records/"+key, `{"ids":["`+seeded.ID()+`"]}`)
			assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

			rr = do(r, http.MethodGet, "/api/records/"+key, ``)
			assert.Equal(t, http.StatusOK, rr.Code)
		})
	}

	tickets, err := store.FetchAll(context.Background(), "tickets", "", "")
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "Acme", tickets[0].Text("CompanyName"))
}
