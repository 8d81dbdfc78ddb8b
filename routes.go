package main

import (
	"net/http"

	"csrdesk/dashboard"
	"csrdesk/database"
	"csrdesk/loader"
	"csrdesk/metrics"
	"csrdesk/notify"
	"csrdesk/record"
	"csrdesk/report"
	"csrdesk/view"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Services is everything the HTTP layer is built from.
type Services struct {
	Store     *database.Store
	Engine    *view.Engine
	Importer  *loader.Importer
	Feed      *notify.Feed
	Poller    *notify.Poller
	Source    notify.Source
	Collector *metrics.Collector
	Logger    *zap.Logger
}

func SetupRoutes(r *mux.Router, s Services) {
	r.Use(s.Collector.Middleware)

	r.Handle("/metrics", s.Collector.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", HealthHandler(s.Store.DB().Ping)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	records := record.NewHandler(s.Store, s.Logger)
	api.HandleFunc("/records/{resource}", records.List()).Methods(http.MethodGet)
	api.HandleFunc("/records/{resource}", records.Create()).Methods(http.MethodPost)
	api.HandleFunc("/records/{resource}", records.BulkDelete()).Methods(http.MethodDelete)
	api.HandleFunc("/records/{resource}/{id}", records.Get()).Methods(http.MethodGet)
	api.HandleFunc("/records/{resource}/{id}", records.Update()).Methods(http.MethodPut)
	api.HandleFunc("/records/{resource}/{id}", records.Delete()).Methods(http.MethodDelete)

	reports := report.NewHandler(s.Store, s.Engine, s.Logger)
	api.HandleFunc("/reports/{resource}", reports.Report()).Methods(http.MethodGet)
	api.HandleFunc("/exports/{resource}.{format:xlsx|csv}", reports.Export()).Methods(http.MethodGet)

	notifications := notify.NewHandler(s.Feed, s.Poller, s.Source, s.Logger, s.Collector)
	api.HandleFunc("/notifications", notifications.List()).Methods(http.MethodGet)
	api.HandleFunc("/notifications", notifications.Unwatch()).Methods(http.MethodDelete)
	api.HandleFunc("/notifications/{source}/{id}/read", notifications.MarkRead()).Methods(http.MethodPut)

	dash := dashboard.NewHandler(s.Store, s.Engine.Location(), s.Logger)
	api.HandleFunc("/dashboard/sales-conversion", dash.SalesConversion()).Methods(http.MethodGet)

	api.HandleFunc("/user", GetUserHandler(s.Store, s.Logger)).Methods(http.MethodGet)
	api.HandleFunc("/import/{resource}", loader.ImportHandler(s.Importer)).Methods(http.MethodPost)
	api.HandleFunc("/config", GetConfigHandler()).Methods(http.MethodGet)
}
