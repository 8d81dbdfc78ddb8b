// Package resources declares every list screen of the service: which
// collection it reads, how its view filters and sorts, and how it exports.
package resources

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"csrdesk/model"
	"csrdesk/view"
)

var (
	ErrUnknownResource  = errors.New("unknown resource")
	ErrReadOnlyResource = errors.New("resource is read-only")
)

// ColumnFormat controls how an export cell is rendered.
type ColumnFormat int

const (
	FormatText ColumnFormat = iota
	FormatDateTime
	FormatDate
)

type Column struct {
	Header string
	Key    string
	Width  float64
	Format ColumnFormat
}

// DeriveFunc computes display-only fields for one row.
type DeriveFunc func(r model.Record, now time.Time, loc *time.Location) map[string]string

type Resource struct {
	Key        string
	Collection string
	// OwnerField holds the user ReferenceID a record belongs to.
	OwnerField string
	// RequireCompany rejects creates without CompanyName.
	RequireCompany bool
	// ReadOnly marks a view over another resource's collection. Writes go
	// through the owning resource.
	ReadOnly       bool
	View           view.Spec
	Columns        []Column
	Derive         DeriveFunc
	ExportName     string
}

// Apply returns a copy of r extended with the derived fields.
func (res Resource) Apply(r model.Record, now time.Time, loc *time.Location) model.Record {
	if res.Derive == nil {
		return r
	}
	out := r.Clone()
	for k, v := range res.Derive(r, now, loc) {
		out[k] = v
	}
	return out
}

const (
	Tickets          = "tickets"
	Accounts         = "accounts"
	Tracking         = "tracking"
	DTracking        = "d_tracking"
	PO               = "po"
	SKUListing       = "sku_listing"
	SKUReport        = "sku_report"
	CSRTransactions  = "csr_transactions"
	AutomatedTickets = "automated_tickets"
	Progress         = "progress"
)

// SKUShortageRemarks are the ticket remarks the SKU report lists.
var SKUShortageRemarks = []string{"Item Not Carried", "Non Standard Item", "No Stocks / Insufficient Stocks"}

var accountColumns = []Column{
	{Header: "Company Name", Key: "CompanyName", Width: 25},
	{Header: "Customer Name", Key: "CustomerName", Width: 25},
	{Header: "Contact Number", Key: "ContactNumber", Width: 20},
	{Header: "Email", Key: "Email", Width: 25},
	{Header: "Gender", Key: "Gender", Width: 15},
	{Header: "Customer Segment", Key: "CustomerSegment", Width: 20},
	{Header: "City Address", Key: "CityAddress", Width: 25},
}

var ticketColumns = []Column{
	{Header: "Ticket No", Key: "TicketReferenceNumber", Width: 20},
	{Header: "Ticket Received", Key: "TicketReceived", Width: 25, Format: FormatDateTime},
	{Header: "Ticket Endorsed", Key: "TicketEndorsed", Width: 25, Format: FormatDateTime},
	{Header: "Company Name", Key: "CompanyName", Width: 25},
	{Header: "Customer Name", Key: "CustomerName", Width: 25},
	{Header: "Contact Number", Key: "ContactNumber", Width: 20},
	{Header: "Email", Key: "Email", Width: 25},
	{Header: "Gender", Key: "Gender", Width: 15},
	{Header: "Customer Segment", Key: "CustomerSegment", Width: 20},
	{Header: "City Address", Key: "CityAddress", Width: 25},
	{Header: "Traffic", Key: "Traffic", Width: 15},
	{Header: "Channel", Key: "Channel", Width: 15},
	{Header: "Wrap-Up", Key: "WrapUp", Width: 20},
	{Header: "Source", Key: "Source", Width: 20},
	{Header: "SO Number", Key: "SONumber", Width: 20},
	{Header: "SO Amount", Key: "SOAmount", Width: 15},
	{Header: "Quantity", Key: "Quantity", Width: 10},
	{Header: "PO Number", Key: "PONumber", Width: 20},
	{Header: "SO Date", Key: "SODate", Width: 20, Format: FormatDate},
	{Header: "Payment Terms", Key: "PaymentTerms", Width: 20},
	{Header: "PO Source", Key: "POSource", Width: 20},
	{Header: "PO Status", Key: "POStatus", Width: 20},
	{Header: "Payment Date", Key: "PaymentDate", Width: 20, Format: FormatDate},
	{Header: "Delivery Date", Key: "DeliveryDate", Width: 20, Format: FormatDate},
	{Header: "Customer Type", Key: "CustomerType", Width: 20},
	{Header: "Customer Status", Key: "CustomerStatus", Width: 20},
	{Header: "Status", Key: "Status", Width: 15},
	{Header: "Department", Key: "Department", Width: 20},
	{Header: "Sales Manager", Key: "SalesManager", Width: 25},
	{Header: "Sales Agent", Key: "SalesAgent", Width: 25},
	{Header: "Remarks", Key: "Remarks", Width: 30},
	{Header: "Inquiry / Concern", Key: "Inquiries", Width: 30},
}

var trackingColumns = []Column{
	{Header: "Company Name", Key: "CompanyName", Width: 20},
	{Header: "Customer Name", Key: "CustomerName", Width: 25},
	{Header: "Contact Number", Key: "ContactNumber", Width: 25},
	{Header: "Ticket Type", Key: "TicketType", Width: 25},
	{Header: "Ticket Concern", Key: "TicketConcern", Width: 25},
	{Header: "Nature of Concern", Key: "NatureConcern", Width: 20},
	{Header: "Sales Agent", Key: "SalesAgent", Width: 25},
	{Header: "Sales Manager", Key: "SalesManager", Width: 15},
	{Header: "Endorsed Date", Key: "EndorsedDate", Width: 20, Format: FormatDateTime},
	{Header: "Closed Date", Key: "ClosedDate", Width: 25, Format: FormatDateTime},
	{Header: "Pending Days", Key: "PendingDays", Width: 12},
	{Header: "Status", Key: "TrackingStatus", Width: 15},
	{Header: "Remarks", Key: "TrackingRemarks", Width: 15},
}

var trackingFilters = []string{"userName", "SalesAgent", "SalesManager", "TicketType", "TicketConcern", "Department", "TrackingStatus"}

var registry = map[string]Resource{
	Tickets: {
		Key:            Tickets,
		Collection:     "tickets",
		OwnerField:     "ReferenceID",
		RequireCompany: true,
		ExportName:     "Tickets",
		View: view.Spec{
			DateField:        model.FieldCreatedAt,
			FilterFields:     []string{"userName", "Gender", "Traffic", "WrapUp", "Channel", "Source", "CustomerStatus", "Status", "Department", "SalesManager", "SalesAgent"},
			DefaultSortField: model.FieldCreatedAt,
			Aggregates: []view.Aggregator{
				view.SumFunc("SOAmount", amountField("SOAmount")),
				view.SumFunc("QuotationAmount", amountField("QuotationAmount")),
				view.SumFunc("Quantity", amountField("Quantity")),
				view.CountBy("channel", "Channel"),
				view.CountBy("traffic", "Traffic"),
			},
		},
		Columns: ticketColumns,
	},
	Accounts: {
		Key:        Accounts,
		Collection: "accounts",
		OwnerField: "ReferenceID",
		ExportName: "Accounts",
		View: view.Spec{
			DateField:        model.FieldCreatedAt,
			FilterFields:     []string{"CompanyName", "CustomerName", "CustomerSegment", "CityAddress", "userName"},
			DefaultSortField: model.FieldCreatedAt,
		},
		Columns: accountColumns,
	},
	Tracking: {
		Key:            Tracking,
		Collection:     "tracking",
		OwnerField:     "ReferenceID",
		RequireCompany: true,
		ExportName:     "Tracking",
		View: view.Spec{
			DateField:        model.FieldCreatedAt,
			FilterFields:     trackingFilters,
			DefaultSortField: model.FieldCreatedAt,
			GroupBy:          view.ByField("CompanyName", "No Company"),
			Aggregates:       []view.Aggregator{view.CountBy("status", "TrackingStatus")},
		},
		Columns: trackingColumns,
		Derive:  deriveTracking,
	},
	DTracking: {
		Key:            DTracking,
		Collection:     "tracking",
		OwnerField:     "ReferenceID",
		RequireCompany: true,
		ExportName:     "D-Tracking",
		View: view.Spec{
			DateField:        model.FieldCreatedAt,
			FilterFields:     trackingFilters,
			MatchAll:         "All",
			DefaultSortField: model.FieldCreatedAt,
		},
		Columns: trackingColumns,
		Derive:  deriveTracking,
	},
	PO: {
		Key:            PO,
		Collection:     "po",
		OwnerField:     "ReferenceID",
		RequireCompany: true,
		ExportName:     "PO",
		View: view.Spec{
			DateField:        model.FieldCreatedAt,
			FilterFields:     []string{"userName", "SalesAgent", "PaymentTerms", "POStatus", "POSource"},
			DefaultSortField: model.FieldCreatedAt,
			Aggregates:       []view.Aggregator{view.SumFunc("POAmount", amountField("POAmount"))},
		},
		Columns: []Column{
			{Header: "CSR Agent", Key: "userName", Width: 20},
			{Header: "Company Name", Key: "CompanyName", Width: 25},
			{Header: "PO Number", Key: "PONumber", Width: 25},
			{Header: "PO Amount", Key: "POAmount", Width: 25},
			{Header: "SO Number", Key: "SONumber", Width: 25},
			{Header: "SO Date", Key: "SODate", Width: 20, Format: FormatDate},
			{Header: "Pending Days", Key: "PendingDays", Width: 15},
			{Header: "Sales Agent", Key: "SalesAgent", Width: 25},
			{Header: "Payment Terms", Key: "PaymentTerms", Width: 15},
			{Header: "Payment Date", Key: "PaymentDate", Width: 20, Format: FormatDate},
			{Header: "Delivery Date", Key: "DeliveryDate", Width: 25, Format: FormatDate},
			{Header: "Pending Payment Days", Key: "PendingPaymentDays", Width: 15},
			{Header: "PO Status", Key: "POStatus", Width: 15},
			{Header: "PO Remarks", Key: "PORemarks", Width: 15},
			{Header: "PO Source", Key: "POSource", Width: 20},
			{Header: "Source", Key: "Source", Width: 20},
			{Header: "Date", Key: model.FieldCreatedAt, Width: 20, Format: FormatDateTime},
		},
		Derive: derivePO,
	},
	SKUListing: {
		Key:        SKUListing,
		Collection: "sku_listing",
		OwnerField: "ReferenceID",
		ExportName: "SKU Listing",
		View: view.Spec{
			DateField:        model.FieldCreatedAt,
			FilterFields:     []string{"userName", "SalesAgent", "ItemCode"},
			DefaultSortField: model.FieldCreatedAt,
			Aggregates:       []view.Aggregator{view.SumFunc("QtySold", quantityField("QtySold"))},
		},
		Columns: []Column{
			{Header: "Date", Key: model.FieldCreatedAt, Width: 20, Format: FormatDateTime},
			{Header: "Company Name", Key: "CompanyName", Width: 25},
			{Header: "Item Category", Key: "ItemCategory", Width: 25},
			{Header: "Item Code", Key: "ItemCode", Width: 25},
			{Header: "Item Description", Key: "ItemDescription", Width: 30},
			{Header: "Qty Sold", Key: "QtySold", Width: 12},
			{Header: "Remarks", Key: "Remarks", Width: 25},
		},
	},
	SKUReport: {
		Key:        SKUReport,
		Collection: "tickets",
		ReadOnly:   true,
		OwnerField: "ReferenceID",
		ExportName: "SKU Report",
		View: view.Spec{
			DateField:        model.FieldCreatedAt,
			Category:         remarkIn(SKUShortageRemarks),
			FilterFields:     []string{"Remarks", "CompanyName"},
			DefaultSortField: model.FieldCreatedAt,
		},
		Columns: []Column{
			{Header: "Date", Key: model.FieldCreatedAt, Width: 20, Format: FormatDateTime},
			{Header: "Company Name", Key: "CompanyName", Width: 25},
			{Header: "Item Category", Key: "Remarks", Width: 25},
			{Header: "Item Code", Key: "ItemCode", Width: 25},
			{Header: "Item Description", Key: "ItemDescription", Width: 25},
			{Header: "Quantity", Key: "Quantity", Width: 20},
			{Header: "Inquiry", Key: "Inquiries", Width: 25},
		},
	},
	CSRTransactions: {
		Key:        CSRTransactions,
		Collection: "progress",
		OwnerField: "csragent",
		ExportName: "CSR Transactions",
		View: view.Spec{
			DateField:        "date_created",
			Category:         fieldEquals("typeclient", "CSR Inquiries"),
			FilterFields:     []string{"wrapup"},
			DefaultSortField: "date_created",
			GroupBy:          view.ByField("companyname", "No Company"),
			Aggregates:       []view.Aggregator{view.SumFunc("timeConsumedMinutes", minutesConsumed)},
		},
		Columns: []Column{
			{Header: "Ticket Ref", Key: "ticketreferencenumber", Width: 20},
			{Header: "Company Name", Key: "companyname", Width: 25},
			{Header: "Date Created", Key: "date_created", Width: 20, Format: FormatDateTime},
			{Header: "Contact Person", Key: "contact_person", Width: 25},
			{Header: "Contact Number", Key: "contactnumber", Width: 20},
			{Header: "Email", Key: "emailaddress", Width: 25},
			{Header: "Wrap Up", Key: "wrapup", Width: 25},
			{Header: "Inquiry", Key: "inquiries", Width: 25},
			{Header: "Remarks", Key: "remarks", Width: 25},
			{Header: "Agent Name", Key: "agent_fullname", Width: 25},
			{Header: "Manager Name", Key: "manager_fullname", Width: 25},
			{Header: "Start Date", Key: "startdate", Width: 20, Format: FormatDateTime},
			{Header: "End Date", Key: "enddate", Width: 20, Format: FormatDateTime},
			{Header: "Time Consumed", Key: "TimeConsumed", Width: 15},
		},
		Derive: func(r model.Record, _ time.Time, loc *time.Location) map[string]string {
			return map[string]string{"TimeConsumed": TimeConsumed(r, "startdate", "enddate", loc)}
		},
	},
	AutomatedTickets: {
		Key:        AutomatedTickets,
		Collection: "tickets",
		ReadOnly:   true,
		OwnerField: "ReferenceID",
		ExportName: "Automated Tickets",
		View: view.Spec{
			DateField:        model.FieldCreatedAt,
			FilterFields:     []string{"userName"},
			ExactFilters:     true,
			DefaultSortField: model.FieldCreatedAt,
			DefaultPageSize:  20,
			GroupBy:          view.ByDayAndAgent(model.FieldCreatedAt, "userName", time.Local),
			Aggregates: []view.Aggregator{
				view.SumFunc("Amount", quantityField("Amount")),
				view.SumFunc("QtySold", quantityField("QtySold")),
			},
		},
		Columns: ticketColumns,
	},
}

// Lookup returns the resource registered under key.
func Lookup(key string) (Resource, error) {
	res, ok := registry[key]
	if !ok {
		return Resource{}, fmt.Errorf("%q: %w", key, ErrUnknownResource)
	}
	return res, nil
}

// LookupWritable is Lookup for create, update, delete and import.
func LookupWritable(key string) (Resource, error) {
	res, err := Lookup(key)
	if err != nil {
		return res, err
	}
	if res.ReadOnly {
		return Resource{}, fmt.Errorf("%q: %w", key, ErrReadOnlyResource)
	}
	return res, nil
}

// LookupIn is Lookup with day grouping bound to loc instead of time.Local.
func LookupIn(key string, loc *time.Location) (Resource, error) {
	res, err := Lookup(key)
	if err != nil {
		return res, err
	}
	if key == AutomatedTickets && loc != nil {
		res.View.GroupBy = view.ByDayAndAgent(model.FieldCreatedAt, "userName", loc)
	}
	return res, nil
}

// Keys lists the registered resources in name order.
func Keys() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fieldEquals(field, value string) view.Predicate {
	return func(r model.Record) bool {
		v, ok := r.String(field)
		return ok && v == value
	}
}

func remarkIn(allowed []string) view.Predicate {
	return func(r model.Record) bool {
		v, ok := r.String("Remarks")
		if !ok {
			return false
		}
		v = strings.TrimSpace(v)
		for _, a := range allowed {
			if v == a {
				return true
			}
		}
		return false
	}
}

func amountField(field string) func(model.Record) (float64, bool) {
	return func(r model.Record) (float64, bool) { return ParseAmount(r[field]) }
}

func quantityField(field string) func(model.Record) (float64, bool) {
	return func(r model.Record) (float64, bool) { return ParseQuantity(r[field]), true }
}

func deriveTracking(r model.Record, now time.Time, loc *time.Location) map[string]string {
	return map[string]string{"PendingDays": TrackingPendingDays(r, "ClosedDate", now, loc)}
}

func derivePO(r model.Record, now time.Time, loc *time.Location) map[string]string {
	return map[string]string{
		"PendingDays":        PendingDays(r, "SODate", now, loc),
		"PendingPaymentDays": PendingPaymentDays(r, "PaymentDate", "DeliveryDate", loc),
	}
}
