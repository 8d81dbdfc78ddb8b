package resources

import (
	"context"
	"errors"
	"testing"
	"time"

	"csrdesk/model"
	"csrdesk/notify"
	"csrdesk/view"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var manila = time.FixedZone("PHT", 8*3600)

func TestLookup(t *testing.T) {
	for _, k := range Keys() {
		res, err := Lookup(k)
		require.NoError(t, err, k)
		assert.Equal(t, k, res.Key)
		assert.NotEmpty(t, res.Collection)
		assert.NotEmpty(t, res.Columns)
	}
	_, err := Lookup("invoices")
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func TestLookupWritable(t *testing.T) {
	for _, k := range Keys() {
		res, _ := Lookup(k)
		_, err := LookupWritable(k)
		if res.ReadOnly {
			assert.ErrorIs(t, err, ErrReadOnlyResource, k)
			continue
		}
		assert.NoError(t, err, k)
	}
	for _, k := range []string{SKUReport, AutomatedTickets} {
		_, err := LookupWritable(k)
		assert.ErrorIs(t, err, ErrReadOnlyResource, k)
	}
	_, err := LookupWritable("invoices")
	assert.ErrorIs(t, err, ErrUnknownResource)

	// Every writable resource over a company-keyed collection enforces CompanyName.
	for _, k := range Keys() {
		res, _ := Lookup(k)
		switch res.Collection {
		case "tickets", "tracking", "po":
			assert.True(t, res.ReadOnly || res.RequireCompany, k)
		}
	}
}

func TestSKUReport_OnlyShortageRemarks(t *testing.T) {
	res, err := Lookup(SKUReport)
	require.NoError(t, err)
	records := []model.Record{
		{"_id": "1", "Remarks": "Item Not Carried", "date_created": "2024-01-05"},
		{"_id": "2", "Remarks": "Sold", "date_created": "2024-01-06"},
	}
	dv := view.Compute(records, view.NewState(res.View), res.View)
	require.Len(t, dv.Rows, 1)
	assert.Equal(t, "1", dv.Rows[0].ID())
	assert.Equal(t, 1, dv.PageIndex)
	assert.Equal(t, 1, dv.TotalPages)
}

func TestPO_Derived(t *testing.T) {
	res, err := Lookup(PO)
	require.NoError(t, err)
	now := time.Date(2025, 6, 20, 15, 0, 0, 0, manila)
	rec := model.Record{"SODate": now.AddDate(0, 0, -10).Format(time.RFC3339), "PaymentDate": "2025-06-01"}

	out := res.Apply(rec, now, manila)
	assert.Equal(t, "10 day(s)", out["PendingDays"])
	assert.Equal(t, "", out["PendingPaymentDays"])
	assert.NotContains(t, rec, "PendingDays", "source record untouched")
}

func TestPendingDays(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		rec  model.Record
		want string
	}{
		{"missing", model.Record{}, ""},
		{"invalid", model.Record{"SODate": "soon"}, ""},
		{"future", model.Record{"SODate": "2025-07-01"}, "0 day(s)"},
		{"partial day truncates", model.Record{"SODate": "2025-06-18T13:00:00Z"}, "1 day(s)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PendingDays(tt.rec, "SODate", now, time.UTC))
		})
	}
}

func TestPendingPaymentDays(t *testing.T) {
	tests := []struct {
		name string
		rec  model.Record
		want string
	}{
		{"no delivery", model.Record{"PaymentDate": "2025-06-01"}, ""},
		{"no payment", model.Record{"DeliveryDate": "2025-06-01"}, ""},
		{"invalid", model.Record{"PaymentDate": "x", "DeliveryDate": "2025-06-01"}, "0 day(s)"},
		{"gap", model.Record{"PaymentDate": "2025-06-01", "DeliveryDate": "2025-06-04"}, "3 day(s)"},
		{"delivered first", model.Record{"PaymentDate": "2025-06-04", "DeliveryDate": "2025-06-01"}, "0 day(s)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PendingPaymentDays(tt.rec, "PaymentDate", "DeliveryDate", time.UTC))
		})
	}
}

func TestTrackingPendingDays(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "N/A", TrackingPendingDays(model.Record{}, "ClosedDate", now, time.UTC))
	assert.Equal(t, "N/A", TrackingPendingDays(model.Record{"ClosedDate": "bad"}, "ClosedDate", now, time.UTC))
	assert.Equal(t, "N/A", TrackingPendingDays(model.Record{"ClosedDate": "2025-06-25"}, "ClosedDate", now, time.UTC))
	assert.Equal(t, "5", TrackingPendingDays(model.Record{"ClosedDate": "2025-06-15"}, "ClosedDate", now, time.UTC))
}

func TestTimeConsumed(t *testing.T) {
	rec := model.Record{"startdate": "2025-06-20T08:00:00Z", "enddate": "2025-06-20T08:12:59Z"}
	assert.Equal(t, "12 min", TimeConsumed(rec, "startdate", "enddate", time.UTC))
	assert.Equal(t, "-", TimeConsumed(model.Record{"startdate": "2025-06-20T08:00:00Z"}, "startdate", "enddate", time.UTC))
}

func TestParseAmountAndQuantity(t *testing.T) {
	v, ok := ParseAmount("₱1,250.50")
	assert.True(t, ok)
	assert.Equal(t, 1250.5, v)
	_, ok = ParseAmount("n/a")
	assert.False(t, ok)
	_, ok = ParseAmount(nil)
	assert.False(t, ok)

	assert.Equal(t, 12.0, ParseQuantity("12 pcs"))
	assert.Equal(t, 0.0, ParseQuantity("pcs"))
	assert.Equal(t, 3.0, ParseQuantity(3.0))
	assert.Equal(t, 0.0, ParseQuantity(nil))
}

func TestSKUListing_TotalQtySold(t *testing.T) {
	res, err := Lookup(SKUListing)
	require.NoError(t, err)
	records := []model.Record{{"QtySold": "2"}, {"QtySold": "x"}, {"QtySold": 3.5}, {}}
	dv := view.Compute(records, view.NewState(res.View), res.View)
	assert.Equal(t, 5.5, dv.Aggregates["QtySold"])
	assert.Equal(t, 4.0, dv.Aggregates["count"])
}

func TestDTracking_AllMatchesEverything(t *testing.T) {
	res, err := Lookup(DTracking)
	require.NoError(t, err)
	records := []model.Record{{"TicketType": "Refund"}, {"TicketType": "SPF"}}
	st := view.WithFilter(view.NewState(res.View), "TicketType", "All")
	assert.Len(t, view.Compute(records, st, res.View).Rows, 2)
	st = view.WithFilter(st, "TicketType", "refund")
	assert.Len(t, view.Compute(records, st, res.View).Rows, 1)
}

func TestAutomatedTickets_GroupsByDayAndAgent(t *testing.T) {
	res, err := LookupIn(AutomatedTickets, manila)
	require.NoError(t, err)
	records := []model.Record{
		{"_id": "a", "userName": "ana", "createdAt": "2025-01-02T01:00:00Z"},
		{"_id": "b", "userName": "ana", "createdAt": "2025-01-02T03:00:00Z"},
		{"_id": "c", "userName": "ben", "createdAt": "2025-01-02T02:00:00Z"},
	}
	dv := view.NewEngine(view.WithLocation(manila)).Compute(records, view.NewState(res.View), res.View)
	assert.Equal(t, 20, dv.PageSize)
	require.Len(t, dv.Groups, 2)
	assert.Equal(t, "Jan 2-Thu / ana", dv.Groups[0].Key)
	assert.Equal(t, 2, dv.Groups[0].Count)
	assert.Equal(t, "b", dv.Rows[0].ID())
}

func TestCSRTransactions(t *testing.T) {
	res, err := Lookup(CSRTransactions)
	require.NoError(t, err)
	records := []model.Record{
		{"typeclient": "CSR Inquiries", "companyname": "Acme", "startdate": "2025-01-02T01:00:00Z", "enddate": "2025-01-02T01:30:00Z"},
		{"typeclient": "CSR Inquiries", "startdate": "2025-01-02T01:00:00Z", "enddate": "2025-01-02T01:10:00Z"},
		{"typeclient": "Outbound", "companyname": "Acme"},
	}
	dv := view.Compute(records, view.NewState(res.View), res.View)
	assert.Equal(t, 2, dv.TotalMatched)
	assert.Equal(t, 40.0, dv.Aggregates["timeConsumedMinutes"])
	keys := []string{dv.Groups[0].Key, dv.Groups[1].Key}
	assert.ElementsMatch(t, []string{"Acme", "No Company"}, keys)
}

func TestSalesConversion(t *testing.T) {
	tickets := []model.Record{
		{"SalesAgent": "A1", "ReferenceID": "CSR-1", "Traffic": "Sales", "Status": "Converted Into Sales", "Amount": "1000", "QtySold": "4",
			"CustomerStatus": "New Client", "createdAt": "2025-03-10T02:00:00Z",
			"TicketEndorsed": "2025-03-10T02:00:00Z", "TsaAcknowledgeDate": "2025-03-10T03:30:00Z"},
		{"SalesAgent": "A1", "ReferenceID": "CSR-2", "Traffic": "Sales", "Status": "Quotation", "Amount": "500",
			"CustomerStatus": "Existing Active", "createdAt": "2025-03-11T02:00:00Z"},
		{"SalesAgent": "A2", "ReferenceID": "CSR-1", "Traffic": "Non-Sales", "createdAt": "2025-03-11T02:00:00Z"},
		{"SalesAgent": "A2", "ReferenceID": "CSR-1", "Traffic": "Sales", "createdAt": "2025-04-01T02:00:00Z"},
	}
	q := ConversionQuery{Range: model.DateRange{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}}
	rep := SalesConversion(tickets, q, time.UTC)
	require.Len(t, rep.Agents, 2)

	a1 := rep.Agents[0]
	assert.Equal(t, "A1", a1.SalesAgent)
	assert.Equal(t, 2, a1.Sales)
	assert.Equal(t, 1500.0, a1.TotalAmount)
	assert.Equal(t, 1, a1.Conversions)
	assert.Equal(t, 50.0, a1.ConversionRate)
	assert.Equal(t, 4.0, a1.ATU)
	assert.Equal(t, 1500.0, a1.ATV)
	assert.Equal(t, 90.0, a1.TSAResponseMinutes)
	assert.Equal(t, "1h 30m", a1.AvgTSAResponse)
	assert.Equal(t, CustomerStatusTotals{Count: 1, ConvertedAmount: 1000}, a1.CustomerStatus[StatusNewClient])
	assert.Equal(t, CustomerStatusTotals{Count: 1}, a1.CustomerStatus[StatusExistingActive])

	a2 := rep.Agents[1]
	assert.Equal(t, 1, a2.NonSales)
	assert.Equal(t, 0, a2.Sales, "April ticket outside range")
	assert.Equal(t, "N/A", a2.AvgTSAResponse)
	assert.Zero(t, a2.ATV)

	assert.Equal(t, 2, rep.Totals.Sales)
	assert.Equal(t, 1, rep.Totals.NonSales)
	assert.Equal(t, 25.0, rep.AvgConversionRate)

	staff := SalesConversion(tickets, ConversionQuery{ReferenceID: "CSR-2", Role: RoleStaff}, time.UTC)
	require.Len(t, staff.Agents, 1)
	assert.Equal(t, 500.0, staff.Totals.TotalAmount)
}

func TestSalesConversion_AverageResponseRounds(t *testing.T) {
	ticket := func(endorsed, acked string) model.Record {
		return model.Record{"SalesAgent": "A1", "Traffic": "Sales",
			"TicketEndorsed": endorsed, "TsaAcknowledgeDate": acked}
	}
	tickets := []model.Record{
		ticket("2025-03-10T02:00:00Z", "2025-03-10T02:10:00Z"),
		ticket("2025-03-10T02:00:00Z", "2025-03-10T02:11:00Z"),
		ticket("2025-03-10T02:00:00Z", "2025-03-10T02:11:00Z"),
	}
	rep := SalesConversion(tickets, ConversionQuery{}, time.UTC)
	require.Len(t, rep.Agents, 1)
	assert.Equal(t, 32.0, rep.Agents[0].TSAResponseMinutes)
	assert.Equal(t, "0h 11m", rep.Agents[0].AvgTSAResponse)

	rep = SalesConversion(tickets[:2], ConversionQuery{}, time.UTC)
	assert.Equal(t, "0h 11m", rep.Agents[0].AvgTSAResponse, "10.5 rounds half up")
}

type fakeStore struct {
	fetched []string
	set     []string
	err     error
}

func (f *fakeStore) FetchAll(_ context.Context, resource, ownerField, owner string) ([]model.Record, error) {
	f.fetched = append(f.fetched, resource+"|"+ownerField+"|"+owner)
	return []model.Record{{"_id": "1"}}, f.err
}

func (f *fakeStore) SetField(_ context.Context, resource, id, field string, value any) error {
	f.set = append(f.set, resource+"|"+id+"|"+field+"|"+model.Stringify(value))
	return f.err
}

func TestNotificationSource(t *testing.T) {
	store := &fakeStore{}
	src := NewNotificationSource(store, notify.Rules)
	ctx := context.Background()

	_, err := src.Fetch(ctx, model.SourceProgress, "CSR-1")
	require.NoError(t, err)
	_, err = src.Fetch(ctx, model.SourceWrapUp, "CSR-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"progress|csragent|CSR-1", "tickets|ReferenceID|CSR-1"}, store.fetched)

	require.NoError(t, src.Acknowledge(ctx, model.SourceTracking, "9"))
	require.NoError(t, src.Acknowledge(ctx, model.SourceWrapUp, "8"))
	require.NoError(t, src.Acknowledge(ctx, model.SourceProgress, "7"))
	assert.Equal(t, []string{
		"tracking|9|status|Read",
		"tickets|8|NotificationStatus|Read",
		"progress|7|csrremarks|Read",
	}, store.set)

	store.err = errors.New("down")
	assert.Error(t, src.Acknowledge(ctx, model.SourceTracking, "9"))
	_, err = src.Fetch(ctx, model.SourceType("email"), "x")
	assert.Error(t, err)
}
