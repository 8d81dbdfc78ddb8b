package resources

import (
	"math"
	"sort"
	"time"

	"csrdesk/model"
	"csrdesk/view"
)

// Customer status buckets tracked by the sales conversion dashboard.
const (
	StatusNewClient        = "New Client"
	StatusNewNonBuying     = "New Non-Buying"
	StatusExistingActive   = "Existing Active"
	StatusExistingInactive = "Existing Inactive"

	ConvertedIntoSales = "Converted Into Sales"
	RoleStaff          = "Staff"
)

// CustomerStatusTotals counts tickets per customer status and sums the
// amounts of the converted ones.
type CustomerStatusTotals struct {
	Count           int     `json:"count"`
	ConvertedAmount float64 `json:"convertedAmount"`
}

type AgentConversion struct {
	SalesAgent         string                          `json:"salesAgent"`
	Sales              int                             `json:"sales"`
	NonSales           int                             `json:"nonSales"`
	TotalAmount        float64                         `json:"totalAmount"`
	TotalQtySold       float64                         `json:"totalQtySold"`
	Conversions        int                             `json:"conversions"`
	ConversionRate     float64                         `json:"conversionRate"`
	ATU                float64                         `json:"atu"`
	ATV                float64                         `json:"atv"`
	TSAResponseMinutes float64                         `json:"tsaResponseMinutes"`
	TSAResponseCount   int                             `json:"tsaResponseCount"`
	AvgTSAResponse     string                          `json:"avgTsaResponse"`
	CustomerStatus     map[string]CustomerStatusTotals `json:"customerStatus"`
}

type ConversionReport struct {
	Agents []AgentConversion `json:"agents"`
	Totals AgentConversion   `json:"totals"`
	// Averages of the per-agent ratios, as the dashboard footer shows them.
	AvgConversionRate float64 `json:"avgConversionRate"`
	AvgATU            float64 `json:"avgAtu"`
	AvgATV            float64 `json:"avgAtv"`
}

// ConversionQuery narrows the tickets the dashboard summarizes.
type ConversionQuery struct {
	ReferenceID string
	Role        string
	Range       model.DateRange
}

func newAgentConversion(agent string) AgentConversion {
	return AgentConversion{
		SalesAgent: agent,
		CustomerStatus: map[string]CustomerStatusTotals{
			StatusNewClient:        {},
			StatusNewNonBuying:     {},
			StatusExistingActive:   {},
			StatusExistingInactive: {},
		},
	}
}

func (a *AgentConversion) add(r model.Record, loc *time.Location) {
	amount := ParseQuantity(r["Amount"])
	qty := ParseQuantity(r["QtySold"])
	converted := r.Text("Status") == ConvertedIntoSales

	if r.Text("Traffic") == "Sales" {
		a.Sales++
	} else {
		a.NonSales++
	}
	a.TotalAmount += amount
	a.TotalQtySold += qty
	if converted {
		a.Conversions++
	}

	if m, ok := minutesBetween(r, "TicketEndorsed", "TsaAcknowledgeDate", loc); ok && m > 0 {
		a.TSAResponseMinutes += float64(m)
		a.TSAResponseCount++
	}

	status := r.Text("CustomerStatus")
	if cs, ok := a.CustomerStatus[status]; ok {
		cs.Count++
		if converted {
			cs.ConvertedAmount += amount
		}
		a.CustomerStatus[status] = cs
	}
}

func (a *AgentConversion) finish() {
	if a.Conversions > 0 {
		a.ATU = a.TotalQtySold / float64(a.Conversions)
		a.ATV = a.TotalAmount / float64(a.Conversions)
	}
	if a.Sales > 0 {
		a.ConversionRate = math.Round(float64(a.Conversions)/float64(a.Sales)*10000) / 100
	}
	if a.TSAResponseCount > 0 {
		a.AvgTSAResponse = FormatMinutes(math.Round(a.TSAResponseMinutes / float64(a.TSAResponseCount)))
	} else {
		a.AvgTSAResponse = FormatMinutes(0)
	}
}

func (a *AgentConversion) merge(b AgentConversion) {
	a.Sales += b.Sales
	a.NonSales += b.NonSales
	a.TotalAmount += b.TotalAmount
	a.TotalQtySold += b.TotalQtySold
	a.Conversions += b.Conversions
	a.TSAResponseMinutes += b.TSAResponseMinutes
	a.TSAResponseCount += b.TSAResponseCount
	for k, v := range b.CustomerStatus {
		cs := a.CustomerStatus[k]
		cs.Count += v.Count
		cs.ConvertedAmount += v.ConvertedAmount
		a.CustomerStatus[k] = cs
	}
}

// SalesConversion groups tickets by SalesAgent and computes the per-agent and
// overall conversion figures. Staff only see their own tickets.
func SalesConversion(tickets []model.Record, q ConversionQuery, loc *time.Location) ConversionReport {
	var start, end time.Time
	if !q.Range.Start.IsZero() {
		start = view.StartOfDay(q.Range.Start, loc)
	}
	if !q.Range.End.IsZero() {
		end = view.EndOfDay(q.Range.End, loc)
	}

	byAgent := make(map[string]*AgentConversion)
	for _, r := range tickets {
		if q.Role == RoleStaff && r.Text("ReferenceID") != q.ReferenceID {
			continue
		}
		if !start.IsZero() || !end.IsZero() {
			t, ok := r.Time(model.FieldCreatedAt, loc)
			if !ok || (!start.IsZero() && t.Before(start)) || (!end.IsZero() && t.After(end)) {
				continue
			}
		}
		agent := r.Text("SalesAgent")
		a, ok := byAgent[agent]
		if !ok {
			ac := newAgentConversion(agent)
			a = &ac
			byAgent[agent] = a
		}
		a.add(r, loc)
	}

	report := ConversionReport{Agents: make([]AgentConversion, 0, len(byAgent)), Totals: newAgentConversion("")}
	for _, a := range byAgent {
		a.finish()
		report.Agents = append(report.Agents, *a)
	}
	sort.Slice(report.Agents, func(i, j int) bool { return report.Agents[i].SalesAgent < report.Agents[j].SalesAgent })

	for _, a := range report.Agents {
		report.Totals.merge(a)
		report.AvgConversionRate += a.ConversionRate
		report.AvgATU += a.ATU
		report.AvgATV += a.ATV
	}
	report.Totals.finish()
	if n := float64(len(report.Agents)); n > 0 {
		report.AvgConversionRate /= n
		report.AvgATU /= n
		report.AvgATV /= n
	}
	return report
}
