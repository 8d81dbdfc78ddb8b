package notify

import (
	"strconv"
	"strings"
	"time"

	"csrdesk/model"
)

const day = 24 * time.Hour

func trackingRule(category string, threshold time.Duration, message string) model.NotificationRule {
	return model.NotificationRule{
		Key:            "tracking:" + category,
		Source:         model.SourceTracking,
		CategoryField:  "TicketConcern",
		Category:       category,
		StatusField:    "TrackingStatus",
		RequiredStatus: "Open",
		ReadField:      "status",
		FromFields:     []string{"TicketEndorsed", "EndorsedDate", model.FieldCreatedAt},
		Threshold:      threshold,
		Message:        message,
	}
}

func wrapUpRule(category string, threshold time.Duration) model.NotificationRule {
	return model.NotificationRule{
		Key:            "wrapup:" + category,
		Source:         model.SourceWrapUp,
		CategoryField:  "WrapUp",
		Category:       category,
		StatusField:    "Status",
		RequiredStatus: "Endorsed",
		ReadField:      "NotificationStatus",
		FromFields:     []string{model.FieldCreatedAt},
		Threshold:      threshold,
		Message:        "The '{category}' ticket is still unresolved.",
	}
}

// Rules is the fixed escalation table.
var Rules = []model.NotificationRule{
	trackingRule("Delivery / Pickup", 3*day, "The 'Delivery/Pickup' ticket is still unresolved after {days} days."),
	trackingRule("Quotation", 4*time.Hour, "You have an active 'Quotation' ticket that has been open for over 4 hours."),
	trackingRule("Documents", day, "You have an active 'Documents' ticket that is still open after 1 day."),
	trackingRule("Return Call", 4*time.Hour, "You currently have an active 'Return Call' ticket. Please take the necessary action."),
	trackingRule("Payment Terms", 2*day, "Your 'Payment Terms' ticket is still open and needs your attention."),
	trackingRule("Refund", 2*day, "Your 'Refund' ticket is still open and requires your attention."),
	trackingRule("Replacement", 3*day, "Your 'Replacement' ticket remains open. Please follow up."),
	trackingRule("Site Visit", 2*day, "Your 'Site Visit' ticket is still open and awaiting your follow-up."),
	trackingRule("TDS", day, "Your 'TDS' ticket is still open. Please take action."),
	trackingRule("Shop Drawing", day, "Your 'Shop Drawing' ticket is still open. Kindly address it."),
	trackingRule("Dialux", 3*day, "Your 'Dialux' ticket remains open. Please follow up."),
	trackingRule("Product Testing", 2*day, "Your 'Product Testing' ticket remains open. Kindly resolve it."),
	trackingRule("SPF", 3*day, "Your 'SPF' ticket remains open. Kindly resolve it."),
	trackingRule("Accreditation Request", day, "Your 'Accreditation Request' ticket is still open. Kindly resolve it."),
	trackingRule("Job Request", day, "Your 'Job Request' ticket is still open. Kindly resolve it."),
	trackingRule("Product Recommendation", day, "Your 'Product Recommendation' ticket is still open. Kindly resolve it."),
	trackingRule("Product Certificate", day, "Your 'Product Certificate' ticket is still open. Kindly resolve it."),

	wrapUpRule("Customer Inquiry Sales", 4*time.Hour),
	wrapUpRule("Follow Up Sales", 4*time.Hour),
	wrapUpRule("Customer Inquiry Non-Sales", 4*time.Hour),
	wrapUpRule("After Sales", 3*day),
	wrapUpRule("Customer Complaint", 24*time.Hour),
	// Far shorter than its siblings. Kept as observed until the owners confirm intent.
	wrapUpRule("Follow Up Non-Sales", 60*time.Second),

	{
		Key:         "progress:activity",
		Source:      model.SourceProgress,
		StatusField: "activitystatus",
		AnyStatus:   true,
		ReadField:   "csrremarks",
		FromFields:  []string{"date_created"},
		DayAligned:  true,
		Message:     "{company}: {remarks}",
	},
}

// RulesFor returns the rules of one source whose category matches the record.
func RulesFor(rules []model.NotificationRule, source model.SourceType, r model.Record) []model.NotificationRule {
	var out []model.NotificationRule
	for _, rule := range rules {
		if rule.Source != source {
			continue
		}
		if rule.Category != "" && r.Text(rule.CategoryField) != rule.Category {
			continue
		}
		out = append(out, rule)
	}
	return out
}

// RulesBySource returns every rule of one source, in table order.
func RulesBySource(rules []model.NotificationRule, source model.SourceType) []model.NotificationRule {
	var out []model.NotificationRule
	for _, rule := range rules {
		if rule.Source == source {
			out = append(out, rule)
		}
	}
	return out
}

func renderMessage(tmpl string, r model.Record, rule model.NotificationRule, days int) string {
	remarks := r.Text("remarks")
	if remarks == "" {
		remarks = "No remarks."
	}
	return strings.NewReplacer(
		"{category}", rule.Category,
		"{company}", companyName(r),
		"{days}", strconv.Itoa(days),
		"{remarks}", remarks,
	).Replace(tmpl)
}

func companyName(r model.Record) string {
	if s := r.Text("CompanyName"); s != "" {
		return s
	}
	return r.Text("companyname")
}
