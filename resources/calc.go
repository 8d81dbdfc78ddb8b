package resources

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"csrdesk/model"
)

var nonNumeric = regexp.MustCompile(`[^0-9.-]`)

// ParseAmount reads a currency-formatted value such as "₱1,250.50".
func ParseAmount(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	s := nonNumeric.ReplaceAllString(model.Stringify(v), "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ParseQuantity reads a loosely typed quantity; anything unreadable counts as 0.
func ParseQuantity(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(leadingNumber(strings.TrimSpace(n)), 64)
		if err != nil || math.IsNaN(f) {
			return 0
		}
		return f
	}
	return 0
}

var numberPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// leadingNumber keeps the numeric prefix of s, so "12 pcs" reads as 12.
func leadingNumber(s string) string {
	return numberPrefix.FindString(s)
}

// wholeDays counts completed 24h periods from a to b, truncated toward zero.
func wholeDays(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

func formatDays(n int) string {
	if n < 0 {
		n = 0
	}
	return strconv.Itoa(n) + " day(s)"
}

// PendingDays is the age of an SO in days, "" when the date is missing or invalid.
func PendingDays(r model.Record, field string, now time.Time, loc *time.Location) string {
	if r.Text(field) == "" {
		return ""
	}
	t, ok := r.Time(field, loc)
	if !ok {
		return ""
	}
	return formatDays(wholeDays(t, now))
}

// PendingPaymentDays is the gap from payment to delivery. Either date missing
// gives ""; either date unreadable gives "0 day(s)".
func PendingPaymentDays(r model.Record, paymentField, deliveryField string, loc *time.Location) string {
	if r.Text(paymentField) == "" || r.Text(deliveryField) == "" {
		return ""
	}
	payment, pok := r.Time(paymentField, loc)
	delivery, dok := r.Time(deliveryField, loc)
	if !pok || !dok {
		return formatDays(0)
	}
	return formatDays(wholeDays(payment, delivery))
}

// TrackingPendingDays counts days since ClosedDate. Missing, unreadable and
// future dates give "N/A".
func TrackingPendingDays(r model.Record, field string, now time.Time, loc *time.Location) string {
	if r.Text(field) == "" {
		return "N/A"
	}
	t, ok := r.Time(field, loc)
	if !ok {
		return "N/A"
	}
	d := wholeDays(t, now)
	if d < 0 {
		return "N/A"
	}
	return strconv.Itoa(d)
}

func minutesBetween(r model.Record, startField, endField string, loc *time.Location) (int, bool) {
	start, sok := r.Time(startField, loc)
	end, eok := r.Time(endField, loc)
	if !sok || !eok {
		return 0, false
	}
	return int(math.Floor(end.Sub(start).Minutes())), true
}

// TimeConsumed renders the minutes between two timestamps as "N min", or "-".
func TimeConsumed(r model.Record, startField, endField string, loc *time.Location) string {
	m, ok := minutesBetween(r, startField, endField, loc)
	if !ok {
		return "-"
	}
	return strconv.Itoa(m) + " min"
}

func minutesConsumed(r model.Record) (float64, bool) {
	m, ok := minutesBetween(r, "startdate", "enddate", time.UTC)
	return float64(m), ok
}

// FormatMinutes renders a duration in minutes as "Xh Ym", or "N/A" when not positive.
func FormatMinutes(minutes float64) string {
	if minutes <= 0 {
		return "N/A"
	}
	total := int(math.Floor(minutes))
	return strconv.Itoa(total/60) + "h " + strconv.Itoa(total%60) + "m"
}
