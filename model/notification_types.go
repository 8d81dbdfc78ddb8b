package model

import (
	"fmt"
	"time"
)

// SourceType identifies a polled notification feed.
type SourceType string

const (
	SourceTracking SourceType = "tracking"
	SourceWrapUp   SourceType = "wrapup"
	SourceProgress SourceType = "progress"
)

func ParseSourceType(s string) (SourceType, error) {
	switch SourceType(s) {
	case SourceTracking, SourceWrapUp, SourceProgress:
		return SourceType(s), nil
	}
	return "", fmt.Errorf("unknown notification source %q", s)
}

// ReadValue marks a record's source-specific read flag as acknowledged.
const ReadValue = "Read"

// NotificationRule is a static threshold-based escalation definition.
type NotificationRule struct {
	Key    string     `json:"key"`
	Source SourceType `json:"source"`

	// CategoryField/Category select the records the rule applies to.
	// An empty Category matches every record of the source.
	CategoryField string `json:"categoryField,omitempty"`
	Category      string `json:"category,omitempty"`

	// StatusField must equal RequiredStatus, or be non-empty when AnyStatus is set.
	StatusField    string `json:"statusField"`
	RequiredStatus string `json:"requiredStatus,omitempty"`
	AnyStatus      bool   `json:"anyStatus,omitempty"`

	ReadField string `json:"readField"`

	// FromFields are tried in order for the elapsed-time origin.
	FromFields []string      `json:"fromFields"`
	Threshold  time.Duration `json:"threshold"`
	// DayAligned compares calendar days instead of elapsed duration.
	DayAligned bool `json:"dayAligned,omitempty"`

	// Message placeholders: {category} {company} {days} {remarks}.
	Message string `json:"message"`
}

type EligibilityState int

const (
	StatePending EligibilityState = iota
	StateEligible
	StateAcknowledged
	StateIneligible
)

func (s EligibilityState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateEligible:
		return "eligible"
	case StateAcknowledged:
		return "acknowledged"
	case StateIneligible:
		return "ineligible"
	}
	return "unknown"
}

func (s EligibilityState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// NotificationItem is one live entry of the bell/sidebar feed.
type NotificationItem struct {
	ID          string           `json:"id"`
	RecordID    string           `json:"recordId"`
	RuleKey     string           `json:"ruleKey"`
	SourceType  SourceType       `json:"sourceType"`
	CompanyName string           `json:"companyName"`
	Category    string           `json:"category,omitempty"`
	Message     string           `json:"message"`
	CreatedAt   time.Time        `json:"createdAt"`
	IsRead      bool             `json:"isRead"`
	State       EligibilityState `json:"state"`
}

// DedupeKey identifies an item across polls.
func DedupeKey(recordID, ruleKey string) string {
	return recordID + ":" + ruleKey
}
