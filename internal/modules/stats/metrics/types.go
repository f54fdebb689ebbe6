package metrics

import (
	"errors"
	"strings"
)

// EventKind is the kind of analytics event recorded against a page.
type EventKind string

const (
	EventVisit      EventKind = "visit"
	EventConversion EventKind = "conversion"
)

var (
	// ErrUnknownEventKind is returned for event types outside {visit, conversion}.
	ErrUnknownEventKind = errors.New("unknown event type")

	// ErrPageNotFound means the event targets a page that does not exist.
	ErrPageNotFound = errors.New("page not found")
)

// ParseEventKind validates a wire-format event type.
func ParseEventKind(raw string) (EventKind, error) {
	switch EventKind(strings.TrimSpace(strings.ToLower(raw))) {
	case EventVisit:
		return EventVisit, nil
	case EventConversion:
		return EventConversion, nil
	default:
		return "", ErrUnknownEventKind
	}
}

// DayStat is one day's counters in a summary series.
type DayStat struct {
	Date        string `json:"date"`
	Visits      int64  `json:"visits"`
	Conversions int64  `json:"conversions"`
}

// Summary aggregates a page's counters over a date range. Daily is sparse:
// days without events are omitted, in ascending date order.
type Summary struct {
	Visits         int64     `json:"visits"`
	Conversions    int64     `json:"conversions"`
	ConversionRate float64   `json:"conversion_rate"`
	Daily          []DayStat `json:"daily"`
}

type recordEventDTO struct {
	PageID    string `json:"pageId"    binding:"required"`
	EventType string `json:"eventType" binding:"required"`
}
