package dto

import "time"

// EmptyRequest is the body type for routes that take none
type EmptyRequest struct{}

// DateLayout is the calendar-date format used for bulk schedule ranges
const DateLayout = "2006-01-02"

func timePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
