package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a JSON date matches none of dateLayouts.
var ErrInvalidDate = errors.New("invalid date")

// dateLayouts are tried in order; a bare calendar date means midnight UTC.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// Date is a request timestamp that also accepts a plain "YYYY-MM-DD" date.
// Services convert it to time.Time before storing.
type Date time.Time

// ParseDate parses s with the first matching layout.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date(t.UTC()), nil
		}
	}
	return Date{}, fmt.Errorf("%w %q: use YYYY-MM-DD or RFC3339", ErrInvalidDate, s)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: expected a string", ErrInvalidDate)
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) { return time.Time(d).MarshalJSON() }

func (d Date) IsZero() bool { return time.Time(d).IsZero() }

// UTC returns the stored form of d.
func (d Date) UTC() time.Time { return time.Time(d).UTC() }
