package models

import (
	"encoding/json"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority in cycling order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Next returns the priority after p, wrapping from high back to low.
func (p Priority) Next() Priority {
	for i, candidate := range Priorities {
		if candidate == p {
			return Priorities[(i+1)%len(Priorities)]
		}
	}
	return PriorityMedium
}

// naiveISOLayout is the zone-less ISO-8601 form the backend writes.
const naiveISOLayout = "2006-01-02T15:04:05.999999999"

// Timestamp decodes both RFC 3339 and zone-less ISO-8601 values.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		ts.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		ts.Time = t
		return nil
	}
	t, err := time.ParseInLocation(naiveISOLayout, raw, time.Local)
	if err != nil {
		return err
	}
	ts.Time = t
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(ts.Format(time.RFC3339Nano))
}

type Todo struct {
	ID        int        `json:"id"`
	Text      string     `json:"text" validate:"required"`
	Priority  Priority   `json:"priority" validate:"required,oneof=low medium high"`
	Completed bool       `json:"completed"`
	CreatedAt Timestamp  `json:"created_at"`
	UpdatedAt *Timestamp `json:"updated_at,omitempty"`
}

type PriorityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type Stats struct {
	Total          int             `json:"total"`
	Completed      int             `json:"completed"`
	Pending        int             `json:"pending"`
	PriorityCounts *PriorityCounts `json:"priority_counts,omitempty"`
}

type Health struct {
	Status    string    `json:"status"`
	Timestamp Timestamp `json:"timestamp"`
}

type CreateTodoRequest struct {
	Text     string   `json:"text" validate:"required"`
	Priority Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// UpdateTodoRequest carries only the fields being changed.
type UpdateTodoRequest struct {
	Text      *string   `json:"text,omitempty" validate:"omitempty,min=1"`
	Priority  *Priority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Completed *bool     `json:"completed,omitempty"`
}

func (r UpdateTodoRequest) Empty() bool {
	return r.Text == nil && r.Priority == nil && r.Completed == nil
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
