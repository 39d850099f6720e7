package models

import (
	"sort"
	"strings"

	"todoapp/internal/domain/errors"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterCompleted Filter = "completed"
	FilterPending   Filter = "pending"
)

var Filters = []Filter{FilterAll, FilterCompleted, FilterPending}

func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FilterAll, nil
	}
	for _, known := range Filters {
		if f == known {
			return f, nil
		}
	}
	return "", errors.ErrInvalidFilter
}

// Next cycles all -> completed -> pending -> all.
func (f Filter) Next() Filter {
	for i, candidate := range Filters {
		if candidate == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

func (f Filter) Match(t Todo) bool {
	switch f {
	case FilterCompleted:
		return t.Completed
	case FilterPending:
		return !t.Completed
	default:
		return true
	}
}

// Project returns the todos matching filter and search, newest first.
// The input slice is never modified.
func Project(todos []Todo, filter Filter, search string) []Todo {
	needle := strings.ToLower(search)
	out := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if !filter.Match(t) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(t.Text), needle) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CreatedAt.Time, out[j].CreatedAt.Time
		if !a.Equal(b) {
			return a.After(b)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// StatsOf derives aggregate counts from todos.
func StatsOf(todos []Todo) Stats {
	counts := PriorityCounts{}
	stats := Stats{Total: len(todos), PriorityCounts: &counts}
	for _, t := range todos {
		if t.Completed {
			stats.Completed++
		}
		switch t.Priority {
		case PriorityHigh:
			counts.High++
		case PriorityMedium:
			counts.Medium++
		case PriorityLow:
			counts.Low++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	return stats
}
