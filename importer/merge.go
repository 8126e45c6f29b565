package importer

import (
	"github.com/gamma-omg/servicelog-mcp/records"
)

type Stats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

type MergeStats struct {
	Jobs        Stats `json:"jobs"`
	Documents   Stats `json:"documents"`
	Attachments Stats `json:"attachments"`
}

// Merge reconciles imported records with the existing ones by id.
//
// An incoming job replaces a stored one only when its UpdatedAt is strictly later.
// Documents compare CreatedAt and the incoming one wins ties. Attachments compare
// CreatedAt strictly and are skipped when their job is absent from the merged jobs.
// Existing records keep their positions; inserted ones are appended in input order.
func Merge(existing, incoming records.State) (records.State, MergeStats) {
	var stats MergeStats

	jobs := seed(existing.Jobs, func(j records.Job) string { return j.ID })
	for _, j := range incoming.Jobs {
		jobs.merge(j, j.ID, &stats.Jobs, func(in, cur records.Job) bool {
			return in.UpdatedAt.After(cur.UpdatedAt)
		})
	}

	docs := seed(existing.Documents, func(d records.Document) string { return d.ID })
	for _, d := range incoming.Documents {
		docs.merge(d, d.ID, &stats.Documents, func(in, cur records.Document) bool {
			return !in.CreatedAt.Before(cur.CreatedAt)
		})
	}

	atts := seed(existing.Attachments, func(a records.Attachment) string { return a.ID })
	for _, a := range incoming.Attachments {
		if _, ok := jobs.index[a.JobID]; a.JobID == "" || !ok {
			stats.Attachments.Skipped++
			continue
		}

		atts.merge(a, a.ID, &stats.Attachments, func(in, cur records.Attachment) bool {
			return in.CreatedAt.After(cur.CreatedAt)
		})
	}

	return records.State{
		Jobs:        jobs.items,
		Documents:   docs.items,
		Attachments: atts.items,
	}, stats
}

type collection[T any] struct {
	items []T
	index map[string]int
}

// seed copies existing records. A repeated id keeps its first position and last value.
func seed[T any](existing []T, id func(T) string) *collection[T] {
	c := &collection[T]{
		items: make([]T, 0, len(existing)),
		index: make(map[string]int, len(existing)),
	}

	for _, item := range existing {
		key := id(item)
		if i, ok := c.index[key]; ok {
			c.items[i] = item
			continue
		}

		c.index[key] = len(c.items)
		c.items = append(c.items, item)
	}

	return c
}

func (c *collection[T]) merge(item T, id string, stats *Stats, wins func(in, cur T) bool) {
	i, ok := c.index[id]
	if !ok {
		c.index[id] = len(c.items)
		c.items = append(c.items, item)
		stats.Inserted++
		return
	}

	if wins(item, c.items[i]) {
		c.items[i] = item
		stats.Updated++
		return
	}

	stats.Skipped++
}
