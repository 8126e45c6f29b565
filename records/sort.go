package records

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortField string

const (
	SortByDate       SortField = "date"
	SortByCustomer   SortField = "customer"
	SortByStatus     SortField = "status"
	SortByStatusDate SortField = "status-date"
)

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

type SortOption struct {
	Field     SortField
	Direction SortDirection
	// Collation selects the customer collation. The zero tag means German.
	Collation language.Tag
}

// SortJobs returns a stably sorted copy of jobs.
//
// For SortByStatusDate the status key is always ascending and the date key always newest
// first; Descending then negates the combined result, which flips both keys.
func SortJobs(jobs []Job, opt SortOption) []Job {
	sorted := slices.Clone(jobs)
	cmp := comparator(opt)

	slices.SortStableFunc(sorted, func(a, b Job) int {
		c := cmp(a, b)
		if opt.Direction == Descending {
			return -c
		}

		return c
	})

	return sorted
}

func comparator(opt SortOption) func(a, b Job) int {
	switch opt.Field {
	case SortByDate:
		return func(a, b Job) int {
			return a.UpdatedAt.Compare(b.UpdatedAt)
		}
	case SortByCustomer:
		tag := opt.Collation
		if tag == language.Und {
			tag = language.German
		}

		col := collate.New(tag, collate.IgnoreCase, collate.IgnoreDiacritics)
		return func(a, b Job) int {
			return col.CompareString(a.Customer, b.Customer)
		}
	case SortByStatus:
		return func(a, b Job) int {
			return a.Status.Priority() - b.Status.Priority()
		}
	case SortByStatusDate:
		return func(a, b Job) int {
			if c := a.Status.Priority() - b.Status.Priority(); c != 0 {
				return c
			}

			return b.UpdatedAt.Compare(a.UpdatedAt)
		}
	default:
		return func(a, b Job) int { return 0 }
	}
}
