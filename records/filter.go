package records

import (
	"strings"
	"time"
)

type FilterOptions struct {
	Statuses []Status
	// DateFrom and DateTo are calendar dates (YYYY-MM-DD) bounding CreatedAt, both inclusive.
	DateFrom string
	DateTo   string
	// Location defines the calendar day boundaries. Nil means time.Local.
	Location *time.Location
}

// FilterJobs keeps the jobs matching every configured constraint. Unparseable dates
// impose no constraint.
func FilterJobs(jobs []Job, opts FilterOptions) []Job {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	statuses := make(map[Status]struct{}, len(opts.Statuses))
	for _, s := range opts.Statuses {
		statuses[s] = struct{}{}
	}

	from, hasFrom := parseDay(opts.DateFrom, loc)
	to, hasTo := parseDay(opts.DateTo, loc)
	if hasTo {
		to = time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
	}

	res := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if len(statuses) > 0 {
			if _, ok := statuses[j.Status]; !ok {
				continue
			}
		}

		if hasFrom && j.CreatedAt.Before(from) {
			continue
		}

		if hasTo && j.CreatedAt.After(to) {
			continue
		}

		res = append(res, j)
	}

	return res
}

func parseDay(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}
