package search

import (
	"strings"

	"github.com/gamma-omg/servicelog-mcp/records"
)

const (
	jobSnippetLength      = 160
	documentSnippetLength = 200
)

// Search matches the query as a case-insensitive substring against jobs and documents.
// Document hits come first, then job hits, each in collection order.
func Search(jobs []records.Job, docs []records.Document, query string) []records.SearchResult {
	if strings.TrimSpace(query) == "" {
		return []records.SearchResult{}
	}

	results := searchDocuments(docs, query)
	return append(results, searchJobs(jobs, query)...)
}

func searchJobs(jobs []records.Job, query string) []records.SearchResult {
	match := buildMatcher(query)
	results := make([]records.SearchResult, 0)

	for _, j := range jobs {
		if !match(j.Title, j.Customer, j.MachineModel, j.ErrorCode, j.Symptoms, j.Fix, j.Location, j.SerialNo) {
			continue
		}

		source := labeled(
			field{"Error", j.ErrorCode},
			field{"Symptoms", j.Symptoms},
			field{"Fix", j.Fix},
		)
		if source == "" {
			source = j.Title
		}

		title := j.Title
		if title == "" {
			title = "Job for " + j.Customer
		}

		results = append(results, records.SearchResult{
			Kind:    records.KindJob,
			ID:      j.ID,
			Title:   title,
			Snippet: Snippet(source, query, jobSnippetLength),
		})
	}

	return results
}

func searchDocuments(docs []records.Document, query string) []records.SearchResult {
	match := buildMatcher(query)
	results := make([]records.SearchResult, 0)

	for _, d := range docs {
		if !match(d.Title) && !match(d.Content) {
			continue
		}

		results = append(results, records.SearchResult{
			Kind:    records.KindDocument,
			ID:      d.ID,
			Title:   d.Title,
			Snippet: Snippet(d.Content, query, documentSnippetLength),
		})
	}

	return results
}

// buildMatcher returns a case-insensitive substring test over the space-joined fields.
func buildMatcher(query string) func(fields ...string) bool {
	pattern := strings.ToLower(query)
	return func(fields ...string) bool {
		return strings.Contains(strings.ToLower(strings.Join(fields, " ")), pattern)
	}
}

type field struct {
	label string
	value string
}

func labeled(fields ...field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.value != "" {
			parts = append(parts, f.label+": "+f.value)
		}
	}

	return strings.Join(parts, " | ")
}
