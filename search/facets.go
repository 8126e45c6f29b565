package search

import (
	"slices"
	"strings"

	"github.com/gamma-omg/servicelog-mcp/records"
)

const facetSnippetLength = 200

// ErrorCodes lists the distinct trimmed error codes, sorted. Values differing only in
// case are kept apart.
func ErrorCodes(jobs []records.Job) []string {
	return distinct(jobs, func(j records.Job) string { return j.ErrorCode })
}

func MachineModels(jobs []records.Job) []string {
	return distinct(jobs, func(j records.Job) string { return j.MachineModel })
}

func distinct(jobs []records.Job, value func(records.Job) string) []string {
	seen := make(map[string]struct{})
	res := make([]string, 0)
	for _, j := range jobs {
		v := strings.TrimSpace(value(j))
		if v == "" {
			continue
		}

		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		res = append(res, v)
	}

	slices.Sort(res)
	return res
}

// ByErrorCode finds jobs mentioning the code in the error code field or in the related
// free text, followed by matching documents.
func ByErrorCode(jobs []records.Job, docs []records.Document, code string) []records.SearchResult {
	return facetSearch(jobs, docs, code, facet{
		value: func(j records.Job) string { return j.ErrorCode },
		text: func(j records.Job) []string {
			return []string{j.Title, j.ErrorCode, j.Symptoms, j.Fix, j.MachineModel}
		},
		snippet: func(j records.Job) string {
			return labeled(
				field{"Error Code", j.ErrorCode},
				field{"Model", j.MachineModel},
				field{"Symptoms", j.Symptoms},
				field{"Fix", j.Fix},
			)
		},
	})
}

func ByMachineModel(jobs []records.Job, docs []records.Document, model string) []records.SearchResult {
	return facetSearch(jobs, docs, model, facet{
		value: func(j records.Job) string { return j.MachineModel },
		text: func(j records.Job) []string {
			return []string{j.Title, j.MachineModel, j.SerialNo, j.ErrorCode, j.Symptoms, j.Fix}
		},
		snippet: func(j records.Job) string {
			return labeled(
				field{"Model", j.MachineModel},
				field{"S/N", j.SerialNo},
				field{"Error", j.ErrorCode},
				field{"Symptoms", j.Symptoms},
				field{"Fix", j.Fix},
			)
		},
	})
}

type facet struct {
	value   func(records.Job) string
	text    func(records.Job) []string
	snippet func(records.Job) string
}

func facetSearch(jobs []records.Job, docs []records.Document, query string, f facet) []records.SearchResult {
	if strings.TrimSpace(query) == "" {
		return []records.SearchResult{}
	}

	match := buildMatcher(query)
	results := make([]records.SearchResult, 0)

	for _, j := range jobs {
		if !match(f.value(j)) && !match(f.text(j)...) {
			continue
		}

		source := f.snippet(j)
		if source == "" {
			source = j.Title
		}

		title := j.Title
		if title == "" {
			title = j.Customer + " - " + j.MachineModel
		}

		results = append(results, records.SearchResult{
			Kind:    records.KindJob,
			ID:      j.ID,
			Title:   title,
			Snippet: Snippet(source, query, facetSnippetLength),
		})
	}

	for _, d := range docs {
		if !match(d.Content) && !match(d.Title) {
			continue
		}

		results = append(results, records.SearchResult{
			Kind:    records.KindDocument,
			ID:      d.ID,
			Title:   d.Title,
			Snippet: Snippet(d.Content, query, facetSnippetLength),
		})
	}

	return results
}
