package exporter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gamma-omg/servicelog-mcp/records"
)

var ErrNoData = errors.New("no data to export")

const previewLength = 500

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

type Scope string

const (
	ScopeJobs      Scope = "jobs"
	ScopeDocuments Scope = "documents"
	ScopeAll       Scope = "all"
)

// Exporter writes records keyed and headed by a locale's field labels.
type Exporter struct {
	Labels records.Labels
	Now    func() time.Time
}

func New(labels records.Labels) *Exporter {
	return &Exporter{Labels: labels, Now: time.Now}
}

// Export writes the requested scope. ScopeAll is only available as JSON.
func (e *Exporter) Export(w io.Writer, state records.State, scope Scope, format Format) error {
	switch {
	case scope == ScopeJobs && format == FormatJSON:
		return e.JobsJSON(w, state.Jobs, state.Attachments)
	case scope == ScopeJobs && format == FormatCSV:
		return e.JobsCSV(w, state.Jobs, state.Attachments)
	case scope == ScopeDocuments && format == FormatJSON:
		return e.DocumentsJSON(w, state.Documents)
	case scope == ScopeDocuments && format == FormatCSV:
		return e.DocumentsCSV(w, state.Documents)
	case scope == ScopeAll && format == FormatJSON:
		return e.AllJSON(w, state)
	default:
		return fmt.Errorf("unsupported export %s as %s", scope, format)
	}
}

// Filename suggests a download name such as servicelog-jobs-2024-05-01.csv.
func (e *Exporter) Filename(scope Scope, format Format) string {
	name := string(scope)
	if scope == ScopeAll {
		name = "complete"
	}

	return fmt.Sprintf("servicelog-%s-%s.%s", name, e.Now().UTC().Format(time.DateOnly), format)
}

func (e *Exporter) JobsJSON(w io.Writer, jobs []records.Job, attachments []records.Attachment) error {
	if len(jobs) == 0 {
		return ErrNoData
	}

	out := make([]object, 0, len(jobs))
	for _, j := range jobs {
		names := make([]string, 0)
		for _, a := range attachmentsOf(attachments, j.ID) {
			names = append(names, a.Filename)
		}

		out = append(out, append(e.jobFields(j), member{e.Labels.Attachments, names}))
	}

	return writeJSON(w, out)
}

func (e *Exporter) JobsCSV(w io.Writer, jobs []records.Job, attachments []records.Attachment) error {
	if len(jobs) == 0 {
		return ErrNoData
	}

	l := e.Labels
	rows := [][]string{{
		l.Title, l.Customer, l.Location, l.MachineModel, l.SerialNo, l.ErrorCode,
		l.Symptoms, l.Fix, l.Status, l.CreatedAt, l.UpdatedAt, l.Attachments,
	}}

	for _, j := range jobs {
		names := make([]string, 0)
		for _, a := range attachmentsOf(attachments, j.ID) {
			names = append(names, a.Filename)
		}

		rows = append(rows, []string{
			j.Title, j.Customer, j.Location, j.MachineModel, j.SerialNo, j.ErrorCode,
			j.Symptoms, j.Fix, l.StatusLabel(j.Status),
			records.FormatTime(j.CreatedAt), records.FormatTime(j.UpdatedAt),
			strings.Join(names, "; "),
		})
	}

	return writeCSV(w, rows)
}

func (e *Exporter) DocumentsJSON(w io.Writer, docs []records.Document) error {
	if len(docs) == 0 {
		return ErrNoData
	}

	out := make([]object, 0, len(docs))
	for _, d := range docs {
		out = append(out, append(e.documentFields(d), member{"content", preview(d.Content)}))
	}

	return writeJSON(w, out)
}

func (e *Exporter) DocumentsCSV(w io.Writer, docs []records.Document) error {
	if len(docs) == 0 {
		return ErrNoData
	}

	rows := [][]string{{e.Labels.Title, e.Labels.Document, e.Labels.CreatedAt, "Content Preview"}}
	for _, d := range docs {
		rows = append(rows, []string{d.Title, d.Filename, records.FormatTime(d.CreatedAt), preview(d.Content)})
	}

	return writeCSV(w, rows)
}

// AllJSON writes a complete snapshot with a summary header.
func (e *Exporter) AllJSON(w io.Writer, state records.State) error {
	if len(state.Jobs) == 0 && len(state.Documents) == 0 {
		return ErrNoData
	}

	jobs := make([]object, 0, len(state.Jobs))
	for _, j := range state.Jobs {
		atts := make([]object, 0)
		for _, a := range attachmentsOf(state.Attachments, j.ID) {
			atts = append(atts, object{
				{"filename", a.Filename},
				{"mimeType", a.MimeType},
				{"createdAt", records.FormatTime(a.CreatedAt)},
			})
		}

		jobs = append(jobs, append(e.jobFields(j), member{e.Labels.Attachments, atts}))
	}

	docs := make([]object, 0, len(state.Documents))
	for _, d := range state.Documents {
		docs = append(docs, append(e.documentFields(d), member{"contentPreview", preview(d.Content)}))
	}

	return writeJSON(w, object{
		{"exportDate", records.FormatTime(e.Now())},
		{"summary", object{
			{"totalJobs", len(state.Jobs)},
			{"totalDocuments", len(state.Documents)},
			{"totalAttachments", len(state.Attachments)},
		}},
		{"jobs", jobs},
		{"documents", docs},
	})
}

func (e *Exporter) jobFields(j records.Job) object {
	l := e.Labels
	return object{
		{l.Title, j.Title},
		{l.Customer, j.Customer},
		{l.Location, j.Location},
		{l.MachineModel, j.MachineModel},
		{l.SerialNo, j.SerialNo},
		{l.ErrorCode, j.ErrorCode},
		{l.Symptoms, j.Symptoms},
		{l.Fix, j.Fix},
		{l.Status, l.StatusLabel(j.Status)},
		{l.CreatedAt, records.FormatTime(j.CreatedAt)},
		{l.UpdatedAt, records.FormatTime(j.UpdatedAt)},
	}
}

func (e *Exporter) documentFields(d records.Document) object {
	return object{
		{e.Labels.Title, d.Title},
		{e.Labels.Document, d.Filename},
		{e.Labels.CreatedAt, records.FormatTime(d.CreatedAt)},
	}
}

func attachmentsOf(attachments []records.Attachment, jobID string) []records.Attachment {
	return records.State{Attachments: attachments}.AttachmentsOf(jobID)
}

func preview(content string) string {
	r := []rune(content)
	if len(r) <= previewLength {
		return content
	}

	return string(r[:previewLength]) + "..."
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON export: %w", err)
	}

	return nil
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV export: %w", err)
	}

	return nil
}
