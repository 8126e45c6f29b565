package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gamma-omg/servicelog-mcp/records"
)

// ParseError reports an import payload that is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse JSON: %s", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

const (
	defaultFilename = "document.pdf"
	defaultMimeType = "application/octet-stream"
)

// ImportJSON normalizes an import payload. See ImportJSONAt.
func ImportJSON(data []byte) (records.State, error) {
	return ImportJSONAt(data, time.Now())
}

// ImportJSONAt accepts either a bare array of job records or an object with optional
// jobs, documents and attachments arrays. Any other JSON value yields an empty state.
// Missing dates default to now.
func ImportJSONAt(data []byte, now time.Time) (records.State, error) {
	var parsed any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		return records.State{}, &ParseError{Err: err}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return records.State{}, &ParseError{Err: errors.New("unexpected data after top-level value")}
	}

	n := normalizer{now: now.UTC().Truncate(time.Millisecond)}
	res := records.State{
		Jobs:        []records.Job{},
		Documents:   []records.Document{},
		Attachments: []records.Attachment{},
	}

	switch v := parsed.(type) {
	case []any:
		res.Jobs = normalizeAll(v, n.job)
	case map[string]any:
		if items, ok := v["jobs"].([]any); ok {
			res.Jobs = normalizeAll(items, n.job)
		}
		if items, ok := v["documents"].([]any); ok {
			res.Documents = normalizeAll(items, n.document)
		}
		if items, ok := v["attachments"].([]any); ok {
			res.Attachments = normalizeAll(items, n.attachment)
		}
	}

	return res, nil
}

func normalizeAll[T any](items []any, normalize func(rawRecord) T) []T {
	res := make([]T, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			res = append(res, normalize(rawRecord(m)))
		}
	}

	return res
}

// rawRecord is an untrusted record with arbitrary keys.
type rawRecord map[string]any

// str returns the first non-empty scalar value among keys as a string. False, zero and
// nested values count as missing.
func (r rawRecord) str(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			if f, err := v.Float64(); err == nil && f != 0 {
				return v.String()
			}
		case bool:
			if v {
				return "true"
			}
		}
	}

	return ""
}

// date returns the first non-empty string among keys parsed as a timestamp, or fallback.
func (r rawRecord) date(fallback time.Time, keys ...string) time.Time {
	for _, k := range keys {
		s, ok := r[k].(string)
		if !ok || s == "" {
			continue
		}

		return parseDate(s, fallback)
	}

	return fallback
}

func parseDate(s string, fallback time.Time) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = dateparse.ParseAny(s)
		if err != nil {
			return fallback
		}
	}

	return t.UTC().Truncate(time.Millisecond)
}

func fieldKeys(name string, label func(records.Labels) string) []string {
	keys := []string{name}
	for _, l := range records.Locales {
		keys = append(keys, label(l))
	}

	return keys
}

var (
	titleKeys        = fieldKeys("title", func(l records.Labels) string { return l.Title })
	customerKeys     = fieldKeys("customer", func(l records.Labels) string { return l.Customer })
	locationKeys     = fieldKeys("location", func(l records.Labels) string { return l.Location })
	machineModelKeys = fieldKeys("machineModel", func(l records.Labels) string { return l.MachineModel })
	serialNoKeys     = fieldKeys("serialNo", func(l records.Labels) string { return l.SerialNo })
	errorCodeKeys    = fieldKeys("errorCode", func(l records.Labels) string { return l.ErrorCode })
	symptomsKeys     = fieldKeys("symptoms", func(l records.Labels) string { return l.Symptoms })
	fixKeys          = fieldKeys("fix", func(l records.Labels) string { return l.Fix })
	statusKeys       = fieldKeys("status", func(l records.Labels) string { return l.Status })
	createdAtKeys    = fieldKeys("createdAt", func(l records.Labels) string { return l.CreatedAt })
	updatedAtKeys    = fieldKeys("updatedAt", func(l records.Labels) string { return l.UpdatedAt })
	filenameKeys     = fieldKeys("filename", func(l records.Labels) string { return l.Document })
)

var statusRules = []struct {
	keyword string
	status  records.Status
}{
	{keyword: "progress", status: records.StatusInProgress},
	{keyword: "complete", status: records.StatusCompleted},
	{keyword: "cancel", status: records.StatusCancelled},
	{keyword: "open", status: records.StatusOpen},
}

// normalizeStatus maps free-form status text onto a status. The first rule whose keyword
// is contained in the text, or whose localized label equals it, wins.
func normalizeStatus(raw string) records.Status {
	s := strings.ToLower(raw)
	for _, rule := range statusRules {
		if strings.Contains(s, rule.keyword) {
			return rule.status
		}

		for _, l := range records.Locales {
			if s == strings.ToLower(l.StatusLabel(rule.status)) {
				return rule.status
			}
		}
	}

	return records.StatusOpen
}

type normalizer struct {
	now time.Time
}

func (n normalizer) job(r rawRecord) records.Job {
	j := records.Job{
		ID:           r.str("id"),
		Title:        r.str(titleKeys...),
		Customer:     r.str(customerKeys...),
		Location:     r.str(locationKeys...),
		MachineModel: r.str(machineModelKeys...),
		SerialNo:     r.str(serialNoKeys...),
		ErrorCode:    r.str(errorCodeKeys...),
		Symptoms:     r.str(symptomsKeys...),
		Fix:          r.str(fixKeys...),
		Status:       normalizeStatus(r.str(statusKeys...)),
		CreatedAt:    r.date(n.now, createdAtKeys...),
		UpdatedAt:    r.date(n.now, updatedAtKeys...),
	}

	if j.ID == "" {
		j.ID = JobID(j)
	}

	return j
}

func (n normalizer) document(r rawRecord) records.Document {
	d := records.Document{
		ID:        r.str("id"),
		Title:     r.str(titleKeys...),
		Filename:  r.str(filenameKeys...),
		Content:   r.str("content"),
		CreatedAt: r.date(n.now, createdAtKeys...),
	}

	if d.Filename == "" {
		d.Filename = defaultFilename
	}

	if d.ID == "" {
		d.ID = DocumentID(d)
	}

	return d
}

func (n normalizer) attachment(r rawRecord) records.Attachment {
	a := records.Attachment{
		ID:        r.str("id"),
		JobID:     r.str("jobId"),
		Filename:  r.str("filename"),
		MimeType:  r.str("mimeType"),
		Data:      r.str("data"),
		CreatedAt: r.date(n.now, "createdAt"),
	}

	if a.MimeType == "" {
		a.MimeType = defaultMimeType
	}

	if a.ID == "" {
		a.ID = AttachmentID(a)
	}

	return a
}
