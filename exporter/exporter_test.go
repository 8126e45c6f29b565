package exporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gamma-omg/servicelog-mcp/importer"
	"github.com/gamma-omg/servicelog-mcp/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	created = time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	updated = time.Date(2024, 3, 2, 17, 0, 0, 0, time.UTC)
)

func sampleState() records.State {
	return records.State{
		Jobs: []records.Job{
			{
				ID: "j1", Title: "Pump leak", Customer: "Acme", Location: "Hall 3",
				MachineModel: "X200", SerialNo: "SN-1", ErrorCode: "E42",
				Symptoms: "Water on floor", Fix: "Replaced seal", Status: records.StatusInProgress,
				CreatedAt: created, UpdatedAt: updated,
			},
			{
				ID: "j2", Title: "Noise", Customer: "Beta", Status: records.StatusCompleted,
				CreatedAt: created, UpdatedAt: created,
			},
		},
		Documents: []records.Document{
			{ID: "d1", Title: "Manual", Filename: "manual.pdf", Content: "Chapter 1", CreatedAt: created},
		},
		Attachments: []records.Attachment{
			{ID: "a1", JobID: "j1", Filename: "photo.jpg", MimeType: "image/jpeg", Data: "abc", CreatedAt: created},
			{ID: "a2", JobID: "j1", Filename: "report.pdf", MimeType: "application/pdf", Data: "def", CreatedAt: updated},
		},
	}
}

func fixedExporter(labels records.Labels) *Exporter {
	e := New(labels)
	e.Now = func() time.Time { return updated }
	return e
}

func TestJobsJSON_KeyOrderAndLabels(t *testing.T) {
	var buf bytes.Buffer
	state := sampleState()
	require.NoError(t, fixedExporter(records.English).JobsJSON(&buf, state.Jobs[:1], state.Attachments))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[\n  {\n    \"Title\": \"Pump leak\""))
	assert.Less(t, strings.Index(out, `"Customer"`), strings.Index(out, `"Machine Model"`))
	assert.Contains(t, out, `"Status": "In Progress"`)
	assert.Contains(t, out, `"Created": "2024-03-01T08:30:00.000Z"`)
	assert.Contains(t, out, `"Fix / Resolution": "Replaced seal"`)

	var parsed []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, []any{"photo.jpg", "report.pdf"}, parsed[0]["Attachments"])
}

func TestJobsJSON_German(t *testing.T) {
	var buf bytes.Buffer
	state := sampleState()
	require.NoError(t, fixedExporter(records.German).JobsJSON(&buf, state.Jobs, nil))

	var parsed []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	require.Len(t, parsed, 2)
	assert.Equal(t, "Acme", parsed[0]["Kunde"])
	assert.Equal(t, "In Bearbeitung", parsed[0]["Status"])
	assert.Equal(t, "Abgeschlossen", parsed[1]["Status"])
	assert.Equal(t, []any{}, parsed[1]["Anhänge"])
}

func TestJobsCSV(t *testing.T) {
	var buf bytes.Buffer
	state := sampleState()
	require.NoError(t, fixedExporter(records.English).JobsCSV(&buf, state.Jobs, state.Attachments))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Title", rows[0][0])
	assert.Equal(t, "Attachments", rows[0][11])
	assert.Equal(t, "photo.jpg; report.pdf", rows[1][11])
	assert.Equal(t, "In Progress", rows[1][8])
	assert.Equal(t, "", rows[2][11])
}

func TestDocumentsExport_Preview(t *testing.T) {
	long := strings.Repeat("ä", 600)
	docs := []records.Document{{Title: "Long", Filename: "long.txt", Content: long, CreatedAt: created}}

	var buf bytes.Buffer
	require.NoError(t, fixedExporter(records.English).DocumentsCSV(&buf, docs))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Document", "Created", "Content Preview"}, rows[0])
	assert.Equal(t, strings.Repeat("ä", 500)+"...", rows[1][3])
}

func TestExport_NoData(t *testing.T) {
	e := fixedExporter(records.English)
	var buf bytes.Buffer

	assert.ErrorIs(t, e.JobsJSON(&buf, nil, nil), ErrNoData)
	assert.ErrorIs(t, e.JobsCSV(&buf, nil, nil), ErrNoData)
	assert.ErrorIs(t, e.DocumentsJSON(&buf, nil), ErrNoData)
	assert.ErrorIs(t, e.DocumentsCSV(&buf, nil), ErrNoData)
	assert.ErrorIs(t, e.AllJSON(&buf, records.State{}), ErrNoData)
	assert.Zero(t, buf.Len())
}

func TestAllJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fixedExporter(records.English).AllJSON(&buf, sampleState()))

	var parsed struct {
		ExportDate string `json:"exportDate"`
		Summary    struct {
			TotalJobs        int `json:"totalJobs"`
			TotalDocuments   int `json:"totalDocuments"`
			TotalAttachments int `json:"totalAttachments"`
		} `json:"summary"`
		Jobs      []map[string]any `json:"jobs"`
		Documents []map[string]any `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))

	assert.Equal(t, "2024-03-02T17:00:00.000Z", parsed.ExportDate)
	assert.Equal(t, 2, parsed.Summary.TotalJobs)
	assert.Equal(t, 1, parsed.Summary.TotalDocuments)
	assert.Equal(t, 2, parsed.Summary.TotalAttachments)
	assert.Len(t, parsed.Jobs[0]["Attachments"], 2)
	assert.Equal(t, "Chapter 1", parsed.Documents[0]["contentPreview"])
}

func TestExport_DispatchAndFilename(t *testing.T) {
	e := fixedExporter(records.English)
	var buf bytes.Buffer

	require.NoError(t, e.Export(&buf, sampleState(), ScopeDocuments, FormatCSV))
	assert.True(t, strings.HasPrefix(buf.String(), "Title,Document,Created"))
	assert.Error(t, e.Export(&buf, sampleState(), ScopeAll, FormatCSV))

	assert.Equal(t, "servicelog-jobs-2024-03-02.csv", e.Filename(ScopeJobs, FormatCSV))
	assert.Equal(t, "servicelog-complete-2024-03-02.json", e.Filename(ScopeAll, FormatJSON))
}

func TestJobsJSON_ReimportRoundTrip(t *testing.T) {
	for _, labels := range records.Locales {
		t.Run(labels.Locale, func(t *testing.T) {
			var buf bytes.Buffer
			state := sampleState()
			require.NoError(t, fixedExporter(labels).JobsJSON(&buf, state.Jobs, state.Attachments))

			imported, err := importer.ImportJSONAt(buf.Bytes(), time.Now())
			require.NoError(t, err)
			require.Len(t, imported.Jobs, len(state.Jobs))

			for i, got := range imported.Jobs {
				want := state.Jobs[i]
				want.ID = got.ID
				assert.Equal(t, want, got)
			}
		})
	}
}
