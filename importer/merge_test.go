package importer

import (
	"testing"
	"time"

	"github.com/gamma-omg/servicelog-mcp/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v
}

func Test_Merge_JobNewerWins(t *testing.T) {
	existing := records.State{Jobs: []records.Job{{ID: "j1", Title: "old", UpdatedAt: ts(t, "2024-01-01T00:00:00Z")}}}
	incoming := records.State{Jobs: []records.Job{{ID: "j1", Title: "new", UpdatedAt: ts(t, "2024-01-02T00:00:00Z")}}}

	merged, stats := Merge(existing, incoming)
	assert.Equal(t, Stats{Updated: 1}, stats.Jobs)
	require.Len(t, merged.Jobs, 1)
	assert.Equal(t, ts(t, "2024-01-02T00:00:00Z"), merged.Jobs[0].UpdatedAt)
	assert.Equal(t, "new", merged.Jobs[0].Title)
}

func Test_Merge_JobOlderOrEqualSkipped(t *testing.T) {
	existing := records.State{Jobs: []records.Job{{ID: "j1", Title: "old", UpdatedAt: ts(t, "2024-01-01T00:00:00Z")}}}

	for _, updated := range []string{"2023-12-31T00:00:00Z", "2024-01-01T00:00:00Z"} {
		incoming := records.State{Jobs: []records.Job{{ID: "j1", Title: "new", UpdatedAt: ts(t, updated)}}}

		merged, stats := Merge(existing, incoming)
		assert.Equal(t, Stats{Skipped: 1}, stats.Jobs, updated)
		assert.Equal(t, existing.Jobs, merged.Jobs, updated)
	}
}

func Test_Merge_DocumentTieWins(t *testing.T) {
	existing := records.State{Documents: []records.Document{
		{ID: "d1", Title: "old", CreatedAt: ts(t, "2024-01-01T00:00:00Z")},
		{ID: "d2", Title: "keep", CreatedAt: ts(t, "2024-01-05T00:00:00Z")},
	}}
	incoming := records.State{Documents: []records.Document{
		{ID: "d1", Title: "new", CreatedAt: ts(t, "2024-01-01T00:00:00Z")},
		{ID: "d2", Title: "older", CreatedAt: ts(t, "2024-01-04T00:00:00Z")},
		{ID: "d3", Title: "fresh", CreatedAt: ts(t, "2024-01-01T00:00:00Z")},
	}}

	merged, stats := Merge(existing, incoming)
	assert.Equal(t, Stats{Inserted: 1, Updated: 1, Skipped: 1}, stats.Documents)
	require.Len(t, merged.Documents, 3)
	assert.Equal(t, "new", merged.Documents[0].Title)
	assert.Equal(t, "keep", merged.Documents[1].Title)
	assert.Equal(t, "fresh", merged.Documents[2].Title)
}

func Test_Merge_Attachments(t *testing.T) {
	existing := records.State{
		Jobs: []records.Job{{ID: "j1"}},
		Attachments: []records.Attachment{
			{ID: "a1", JobID: "j1", Filename: "old.png", CreatedAt: ts(t, "2024-01-01T00:00:00Z")},
		},
	}
	incoming := records.State{
		Jobs: []records.Job{{ID: "j2"}},
		Attachments: []records.Attachment{
			{ID: "a1", JobID: "j1", Filename: "same-time.png", CreatedAt: ts(t, "2024-01-01T00:00:00Z")},
			{ID: "a2", JobID: "j2", Filename: "new-job.png"},
			{ID: "a3", JobID: "missing", Filename: "orphan.png"},
			{ID: "a4", Filename: "no-job.png"},
			{ID: "a5", JobID: "j1", Filename: "later.png", CreatedAt: ts(t, "2024-01-03T00:00:00Z")},
		},
	}

	merged, stats := Merge(existing, incoming)
	assert.Equal(t, Stats{Inserted: 1}, stats.Jobs)
	assert.Equal(t, Stats{Inserted: 2, Skipped: 3}, stats.Attachments)

	var names []string
	for _, a := range merged.Attachments {
		names = append(names, a.Filename)
	}
	assert.Equal(t, []string{"old.png", "new-job.png", "later.png"}, names)
}

func Test_Merge_EmptyExisting(t *testing.T) {
	incoming := records.State{
		Jobs:      []records.Job{{ID: "j1"}, {ID: "j2"}},
		Documents: []records.Document{{ID: "d1"}},
	}

	merged, stats := Merge(records.State{}, incoming)
	assert.Equal(t, MergeStats{
		Jobs:      Stats{Inserted: 2},
		Documents: Stats{Inserted: 1},
	}, stats)
	assert.Equal(t, incoming.Jobs, merged.Jobs)
	assert.Equal(t, incoming.Documents, merged.Documents)
	assert.Empty(t, merged.Attachments)
}

func Test_Merge_DoesNotMutateInputs(t *testing.T) {
	existing := records.State{Jobs: []records.Job{{ID: "j1", Title: "old", UpdatedAt: ts(t, "2024-01-01T00:00:00Z")}}}
	incoming := records.State{Jobs: []records.Job{
		{ID: "j1", Title: "new", UpdatedAt: ts(t, "2024-02-01T00:00:00Z")},
		{ID: "j2", Title: "other"},
	}}

	Merge(existing, incoming)
	assert.Equal(t, "old", existing.Jobs[0].Title)
	assert.Len(t, existing.Jobs, 1)
}

func Test_Merge_Reimport(t *testing.T) {
	payload := []byte(`[{"title":"Pump","customer":"ACME","createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-02T00:00:00Z"}]`)

	first, err := ImportJSONAt(payload, now)
	require.NoError(t, err)
	state, stats := Merge(records.State{}, first)
	assert.Equal(t, Stats{Inserted: 1}, stats.Jobs)

	second, err := ImportJSONAt(payload, now.Add(time.Hour))
	require.NoError(t, err)
	state, stats = Merge(state, second)
	assert.Equal(t, Stats{Skipped: 1}, stats.Jobs)
	assert.Len(t, state.Jobs, 1)
}
