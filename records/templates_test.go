package records

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_BuiltinTemplates(t *testing.T) {
	assert.Len(t, BuiltinTemplates, 15)

	seen := make(map[string]bool)
	for _, tpl := range BuiltinTemplates {
		assert.False(t, seen[tpl.ID], "duplicate template id %s", tpl.ID)
		seen[tpl.ID] = true
		assert.Contains(t, TemplateCategories, tpl.Category)
		assert.False(t, tpl.IsCustom)
	}
}

func Test_TemplateFromJob(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	job := Job{
		ID:           "j1",
		Title:        "Pump failure",
		Customer:     "ACME",
		Location:     "Hall 3",
		MachineModel: "PX-200",
		SerialNo:     "SN-1",
		ErrorCode:    "E-17",
		Symptoms:     "no pressure",
		Fix:          "replaced seal",
		Status:       StatusCompleted,
	}

	tpl := TemplateFromJob(job, "Pump", "pump issues", "", now)

	assert.True(t, strings.HasPrefix(tpl.ID, "custom-"))
	assert.True(t, tpl.IsCustom)
	assert.Equal(t, CategoryCustom, tpl.Category)
	assert.Equal(t, now, tpl.CreatedAt)
	assert.Equal(t, TemplateData{
		Title:        "Pump failure",
		MachineModel: "PX-200",
		ErrorCode:    "E-17",
		Symptoms:     "no pressure",
		Fix:          "replaced seal",
		Status:       StatusOpen,
	}, tpl.Data)

	other := TemplateFromJob(job, "Pump", "pump issues", "Hydraulic", now)
	assert.NotEqual(t, tpl.ID, other.ID)
	assert.Equal(t, "Hydraulic", other.Category)
}

func Test_ApplyTemplate(t *testing.T) {
	tpl, ok := FindTemplate(BuiltinTemplates, "motor-overheat")
	require.True(t, ok)

	job := ApplyTemplate(tpl)
	assert.Empty(t, job.ID)
	assert.Equal(t, "Motor Overheating Issue", job.Title)
	assert.Equal(t, "E-208", job.ErrorCode)
	assert.Equal(t, StatusOpen, job.Status)

	job = ApplyTemplate(JobTemplate{Data: TemplateData{Title: "x"}})
	assert.Equal(t, StatusOpen, job.Status)
}

func Test_FilterTemplates(t *testing.T) {
	custom := []JobTemplate{{ID: "custom-1", Name: "Conveyor jam", Description: "belt stuck", Category: CategoryCustom}}
	catalog := TemplateCatalog(custom)
	require.Len(t, catalog, 16)
	assert.Equal(t, "custom-1", catalog[0].ID)

	var cases = []struct {
		name     string
		category string
		query    string
		output   []string
	}{
		{name: "custom_category", category: CategoryCustom, output: []string{"custom-1"}},
		{name: "pneumatic", category: "Pneumatic", output: []string{"pneumatic-leak"}},
		{name: "query_in_description", category: CategoryAll, query: "BELT", output: []string{"custom-1", "belt-replacement"}},
		{name: "query_and_category", category: "Mechanical", query: "belt", output: []string{"belt-replacement"}},
		{name: "query_matches_category", query: "maintenance", output: []string{"preventive-maintenance", "filter-clogged"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := FilterTemplates(catalog, c.category, c.query)
			var gotIDs []string
			for _, tpl := range got {
				gotIDs = append(gotIDs, tpl.ID)
			}
			assert.Equal(t, c.output, gotIDs)
		})
	}
}
