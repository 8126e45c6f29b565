package search

import (
	"testing"

	"github.com/gamma-omg/servicelog-mcp/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ErrorCodes(t *testing.T) {
	jobs := []records.Job{{ErrorCode: "E-100"}, {ErrorCode: "e-100"}, {ErrorCode: ""}}
	assert.Equal(t, []string{"E-100", "e-100"}, ErrorCodes(jobs))

	jobs = []records.Job{{ErrorCode: " H-2 "}, {ErrorCode: "H-2"}, {ErrorCode: "  "}, {ErrorCode: "A-1"}}
	assert.Equal(t, []string{"A-1", "H-2"}, ErrorCodes(jobs))

	assert.Empty(t, ErrorCodes(nil))
}

func Test_MachineModels(t *testing.T) {
	assert.Equal(t, []string{"Mill 3", "PX-200"}, MachineModels(testJobs))
}

func Test_ByErrorCode(t *testing.T) {
	assert.Empty(t, ByErrorCode(testJobs, testDocs, " "))

	res := ByErrorCode(testJobs, testDocs, "h-304")
	assert.Equal(t, []string{"job:j1"}, kinds(res))
	assert.Equal(t, "Error Code: <mark>H-304</mark> | Model: PX-200 | Symptoms: oil leak at cylinder | Fix: replaced o-ring", res[0].Snippet)
}

func Test_ByErrorCode_MatchesFreeTextAndDocuments(t *testing.T) {
	jobs := []records.Job{
		{ID: "j1", Customer: "ACME", MachineModel: "PX", Fix: "cleared fault E-7 after reset"},
	}
	docs := []records.Document{{ID: "d1", Title: "Codes", Content: "E-7 means overcurrent."}}

	res := ByErrorCode(jobs, docs, "E-7")
	require.Equal(t, []string{"job:j1", "document:d1"}, kinds(res))
	assert.Equal(t, "ACME - PX", res[0].Title)
	assert.Equal(t, "Model: PX | Fix: cleared fault <mark>E-7</mark> after reset", res[0].Snippet)
	assert.Equal(t, "<mark>E-7</mark> means overcurrent.", res[1].Snippet)
}

func Test_ByMachineModel(t *testing.T) {
	res := ByMachineModel(testJobs, testDocs, "PX-200")
	require.Equal(t, []string{"job:j1", "document:d1"}, kinds(res))
	assert.Equal(t, "Model: <mark>PX-200</mark> | S/N: SN-9 | Error: H-304 | Symptoms: oil leak at cylinder | Fix: replaced o-ring", res[0].Snippet)

	res = ByMachineModel(testJobs, testDocs, "sn-9")
	assert.Equal(t, []string{"job:j1"}, kinds(res))
}
