package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gamma-omg/servicelog-mcp/exporter"
	"github.com/gamma-omg/servicelog-mcp/importer"
	"github.com/gamma-omg/servicelog-mcp/records"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type serviceLog interface {
	Search(ctx context.Context, query string) ([]records.SearchResult, error)
	SearchErrorCode(ctx context.Context, code string) ([]records.SearchResult, error)
	SearchMachineModel(ctx context.Context, model string) ([]records.SearchResult, error)
	Facets(ctx context.Context) (Facets, error)
	ListJobs(ctx context.Context, opts ListOptions) ([]records.Job, error)
	GetJob(ctx context.Context, id string) (JobDetails, error)
	SaveJob(ctx context.Context, job records.Job) (records.Job, error)
	DeleteJob(ctx context.Context, id string) (int, error)
	AddAttachment(ctx context.Context, jobID, filename, data string) (records.Attachment, error)
	DeleteAttachment(ctx context.Context, id string) error
	AddDocument(ctx context.Context, title, filename string, content []byte) (records.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	Import(ctx context.Context, data []byte) (importer.MergeStats, error)
	Export(ctx context.Context, w io.Writer, scope exporter.Scope, format exporter.Format) error
	ExportFilename(scope exporter.Scope, format exporter.Format) string
	Templates(ctx context.Context, category, query string) ([]records.JobTemplate, error)
	NewJobFromTemplate(ctx context.Context, id string) (records.Job, error)
	SaveTemplate(ctx context.Context, jobID, name, description, category string) (records.JobTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error
}

type toolHandler = server.ToolHandlerFunc

// jobFields maps tool arguments onto job fields.
var jobFields = []struct {
	arg   string
	desc  string
	field func(*records.Job) *string
}{
	{"title", "Job title", func(j *records.Job) *string { return &j.Title }},
	{"customer", "Customer name", func(j *records.Job) *string { return &j.Customer }},
	{"location", "Site or location of the machine", func(j *records.Job) *string { return &j.Location }},
	{"machine_model", "Machine model", func(j *records.Job) *string { return &j.MachineModel }},
	{"serial_no", "Machine serial number", func(j *records.Job) *string { return &j.SerialNo }},
	{"error_code", "Error code reported by the machine", func(j *records.Job) *string { return &j.ErrorCode }},
	{"symptoms", "Observed symptoms", func(j *records.Job) *string { return &j.Symptoms }},
	{"fix", "Fix or resolution", func(j *records.Job) *string { return &j.Fix }},
}

var statusEnum = []string{
	string(records.StatusOpen),
	string(records.StatusInProgress),
	string(records.StatusCompleted),
	string(records.StatusCancelled),
}

func NewServiceLogServer(svc serviceLog) *server.MCPServer {
	srv := server.NewMCPServer("servicelog", "0.1.0", server.WithToolCapabilities(false))

	query := func(desc string) mcp.ToolOption {
		return mcp.WithString("query", mcp.Required(), mcp.Description(desc))
	}
	id := func(desc string) mcp.ToolOption {
		return mcp.WithString("id", mcp.Required(), mcp.Description(desc))
	}

	srv.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Full-text search over service jobs and reference documents. Returns documents first, then jobs, with <mark> highlighted snippets"),
		query("Search query"),
	), searchHandler(svc.Search))

	srv.AddTool(mcp.NewTool("search_error_code",
		mcp.WithDescription("Find jobs and documents related to an error code"),
		query("Error code or part of it"),
	), searchHandler(svc.SearchErrorCode))

	srv.AddTool(mcp.NewTool("search_machine_model",
		mcp.WithDescription("Find jobs and documents related to a machine model"),
		query("Machine model or part of it"),
	), searchHandler(svc.SearchMachineModel))

	srv.AddTool(mcp.NewTool("list_facets",
		mcp.WithDescription("List the distinct error codes and machine models recorded in jobs"),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(svc.Facets(ctx))
	})

	srv.AddTool(mcp.NewTool("list_jobs",
		mcp.WithDescription("List jobs filtered by status and creation date, sorted"),
		mcp.WithArray("statuses",
			mcp.Description("Statuses to include. Empty means all"),
			mcp.Items(map[string]any{"type": "string", "enum": statusEnum}),
		),
		mcp.WithString("date_from", mcp.Description("First creation day to include, YYYY-MM-DD")),
		mcp.WithString("date_to", mcp.Description("Last creation day to include, YYYY-MM-DD")),
		mcp.WithString("sort",
			mcp.Description("Sort field"),
			mcp.Enum(string(records.SortByStatusDate), string(records.SortByDate), string(records.SortByCustomer), string(records.SortByStatus)),
		),
		mcp.WithString("direction",
			mcp.Description("Sort direction"),
			mcp.Enum(string(records.Ascending), string(records.Descending)),
		),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var statuses []records.Status
		for _, s := range request.GetStringSlice("statuses", nil) {
			statuses = append(statuses, records.Status(s))
		}

		return jsonResult(svc.ListJobs(ctx, ListOptions{
			Statuses:  statuses,
			DateFrom:  request.GetString("date_from", ""),
			DateTo:    request.GetString("date_to", ""),
			Sort:      records.SortField(request.GetString("sort", "")),
			Direction: records.SortDirection(request.GetString("direction", string(records.Ascending))),
		}))
	})

	srv.AddTool(mcp.NewTool("get_job",
		mcp.WithDescription("Get a job together with its attachments"),
		id("Job id"),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(svc.GetJob(ctx, id))
	})

	saveJob := []mcp.ToolOption{
		mcp.WithDescription("Create a job, or update the job with the given id. Only the given fields change on update"),
		mcp.WithString("id", mcp.Description("Id of the job to update. Omit to create a job")),
		mcp.WithString("template_id", mcp.Description("Template to prefill a new job from")),
		mcp.WithString("status", mcp.Description("Job status"), mcp.Enum(statusEnum...)),
	}
	for _, f := range jobFields {
		saveJob = append(saveJob, mcp.WithString(f.arg, mcp.Description(f.desc)))
	}
	srv.AddTool(mcp.NewTool("save_job", saveJob...), saveJobHandler(svc))

	srv.AddTool(mcp.NewTool("delete_job",
		mcp.WithDescription("Delete a job and all of its attachments"),
		id("Job id"),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		n, err := svc.DeleteJob(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("deleted job %s and %d attachment(s)", id, n)), nil
	})

	srv.AddTool(mcp.NewTool("add_attachment",
		mcp.WithDescription("Attach a file to a job"),
		mcp.WithString("job_id", mcp.Required(), mcp.Description("Job id")),
		mcp.WithString("filename", mcp.Required(), mcp.Description("File name, the extension selects the MIME type")),
		mcp.WithString("data", mcp.Required(), mcp.Description("Base64 encoded file content")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := requireStrings(request, "job_id", "filename", "data")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		a, err := svc.AddAttachment(ctx, args[0], args[1], args[2])
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		a.Data = ""

		return jsonResult(a, nil)
	})

	srv.AddTool(mcp.NewTool("delete_attachment",
		mcp.WithDescription("Delete a single attachment"),
		id("Attachment id"),
	), deleteHandler(svc.DeleteAttachment, "attachment"))

	srv.AddTool(mcp.NewTool("add_document",
		mcp.WithDescription("Add a reference document. Text is extracted from PDF, office and text files"),
		mcp.WithString("filename", mcp.Required(), mcp.Description("File name, the extension selects the text extractor")),
		mcp.WithString("data", mcp.Required(), mcp.Description("Base64 encoded file content")),
		mcp.WithString("title", mcp.Description("Document title. Defaults to the file name")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := requireStrings(request, "filename", "data")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		content, err := base64.StdEncoding.DecodeString(args[1])
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("document %s is not valid base64: %s", args[0], err)), nil
		}

		doc, err := svc.AddDocument(ctx, request.GetString("title", ""), args[0], content)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(struct {
			ID     string `json:"id"`
			Title  string `json:"title"`
			Length int    `json:"length"`
		}{doc.ID, doc.Title, len([]rune(doc.Content))}, nil)
	})

	srv.AddTool(mcp.NewTool("delete_document",
		mcp.WithDescription("Delete a reference document"),
		id("Document id"),
	), deleteHandler(svc.DeleteDocument, "document"))

	srv.AddTool(mcp.NewTool("import_data",
		mcp.WithDescription("Merge a JSON export into the records. Newer records win, orphaned attachments are skipped"),
		mcp.WithString("data", mcp.Required(), mcp.Description("JSON array of jobs, or an object with jobs, documents and attachments arrays")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := request.RequireString("data")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(svc.Import(ctx, []byte(data)))
	})

	srv.AddTool(mcp.NewTool("export_data",
		mcp.WithDescription("Export records as JSON or CSV"),
		mcp.WithString("scope",
			mcp.Description("What to export"),
			mcp.Enum(string(exporter.ScopeJobs), string(exporter.ScopeDocuments), string(exporter.ScopeAll)),
			mcp.DefaultString(string(exporter.ScopeAll)),
		),
		mcp.WithString("format",
			mcp.Description("Output format. CSV is not available for scope all"),
			mcp.Enum(string(exporter.FormatJSON), string(exporter.FormatCSV)),
			mcp.DefaultString(string(exporter.FormatJSON)),
		),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		scope := exporter.Scope(request.GetString("scope", string(exporter.ScopeAll)))
		format := exporter.Format(request.GetString("format", string(exporter.FormatJSON)))

		var buf bytes.Buffer
		if err := svc.Export(ctx, &buf, scope, format); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(svc.ExportFilename(scope, format) + "\n" + buf.String()), nil
	})

	srv.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List job templates, custom ones first"),
		mcp.WithString("category", mcp.Description("Template category"), mcp.Enum(records.TemplateCategories...)),
		mcp.WithString("query", mcp.Description("Text to look for in name, description or category")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(svc.Templates(ctx, request.GetString("category", ""), request.GetString("query", "")))
	})

	srv.AddTool(mcp.NewTool("save_template",
		mcp.WithDescription("Save a job as a custom template. Customer specific fields are not kept"),
		mcp.WithString("job_id", mcp.Required(), mcp.Description("Job to capture")),
		mcp.WithString("name", mcp.Description("Template name. Defaults to the job title")),
		mcp.WithString("description", mcp.Description("Template description")),
		mcp.WithString("category", mcp.Description("Template category"), mcp.DefaultString(records.CategoryCustom)),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := request.RequireString("job_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(svc.SaveTemplate(ctx, jobID,
			request.GetString("name", ""),
			request.GetString("description", ""),
			request.GetString("category", records.CategoryCustom)))
	})

	srv.AddTool(mcp.NewTool("delete_template",
		mcp.WithDescription("Delete a custom template"),
		id("Template id"),
	), deleteHandler(svc.DeleteTemplate, "template"))

	return srv
}

func searchHandler(find func(ctx context.Context, q string) ([]records.SearchResult, error)) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := find(ctx, q)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var response string
		for _, r := range res {
			raw, err := marshal(r)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			response += fmt.Sprintf("%s\n", string(raw))
		}

		return mcp.NewToolResultText(response), nil
	}
}

func saveJobHandler(svc serviceLog) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var job records.Job

		id := request.GetString("id", "")
		templateID := request.GetString("template_id", "")
		switch {
		case id != "":
			details, err := svc.GetJob(ctx, id)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			job = details.Job
		case templateID != "":
			j, err := svc.NewJobFromTemplate(ctx, templateID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			job = j
		}

		args := request.GetArguments()
		for _, f := range jobFields {
			if _, ok := args[f.arg]; ok {
				*f.field(&job) = request.GetString(f.arg, "")
			}
		}
		if s := request.GetString("status", ""); s != "" {
			job.Status = records.Status(s)
		}

		return jsonResult(svc.SaveJob(ctx, job))
	}
}

func deleteHandler(remove func(ctx context.Context, id string) error, kind string) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if err := remove(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("deleted %s %s", kind, id)), nil
	}
}

func requireStrings(request mcp.CallToolRequest, keys ...string) ([]string, error) {
	res := make([]string, 0, len(keys))
	for _, k := range keys {
		v, err := request.RequireString(k)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}

	return res, nil
}

func jsonResult(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, err := marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(string(raw)), nil
}

// marshal encodes v without escaping HTML so snippets keep their <mark> tags.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
