package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gamma-omg/servicelog-mcp/exporter"
	"github.com/gamma-omg/servicelog-mcp/importer"
	"github.com/gamma-omg/servicelog-mcp/records"
	"github.com/gamma-omg/servicelog-mcp/search"
	"github.com/google/uuid"
	"golang.org/x/text/language"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidStatus = errors.New("invalid status")
)

type RecordStore interface {
	LoadState(ctx context.Context) (records.State, error)
	SaveState(ctx context.Context, state records.State) error
	LoadTemplates(ctx context.Context) ([]records.JobTemplate, error)
	SaveTemplates(ctx context.Context, templates []records.JobTemplate) error
}

type TextExtractor interface {
	Extract(content io.Reader, filename string) (string, error)
}

// Service runs every operation against the record store. Read-modify-write cycles are
// serialised by mu.
type Service struct {
	log       *slog.Logger
	mu        sync.Mutex
	store     RecordStore
	extractor TextExtractor
	labels    records.Labels
	location  *time.Location
	now       func() time.Time
}

func NewService(log *slog.Logger, store RecordStore, extractor TextExtractor, labels records.Labels, loc *time.Location) *Service {
	return &Service{
		log:       log,
		store:     store,
		extractor: extractor,
		labels:    labels,
		location:  loc,
		now:       time.Now,
	}
}

type Facets struct {
	ErrorCodes    []string `json:"errorCodes"`
	MachineModels []string `json:"machineModels"`
}

type ListOptions struct {
	Statuses  []records.Status
	DateFrom  string
	DateTo    string
	Sort      records.SortField
	Direction records.SortDirection
}

type JobDetails struct {
	Job         records.Job          `json:"job"`
	Attachments []records.Attachment `json:"attachments"`
}

func (s *Service) Search(ctx context.Context, query string) ([]records.SearchResult, error) {
	state, err := s.state(ctx)
	if err != nil {
		return nil, err
	}

	return search.Search(state.Jobs, state.Documents, query), nil
}

func (s *Service) SearchErrorCode(ctx context.Context, code string) ([]records.SearchResult, error) {
	state, err := s.state(ctx)
	if err != nil {
		return nil, err
	}

	return search.ByErrorCode(state.Jobs, state.Documents, code), nil
}

func (s *Service) SearchMachineModel(ctx context.Context, model string) ([]records.SearchResult, error) {
	state, err := s.state(ctx)
	if err != nil {
		return nil, err
	}

	return search.ByMachineModel(state.Jobs, state.Documents, model), nil
}

func (s *Service) Facets(ctx context.Context) (Facets, error) {
	state, err := s.state(ctx)
	if err != nil {
		return Facets{}, err
	}

	return Facets{
		ErrorCodes:    search.ErrorCodes(state.Jobs),
		MachineModels: search.MachineModels(state.Jobs),
	}, nil
}

func (s *Service) ListJobs(ctx context.Context, opts ListOptions) ([]records.Job, error) {
	state, err := s.state(ctx)
	if err != nil {
		return nil, err
	}

	jobs := records.FilterJobs(state.Jobs, records.FilterOptions{
		Statuses: opts.Statuses,
		DateFrom: opts.DateFrom,
		DateTo:   opts.DateTo,
		Location: s.location,
	})

	field := opts.Sort
	if field == "" {
		field = records.SortByStatusDate
	}

	return records.SortJobs(jobs, records.SortOption{
		Field:     field,
		Direction: opts.Direction,
		Collation: s.collation(),
	}), nil
}

func (s *Service) GetJob(ctx context.Context, id string) (JobDetails, error) {
	state, err := s.state(ctx)
	if err != nil {
		return JobDetails{}, err
	}

	job, ok := state.Job(id)
	if !ok {
		return JobDetails{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}

	return JobDetails{Job: job, Attachments: state.AttachmentsOf(id)}, nil
}

// SaveJob creates a job when it has no id, otherwise updates the stored job keeping its
// creation time. An empty status means open.
func (s *Service) SaveJob(ctx context.Context, job records.Job) (records.Job, error) {
	if job.Status == "" {
		job.Status = records.StatusOpen
	}
	if !job.Status.Valid() {
		return records.Job{}, fmt.Errorf("%w: %s", ErrInvalidStatus, job.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.LoadState(ctx)
	if err != nil {
		return records.Job{}, err
	}

	now := s.timestamp()
	if job.ID == "" {
		job.ID = uuid.NewString()
		job.CreatedAt = now
		job.UpdatedAt = now
		state.Jobs = append(state.Jobs, job)
	} else {
		i := slices.IndexFunc(state.Jobs, func(j records.Job) bool { return j.ID == job.ID })
		if i < 0 {
			return records.Job{}, fmt.Errorf("job %s: %w", job.ID, ErrNotFound)
		}

		job.CreatedAt = state.Jobs[i].CreatedAt
		job.UpdatedAt = now
		if job.UpdatedAt.Before(job.CreatedAt) {
			job.UpdatedAt = job.CreatedAt
		}
		state.Jobs[i] = job
	}

	if err := s.store.SaveState(ctx, state); err != nil {
		return records.Job{}, err
	}

	return job, nil
}

// DeleteJob removes the job and its attachments. It returns the number of attachments removed.
func (s *Service) DeleteJob(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.LoadState(ctx)
	if err != nil {
		return 0, err
	}

	before := len(state.Jobs)
	state.Jobs = slices.DeleteFunc(state.Jobs, func(j records.Job) bool { return j.ID == id })
	if len(state.Jobs) == before {
		return 0, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}

	attachments := len(state.Attachments)
	state.Attachments = slices.DeleteFunc(state.Attachments, func(a records.Attachment) bool { return a.JobID == id })

	if err := s.store.SaveState(ctx, state); err != nil {
		return 0, err
	}

	return attachments - len(state.Attachments), nil
}

// AddAttachment stores base64 encoded content under the job.
func (s *Service) AddAttachment(ctx context.Context, jobID, filename, data string) (records.Attachment, error) {
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return records.Attachment{}, fmt.Errorf("attachment %s is not valid base64: %w", filename, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.LoadState(ctx)
	if err != nil {
		return records.Attachment{}, err
	}

	if _, ok := state.Job(jobID); !ok {
		return records.Attachment{}, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}

	a := records.Attachment{
		ID:        uuid.NewString(),
		JobID:     jobID,
		Filename:  filename,
		MimeType:  mimeType(filename),
		Data:      data,
		CreatedAt: s.timestamp(),
	}
	state.Attachments = append(state.Attachments, a)

	if err := s.store.SaveState(ctx, state); err != nil {
		return records.Attachment{}, err
	}

	return a, nil
}

func (s *Service) DeleteAttachment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.LoadState(ctx)
	if err != nil {
		return err
	}

	before := len(state.Attachments)
	state.Attachments = slices.DeleteFunc(state.Attachments, func(a records.Attachment) bool { return a.ID == id })
	if len(state.Attachments) == before {
		return fmt.Errorf("attachment %s: %w", id, ErrNotFound)
	}

	return s.store.SaveState(ctx, state)
}

// AddDocument extracts the text of an uploaded file and stores it as a new document.
// The title defaults to the file name without extension.
func (s *Service) AddDocument(ctx context.Context, title, filename string, content []byte) (records.Document, error) {
	text, err := s.extractor.Extract(bytes.NewReader(content), filename)
	if err != nil {
		return records.Document{}, err
	}

	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	doc := records.Document{
		ID:        uuid.NewString(),
		Title:     title,
		Filename:  filename,
		Content:   text,
		CreatedAt: s.timestamp(),
	}

	if err := s.PutDocument(ctx, doc); err != nil {
		return records.Document{}, err
	}

	return doc, nil
}

// PutDocument inserts the document or replaces the one with the same id in place.
func (s *Service) PutDocument(ctx context.Context, doc records.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.LoadState(ctx)
	if err != nil {
		return err
	}

	i := slices.IndexFunc(state.Documents, func(d records.Document) bool { return d.ID == doc.ID })
	if i < 0 {
		state.Documents = append(state.Documents, doc)
	} else {
		state.Documents[i] = doc
	}

	return s.store.SaveState(ctx, state)
}

func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.LoadState(ctx)
	if err != nil {
		return err
	}

	before := len(state.Documents)
	state.Documents = slices.DeleteFunc(state.Documents, func(d records.Document) bool { return d.ID == id })
	if len(state.Documents) == before {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}

	return s.store.SaveState(ctx, state)
}

// Import merges a JSON payload into the stored records. A payload that is not valid JSON
// leaves the store untouched.
func (s *Service) Import(ctx context.Context, data []byte) (importer.MergeStats, error) {
	incoming, err := importer.ImportJSONAt(data, s.now())
	if err != nil {
		return importer.MergeStats{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.LoadState(ctx)
	if err != nil {
		return importer.MergeStats{}, err
	}

	merged, stats := importer.Merge(existing, incoming)
	if err := s.store.SaveState(ctx, merged); err != nil {
		return importer.MergeStats{}, err
	}

	s.log.Info("import finished",
		slog.Group("jobs", "inserted", stats.Jobs.Inserted, "updated", stats.Jobs.Updated, "skipped", stats.Jobs.Skipped),
		slog.Group("documents", "inserted", stats.Documents.Inserted, "updated", stats.Documents.Updated, "skipped", stats.Documents.Skipped),
		slog.Group("attachments", "inserted", stats.Attachments.Inserted, "updated", stats.Attachments.Updated, "skipped", stats.Attachments.Skipped),
	)

	return stats, nil
}

func (s *Service) Export(ctx context.Context, w io.Writer, scope exporter.Scope, format exporter.Format) error {
	state, err := s.state(ctx)
	if err != nil {
		return err
	}

	e := exporter.New(s.labels)
	e.Now = s.now

	return e.Export(w, state, scope, format)
}

func (s *Service) ExportFilename(scope exporter.Scope, format exporter.Format) string {
	e := exporter.New(s.labels)
	e.Now = s.now

	return e.Filename(scope, format)
}

func (s *Service) Templates(ctx context.Context, category, query string) ([]records.JobTemplate, error) {
	custom, err := s.store.LoadTemplates(ctx)
	if err != nil {
		return nil, err
	}

	return records.FilterTemplates(records.TemplateCatalog(custom), category, query), nil
}

// NewJobFromTemplate returns an unsaved job prefilled from the template.
func (s *Service) NewJobFromTemplate(ctx context.Context, id string) (records.Job, error) {
	all, err := s.Templates(ctx, "", "")
	if err != nil {
		return records.Job{}, err
	}

	t, ok := records.FindTemplate(all, id)
	if !ok {
		return records.Job{}, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}

	return records.ApplyTemplate(t), nil
}

// SaveTemplate captures an existing job as a custom template.
func (s *Service) SaveTemplate(ctx context.Context, jobID, name, description, category string) (records.JobTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.LoadState(ctx)
	if err != nil {
		return records.JobTemplate{}, err
	}

	job, ok := state.Job(jobID)
	if !ok {
		return records.JobTemplate{}, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}

	custom, err := s.store.LoadTemplates(ctx)
	if err != nil {
		return records.JobTemplate{}, err
	}

	if strings.TrimSpace(name) == "" {
		name = job.Title
	}

	t := records.TemplateFromJob(job, name, description, category, s.timestamp())
	if err := s.store.SaveTemplates(ctx, append(custom, t)); err != nil {
		return records.JobTemplate{}, err
	}

	return t, nil
}

// DeleteTemplate removes a custom template. Built-in templates cannot be deleted.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	custom, err := s.store.LoadTemplates(ctx)
	if err != nil {
		return err
	}

	before := len(custom)
	custom = slices.DeleteFunc(custom, func(t records.JobTemplate) bool { return t.ID == id })
	if len(custom) == before {
		return fmt.Errorf("custom template %s: %w", id, ErrNotFound)
	}

	return s.store.SaveTemplates(ctx, custom)
}

func (s *Service) state(ctx context.Context) (records.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.LoadState(ctx)
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Service) collation() language.Tag {
	if s.labels.Locale == records.English.Locale {
		return language.English
	}

	return language.German
}

func mimeType(filename string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); t != "" {
		return t
	}

	return "application/octet-stream"
}
