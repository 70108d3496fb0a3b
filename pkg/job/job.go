// Package job runs one scrape: render the target page, extract records, merge
// them into the stored collection and write everything back.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"scrapejob/pkg/docstore"
	"scrapejob/pkg/domain"
	"scrapejob/pkg/extract"
	"scrapejob/pkg/merge"
	"scrapejob/pkg/render"
	"scrapejob/pkg/sink"
)

const libraryName = "scrapejob/pkg/job"

var (
	tracer = otel.Tracer(libraryName)
	meter  = otel.Meter(libraryName)
)

// Document status strings reported in Summary.DocumentStatus.
const (
	StatusExisting  = "JSON file already existing"
	StatusCreated   = "JSON file was not existing (created)"
	StatusNotLoaded = "JSON file not loaded"
)

// Status codes reported in Summary.StatusCode.
const (
	CodeOK             = 200
	CodePartialContent = 207
	CodeFailed         = 500
)

// ErrWriteback marks a run whose collection write failed. The run still
// produced a CodeFailed summary; callers report it instead of raising.
var ErrWriteback = errors.New("collection writeback failed")

// Definition is the static description of a job.
type Definition struct {
	Name string
	// Label is inserted into the summary body, e.g. "Bloomberg".
	Label       string
	URL         string
	DocumentKey string
	Rule        extract.Rule
}

// Runner executes a Definition. It keeps no state between runs.
type Runner struct {
	def      Definition
	renderer render.Factory
	docs     docstore.Store
	sink     *sink.Sink
	now      func() time.Time
	retries  int
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock replaces time.Now as the source of the capture timestamp.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithConflictRetries sets how many times a collection write that lost a
// version race is retried against a freshly loaded collection.
func WithConflictRetries(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.retries = n
		}
	}
}

// NewRunner wires a job definition to its renderer and stores.
func NewRunner(def Definition, renderer render.Factory, docs docstore.Store, s *sink.Sink, opts ...Option) *Runner {
	r := &Runner{
		def:      def,
		renderer: renderer,
		docs:     docs,
		sink:     s,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the job's name.
func (r *Runner) Name() string {
	return r.def.Name
}

// Definition returns the job's static description.
func (r *Runner) Definition() Definition {
	return r.def
}

// Run performs one scrape. Render, extraction and load failures abort the run
// before anything is written. A failed collection write is reported with
// CodeFailed and an error wrapping ErrWriteback; no rows are written. Row
// failures do not abort: the run reports CodePartialContent and lists every
// record outcome.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "job.run")
	defer span.End()
	span.SetAttributes(attribute.String("job", r.def.Name), attribute.String("url", r.def.URL))

	log := slog.With("job", r.def.Name)
	summary := Summary{StatusCode: CodeFailed, DocumentStatus: StatusNotLoaded}

	fail := func(err error) (Summary, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		countRun(ctx, r.def.Name, "failed")
		log.ErrorContext(ctx, "run failed", "err", err)
		return summary, err
	}

	page, err := r.render(ctx)
	if err != nil {
		return fail(err)
	}
	summary.Body = Body(r.def.Label, page.Title)
	log.InfoContext(ctx, "page rendered", "url", page.URL, "title", page.Title, "bytes", len(page.HTML))

	ts := domain.Timestamp(r.now())

	recs, err := r.extract(ctx, page.HTML)
	if err != nil {
		return fail(err)
	}
	recs = domain.Stamp(recs, ts)
	log.InfoContext(ctx, "records extracted", "count", len(recs), "searched_on", ts)

	loaded, err := merge.LoadOrInit(ctx, r.docs, r.def.DocumentKey)
	if err != nil {
		return fail(err)
	}
	summary.DocumentStatus = documentStatus(loaded.Existed)

	total, err := r.write(ctx, loaded, recs)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrWriteback, err))
	}
	summary.CollectionSize = total

	outcomes := r.putRecords(ctx, recs)
	summary.Records = make([]RecordOutcome, len(outcomes))
	failed := 0
	for i, o := range outcomes {
		summary.Records[i] = RecordOutcome{ID: string(o.ID), OK: o.Err == nil}
		if o.Err != nil {
			summary.Records[i].Error = o.Err.Error()
			failed++
		}
	}

	summary.StatusCode = CodeOK
	result := "ok"
	if failed > 0 {
		summary.StatusCode = CodePartialContent
		result = "partial"
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d rows failed", failed, len(outcomes)))
	}
	countRun(ctx, r.def.Name, result)
	countRecords(ctx, r.def.Name, len(recs))

	log.InfoContext(ctx, "run finished", "status", summary.StatusCode, "document", summary.DocumentStatus,
		"collection", total, "rows_failed", failed)
	return summary, nil
}

func (r *Runner) render(ctx context.Context) (*render.Page, error) {
	ctx, span := tracer.Start(ctx, "render")
	defer span.End()

	rd, err := r.renderer(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire renderer: %w", err)
	}
	defer func() {
		if cerr := rd.Close(); cerr != nil {
			slog.WarnContext(ctx, "failed to close renderer", "err", cerr)
		}
	}()

	page, err := rd.Render(ctx, r.def.URL)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (r *Runner) extract(ctx context.Context, html string) ([]domain.Record, error) {
	_, span := tracer.Start(ctx, "extract")
	defer span.End()

	cur, err := extract.Extract(html, r.def.Rule)
	if err != nil {
		return nil, err
	}
	recs, err := extract.Collect(cur)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", r.def.Rule.Name, err)
	}
	span.SetAttributes(attribute.Int("records", len(recs)))
	return recs, nil
}

// write stores loaded+recs, reloading and re-appending when another writer
// changed the document in between, up to the configured retries.
func (r *Runner) write(ctx context.Context, loaded *merge.Loaded, recs []domain.Record) (int, error) {
	ctx, span := tracer.Start(ctx, "writeCollection")
	defer span.End()

	for attempt := 0; ; attempt++ {
		updated := merge.Append(loaded.Collection, recs)
		_, err := r.sink.WriteCollection(ctx, r.def.DocumentKey, updated, loaded.Version, loaded.Existed)
		if err == nil {
			return len(updated), nil
		}
		if !errors.Is(err, docstore.ErrVersionConflict) || attempt >= r.retries {
			return 0, err
		}

		slog.WarnContext(ctx, "collection changed during run, reloading", "key", r.def.DocumentKey, "attempt", attempt+1)
		loaded, err = merge.LoadOrInit(ctx, r.docs, r.def.DocumentKey)
		if err != nil {
			return 0, err
		}
	}
}

func (r *Runner) putRecords(ctx context.Context, recs []domain.Record) []sink.Outcome {
	ctx, span := tracer.Start(ctx, "putRecords")
	defer span.End()
	span.SetAttributes(attribute.Int("records", len(recs)))
	return r.sink.PutRecords(ctx, recs)
}

func documentStatus(existed bool) string {
	if existed {
		return StatusExisting
	}
	return StatusCreated
}

// Body formats the human-readable summary line for a rendered page.
func Body(label, title string) string {
	if label == "" {
		return "Headless Chrome Initialized, Page title: " + title
	}
	return "Headless Chrome Initialized, " + label + ", Page title: " + title
}

func countRun(ctx context.Context, job, result string) {
	c, err := meter.Int64Counter("scrapejob.runs", metric.WithDescription("completed scrape runs"))
	if err != nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("job", job), attribute.String("result", result)))
}

func countRecords(ctx context.Context, job string, n int) {
	c, err := meter.Int64Counter("scrapejob.records", metric.WithDescription("records scraped"))
	if err != nil {
		return
	}
	c.Add(ctx, int64(n), metric.WithAttributes(attribute.String("job", job)))
}
