// Package app builds stores, renderers and job runners from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"scrapejob/pkg/config"
	"scrapejob/pkg/db"
	"scrapejob/pkg/docstore"
	"scrapejob/pkg/job"
	"scrapejob/pkg/render"
	"scrapejob/pkg/sink"
)

// App owns every long-lived client a process needs. Close releases them.
type App struct {
	Config  *config.Config
	Docs    docstore.Store
	Rows    db.RowStore
	runners []*job.Runner

	// Renderer overrides the configured render factory when set before
	// the runners are built. Tests use it to avoid a browser.
	renderer render.Factory
	aws      *aws.Config
	supabase *db.SupabaseClient
	closers  []func() error
}

// Option configures New.
type Option func(*App)

// WithRenderer replaces the renderer built from the render config section.
func WithRenderer(f render.Factory) Option {
	return func(a *App) {
		a.renderer = f
	}
}

// WithDocumentStore replaces the configured document backend.
func WithDocumentStore(s docstore.Store) Option {
	return func(a *App) {
		a.Docs = s
	}
}

// WithRowStore replaces the configured row backend.
func WithRowStore(s db.RowStore) Option {
	return func(a *App) {
		a.Rows = s
	}
}

// New connects the configured backends and builds one runner per job.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if a.Docs == nil {
		docs, err := a.documentStore(ctx)
		if err != nil {
			return nil, errors.Join(err, a.Close())
		}
		a.Docs = docs
	}
	if a.Rows == nil {
		rows, err := a.rowStore(ctx)
		if err != nil {
			return nil, errors.Join(err, a.Close())
		}
		a.Rows = rows
	}
	if a.renderer == nil {
		a.renderer = render.NewFactory(cfg.RenderOptions())
	}

	loc := cfg.Location()
	clock := func() time.Time { return time.Now().In(loc) }
	for _, jc := range cfg.Jobs {
		def := job.Definition{
			Name:        jc.Name,
			Label:       jc.Label,
			URL:         jc.URL,
			DocumentKey: jc.DocumentKey,
			Rule:        jc.Rule,
		}
		s := sink.New(a.Docs, a.Rows, jc.Table)
		a.runners = append(a.runners, job.NewRunner(def, a.renderer, a.Docs, s,
			job.WithClock(clock),
			job.WithConflictRetries(cfg.Document.ConflictRetries),
		))
	}

	slog.DebugContext(ctx, "app ready", "documents", cfg.Document.Backend, "rows", cfg.Rows.Backend, "jobs", len(a.runners))
	return a, nil
}

// Runners returns the runners in configuration order.
func (a *App) Runners() []*job.Runner {
	return a.runners
}

// Runner returns the runner for the named job.
func (a *App) Runner(name string) (*job.Runner, bool) {
	for _, r := range a.runners {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// Close releases every connection New opened.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) awsConfig(ctx context.Context, region string) (aws.Config, error) {
	if a.aws != nil && (region == "" || a.aws.Region == region) {
		return *a.aws, nil
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if a.aws == nil {
		a.aws = &cfg
	}
	return cfg, nil
}

func (a *App) supabaseClient(ctx context.Context) (*db.SupabaseClient, error) {
	if a.supabase != nil {
		return a.supabase, nil
	}
	c := db.NewSupabaseClient(db.SupabaseConfig{
		SupabaseURL: a.Config.Supabase.URL,
		SupabaseKey: a.Config.Supabase.Key,
		Password:    a.Config.Supabase.Password,
	})
	if err := c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect supabase: %w", err)
	}
	a.supabase = c
	a.closers = append(a.closers, c.Close)
	return c, nil
}

func (a *App) documentStore(ctx context.Context) (docstore.Store, error) {
	dc := a.Config.Document
	switch dc.Backend {
	case config.DocumentS3:
		cfg, err := a.awsConfig(ctx, dc.Region)
		if err != nil {
			return nil, err
		}
		return docstore.NewS3(s3.NewFromConfig(cfg), dc.Bucket), nil
	case config.DocumentSupabase:
		c, err := a.supabaseClient(ctx)
		if err != nil {
			return nil, err
		}
		st := c.Storage()
		if st == nil {
			return nil, fmt.Errorf("supabase storage needs supabase.url and supabase.key")
		}
		return docstore.NewSupabase(st, dc.Bucket), nil
	case config.DocumentFile:
		return docstore.NewFile(dc.Dir), nil
	case config.DocumentMemory:
		return docstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown document backend %q", dc.Backend)
	}
}

func (a *App) rowStore(ctx context.Context) (db.RowStore, error) {
	rc := a.Config.Rows
	switch rc.Backend {
	case config.RowsDynamoDB:
		cfg, err := a.awsConfig(ctx, rc.Region)
		if err != nil {
			return nil, err
		}
		return db.NewDynamoClient(dynamodb.NewFromConfig(cfg)), nil
	case config.RowsPostgres:
		c := db.NewPostgresClient(db.PostgresConfig{DSN: rc.DSN})
		if err := c.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	case config.RowsSupabase:
		return a.supabaseClient(ctx)
	case config.RowsMongo:
		c := db.NewClient(rc.MongoURI, rc.Database)
		if err := c.Connect(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	case config.RowsSQLite:
		c, err := db.OpenSQLite(ctx, rc.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	case config.RowsMemory:
		return db.NewMemoryStore(), nil
	case config.RowsNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown rows backend %q", rc.Backend)
	}
}
