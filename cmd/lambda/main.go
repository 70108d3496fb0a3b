// Command lambda runs one scrape job per scheduled EventBridge invocation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"scrapejob/pkg/app"
	"scrapejob/pkg/config"
	"scrapejob/pkg/job"
	"scrapejob/pkg/logger"
	"scrapejob/pkg/telemetry"
)

type handler struct {
	runner *job.Runner
	tel    telemetry.Telemetry
}

func (h *handler) handle(ctx context.Context, event events.CloudWatchEvent) (job.Summary, error) {
	slog.InfoContext(ctx, "invoked", "job", h.runner.Name(), "event_id", event.ID, "time", event.Time)
	summary, err := h.runner.Run(ctx)
	if ferr := h.flush(ctx); ferr != nil {
		slog.WarnContext(ctx, "failed to flush telemetry", "err", ferr)
	}
	// a failed writeback is reported in the summary; an invocation error
	// would make the async invoke retry the whole scrape
	if errors.Is(err, job.ErrWriteback) {
		return summary, nil
	}
	return summary, err
}

// flush exports buffered spans and metrics before the execution environment
// freezes.
func (h *handler) flush(ctx context.Context) error {
	var errs []error
	if h.tel.TracerProvider != nil {
		errs = append(errs, h.tel.TracerProvider.ForceFlush(ctx))
	}
	if h.tel.MeterProvider != nil {
		errs = append(errs, h.tel.MeterProvider.ForceFlush(ctx))
	}
	return errors.Join(errs...)
}

func jobName() string {
	if name := os.Getenv("SCRAPEJOB_JOB"); name != "" {
		return name
	}
	return "flights"
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// CloudWatch Logs indexes JSON lines
	logger.Setup(os.Stdout, cfg.LogLevel, "json")

	tel, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Error("setup telemetry", "err", err)
		os.Exit(1)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("build app", "err", err)
		os.Exit(1)
	}

	r, ok := a.Runner(jobName())
	if !ok {
		slog.Error("unknown job", "job", jobName())
		os.Exit(1)
	}

	h := &handler{runner: r, tel: tel}
	lambda.Start(h.handle)
}
