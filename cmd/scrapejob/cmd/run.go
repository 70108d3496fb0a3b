package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"scrapejob/pkg/job"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [job...]",
	Short: "Runs the named jobs once, or every configured job when none is named.",
	RunE: func(cmd *cobra.Command, args []string) error {
		runners, err := selectRunners(args)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		var errs []error
		for _, r := range runners {
			summary, err := r.Run(cmd.Context())
			switch {
			case errors.Is(err, job.ErrWriteback):
				// reported through the summary's status code
				slog.WarnContext(cmd.Context(), "collection not written", "job", r.Name(), "err", err)
			case err != nil:
				errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
			}
			if encErr := enc.Encode(summary); encErr != nil {
				return encErr
			}
		}
		return errors.Join(errs...)
	},
}

func selectRunners(names []string) ([]*job.Runner, error) {
	if len(names) == 0 {
		return application.Runners(), nil
	}
	out := make([]*job.Runner, 0, len(names))
	for _, name := range names {
		r, ok := application.Runner(name)
		if !ok {
			return nil, fmt.Errorf("unknown job %q", name)
		}
		out = append(out, r)
	}
	return out, nil
}
