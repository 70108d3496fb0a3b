package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"scrapejob/pkg/db"
	"scrapejob/pkg/replication"
)

var (
	exportSQLite string
	exportDSN    string
	exportTable  string
)

func init() {
	exportCmd.Flags().StringVar(&exportSQLite, "sqlite", "", "export into this SQLite file")
	exportCmd.Flags().StringVar(&exportDSN, "dsn", "", "export into this Postgres database")
	exportCmd.Flags().StringVar(&exportTable, "table", "", "target table (default <job>_export)")
	exportCmd.MarkFlagsMutuallyExclusive("sqlite", "dsn")
	exportCmd.MarkFlagsOneRequired("sqlite", "dsn")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <job>",
	Short: "Copies a job's stored collection into a SQL table, skipping ids already there.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		jc, ok := application.Config.Job(args[0])
		if !ok {
			return fmt.Errorf("unknown job %q", args[0])
		}
		table := exportTable
		if table == "" {
			table = jc.Name + "_export"
		}

		var (
			target  db.DBProvider
			dialect string
		)
		if exportSQLite != "" {
			c, err := db.OpenSQLite(ctx, exportSQLite)
			if err != nil {
				return err
			}
			defer c.Close()
			target, dialect = c, replication.DialectSQLite
		} else {
			c := db.NewPostgresClient(db.PostgresConfig{DSN: exportDSN})
			if err := c.Connect(ctx); err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer c.Close()
			target, dialect = c, replication.DialectPostgres
		}

		r, err := replication.NewReplicator(replication.Config{
			Docs:    application.Docs,
			SQL:     target,
			Dialect: dialect,
		})
		if err != nil {
			return err
		}

		res, err := r.ReplicateCollection(ctx, jc.DocumentKey, table)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records read, %d inserted into %s\n", jc.Name, res.Processed, res.Inserted, table)
		return nil
	},
}
