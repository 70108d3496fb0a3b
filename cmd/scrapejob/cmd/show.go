package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"scrapejob/pkg/domain"
	"scrapejob/pkg/merge"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <job>",
	Short: "Prints a job's stored collection.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jc, ok := application.Config.Job(args[0])
		if !ok {
			return fmt.Errorf("unknown job %q", args[0])
		}

		loaded, err := merge.LoadOrInit(cmd.Context(), application.Docs, jc.DocumentKey)
		if err != nil {
			return err
		}
		if !loaded.Existed {
			fmt.Fprintf(os.Stderr, "%s does not exist yet\n", jc.DocumentKey)
		}
		renderCollection(os.Stdout, loaded.Collection)
		return nil
	},
}

func renderCollection(w io.Writer, c domain.Collection) {
	cols := columns(c)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	header := make(table.Row, len(cols))
	for i, name := range cols {
		header[i] = name
	}
	t.AppendHeader(header)

	for _, rec := range byID(c) {
		row := make(table.Row, len(cols))
		for i, name := range cols {
			row[i] = rec[name]
		}
		t.AppendRow(row)
	}

	t.AppendFooter(table.Row{fmt.Sprintf("%d records", len(c))})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// byID returns c ordered by capture time, then sequence number. Records whose
// id does not parse keep their stored order after the rest.
func byID(c domain.Collection) domain.Collection {
	type key struct {
		ts  string
		seq int
		ok  bool
	}
	keys := make(map[domain.ID]key, len(c))
	for _, rec := range c {
		ts, seq, err := domain.ParseID(rec.ID())
		keys[rec.ID()] = key{ts: ts, seq: seq, ok: err == nil}
	}

	out := make(domain.Collection, len(c))
	copy(out, c)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := keys[out[i].ID()], keys[out[j].ID()]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		if a.ts != b.ts {
			return a.ts < b.ts
		}
		return a.seq < b.seq
	})
	return out
}

// columns lists id and searched_on first, then every other field name in
// alphabetical order.
func columns(c domain.Collection) []string {
	seen := map[string]bool{domain.FieldID: true, domain.FieldSearchedOn: true}
	var rest []string
	for _, rec := range c {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				rest = append(rest, k)
			}
		}
	}
	sort.Strings(rest)
	return append([]string{domain.FieldID, domain.FieldSearchedOn}, rest...)
}
