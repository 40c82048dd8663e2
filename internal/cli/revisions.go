package cli

import (
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newRevisionsCmd(e *env) *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "revisions URI",
		Short: "List the revisions of a record, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			heads, err := e.client().Revisions(cmd.Context(), dataset, args[0])
			if err != nil {
				return err
			}
			if e.output() == "json" {
				return writeJSON(e.out, heads)
			}

			table := tablewriter.NewWriter(e.out)
			table.Header("Revision", "Time", "Status", "Performer")
			for _, h := range heads {
				ts := time.UnixMicro(h.Time).UTC().Format(time.RFC3339Nano)
				if err := table.Append(h.URI, ts, h.Status, h.Performer); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "dataset URI (required)")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

func newRevisionCmd(e *env) *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "revision REVISION_URI",
		Short: "Print one revision record as N-Triples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.client().RevisionRead(cmd.Context(), dataset, args[0])
			if err != nil {
				return err
			}
			_, err = e.out.Write(b)
			return err
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "dataset URI (required)")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}
