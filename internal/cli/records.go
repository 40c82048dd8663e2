package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/client"
)

func newUpdateCmd(e *env) *cobra.Command {
	var (
		p          client.UpdateParams
		file       string
		noRevision bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Create or replace records from an RDF document",
		Example: `  osfctl update --dataset http://example.org/datasets/people/ --file people.nt
  cat people.ttl | osfctl update --dataset http://example.org/datasets/people/ --mime text/turtle --file -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			p.Document = doc
			if noRevision {
				off := false
				p.Revision = &off
			}

			res, err := e.client().Update(cmd.Context(), p)
			if err != nil {
				return err
			}
			if e.output() == "json" {
				return writeJSON(e.out, res)
			}

			fmt.Fprintf(e.out, "journal %s: %d document(s) indexed\n", res.JournalID, res.Indexed)
			if len(res.Revisions) == 0 {
				return nil
			}
			table := tablewriter.NewWriter(e.out)
			table.Header("Subject", "Revision", "Status", "Bootstrap")
			for _, r := range res.Revisions {
				if err := table.Append(r.Subject, r.URI, string(r.Status), fmt.Sprintf("%v", r.Bootstrap)); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}

	f := cmd.Flags()
	f.StringVar(&p.Dataset, "dataset", "", "dataset URI (required)")
	f.StringVar(&file, "file", "", "document to send, - for stdin (required)")
	f.StringVar(&p.MediaType, "mime", "", "document media type (default application/n-triples)")
	f.StringVar(&p.Lifecycle, "lifecycle", "", "lifecycle stage of the new revisions (default published)")
	f.StringVar(&p.Performer, "performer", "", "URI recorded as the performer of the revisions")
	f.BoolVar(&noRevision, "no-revision", false, "write the live graph without creating revisions")
	_ = cmd.MarkFlagRequired("dataset")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readDocument(stdin io.Reader, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(stdin)
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return b, nil
}

func newReadCmd(e *env) *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "read URI",
		Short: "Print the live description of a record as N-Triples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.client().Read(cmd.Context(), dataset, args[0])
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

func newReindexCmd(e *env) *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "reindex URI...",
		Short: "Re-project records from the live graph into the search index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client().Reindex(cmd.Context(), dataset, args)
			if err != nil {
				return err
			}
			if e.output() == "json" {
				return writeJSON(e.out, res)
			}
			fmt.Fprintf(e.out, "%d indexed, %d deleted\n", res.Indexed, res.Deleted)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "dataset URI (required)")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
