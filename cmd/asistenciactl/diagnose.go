package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/asistencia/internal/core"
)

func newDiagnoseCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diagnose <file>",
		Short: "Report how a CSV file would be decoded",
		Long: `diagnose prints what the import pipeline sees in a file: whether it is
valid UTF-8, which candidate encoding was chosen, the statistical charset
guess, the detected delimiter and header, and how many fields were repaired
or still carry encoding artifacts. Nothing is imported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			rep, decodeErr := core.PreviewRepair(filepath.Base(args[0]), data)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					return err
				}
			} else {
				printReport(cmd.OutOrStdout(), rep)
			}
			return decodeErr
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(w io.Writer, rep *core.RepairReport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "file:\t%s (%d bytes)\n", rep.FileName, rep.Bytes)
	fmt.Fprintf(tw, "valid utf-8:\t%t\n", rep.ValidUTF8)
	fmt.Fprintf(tw, "decoded as:\t%s\n", rep.Encoding)
	if rep.Guess != "" {
		fmt.Fprintf(tw, "chardet guess:\t%s %s (confidence %d)\n", rep.Guess, rep.GuessLanguage, rep.GuessConfidence)
	}
	if rep.Delimiter != "" {
		fmt.Fprintf(tw, "delimiter:\t%q\n", rep.Delimiter)
		fmt.Fprintf(tw, "header:\t%s\n", strings.Join(rep.Header, " | "))
		fmt.Fprintf(tw, "rows:\t%d\n", rep.Rows)
		fmt.Fprintf(tw, "repaired fields:\t%d\n", rep.RepairedFields)
		fmt.Fprintf(tw, "fields with artifacts:\t%d\n", rep.ArtifactFields)
	}
	tw.Flush()

	if len(rep.Preview) > 0 {
		fmt.Fprintln(w)
		for _, row := range rep.Preview {
			fmt.Fprintln(w, strings.Join(row, " | "))
		}
	}
}
