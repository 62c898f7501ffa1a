package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/asistencia/internal/core"
	"github.com/JonMunkholm/asistencia/internal/textfix"
)

func newRepairCmd() *cobra.Command {
	var (
		out    string
		fields bool
	)

	cmd := &cobra.Command{
		Use:   "repair <file>",
		Short: "Rewrite a legacy CSV file as clean UTF-8",
		Long: `repair decodes a file of unknown encoding and writes it back as UTF-8.

Without --fields the whole buffer is decoded once. With --fields the file is
also tokenized as CSV and every field is repaired on its own, which fixes
columns that were double-decoded by a spreadsheet. The output is then a
comma-separated file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			repaired := 0
			if fields {
				doc, err := core.DecodeCSV(data)
				if err != nil {
					return err
				}
				if err := core.WriteCSV(&buf, doc.Header, doc.Rows, false); err != nil {
					return err
				}
				repaired = doc.Repaired
			} else {
				buf.WriteString(textfix.StripBOM(textfix.RepairBuffer(data)))
			}

			if err := writeOutput(cmd, out, buf.Bytes()); err != nil {
				return err
			}
			if fields {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d fields repaired\n", repaired)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&fields, "fields", false, "also repair each CSV field individually")
	return cmd
}

// writeOutput writes data to path, or to the command's stdout when path is
// empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	var w io.Writer = cmd.OutOrStdout()
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
