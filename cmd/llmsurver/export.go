// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbvis-ukon/LLMSurver/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the corpus or a run as CSV, JSON or YAML",
	Long: `Export writes the papers of a run with their responses and consensus
status, one line per paper for CSV. Without --run the bare corpus is
exported. The consensus covers every model of the run.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetInt64("run")
	rawFormat, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return err
	}
	if id < 0 {
		id = 0
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.session().Export(context.Background(), id)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}
	if err := export.Write(w, format, doc); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "exported %d papers to %s\n", len(doc.Papers), output)
	}
	return nil
}

func init() {
	exportCmd.Flags().Int64("run", 0, "run id (default: export the corpus)")
	exportCmd.Flags().String("format", "csv", "output format: csv, json, yaml")
	exportCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
}
