// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbvis-ukon/LLMSurver/internal/corpus"
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "Import and list corpus papers",
}

// --- import subcommand ---

var papersImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import papers from JSON or YAML files",
	Long: `Import reads a list of papers from each file and adds them to the
corpus. The format follows the file extension; other files are sniffed.
Every paper needs a document_title; papers without authors are stored with
"No authors available". A file with an invalid paper is not imported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPapersImport,
}

func runPapersImport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	total := 0
	for _, path := range args {
		papers, err := corpus.DecodeFile(path)
		if err != nil {
			return err
		}
		ids, err := a.store.InsertPapers(context.Background(), papers)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(os.Stdout, "imported %d papers from %s\n", len(ids), path)
		total += len(ids)
	}
	if len(args) > 1 {
		fmt.Fprintf(os.Stdout, "\n%d papers imported\n", total)
	}
	return nil
}

// --- list subcommand ---

var papersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List corpus papers",
	RunE:  runPapersList,
}

func runPapersList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	papers, err := a.store.ListPapers(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	if len(papers) == 0 {
		fmt.Println("No papers imported.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "%-6s  %-4s  %-60s  %s\n", "ID", "Year", "Title", "Authors")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, p := range papers {
		fmt.Fprintf(os.Stdout, "%-6d  %-4s  %-60s  %s\n", p.ID, p.Year, truncate(p.Title, 60), truncate(p.Authors, 30))
	}
	fmt.Fprintf(os.Stdout, "\n%d papers\n", len(papers))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	papersListCmd.Flags().Bool("json", false, "output papers as JSON")

	papersCmd.AddCommand(papersImportCmd, papersListCmd)
	rootCmd.AddCommand(papersCmd)
}
