// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbvis-ukon/LLMSurver/internal/review"
	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List, inspect and delete stored runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	RunE:  runRunsList,
}

func runRunsList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.store.ListRuns(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs stored.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "%-4s  %-30s  %-6s  %-20s  %s\n", "ID", "Name", "Type", "Created", "Models")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-4d  %-30s  %-6s  %-20s  %s\n",
			r.ID, truncate(r.Alias, 30), r.Type, r.Created.Local().Format(time.DateTime), strings.Join(r.Models, ", "))
	}
	return nil
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run under the consensus of all its models",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	id, err := parseRunID(args[0])
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	v, err := a.session().LoadRun(context.Background(), id)
	if err != nil {
		return err
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return writeJSON(os.Stdout, v)
	}
	printView(os.Stdout, v)
	return nil
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run and its responses",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseRunID(args[0])
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.session().DeleteRun(context.Background(), id)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(os.Stdout, "run %d does not exist\n", id)
		return nil
	}
	fmt.Fprintf(os.Stdout, "deleted run %d\n", id)
	return nil
}

func parseRunID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid run id %q", s)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printView writes the consensus summary of a view: statistics, the
// agreement histogram and the per-model distribution.
func printView(w io.Writer, v review.View) {
	if v.Run != nil {
		fmt.Fprintf(w, "Run %d: %s (%s)\n", v.Run.ID, v.Run.Alias, v.Run.Type)
	}
	fmt.Fprintf(w, "Consensus: %s\n\n", strings.Join(v.Consensus, ", "))

	st := v.Statistics
	fmt.Fprintf(w, "Papers:     %d\n", st.Total)
	fmt.Fprintf(w, "Classified: %d\n", st.Classified)
	fmt.Fprintf(w, "Included:   %d\n", st.Included)
	fmt.Fprintf(w, "Discarded:  %d\n", st.Discarded)
	for i, n := range st.IncludedBy {
		fmt.Fprintf(w, "  included by %d: %d\n", i+1, n)
	}

	if len(v.Agreement.Rows) > 0 {
		fmt.Fprintln(w, "\nAgreement")
		fmt.Fprintf(w, "%-30s", "")
		for _, l := range v.Agreement.Labels {
			fmt.Fprintf(w, "  %12s", l)
		}
		fmt.Fprintln(w)
		for _, r := range v.Agreement.Rows {
			fmt.Fprintf(w, "%-30s", truncate(r.Model, 30))
			for _, n := range r.Counts {
				fmt.Fprintf(w, "  %12d", n)
			}
			fmt.Fprintln(w)
		}
	}

	if len(v.Distribution) > 0 {
		fmt.Fprintln(w, "\nDistribution")
		fmt.Fprintf(w, "%-30s  %8s  %8s  %8s  %8s\n", "", types.ClassUnknown, types.ClassInclude, types.ClassDiscard, types.ClassError)
		for _, d := range v.Distribution {
			fmt.Fprintf(w, "%-30s  %8d  %8d  %8d  %8d\n", truncate(d.Model, 30), d.Counts[0], d.Counts[1], d.Counts[2], d.Counts[3])
		}
	}
}

func init() {
	runsListCmd.Flags().Bool("json", false, "output runs as JSON")
	runsShowCmd.Flags().Bool("json", false, "output the full view as JSON")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}
