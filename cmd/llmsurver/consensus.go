// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var consensusCmd = &cobra.Command{
	Use:   "consensus",
	Short: "Compute the consensus of a run over a subset of its models",
	Long: `Consensus loads a run and decides every paper from the responses of the
chosen models: a paper is included when any of them included it, discarded
when none included it and at least one discarded it, and unknown otherwise.

Without --models every model of the run is part of the consensus.`,
	RunE: runConsensus,
}

func runConsensus(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetInt64("run")
	if id < 1 {
		return fmt.Errorf("--run must be a run id, got %d", id)
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	session := a.session()
	v, err := session.LoadRun(ctx, id)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("models") {
		models, _ := cmd.Flags().GetStringSlice("models")
		if v, err = session.SetConsensus(ctx, models); err != nil {
			return err
		}
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return writeJSON(os.Stdout, v)
	}
	printView(os.Stdout, v)
	return nil
}

func init() {
	consensusCmd.Flags().Int64("run", 0, "run id")
	consensusCmd.Flags().StringSlice("models", nil, "consensus models, comma separated (default: all models of the run)")
	consensusCmd.Flags().Bool("json", false, "output the full view as JSON")
	_ = consensusCmd.MarkFlagRequired("run")

	rootCmd.AddCommand(consensusCmd)
}
