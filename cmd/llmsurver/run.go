// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbvis-ukon/LLMSurver/internal/orchestrate"
	"github.com/dbvis-ukon/LLMSurver/internal/review"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Classify the corpus with the selected models",
	Long: `Run starts one worker per model. Every worker classifies the selected
papers in corpus order and stores each response as it arrives. Progress is
printed to stderr.

Interrupt (Ctrl-C) cancels the run: every worker stops before its next
paper, and responses already received are kept.

Without --prompt or --prompt-file the command prints the default prompt
template and exits.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	prompt, err := promptFromFlags(cmd)
	if err != nil {
		return err
	}
	if prompt == "" {
		fmt.Fprintln(os.Stdout, review.DefaultPrompt)
		return nil
	}
	name, _ := cmd.Flags().GetString("name")
	models, _ := cmd.Flags().GetStringSlice("models")
	paperIDs, _ := cmd.Flags().GetInt64Slice("papers")
	sample, _ := cmd.Flags().GetBool("sample")
	interval, _ := cmd.Flags().GetDuration("interval")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	session := a.session()
	id, err := session.StartRun(context.Background(), review.StartRequest{
		Name:     name,
		Prompt:   prompt,
		PaperIDs: paperIDs,
		Models:   models,
		Sample:   sample,
	})
	if err != nil {
		return err
	}
	run := session.ActiveRun()
	fmt.Fprintf(os.Stderr, "run %d started\n", id)

	if run != nil {
		watch(run, session, interval)
	}

	st := session.Progress()
	fmt.Fprintf(os.Stderr, "run %d: %d/%d classified\n", id, st.Completed, st.Target)
	v, err := session.View(context.Background())
	if err != nil {
		return err
	}
	printView(os.Stdout, v)
	if st.Cancelled {
		return fmt.Errorf("run %d cancelled", id)
	}
	return nil
}

// watch prints progress until the run settles. An interrupt cancels it.
func watch(run *orchestrate.Run, session *review.Service, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	sig, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tick := time.NewTicker(interval)
	defer tick.Stop()
	last := -1
	for {
		select {
		case <-run.Done():
			return
		case <-sig.Done():
			if session.CancelRun() {
				fmt.Fprintln(os.Stderr, "cancelling: waiting for in-flight requests")
			}
			stop()
			<-run.Done()
			return
		case <-tick.C:
			st := run.Status()
			if st.Completed != last {
				fmt.Fprintf(os.Stderr, "classifying %d/%d (%.1f%%)\n", st.Completed, st.Target, st.Progress)
				last = st.Completed
			}
		}
	}
}

func promptFromFlags(cmd *cobra.Command) (string, error) {
	prompt, _ := cmd.Flags().GetString("prompt")
	file, _ := cmd.Flags().GetString("prompt-file")
	if file != "" {
		if prompt != "" {
			return "", fmt.Errorf("use either --prompt or --prompt-file")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading prompt: %w", err)
		}
		prompt = string(data)
	}
	return strings.TrimSpace(prompt), nil
}

func init() {
	runCmd.Flags().String("name", "", "run name")
	runCmd.Flags().String("prompt", "", "classification prompt")
	runCmd.Flags().String("prompt-file", "", "read the prompt from a file")
	runCmd.Flags().StringSlice("models", nil, "models to run, comma separated")
	runCmd.Flags().Int64Slice("papers", nil, "paper ids to classify (default: all)")
	runCmd.Flags().Bool("sample", false, "classify only the first run.sample_size papers")
	runCmd.Flags().Duration("interval", time.Second, "progress report interval")

	rootCmd.AddCommand(runCmd)
}
