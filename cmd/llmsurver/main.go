// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the llmsurver CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dbvis-ukon/LLMSurver/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// configErr holds the failure of initConfig until a command runs.
var configErr error

// rootCmd is the base command for the llmsurver CLI.
var rootCmd = &cobra.Command{
	Use:   "llmsurver",
	Short: "Classify literature review candidates with a panel of LLM agents",
	Long: `llmsurver screens a corpus of papers for a literature review. Every
selected model classifies each paper's title and abstract as include or
discard; a consensus over a chosen subset of the models decides which papers
stay.

Import papers and register models first, then start a run. Runs, responses
and models are kept in a SQLite database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configErr
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./llmsurver.yaml or ~/.config/llmsurver/llmsurver.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides store.path)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides log.level)")

	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load(".env")

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	used, err := config.Setup(viper.GetViper(), cfgFile)
	if err != nil {
		configErr = err
		return
	}
	if used != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", used)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
