// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Register and list classification models",
}

var modelsSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Register a model or update a registered one",
	Long: `Set registers a model reachable through an OpenAI-compatible chat
completions endpoint. The name is sent as the model identifier and is the
agent name in runs.

Parameters are passed through in the request body, for example
--param temperature=0 --param top_p=0.9. Numeric and boolean values are sent
as JSON numbers and booleans.

With --edit the host and key of the registered model are updated and its
parameters are replaced. Without a key, the key is read from the secrets
directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runModelsSet,
}

func runModelsSet(cmd *cobra.Command, args []string) error {
	host, _ := cmd.Flags().GetString("host")
	key, _ := cmd.Flags().GetString("key")
	edit, _ := cmd.Flags().GetBool("edit")
	raw, _ := cmd.Flags().GetStringArray("param")

	if strings.TrimSpace(host) == "" {
		return fmt.Errorf("--host is required")
	}
	params, err := parseParams(raw)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.store.SaveModel(context.Background(), types.Model{Host: host, Name: args[0], Key: key, Parameters: params}, edit)
	if err != nil {
		return err
	}
	verb := "registered"
	if edit {
		verb = "updated"
	}
	fmt.Fprintf(os.Stdout, "%s model %s (id %d, %d parameters)\n", verb, m.Name, m.ID, len(m.Parameters))
	return nil
}

// parseParams splits name=value pairs.
func parseParams(raw []string) ([]types.Parameter, error) {
	params := make([]types.Parameter, 0, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid parameter %q: want name=value", kv)
		}
		params = append(params, types.Parameter{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	return params, nil
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered models",
	RunE:  runModelsList,
}

func runModelsList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	models, err := a.store.ListModels(context.Background())
	if err != nil {
		return err
	}
	for i := range models {
		if models[i].Key != "" {
			models[i].Key = "***"
		}
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	}

	if len(models) == 0 {
		fmt.Println("No models registered.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "%-4s  %-30s  %-40s  %s\n", "ID", "Name", "Host", "Parameters")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, m := range models {
		pairs := make([]string, len(m.Parameters))
		for i, p := range m.Parameters {
			pairs[i] = p.Name + "=" + p.Value
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-30s  %-40s  %s\n", m.ID, truncate(m.Name, 30), truncate(m.Host, 40), strings.Join(pairs, " "))
	}
	return nil
}

func init() {
	modelsSetCmd.Flags().String("host", "", "API base URL, e.g. https://api.openai.com/v1")
	modelsSetCmd.Flags().String("key", "", "API key (default: read from the secrets directory)")
	modelsSetCmd.Flags().StringArray("param", nil, "request parameter as name=value (repeatable)")
	modelsSetCmd.Flags().Bool("edit", false, "update the registered model with this name")

	modelsListCmd.Flags().Bool("json", false, "output models as JSON")

	modelsCmd.AddCommand(modelsSetCmd, modelsListCmd)
	rootCmd.AddCommand(modelsCmd)
}
