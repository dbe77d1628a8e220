package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"sigs.k8s.io/yaml"

	"github.com/roivaz/notion-chakra-mcp/internal/adapter"
	"github.com/roivaz/notion-chakra-mcp/internal/app"
	"github.com/roivaz/notion-chakra-mcp/internal/config"
	"github.com/roivaz/notion-chakra-mcp/internal/jq"
	"github.com/roivaz/notion-chakra-mcp/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "notionctl",
	Short:         "Run Notion tool operations and manage stored schemas",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var callCmd = &cobra.Command{
	Use:   "call <operation>",
	Short: "Run one adapter operation with retries",
	Example: `  notionctl call search --args '{"query":"Roadmap"}'
  notionctl call query_database --args '{"database_id":"<id>"}' --jq '[.results[].id]'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawArgs, _ := cmd.Flags().GetString("args")
		expr, _ := cmd.Flags().GetString("jq")

		params := adapter.Params{}
		if strings.TrimSpace(rawArgs) != "" {
			if err := json.Unmarshal([]byte(rawArgs), &params); err != nil {
				return fmt.Errorf("--args must be a JSON object: %w", err)
			}
		}
		if expr != "" {
			if err := jq.Validate(expr); err != nil {
				return err
			}
		}

		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			res := rt.Adapter.Execute(ctx, adapter.ToolRequest{Operation: args[0], Params: params})
			if !res.OK() {
				out, _ := json.Marshal(res.Failure)
				fmt.Fprintln(cmd.ErrOrStderr(), string(out))
				return fmt.Errorf("%s failed after %d attempt(s): %s", args[0], res.Attempts, res.Failure.Kind)
			}
			payload, err := rt.Filter.Apply(ctx, expr, res.Payload)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), payload)
		})
	},
}

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List the supported operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, op := range adapter.Operations() {
			fmt.Fprintln(cmd.OutOrStdout(), op)
		}
		return nil
	},
}

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "Fetch and inspect stored database schemas",
}

var schemasFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch every shared database schema from Notion",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("config")
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			res, err := rt.Schemas.Fetch(ctx, name)
			if err != nil {
				return err
			}
			for _, db := range res.Databases {
				fmt.Fprintf(cmd.OutOrStdout(), "stored %s/%s\n", res.Config, db)
			}
			for _, db := range res.Failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed %s\n", db)
			}
			return nil
		})
	},
}

var schemasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored schemas for a configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("config")
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			names, err := rt.Schemas.List(ctx, name)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		})
	},
}

var schemasShowCmd = &cobra.Command{
	Use:   "show <database>",
	Short: "Print a schema, fetching it when it is not stored",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("config")
		output, _ := cmd.Flags().GetString("output")
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			schema, err := rt.Schemas.Get(ctx, name, args[0])
			if err != nil {
				return err
			}
			if output == "json" {
				b, err := json.Marshal(schema)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), b)
			}
			b, err := yaml.Marshal(schema)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		})
	},
}

var schemasConfigsCmd = &cobra.Command{
	Use:   "configs",
	Short: "List configuration names with stored schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			configs, err := rt.Schemas.Configs(ctx)
			if err != nil {
				return err
			}
			for _, c := range configs {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		})
	},
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Notion token stored in the OS keyring",
}

var authSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store the Notion integration token; reads stdin when no argument is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var token string
		if len(args) == 1 {
			token = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			token = line
		}
		if err := config.StoreAPIKey(token); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "token stored")
		return nil
	},
}

var authDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored Notion token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.DeleteAPIKey(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "token removed")
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().String("notion-api-key", "", "Notion integration token (env NOTION_API_KEY)")
	rootCmd.PersistentFlags().String("data-dir", "data", "Directory for stored schemas")
	rootCmd.PersistentFlags().String("schema-backend", config.BackendFile, "Schema store: file or postgres")
	rootCmd.PersistentFlags().String("postgres-url", "", "Postgres connection URL for the postgres schema store")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Int("retry-max-attempts", 5, "Attempts per call, including the first")
	config.Init(rootCmd)

	callCmd.Flags().String("args", "", "Operation arguments as a JSON object")
	callCmd.Flags().String("jq", "", "jq expression applied to the response")
	for _, c := range []*cobra.Command{schemasFetchCmd, schemasListCmd, schemasShowCmd} {
		c.Flags().String("config", "default", "Configuration name")
	}
	schemasShowCmd.Flags().StringP("output", "o", "yaml", "Output format: yaml or json")

	schemasCmd.AddCommand(schemasFetchCmd, schemasListCmd, schemasShowCmd, schemasConfigsCmd)
	authCmd.AddCommand(authSetCmd, authDeleteCmd)
	rootCmd.AddCommand(callCmd, operationsCmd, schemasCmd, authCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "notionctl: %v\n", err)
		os.Exit(1)
	}
}

// withRuntime builds the runtime from flags and environment and runs fn
// until it returns or the process is interrupted.
func withRuntime(cmd *cobra.Command, fn func(context.Context, *app.Runtime) error) error {
	settings := config.Load()
	settings.Telemetry.MetricsEnabled = false
	if err := settings.Validate(); err != nil {
		return err
	}
	log := logging.New(logging.ForLevel(settings.LogLevel))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.New(ctx, settings, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Close(shutdownCtx)
	}()
	return fn(ctx, rt)
}

func printJSON(w io.Writer, raw []byte) error {
	pretty := gjson.ParseBytes(raw).Get("@pretty").Raw
	if pretty == "" {
		pretty = string(raw)
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(pretty, "\n"))
	return err
}
