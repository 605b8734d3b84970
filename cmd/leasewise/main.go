// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// LeaseWise client
//
// Command-line host for the contract analysis client. It:
//  1. Loads configuration from leasewise.yaml, .env and the environment
//  2. Sets up structured logging on stderr
//  3. Builds the API client for the configured analysis service
//  4. Runs the requested command until it completes or a signal arrives
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leasewise/client/internal/api"
	"github.com/leasewise/client/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries what every command needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	client *api.Client

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut}
	var apiURL string

	root := &cobra.Command{
		Use:          "leasewise",
		Short:        "Analyze car lease and loan contracts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if apiURL != "" {
				cfg.APIBaseURL = strings.TrimRight(apiURL, "/")
			}

			slog.SetDefault(newLogger(cfg, errOut))
			slog.Debug("configuration loaded",
				"api_base_url", cfg.APIBaseURL,
				"upload_timeout", cfg.UploadTimeout,
				"redis", cfg.RedisURL != "",
			)

			a.cfg = cfg
			a.client = api.NewClient(api.ClientConfig{
				BaseURL:       cfg.APIBaseURL,
				HealthTimeout: cfg.HealthTimeout,
				UploadTimeout: cfg.UploadTimeout,
				LookupTimeout: cfg.LookupTimeout,
			})
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&apiURL, "api-url", "", "analysis service base URL (overrides API_BASE_URL)")

	root.AddCommand(
		a.analyzeCmd(),
		a.contractCmd(),
		a.healthCmd(),
		a.watchCmd(),
		a.vinCmd(),
		a.recallsCmd(),
		a.priceCmd(),
		a.negotiateCmd(),
	)
	return root
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	lvl, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) printJSON(v any) error {
	return writeJSON(a.out, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
