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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leasewise/client/internal/api"
	"github.com/leasewise/client/internal/vincache"
	"github.com/leasewise/client/internal/workflow"
)

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the analysis service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.client.CheckHealth(cmd.Context()) {
				return fmt.Errorf("analysis server at %s is unreachable", a.client.BaseURL())
			}
			fmt.Fprintf(a.out, "online  %s\n", a.client.BaseURL())
			return nil
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report connectivity changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				interval = a.cfg.PollInterval
			}
			m := workflow.NewMonitor(a.client, interval, func(ctx context.Context, online bool) {
				state := "offline"
				if online {
					state = "online"
				}
				fmt.Fprintf(a.out, "%s  %-7s  %s\n", time.Now().Format(time.RFC3339), state, a.client.BaseURL())
			})
			m.Run(cmd.Context())
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "probe interval (default from POLL_INTERVAL)")
	return cmd
}

func (a *app) contractCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "contract <id>",
		Short: "Show a previously analyzed contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("contract id", args[0])
			if err != nil {
				return err
			}
			analysis, err := a.client.GetContract(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(analysis.Payload())
			}
			return printAnalysis(a.out, *analysis)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the analysis as JSON")
	return cmd
}

func (a *app) vinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vin <vin>...",
		Short: "Decode vehicle details for one or more VINs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lookup, closeStore := a.vinLookup(ctx)
			defer closeStore()

			for _, vin := range args {
				payload, err := lookup.LookupVehicle(ctx, vin)
				if err != nil {
					return fmt.Errorf("%s: %w", vincache.Normalize(vin), err)
				}
				if err := a.printJSON(payload); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// vinLookup builds the cached VIN lookup. A configured but unreachable
// Redis falls back to the in-process cache.
func (a *app) vinLookup(ctx context.Context) (*vincache.Lookup, func()) {
	if a.cfg.RedisURL != "" {
		store, err := vincache.NewRedisStoreFromURL(ctx, a.cfg.RedisURL, a.cfg.CacheTTL)
		if err == nil {
			return vincache.NewLookup(a.client, store), func() { store.Close() }
		}
		slog.Warn("redis unavailable, using in-process VIN cache", "error", err)
	}
	return vincache.NewLookup(a.client, vincache.NewMemoryStore(a.cfg.CacheTTL)), func() {}
}

func (a *app) recallsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalls <vin>",
		Short: "List safety recalls for a vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := a.client.LookupRecalls(cmd.Context(), vincache.Normalize(args[0]))
			if err != nil {
				return err
			}
			return a.printJSON(payload)
		},
	}
}

func (a *app) priceCmd() *cobra.Command {
	var (
		vin     string
		req     api.PriceRequest
		mileage int
	)

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Estimate a fair market price by VIN or by make, model and year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if vin != "" {
				payload, err := a.client.EstimatePriceByVIN(cmd.Context(), vincache.Normalize(vin))
				if err != nil {
					return err
				}
				return a.printJSON(payload)
			}

			if req.Make == "" || req.Model == "" || req.Year == 0 {
				return fmt.Errorf("either --vin or all of --make, --model and --year are required")
			}
			if cmd.Flags().Changed("mileage") {
				req.Mileage = &mileage
			}
			payload, err := a.client.EstimatePrice(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.printJSON(payload)
		},
	}

	f := cmd.Flags()
	f.StringVar(&vin, "vin", "", "vehicle identification number")
	f.StringVar(&req.Make, "make", "", "vehicle make")
	f.StringVar(&req.Model, "model", "", "vehicle model")
	f.IntVar(&req.Year, "year", 0, "model year")
	f.IntVar(&mileage, "mileage", 0, "odometer reading")
	f.StringVar(&req.Condition, "condition", "", "vehicle condition")
	f.StringVar(&req.BodyClass, "body-class", "", "body class, e.g. Sedan")
	return cmd
}

func parseID(what, s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}
