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
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leasewise/client/internal/models"
	"github.com/leasewise/client/internal/picker"
	"github.com/leasewise/client/internal/workflow"
)

func (a *app) analyzeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze [contract.pdf]",
		Short: "Upload a contract PDF and show its analysis",
		Long: "Upload a scanned lease or loan contract for analysis. Without an argument\n" +
			"the path is read interactively; a blank answer cancels.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p workflow.FilePicker = picker.NewPromptPicker(a.in, a.errOut)
			if len(args) == 1 {
				p = picker.PathPicker{Path: args[0]}
			}
			return a.runAnalyze(cmd.Context(), p, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the analysis as JSON")
	return cmd
}

func (a *app) runAnalyze(ctx context.Context, p workflow.FilePicker, asJSON bool) error {
	view := &terminalView{out: a.out, errOut: a.errOut, apiURL: a.cfg.APIBaseURL, asJSON: asJSON}
	c := workflow.NewController(workflow.ControllerConfig{
		Analyzer: a.client,
		Picker:   p,
		View:     view,
	})
	stop := context.AfterFunc(ctx, c.Dispose)
	defer stop()

	c.Init(ctx)
	started := c.SelectAndUpload(ctx)
	c.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("analysis interrupted: %w", err)
	}
	msg, writeErr := view.outcome()
	if msg != "" {
		return errors.New(msg)
	}
	if !started {
		fmt.Fprintln(a.errOut, "No file selected.")
	}
	return writeErr
}

// terminalView presents the upload workflow on a terminal. Progress and the
// offline banner go to errOut; the analysis goes to out.
type terminalView struct {
	out    io.Writer
	errOut io.Writer
	apiURL string
	asJSON bool

	mu         sync.Mutex
	bannerSeen bool
	last       workflow.State
	message    string
	writeErr   error
}

func (v *terminalView) Render(s workflow.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s.Offline() && !v.bannerSeen {
		v.bannerSeen = true
		fmt.Fprintf(v.errOut, "Cannot reach the analysis server at %s. Uploads may fail.\n", v.apiURL)
	}
	if s.State == workflow.StateUploading && v.last != workflow.StateUploading {
		fmt.Fprintln(v.errOut, "Analyzing contract. This can take a few minutes...")
	}
	v.last = s.State
}

func (v *terminalView) Notify(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.message = message
}

func (v *terminalView) ShowResult(a models.ContractAnalysis) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.asJSON {
		v.writeErr = writeJSON(v.out, a.Payload())
		return
	}
	v.writeErr = printAnalysis(v.out, a)
}

// outcome returns the last notification and any error writing the result.
func (v *terminalView) outcome() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.message, v.writeErr
}

// printAnalysis writes the result screen: score, terms, red flags and
// negotiation points. Unknown terms are shown as n/a.
func printAnalysis(w io.Writer, a models.ContractAnalysis) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := a.FileName
	if a.ContractID != 0 {
		header = fmt.Sprintf("Contract #%d  %s", a.ContractID, a.FileName)
	}
	fmt.Fprintln(tw, header)
	fmt.Fprintf(tw, "Analyzed %s\n\n", a.AnalyzedAt.Format("2006-01-02 15:04"))

	f := a.Fairness
	fmt.Fprintf(tw, "Fairness score\t%s / 100 (%s, %s)\n", formatNumber(f.Score), f.Rating, f.Band())
	if f.Summary != "" {
		fmt.Fprintf(tw, "\t%s\n", f.Summary)
	}
	for _, r := range f.Reasons {
		fmt.Fprintf(tw, "\t- %s\n", r)
	}

	s := a.SLA
	fmt.Fprintln(tw, "\nTerms")
	rows := []struct{ label, value string }{
		{"Contract type", text(s.ContractType)},
		{"APR", percent(s.InterestRateAPR)},
		{"Term", months(s.LeaseTermMonths)},
		{"Monthly payment", money(s.MonthlyPayment)},
		{"Down payment", money(s.DownPayment)},
		{"Residual value", money(s.ResidualValue)},
		{"Mileage allowance", miles(s.MileageAllowance)},
		{"Overage per mile", money(s.OverageChargePerMile)},
		{"Purchase option", money(s.PurchaseOptionPrice)},
		{"Early termination", text(s.EarlyTerminationClause)},
		{"Maintenance", text(s.MaintenanceResponsibility)},
		{"Warranty", text(s.WarrantyCoverage)},
		{"Insurance", text(s.InsuranceRequirements)},
		{"Late payment", text(s.LatePaymentPenalty)},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "  %s\t%s\n", r.label, r.value)
	}

	if len(s.RedFlags) > 0 {
		fmt.Fprintln(tw, "\nRed flags")
		for _, flag := range s.RedFlags {
			fmt.Fprintf(tw, "  ! %s\n", flag)
		}
	}

	if len(a.NegotiationPoints) > 0 {
		fmt.Fprintln(tw, "\nNegotiation points")
		for _, p := range a.NegotiationPoints {
			label := p.Category
			if p.Severity != "" {
				label = fmt.Sprintf("[%s] %s", p.Severity, p.Category)
			}
			fmt.Fprintf(tw, "  %s\t%s\n", strings.TrimSpace(label), p.Point)
			if p.Strategy != "" {
				fmt.Fprintf(tw, "  \t%s\n", p.Strategy)
			}
		}
	}

	return tw.Flush()
}

func text(p *string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return "n/a"
	}
	return *p
}

func percent(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return formatNumber(*p) + "%"
}

func money(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return "$" + strconv.FormatFloat(*p, 'f', 2, 64)
}

func months(p *int) string {
	if p == nil {
		return "n/a"
	}
	return strconv.Itoa(*p) + " months"
}

func miles(p *int) string {
	if p == nil {
		return "n/a"
	}
	return strconv.Itoa(*p) + " miles/year"
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
