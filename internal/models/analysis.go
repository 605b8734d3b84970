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

// Package models defines the contract analysis result shared between the API
// client, the upload workflow and the result view.
package models

import (
	"math"
	"time"
)

// Payload is a loosely-typed key/value document as decoded from a JSON
// response body.
type Payload map[string]any

// ContractAnalysis is the result of one /analyze request.
//
// SLA and Fairness are values, never nil: a response that omits either
// section decodes to the section's defaults.
type ContractAnalysis struct {
	ContractID int    // 0 when the backend did not assign one
	FileName   string // display name supplied by the client, not echoed by the server
	SLA        SLAData
	Fairness   FairnessScore

	// AnalyzedAt is the client's wall clock at decode time.
	AnalyzedAt time.Time

	NegotiationPoints []NegotiationPoint
	ExtractionMethod  string
	PriceComparison   Payload
}

// NegotiationPoint is one rule-based negotiation suggestion attached to an
// analysis.
type NegotiationPoint struct {
	Category string
	Severity string
	Point    string
	Strategy string
}

// SLAData holds the contract terms extracted from the document. Every term is
// optional because extraction confidence varies per document; nil means unknown.
type SLAData struct {
	ContractType         *string
	InterestRateAPR      *float64 // percent
	LeaseTermMonths      *int
	MonthlyPayment       *float64
	DownPayment          *float64
	ResidualValue        *float64
	MileageAllowance     *int // miles per year
	OverageChargePerMile *float64
	PurchaseOptionPrice  *float64

	EarlyTerminationClause    *string
	MaintenanceResponsibility *string
	WarrantyCoverage          *string
	InsuranceRequirements     *string
	LatePaymentPenalty        *string

	// RedFlags keeps the backend's order. Never nil.
	RedFlags []string
}

// FairnessScore is the backend's verdict on the contract.
type FairnessScore struct {
	Score   float64 // expected in [0, 100], passed through unclamped
	Rating  string
	Summary string
	Reasons []string
}

// DefaultRating is used when the backend omits the rating.
const DefaultRating = "Unknown"

// Band is the display severity of a fairness score.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// BandFor maps a score to its severity band: >= 80 high, >= 60 medium,
// anything else (including NaN) low.
func BandFor(score float64) Band {
	switch {
	case math.IsNaN(score):
		return BandLow
	case score >= 80:
		return BandHigh
	case score >= 60:
		return BandMedium
	default:
		return BandLow
	}
}

// Band returns the severity band of the score.
func (f FairnessScore) Band() Band {
	return BandFor(f.Score)
}

// Payload encodes the analysis back into the backend's wire shape. Unknown
// terms are emitted as nil. AnalyzedAt is not part of the wire format.
func (a ContractAnalysis) Payload() Payload {
	p := Payload{
		"contract_id": a.ContractID,
		"file_name":   a.FileName,
		"sla":         a.SLA.payload(),
		"fairness": map[string]any{
			"score":   a.Fairness.Score,
			"rating":  a.Fairness.Rating,
			"summary": a.Fairness.Summary,
			"reasons": stringsToAny(a.Fairness.Reasons),
		},
		"negotiation_points": pointsToAny(a.NegotiationPoints),
	}
	if a.ExtractionMethod != "" {
		p["extraction_method"] = a.ExtractionMethod
	}
	if a.PriceComparison != nil {
		p["price_comparison"] = map[string]any(a.PriceComparison)
	}
	return p
}

func (s SLAData) payload() map[string]any {
	return map[string]any{
		"contract_type":              deref(s.ContractType),
		"interest_rate_apr":          deref(s.InterestRateAPR),
		"lease_term_months":          deref(s.LeaseTermMonths),
		"monthly_payment":            deref(s.MonthlyPayment),
		"down_payment":               deref(s.DownPayment),
		"residual_value":             deref(s.ResidualValue),
		"mileage_allowance":          deref(s.MileageAllowance),
		"overage_charge_per_mile":    deref(s.OverageChargePerMile),
		"early_termination_clause":   deref(s.EarlyTerminationClause),
		"purchase_option_price":      deref(s.PurchaseOptionPrice),
		"maintenance_responsibility": deref(s.MaintenanceResponsibility),
		"warranty_coverage":          deref(s.WarrantyCoverage),
		"insurance_requirements":     deref(s.InsuranceRequirements),
		"late_payment_penalty":       deref(s.LatePaymentPenalty),
		"red_flags":                  stringsToAny(s.RedFlags),
	}
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func pointsToAny(in []NegotiationPoint) []any {
	out := make([]any, 0, len(in))
	for _, np := range in {
		out = append(out, map[string]any{
			"category": np.Category,
			"severity": np.Severity,
			"point":    np.Point,
			"strategy": np.Strategy,
		})
	}
	return out
}

func stringsToAny(in []string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}
