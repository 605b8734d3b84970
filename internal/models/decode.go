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

package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Decode builds a ContractAnalysis from a response payload, stamping
// AnalyzedAt with the current time. It never fails: every field has a
// default and a missing or wrong-shaped field leaves the rest intact.
func Decode(raw Payload) ContractAnalysis {
	return DecodeAt(raw, time.Now())
}

// DecodeAt is Decode with an explicit analysis timestamp.
func DecodeAt(raw Payload, analyzedAt time.Time) ContractAnalysis {
	a := ContractAnalysis{
		SLA:               decodeSLA(raw.Section("sla")),
		Fairness:          decodeFairness(raw.Section("fairness")),
		AnalyzedAt:        analyzedAt,
		NegotiationPoints: DecodeNegotiationPoints(raw["negotiation_points"]),
	}
	if id := raw.Int("contract_id"); id != nil {
		a.ContractID = *id
	}
	if name := raw.Text("file_name"); name != nil {
		a.FileName = *name
	}
	if method := raw.Text("extraction_method"); method != nil {
		a.ExtractionMethod = *method
	}
	if pc, ok := asPayload(raw["price_comparison"]); ok {
		a.PriceComparison = pc
	}
	return a
}

func decodeSLA(p Payload) SLAData {
	return SLAData{
		ContractType:              p.Text("contract_type"),
		InterestRateAPR:           p.Float("interest_rate_apr"),
		LeaseTermMonths:           p.Int("lease_term_months"),
		MonthlyPayment:            p.Float("monthly_payment"),
		DownPayment:               p.Float("down_payment"),
		ResidualValue:             p.Float("residual_value"),
		MileageAllowance:          p.Int("mileage_allowance"),
		OverageChargePerMile:      p.Float("overage_charge_per_mile"),
		PurchaseOptionPrice:       p.Float("purchase_option_price"),
		EarlyTerminationClause:    p.Text("early_termination_clause"),
		MaintenanceResponsibility: p.Text("maintenance_responsibility"),
		WarrantyCoverage:          p.Text("warranty_coverage"),
		InsuranceRequirements:     p.Text("insurance_requirements"),
		LatePaymentPenalty:        p.Text("late_payment_penalty"),
		RedFlags:                  p.Strings("red_flags"),
	}
}

func decodeFairness(p Payload) FairnessScore {
	f := FairnessScore{
		Rating:  DefaultRating,
		Reasons: p.Strings("reasons"),
	}
	// The analysis service names the field fairness_score; stored results use score.
	if score := p.Float("score"); score != nil {
		f.Score = *score
	} else if score := p.Float("fairness_score"); score != nil {
		f.Score = *score
	}
	if rating := p.Text("rating"); rating != nil {
		f.Rating = *rating
	}
	if summary := p.Text("summary"); summary != nil {
		f.Summary = *summary
	}
	return f
}

// DecodeNegotiationPoints decodes a negotiation_points value: a list of point
// objects, where bare strings are taken as the point text. Never nil.
func DecodeNegotiationPoints(v any) []NegotiationPoint {
	out := []NegotiationPoint{}
	items, _ := v.([]any)
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, NegotiationPoint{Point: s})
			continue
		}
		p, ok := asPayload(item)
		if !ok {
			continue
		}
		np := NegotiationPoint{}
		if s := p.Text("category"); s != nil {
			np.Category = *s
		}
		if s := p.Text("severity"); s != nil {
			np.Severity = *s
		}
		if s := p.Text("point"); s != nil {
			np.Point = *s
		}
		if s := p.Text("strategy"); s != nil {
			np.Strategy = *s
		}
		out = append(out, np)
	}
	return out
}

// Section returns the nested object under key, or an empty payload when the
// key is absent or not an object.
func (p Payload) Section(key string) Payload {
	if s, ok := asPayload(p[key]); ok {
		return s
	}
	return Payload{}
}

// Float returns the numeric value under key normalized to float64, or nil.
func (p Payload) Float(key string) *float64 {
	f, ok := toFloat(p[key])
	if !ok {
		return nil
	}
	return &f
}

// Int returns the integral value under key, or nil when the value is missing,
// non-numeric or has a fractional part.
func (p Payload) Int(key string) *int {
	v := p[key]
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
			out := int(i)
			return &out
		}
	}
	f, ok := toFloat(v)
	// -math.MinInt is 2^63 exactly; float64(math.MaxInt) rounds up to it.
	if !ok || f != math.Trunc(f) || f < math.MinInt || f >= -math.MinInt {
		return nil
	}
	out := int(f)
	return &out
}

// Text returns the string under key. Numbers and booleans are formatted as
// text; any other shape yields nil.
func (p Payload) Text(key string) *string {
	s, ok := toText(p[key])
	if !ok {
		return nil
	}
	return &s
}

// Strings returns the list of strings under key. A lone string becomes a
// one-element list. The result is never nil.
func (p Payload) Strings(key string) []string {
	out := []string{}
	switch v := p[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := toText(item); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, v...)
	case string:
		out = append(out, v)
	}
	return out
}

func asPayload(v any) (Payload, bool) {
	switch m := v.(type) {
	case map[string]any:
		return Payload(m), true
	case Payload:
		return m, true
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func toText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}
