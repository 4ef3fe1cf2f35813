package experiment

import (
	"context"
	"fmt"
	"math"

	"meridian-hq/vega/pkg/decision"
	"meridian-hq/vega/pkg/store"
)

// OutcomeApproved is the outcome label counted as a success when
// computing approval rates.
const OutcomeApproved = "approved"

// significanceLevel is the two-sided p-value threshold.
const significanceLevel = 0.05

// OutcomeSample is one recorded outcome attributed to a variant.
type OutcomeSample struct {
	Outcome   string
	LatencyMS *float64
}

// ResultSource supplies the decision and outcome rows an analysis
// needs, grouped by variant. The audit storage implements this by
// joining decision logs to outcomes on audit id.
type ResultSource interface {
	DecisionCountsByVariant(ctx context.Context, experimentID string) (map[string]int, error)
	OutcomesByVariant(ctx context.Context, experimentID string) (map[string][]OutcomeSample, error)
}

// VariantStats aggregates one variant's recorded activity.
type VariantStats struct {
	Variant      string   `json:"variant"`
	Subjects     int      `json:"subjects"`
	Decisions    int      `json:"decisions"`
	Outcomes     int      `json:"outcomes"`
	Approved     int      `json:"approved"`
	ApprovalRate *float64 `json:"approval_rate,omitempty"`
	AvgLatencyMS *float64 `json:"avg_latency_ms,omitempty"`
}

// Results is a full experiment analysis: per-variant stats, lift and
// the two-proportion z-test verdict.
type Results struct {
	ExperimentID   string        `json:"experiment_id"`
	ExperimentName string        `json:"experiment_name"`
	Status         string        `json:"status"`
	Control        *VariantStats `json:"control,omitempty"`
	Treatment      *VariantStats `json:"treatment,omitempty"`
	LiftPct        *float64      `json:"lift_pct,omitempty"`
	ZScore         *float64      `json:"z_score,omitempty"`
	PValue         *float64      `json:"p_value,omitempty"`
	IsSignificant  bool          `json:"is_significant"`
	Recommendation string        `json:"recommendation"`
}

// Analyzer computes experiment results from the store and a result
// source.
type Analyzer struct {
	store   store.Store
	results ResultSource
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(s store.Store, results ResultSource) *Analyzer {
	return &Analyzer{store: s, results: results}
}

// Analyze aggregates the experiment's assignments, decisions and
// outcomes and computes lift and significance.
func (a *Analyzer) Analyze(ctx context.Context, experimentID string) (*Results, error) {
	exp, err := a.store.GetExperiment(ctx, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load experiment: %w", err)
	}

	out := &Results{
		ExperimentID:   exp.ID,
		ExperimentName: exp.Name,
		Status:         exp.Status,
		Recommendation: "Not enough data to recommend.",
	}

	assignments, err := a.store.ListAssignments(ctx, experimentID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	subjects := map[string]int{}
	for _, as := range assignments {
		subjects[as.Variant]++
	}
	if len(subjects) == 0 {
		return out, nil
	}

	decisions, err := a.results.DecisionCountsByVariant(ctx, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count decisions: %w", err)
	}
	outcomes, err := a.results.OutcomesByVariant(ctx, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load outcomes: %w", err)
	}

	out.Control = variantStats(decision.VariantControl, subjects, decisions, outcomes)
	out.Treatment = variantStats(decision.VariantTreatment, subjects, decisions, outcomes)

	c, t := out.Control, out.Treatment
	if c == nil || t == nil || c.Outcomes == 0 || t.Outcomes == 0 ||
		c.ApprovalRate == nil || t.ApprovalRate == nil {
		return out, nil
	}

	cRate, tRate := *c.ApprovalRate, *t.ApprovalRate
	cN, tN := float64(c.Outcomes), float64(t.Outcomes)

	if cRate > 0 {
		lift := (tRate - cRate) / cRate * 100
		out.LiftPct = &lift
	}

	pooled := float64(c.Approved+t.Approved) / (cN + tN)
	if pooled > 0 && pooled < 1 {
		se := math.Sqrt(pooled * (1 - pooled) * (1/cN + 1/tN))
		if se > 0 {
			z := (tRate - cRate) / se
			p := 2 * (1 - normalCDF(math.Abs(z)))
			out.ZScore = &z
			out.PValue = &p
			out.IsSignificant = p < significanceLevel
		}
	}

	out.Recommendation = recommend(out)
	return out, nil
}

func variantStats(variant string, subjects, decisions map[string]int, outcomes map[string][]OutcomeSample) *VariantStats {
	if subjects[variant] == 0 {
		return nil
	}
	vs := &VariantStats{
		Variant:   variant,
		Subjects:  subjects[variant],
		Decisions: decisions[variant],
	}

	samples := outcomes[variant]
	vs.Outcomes = len(samples)

	var latencySum float64
	var latencyN int
	for _, s := range samples {
		if s.Outcome == OutcomeApproved {
			vs.Approved++
		}
		if s.LatencyMS != nil && *s.LatencyMS > 0 {
			latencySum += *s.LatencyMS
			latencyN++
		}
	}
	if vs.Outcomes > 0 {
		rate := float64(vs.Approved) / float64(vs.Outcomes)
		vs.ApprovalRate = &rate
	}
	if latencyN > 0 {
		avg := latencySum / float64(latencyN)
		vs.AvgLatencyMS = &avg
	}
	return vs
}

// recommend renders the analysis verdict as an operator-facing
// sentence with the computed numbers inlined.
func recommend(r *Results) string {
	if r.IsSignificant {
		switch {
		case r.LiftPct != nil && *r.LiftPct > 0:
			return fmt.Sprintf("Treatment shows +%.1f%% lift (p=%.4f). Recommend graduating treatment to production.",
				*r.LiftPct, *r.PValue)
		case r.LiftPct != nil && *r.LiftPct < 0:
			return fmt.Sprintf("Treatment shows %.1f%% decline (p=%.4f). Recommend stopping experiment and keeping control.",
				*r.LiftPct, *r.PValue)
		default:
			return fmt.Sprintf("No meaningful difference (p=%.4f). Consider extending the experiment.", *r.PValue)
		}
	}

	total := 0
	if r.Control != nil {
		total += r.Control.Outcomes
	}
	if r.Treatment != nil {
		total += r.Treatment.Outcomes
	}
	minSamples := total
	if minSamples < 100 {
		minSamples = 100
	}
	pText := "N/A"
	if r.PValue != nil {
		pText = fmt.Sprintf("%.4f", *r.PValue)
	}
	return fmt.Sprintf("Not yet significant (p=%s). Need ~%d total outcomes for reliable results.",
		pText, minSamples*2)
}

// normalCDF is the standard normal cumulative distribution function,
// used for the normal approximation of the two-proportion test.
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
