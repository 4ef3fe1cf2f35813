package decision

import (
	"strconv"
	"strings"
	"time"
)

// Params is an immutable snapshot of the tunable decision parameters.
// A refresh replaces the whole snapshot; individual fields are never
// patched in place.
type Params struct {
	RiskThresholdHigh   float64
	RiskThresholdMedium float64
	DeviceTrustLowRisk  float64

	RetryMaxAttemptsControl       int
	RetryMaxAttemptsTreatment     int
	RetryBackoffRecurringControl  int
	RetryBackoffRecurringTreatment int
	RetryBackoffTransient         int
	RetryBackoffSoftTreatment     int

	RoutingDomesticCountry string

	MLEnrichmentEnabled bool
	MLEnrichmentTimeout time.Duration
	RuleEngineEnabled   bool
}

// DefaultParams returns the hard-coded parameter defaults used when the
// configuration store has no values, or cannot be read.
func DefaultParams() Params {
	return Params{
		RiskThresholdHigh:   0.75,
		RiskThresholdMedium: 0.35,
		DeviceTrustLowRisk:  0.90,

		RetryMaxAttemptsControl:        3,
		RetryMaxAttemptsTreatment:      4,
		RetryBackoffRecurringControl:   900,
		RetryBackoffRecurringTreatment: 300,
		RetryBackoffTransient:          60,
		RetryBackoffSoftTreatment:      1800,

		RoutingDomesticCountry: "BR",

		MLEnrichmentEnabled: true,
		MLEnrichmentTimeout: 2000 * time.Millisecond,
		RuleEngineEnabled:   true,
	}
}

// ParamsFromKV builds a Params snapshot from key-value configuration
// rows. Unknown keys are ignored, unparsable values keep their default.
func ParamsFromKV(kv map[string]string) Params {
	p := DefaultParams()

	getFloat := func(key string, def float64) float64 {
		v, ok := kv[key]
		if !ok {
			return def
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return def
		}
		return f
	}
	getInt := func(key string, def int) int {
		v, ok := kv[key]
		if !ok {
			return def
		}
		// Integers may arrive as "3" or "3.0" depending on the writer.
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return def
		}
		return int(f)
	}
	getBool := func(key string, def bool) bool {
		v, ok := kv[key]
		if !ok {
			return def
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		default:
			return def
		}
	}
	getString := func(key string, def string) string {
		v := strings.TrimSpace(kv[key])
		if v == "" {
			return def
		}
		return v
	}

	p.RiskThresholdHigh = getFloat("risk_threshold_high", p.RiskThresholdHigh)
	p.RiskThresholdMedium = getFloat("risk_threshold_medium", p.RiskThresholdMedium)
	p.DeviceTrustLowRisk = getFloat("device_trust_low_risk", p.DeviceTrustLowRisk)

	p.RetryMaxAttemptsControl = getInt("retry_max_attempts_control", p.RetryMaxAttemptsControl)
	p.RetryMaxAttemptsTreatment = getInt("retry_max_attempts_treatment", p.RetryMaxAttemptsTreatment)
	p.RetryBackoffRecurringControl = getInt("retry_backoff_recurring_control", p.RetryBackoffRecurringControl)
	p.RetryBackoffRecurringTreatment = getInt("retry_backoff_recurring_treatment", p.RetryBackoffRecurringTreatment)
	p.RetryBackoffTransient = getInt("retry_backoff_transient", p.RetryBackoffTransient)
	p.RetryBackoffSoftTreatment = getInt("retry_backoff_soft_treatment", p.RetryBackoffSoftTreatment)

	p.RoutingDomesticCountry = getString("routing_domestic_country", p.RoutingDomesticCountry)

	p.MLEnrichmentEnabled = getBool("ml_enrichment_enabled", p.MLEnrichmentEnabled)
	if ms := getInt("ml_enrichment_timeout_ms", int(p.MLEnrichmentTimeout/time.Millisecond)); ms > 0 {
		p.MLEnrichmentTimeout = time.Duration(ms) * time.Millisecond
	}
	p.RuleEngineEnabled = getBool("rule_engine_enabled", p.RuleEngineEnabled)

	return p
}

// MaxAttempts returns the variant-specific retry attempt ceiling.
func (p Params) MaxAttempts(variant string) int {
	if variant == VariantTreatment {
		return p.RetryMaxAttemptsTreatment
	}
	return p.RetryMaxAttemptsControl
}
