package policy

import (
	"math"
	"strings"
	"time"

	"meridian-hq/vega/pkg/decision"
)

// Score defaults applied when the context carries no signal. The
// scoring models were trained with these same fallbacks.
const (
	defaultFraudScore  = 0.1
	defaultTrustScore  = 0.8
	defaultSegment     = "retail"
	defaultCardNetwork = "visa"
)

// networkEncoding maps card networks to the integer codes used during
// model training. Unknown networks encode to 5.
var networkEncoding = map[string]int{
	"visa":       0,
	"mastercard": 1,
	"amex":       2,
	"elo":        3,
	"hipercard":  4,
}

// BuildFeatures engineers the feature vector sent to the scoring
// models. The key set and derivations must match the training pipeline
// exactly; adding, renaming or dropping a key silently degrades every
// model score.
func BuildFeatures(ctx *decision.Context, params decision.Params, now time.Time) map[string]any {
	amount := float64(ctx.AmountMinor) / 100.0
	fraudScore := defaultFraudScore
	if ctx.RiskScore != nil {
		fraudScore = *ctx.RiskScore
	}
	trustScore := defaultTrustScore
	if ctx.DeviceTrustScore != nil {
		trustScore = *ctx.DeviceTrustScore
	}

	logAmount := math.Log1p(math.Max(0, amount))

	network := strings.ToLower(ctx.Network)
	if network == "" {
		network = defaultCardNetwork
	}
	networkEncoded, ok := networkEncoding[network]
	if !ok {
		networkEncoded = 5
	}

	segment := defaultSegment
	if s, ok := ctx.Metadata["merchant_segment"].(string); ok && s != "" {
		segment = s
	}

	crossBorder := ctx.IssuerCountry != "" &&
		!strings.EqualFold(ctx.IssuerCountry, params.RoutingDomesticCountry)

	// Training used UTC timestamps with Monday=0 .. Sunday=6.
	utc := now.UTC()
	dayOfWeek := (int(utc.Weekday()) + 6) % 7
	isWeekend := 0
	if dayOfWeek >= 5 {
		isWeekend = 1
	}

	return map[string]any{
		"amount":             amount,
		"fraud_score":        fraudScore,
		"device_trust_score": trustScore,
		"is_cross_border":    crossBorder,
		"retry_count":        ctx.AttemptNumber,
		"uses_3ds":           ctx.SupportsPasskey,
		"merchant_segment":   segment,
		"card_network":       network,

		// Temporal features.
		"log_amount":  logAmount,
		"hour_of_day": utc.Hour(),
		"day_of_week": dayOfWeek,
		"is_weekend":  isWeekend,

		// Encoded features.
		"network_encoded":         networkEncoded,
		"risk_amount_interaction": fraudScore * logAmount,
	}
}
