package policy

import (
	"fmt"

	"meridian-hq/vega/pkg/decision"
)

// Authentication dispositions.
const (
	DispositionApprove   = "approve"
	DispositionChallenge = "challenge"
	DispositionDecline   = "decline"
)

// DecideAuthentication thresholds the risk score into a disposition.
// A trusted device on a low-risk payment short-circuits to approve
// without friction; beyond that, risk alone picks between approve,
// challenge and decline.
func DecideAuthentication(ctx *decision.Context, variant string, params decision.Params) *decision.AuthDecision {
	risk := defaultFraudScore
	if ctx.RiskScore != nil {
		risk = *ctx.RiskScore
	}
	trust := defaultTrustScore
	if ctx.DeviceTrustScore != nil {
		trust = *ctx.DeviceTrustScore
	}

	d := &decision.AuthDecision{
		RiskScore: risk,
		Variant:   variant,
		Metadata:  map[string]any{},
	}

	switch {
	case risk < params.RiskThresholdMedium && trust >= params.DeviceTrustLowRisk:
		d.Disposition = DispositionApprove
		d.Reason = fmt.Sprintf("low risk (%.2f) and trusted device (%.2f), frictionless approval", risk, trust)

	case risk >= params.RiskThresholdHigh:
		d.Disposition = DispositionDecline
		d.Reason = fmt.Sprintf("risk score %.2f at or above high threshold %.2f", risk, params.RiskThresholdHigh)

	case risk >= params.RiskThresholdMedium:
		d.Disposition = DispositionChallenge
		if ctx.SupportsPasskey {
			d.Reason = fmt.Sprintf("risk score %.2f requires step-up, passkey challenge available", risk)
			d.Metadata["challenge_method"] = "passkey"
		} else {
			d.Reason = fmt.Sprintf("risk score %.2f requires step-up via 3DS challenge", risk)
			d.Metadata["challenge_method"] = "3ds"
		}

	default:
		d.Disposition = DispositionApprove
		d.Reason = fmt.Sprintf("risk score %.2f below medium threshold %.2f", risk, params.RiskThresholdMedium)
	}

	return d
}
