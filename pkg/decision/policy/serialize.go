package policy

import "meridian-hq/vega/pkg/decision"

// SerializeContext renders a context as the flat-ish map rule
// expressions evaluate against. Metadata stays nested under "metadata"
// so rule fields address it with dotted paths (metadata.ml_risk_tier).
func SerializeContext(ctx *decision.Context) map[string]any {
	out := map[string]any{
		"merchant_id":      ctx.MerchantID,
		"amount_minor":     ctx.AmountMinor,
		"currency":         ctx.Currency,
		"network":          ctx.Network,
		"card_bin":         ctx.CardBIN,
		"issuer_country":   ctx.IssuerCountry,
		"entry_mode":       ctx.EntryMode,
		"attempt_number":   ctx.AttemptNumber,
		"decline_code":     ctx.DeclineCode,
		"is_recurring":     ctx.IsRecurring,
		"supports_passkey": ctx.SupportsPasskey,
		"experiment_id":    ctx.ExperimentID,
	}
	if ctx.RiskScore != nil {
		out["risk_score"] = *ctx.RiskScore
	}
	if ctx.DeviceTrustScore != nil {
		out["device_trust_score"] = *ctx.DeviceTrustScore
	}
	if len(ctx.Metadata) > 0 {
		meta := make(map[string]any, len(ctx.Metadata))
		for k, v := range ctx.Metadata {
			meta[k] = v
		}
		out["metadata"] = meta
	}
	return out
}
