package policy

import (
	"fmt"
	"strings"

	"meridian-hq/vega/pkg/decision"
)

// Decline code categories that are never worth retrying: the issuer
// has given a definitive answer.
var nonRetryableCategories = map[string]bool{
	"hard":   true,
	"issuer": true,
	"fraud":  true,
}

// DecideRetry looks up the decline code in the retryable-code catalog
// and, when the code is retryable, derives backoff and attempt ceiling
// from the variant-specific parameters with the catalog row as
// fallback.
func DecideRetry(ctx *decision.Context, variant string, params decision.Params, codes map[string]decision.RetryableCode) *decision.RetryDecision {
	d := &decision.RetryDecision{
		Variant:  variant,
		Metadata: map[string]any{},
	}

	code := strings.ToLower(strings.TrimSpace(ctx.DeclineCode))
	if code == "" {
		d.Reason = "no decline code supplied, nothing to retry"
		return d
	}

	row, ok := codes[code]
	if !ok {
		d.Reason = fmt.Sprintf("decline code %q is not in the retryable catalog", code)
		return d
	}
	d.Metadata["decline_category"] = row.Category

	if nonRetryableCategories[strings.ToLower(row.Category)] {
		d.Reason = fmt.Sprintf("decline code %q category %q is not retryable", code, row.Category)
		return d
	}

	maxAttempts := row.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = params.MaxAttempts(variant)
	}
	d.MaxAttempts = maxAttempts

	if ctx.AttemptNumber >= maxAttempts {
		d.Reason = fmt.Sprintf("attempt %d reached max attempts %d for code %q", ctx.AttemptNumber, maxAttempts, code)
		return d
	}

	d.ShouldRetry = true
	d.BackoffSeconds = backoffSeconds(ctx, variant, params, row)
	d.Reason = fmt.Sprintf("decline code %q category %q is retryable, attempt %d of %d, backoff %ds",
		code, row.Category, ctx.AttemptNumber, maxAttempts, d.BackoffSeconds)
	return d
}

// backoffSeconds picks the wait before the next attempt. Recurring
// payments and transient failures have dedicated tunables; the soft
// category gets a longer treatment-only backoff; everything else uses
// the catalog row's default.
func backoffSeconds(ctx *decision.Context, variant string, params decision.Params, row decision.RetryableCode) int {
	category := strings.ToLower(row.Category)
	switch {
	case ctx.IsRecurring:
		if variant == decision.VariantTreatment {
			return params.RetryBackoffRecurringTreatment
		}
		return params.RetryBackoffRecurringControl

	case category == "transient":
		return params.RetryBackoffTransient

	case category == "soft" && variant == decision.VariantTreatment:
		return params.RetryBackoffSoftTreatment
	}

	if row.DefaultBackoffSeconds > 0 {
		return row.DefaultBackoffSeconds
	}
	return params.RetryBackoffRecurringControl
}
