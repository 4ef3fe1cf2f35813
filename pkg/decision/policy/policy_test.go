package policy

import (
	"math"
	"testing"
	"time"

	"meridian-hq/vega/pkg/decision"
)

func f(v float64) *float64 { return &v }

func baseContext() *decision.Context {
	return &decision.Context{
		MerchantID:  "m-1",
		AmountMinor: 12550,
		Currency:    "BRL",
		Network:     "visa",
	}
}

func TestDecideAuthentication(t *testing.T) {
	params := decision.DefaultParams()

	cases := []struct {
		name        string
		risk        *float64
		trust       *float64
		passkey     bool
		disposition string
	}{
		{"missing scores default low risk", nil, nil, false, DispositionApprove},
		{"trusted device short circuit", f(0.30), f(0.95), false, DispositionApprove},
		{"medium risk challenges", f(0.50), f(0.95), false, DispositionChallenge},
		{"medium risk untrusted device", f(0.30), f(0.50), false, DispositionApprove},
		{"high risk declines", f(0.80), f(0.99), false, DispositionDecline},
		{"exactly high threshold declines", f(0.75), nil, false, DispositionDecline},
		{"exactly medium threshold challenges", f(0.35), f(0.50), false, DispositionChallenge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := baseContext()
			ctx.RiskScore = tc.risk
			ctx.DeviceTrustScore = tc.trust
			ctx.SupportsPasskey = tc.passkey

			got := DecideAuthentication(ctx, decision.VariantControl, params)
			if got.Disposition != tc.disposition {
				t.Errorf("disposition = %q, want %q (reason: %s)", got.Disposition, tc.disposition, got.Reason)
			}
			if got.Reason == "" {
				t.Error("every decision needs a reason")
			}
		})
	}
}

func TestDecideAuthenticationChallengeMethod(t *testing.T) {
	params := decision.DefaultParams()
	ctx := baseContext()
	ctx.RiskScore = f(0.5)

	plain := DecideAuthentication(ctx, decision.VariantControl, params)
	if plain.Metadata["challenge_method"] != "3ds" {
		t.Errorf("challenge method = %v, want 3ds", plain.Metadata["challenge_method"])
	}

	ctx.SupportsPasskey = true
	withKey := DecideAuthentication(ctx, decision.VariantControl, params)
	if withKey.Metadata["challenge_method"] != "passkey" {
		t.Errorf("challenge method = %v, want passkey", withKey.Metadata["challenge_method"])
	}
}

func retryCodes() map[string]decision.RetryableCode {
	return decision.BuildCodeMap([]decision.RetryableCode{
		{Code: "05_soft", Category: "soft", DefaultBackoffSeconds: 900, MaxAttempts: 3},
		{Code: "91", Category: "transient", DefaultBackoffSeconds: 30, MaxAttempts: 5},
		{Code: "insufficient_funds", Category: "issuer", DefaultBackoffSeconds: 0, MaxAttempts: 0},
		{Code: "51_recurring", Category: "soft", DefaultBackoffSeconds: 600, MaxAttempts: 0},
	})
}

func TestDecideRetry(t *testing.T) {
	params := decision.DefaultParams()
	codes := retryCodes()

	cases := []struct {
		name        string
		declineCode string
		attempt     int
		recurring   bool
		variant     string
		shouldRetry bool
		backoff     int
		maxAttempts int
	}{
		{"no decline code", "", 0, false, decision.VariantControl, false, 0, 0},
		{"unknown code", "no_such_code", 0, false, decision.VariantControl, false, 0, 0},
		{"issuer category never retries", "insufficient_funds", 0, false, decision.VariantControl, false, 0, 0},
		{"soft code control uses row backoff", "05_soft", 1, false, decision.VariantControl, true, 900, 3},
		{"soft code treatment uses long backoff", "05_soft", 1, false, decision.VariantTreatment, true, 1800, 3},
		{"attempt at row max stops", "05_soft", 3, false, decision.VariantControl, false, 0, 3},
		{"transient uses transient backoff", "91", 2, false, decision.VariantControl, true, 60, 5},
		{"recurring control backoff", "51_recurring", 1, true, decision.VariantControl, true, 900, 3},
		{"recurring treatment backoff", "51_recurring", 1, true, decision.VariantTreatment, true, 300, 4},
		{"treatment extra attempt", "51_recurring", 3, true, decision.VariantTreatment, true, 300, 4},
		{"normalizes code case", "05_SOFT", 1, false, decision.VariantControl, true, 900, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := baseContext()
			ctx.DeclineCode = tc.declineCode
			ctx.AttemptNumber = tc.attempt
			ctx.IsRecurring = tc.recurring

			got := DecideRetry(ctx, tc.variant, params, codes)
			if got.ShouldRetry != tc.shouldRetry {
				t.Fatalf("ShouldRetry = %v, want %v (reason: %s)", got.ShouldRetry, tc.shouldRetry, got.Reason)
			}
			if !tc.shouldRetry {
				return
			}
			if got.BackoffSeconds != tc.backoff {
				t.Errorf("backoff = %d, want %d", got.BackoffSeconds, tc.backoff)
			}
			if got.MaxAttempts != tc.maxAttempts {
				t.Errorf("max attempts = %d, want %d", got.MaxAttempts, tc.maxAttempts)
			}
		})
	}
}

func rankedRoutes() []decision.RouteScore {
	return decision.RankRoutes([]decision.RouteScore{
		{RouteName: "C", ApprovalRatePct: 80, AvgLatencyMS: 200, CostScore: 0.1},
		{RouteName: "A", ApprovalRatePct: 92, AvgLatencyMS: 400, CostScore: 0.3},
		{RouteName: "B", ApprovalRatePct: 92, AvgLatencyMS: 350, CostScore: 0.3},
	})
}

func TestRankRoutesStable(t *testing.T) {
	routes := rankedRoutes()
	want := []string{"B", "A", "C"}
	for i, r := range routes {
		if r.RouteName != want[i] {
			t.Fatalf("ranked order = %v, want B,A,C (tie on approval broken by latency)", routes)
		}
	}
}

func TestDecideRouting(t *testing.T) {
	params := decision.DefaultParams()
	routes := rankedRoutes()

	ctx := baseContext()
	got := DecideRouting(ctx, decision.VariantControl, params, routes)
	if got.PrimaryRoute != "B" {
		t.Errorf("primary = %q, want top ranked B", got.PrimaryRoute)
	}
	if len(got.Alternatives) != 2 || got.Alternatives[0] != "A" || got.Alternatives[1] != "C" {
		t.Errorf("alternatives = %v, want [A C]", got.Alternatives)
	}
}

func TestDecideRoutingCrossBorder(t *testing.T) {
	params := decision.DefaultParams()
	ctx := baseContext()
	ctx.IssuerCountry = "US"

	got := DecideRouting(ctx, decision.VariantControl, params, rankedRoutes())
	if got.Metadata["is_cross_border"] != true {
		t.Error("US issuer with BR domestic should be cross-border")
	}
}

func TestDecideRoutingMLOverride(t *testing.T) {
	params := decision.DefaultParams()
	routes := rankedRoutes()

	ctx := baseContext()
	ctx.Metadata = map[string]any{
		"ml_recommended_route": "pix_gateway",
		"ml_route_confidence":  0.85,
	}
	got := DecideRouting(ctx, decision.VariantTreatment, params, routes)
	if got.PrimaryRoute != "pix_gateway" {
		t.Fatalf("primary = %q, want model route", got.PrimaryRoute)
	}
	// Ranked routes survive as ordered alternatives.
	if len(got.Alternatives) != 3 || got.Alternatives[0] != "B" {
		t.Errorf("alternatives = %v, want full ranked list", got.Alternatives)
	}

	// Low confidence falls back to the ranked list.
	ctx.Metadata["ml_route_confidence"] = 0.3
	got = DecideRouting(ctx, decision.VariantTreatment, params, routes)
	if got.PrimaryRoute != "B" {
		t.Errorf("primary = %q, low-confidence model route must not win", got.PrimaryRoute)
	}
}

func TestDecideRoutingNoRoutes(t *testing.T) {
	params := decision.DefaultParams()
	got := DecideRouting(baseContext(), decision.VariantControl, params, nil)
	if got.PrimaryRoute != FallbackRoute {
		t.Errorf("primary = %q, want fallback", got.PrimaryRoute)
	}
}

func TestBuildFeaturesSchema(t *testing.T) {
	params := decision.DefaultParams()
	ctx := baseContext()
	ctx.AmountMinor = 12550
	ctx.RiskScore = f(0.4)
	ctx.DeviceTrustScore = f(0.7)
	ctx.IssuerCountry = "US"
	ctx.AttemptNumber = 2
	ctx.SupportsPasskey = true
	ctx.Metadata = map[string]any{"merchant_segment": "travel"}

	// Saturday 14:30 UTC.
	now := time.Date(2025, 6, 14, 14, 30, 0, 0, time.UTC)
	got := BuildFeatures(ctx, params, now)

	wantKeys := []string{
		"amount", "fraud_score", "device_trust_score", "is_cross_border",
		"retry_count", "uses_3ds", "merchant_segment", "card_network",
		"log_amount", "hour_of_day", "day_of_week", "is_weekend",
		"network_encoded", "risk_amount_interaction",
	}
	for _, k := range wantKeys {
		if _, ok := got[k]; !ok {
			t.Errorf("feature %q missing", k)
		}
	}
	if len(got) != len(wantKeys) {
		t.Errorf("feature count = %d, want %d (schema must match training exactly)", len(got), len(wantKeys))
	}

	if got["amount"] != 125.50 {
		t.Errorf("amount = %v, want major units 125.50", got["amount"])
	}
	if got["is_cross_border"] != true {
		t.Error("US issuer should be cross-border")
	}
	if got["retry_count"] != 2 || got["uses_3ds"] != true {
		t.Errorf("retry_count/uses_3ds = %v/%v", got["retry_count"], got["uses_3ds"])
	}
	if got["merchant_segment"] != "travel" || got["card_network"] != "visa" {
		t.Errorf("segment/network = %v/%v", got["merchant_segment"], got["card_network"])
	}
	logAmount := math.Log1p(125.50)
	if math.Abs(got["log_amount"].(float64)-logAmount) > 1e-9 {
		t.Errorf("log_amount = %v", got["log_amount"])
	}
	if math.Abs(got["risk_amount_interaction"].(float64)-0.4*logAmount) > 1e-9 {
		t.Errorf("risk_amount_interaction = %v", got["risk_amount_interaction"])
	}
	if got["hour_of_day"] != 14 || got["day_of_week"] != 5 || got["is_weekend"] != 1 {
		t.Errorf("temporal features = %v/%v/%v", got["hour_of_day"], got["day_of_week"], got["is_weekend"])
	}
	if got["network_encoded"] != 0 {
		t.Errorf("network_encoded = %v, want 0 for visa", got["network_encoded"])
	}
}

func TestBuildFeaturesDefaults(t *testing.T) {
	params := decision.DefaultParams()
	ctx := &decision.Context{MerchantID: "m-1", AmountMinor: 1000, Currency: "BRL"}

	got := BuildFeatures(ctx, params, time.Now())
	if got["fraud_score"] != 0.1 || got["device_trust_score"] != 0.8 {
		t.Errorf("score defaults = %v/%v, want 0.1/0.8", got["fraud_score"], got["device_trust_score"])
	}
	if got["card_network"] != "visa" || got["merchant_segment"] != "retail" {
		t.Errorf("string defaults = %v/%v", got["card_network"], got["merchant_segment"])
	}
	if got["is_cross_border"] != false {
		t.Error("empty issuer country is not cross-border")
	}
}

func TestBuildFeaturesNetworkEncoding(t *testing.T) {
	params := decision.DefaultParams()
	cases := map[string]int{
		"visa": 0, "mastercard": 1, "amex": 2, "elo": 3, "hipercard": 4,
		"discover": 5, "MASTERCARD": 1,
	}
	for network, want := range cases {
		ctx := baseContext()
		ctx.Network = network
		got := BuildFeatures(ctx, params, time.Now())
		if got["network_encoded"] != want {
			t.Errorf("network_encoded[%q] = %v, want %d", network, got["network_encoded"], want)
		}
	}
}

func TestSerializeContext(t *testing.T) {
	ctx := baseContext()
	ctx.RiskScore = f(0.42)
	ctx.Metadata = map[string]any{"ml_risk_tier": "medium"}

	got := SerializeContext(ctx)
	if got["merchant_id"] != "m-1" || got["amount_minor"] != int64(12550) {
		t.Errorf("scalar fields lost: %v", got)
	}
	if got["risk_score"] != 0.42 {
		t.Errorf("risk_score = %v", got["risk_score"])
	}
	meta, ok := got["metadata"].(map[string]any)
	if !ok || meta["ml_risk_tier"] != "medium" {
		t.Errorf("metadata not nested: %v", got["metadata"])
	}

	// Mutating the serialized metadata must not touch the context.
	meta["ml_risk_tier"] = "high"
	if ctx.Metadata["ml_risk_tier"] != "medium" {
		t.Error("SerializeContext must copy metadata")
	}
}
