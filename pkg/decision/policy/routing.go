package policy

import (
	"fmt"
	"strings"

	"meridian-hq/vega/pkg/decision"
)

// FallbackRoute is used when the route performance dataset is empty.
const FallbackRoute = "default"

// MLRouteConfidenceFloor is the minimum model confidence required for
// an ML-recommended route to be surfaced as primary.
const MLRouteConfidenceFloor = 0.5

// DecideRouting picks the primary route from the pre-ranked route list.
// When enrichment attached an ML route recommendation whose confidence
// clears the floor, the model's route becomes primary and the ranked
// routes are kept as ordered alternatives.
func DecideRouting(ctx *decision.Context, variant string, params decision.Params, routes []decision.RouteScore) *decision.RoutingDecision {
	d := &decision.RoutingDecision{
		Variant:  variant,
		Metadata: map[string]any{},
	}

	crossBorder := ctx.IssuerCountry != "" &&
		!strings.EqualFold(ctx.IssuerCountry, params.RoutingDomesticCountry)
	d.Metadata["is_cross_border"] = crossBorder

	ranked := make([]string, 0, len(routes))
	for _, r := range routes {
		ranked = append(ranked, r.RouteName)
	}

	mlRoute, mlConfidence := mlRecommendation(ctx)
	if mlRoute != "" && mlConfidence >= MLRouteConfidenceFloor {
		d.PrimaryRoute = mlRoute
		d.Alternatives = ranked
		d.Reason = fmt.Sprintf("model recommended route %q with confidence %.2f", mlRoute, mlConfidence)
		d.Metadata["ml_route_confidence"] = mlConfidence
		return d
	}

	if len(routes) == 0 {
		d.PrimaryRoute = FallbackRoute
		d.Reason = "no route performance data, using default route"
		return d
	}

	best := routes[0]
	d.PrimaryRoute = best.RouteName
	d.Alternatives = ranked[1:]
	scope := "domestic"
	if crossBorder {
		scope = "cross-border"
	}
	d.Reason = fmt.Sprintf("top ranked route %q for %s payment (approval %.1f%%, latency %.0fms)",
		best.RouteName, scope, best.ApprovalRatePct, best.AvgLatencyMS)
	return d
}

// mlRecommendation extracts the enrichment-attached route suggestion.
func mlRecommendation(ctx *decision.Context) (string, float64) {
	route, _ := ctx.Metadata["ml_recommended_route"].(string)
	if route == "" {
		return "", 0
	}
	switch v := ctx.Metadata["ml_route_confidence"].(type) {
	case float64:
		return route, v
	case int:
		return route, float64(v)
	}
	return route, 0
}
