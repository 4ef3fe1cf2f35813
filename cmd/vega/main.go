// Vega is a payment decisioning service.
//
// It issues authentication, retry, and routing decisions from operator
// datasets, rule overrides, model enrichment, and A/B experiments, and
// records every decision and outcome for the learning loop.
//
// Usage:
//
//	# Start the service with default configuration
//	vega run
//
//	# Start with a custom configuration file
//	vega run --config /etc/vega/config.yaml
//
//	# Validate a configuration file without starting
//	vega validate --config /etc/vega/config.yaml
//
//	# Show version information
//	vega version
package main

func main() {
	Execute()
}
