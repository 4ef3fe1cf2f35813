// Package policy holds the three pure decision functions of the
// decisioning core: authentication, retry and routing. Each consumes a
// context, a variant, a parameter snapshot and its dataset, and
// produces a decision without touching the network or the store. All
// side effects (enrichment, rule overrides, audit writes) live in the
// engine that calls these functions.
package policy
