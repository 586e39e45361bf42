// Package significance decides which max-tree nodes stand out from the
// background noise.
//
// Each non-root node is compared against its local background, the level of
// its parent: the parent's own pixels all sit at exactly that level, so it is
// what the surroundings would look like if the node were not there. The test
// statistic is the node's power above that level in units of the noise
// variance,
//
//	P = Σ (v − r)² / σ²
//
// which for pure noise follows a chi-squared distribution with one degree of
// freedom per pixel. A node is significant when P exceeds the chi-squared
// quantile at 1 − Alpha. σ² is the background variance plus, when a gain is
// given, the Poisson contribution |r|/gain.
//
// Nodes are visited children first. Pixels belonging to significant
// descendants are removed from a node's test so that a faint halo does not
// inherit significance from a bright core nested inside it. The order is
// therefore part of the definition of the test, not an optimisation.
//
// The root represents the sky and is never significant.
package significance
