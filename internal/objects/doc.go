// Package objects turns an annotated max-tree into a catalog of detected
// sources.
//
// # Selection
//
// Significant nodes are organised by their nearest significant ancestor: the
// frontier of a node is the set of significant descendants with no other
// significant node in between. Selection walks these frontiers from the root
// downwards. A significant node is reported as one object unless deblending
// is enabled and at least two of its frontier nodes rise MinContrast·Sigma or
// more above its level, in which case the frontier nodes are visited instead
// and each is marked as deblended. Nothing below a reported node is visited,
// so no reported node is an ancestor of another.
//
// # Move-up
//
// A reported node can carry faint outskirts that belong to the background.
// With a positive MoveFactor the object marker climbs the node's main branch
// (the child with the largest area) until its level is at least
// MoveFactor·Sigma away from the local background.
//
// # Measurement
//
// Objects are rendered into a label map in one top-down pass and measured in
// one sweep over the measurement image, which may differ from the image the
// tree was built on (typically the unsmoothed original). Offset converts
// tree levels into the units of the measurement image.
//
//   - Area: pixel count of the object's subtree.
//   - Flux: Σ(v − background). Negative for dark objects.
//   - RawFlux: Σv.
//   - X, Y: centroid weighted by |v − background|, or the plain pixel mean
//     when every weight is zero.
//   - XX, YY, XY: weighted central second moments.
//   - A, B, Theta: semi-axes and position angle of the moment ellipse.
//   - Peak: most extreme value, lowest pixel index on ties.
//
// # Ordering
//
// Objects are ordered by descending |Flux|, ties broken by the lower peak
// pixel index, and numbered from 1 in that order. The label map uses the
// same numbers; 0 marks background.
package objects
