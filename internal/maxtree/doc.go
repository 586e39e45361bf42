// Package maxtree builds component trees (max-trees and min-trees) over 2-D
// floating-point rasters.
//
// A max-tree holds one node per connected component of every upper level set
// of the image. The root is the whole image at its least extreme value and each
// child is a strictly brighter (or, for a min-tree, strictly darker) component
// nested inside its parent. Astronomical sources show up as branches rising out
// of the sky background, which is what the significance and extraction stages
// downstream look for.
//
// # Construction
//
// Trees are built in a single non-recursive flooding pass:
//
//  1. The flood starts at the least extreme pixel, whose node becomes the root.
//  2. A PixelHeap orders queued pixels by value (insertion order breaks ties).
//  3. Whenever the flood meets a more extreme neighbour it opens a new node on
//     the FloodStack and continues from there.
//  4. When no queued pixel is as extreme as the open level, the node is closed
//     and linked to the node beneath it; its statistics are added to the
//     parent's.
//
// Every pixel is claimed exactly once, so construction is O(N log N) in the
// number of pixels with memory linear in N. The stack depth is bounded by the
// number of distinct open levels, never by the image size.
//
// # Node Arena
//
// Nodes live in a single slice and refer to their parent by index. Tree.Owner
// maps each pixel to the node that owns it directly; a node's subtree is its
// own pixels plus those of its descendants. Tree.Order lists nodes in the
// order they were closed, so every child precedes its parent.
//
// # Precision
//
// All types are generic over Float (float32 or float64). Levels compare with
// exact equality: noise in floating input is the significance tester's
// concern, not the builder's. Aggregated sums are always kept in float64.
//
// # Coordinate System
//
// Pixel indices are row-major (index = y*Width + x) with the origin at the
// top-left corner, X increasing rightward and Y increasing downward.
package maxtree
