// Package catalog summarises detection catalogs and renders their
// distributions as histogram images.
//
// A catalog is the ordered []objects.DetectedObject produced by a detection
// run. Summaries and histograms work on one attribute at a time, selected by
// Field.
package catalog
