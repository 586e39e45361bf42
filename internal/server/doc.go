// Package server implements the MCP (Model Context Protocol) server for
// astronomical source detection.
//
// This package provides a JSON-RPC 2.0 server that exposes the max-tree
// detection pipeline through the MCP protocol, so MCP clients can find and
// measure sources in sky images and inspect the results visually.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image Information:
//   - image_load: Load image and get metadata and intensity range
//   - image_background: Kappa-sigma sky estimate
//
// Detection:
//   - image_detect_sources: Run the pipeline and return a catalog
//   - image_tree_stats: Max-tree size and significance counts
//
// Rendering:
//   - image_segmentation_map: Colour each object's pixels
//   - image_object_overlay: Bounding boxes and IDs on the image
//   - image_object_cutout: Stamp around one object
//
// Catalog Analysis:
//   - image_catalog_summary: Per-attribute statistics
//   - image_catalog_histogram: Histogram plot of one attribute
//
// # Catalogs
//
// image_detect_sources stores each run under a random catalog_id. The
// rendering and analysis tools take that ID instead of re-running
// detection. Only the most recent runs are kept.
//
// # Configuration
//
// Detection arguments that a call omits come from the configuration file
// passed to NewWithDefaults, then from detection.DefaultConfig.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	defaults, err := config.FromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := server.NewWithDefaults(defaults)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
