package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file (PNG, JPEG, GIF or TIFF)",
	}
}

func catalogIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Catalog ID returned by image_detect_sources",
	}
}

// detectionProperties are the tuning arguments shared by every tool that
// runs the detection pipeline. Omitted arguments fall back to the server's
// configuration file and then to the built-in defaults.
func detectionProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty(),
		"connectivity": map[string]interface{}{
			"type":        "integer",
			"description": "Pixel neighbourhood: 4 or 8",
			"enum":        []int{4, 8},
			"default":     8,
		},
		"polarity": map[string]interface{}{
			"type":        "string",
			"description": "bright finds sources above the sky, dark finds sources below it",
			"enum":        []string{"bright", "dark"},
			"default":     "bright",
		},
		"alpha": map[string]interface{}{
			"type":        "number",
			"description": "False detection rate of the per-node significance test",
			"default":     1e-6,
		},
		"min_contrast": map[string]interface{}{
			"type":        "number",
			"description": "Deblending contrast in background sigmas",
			"default":     1.0,
		},
		"move_factor": map[string]interface{}{
			"type":        "number",
			"description": "Grow each object down to this many background sigmas above the sky",
			"default":     0.5,
		},
		"min_area": map[string]interface{}{
			"type":        "integer",
			"description": "Drop objects with fewer pixels",
			"default":     0,
		},
		"deblend": map[string]interface{}{
			"type":        "boolean",
			"description": "Split blended sources",
			"default":     true,
		},
		"gain": map[string]interface{}{
			"type":        "number",
			"description": "Detector gain in counts per electron; 0 disables the source noise term",
			"default":     0.0,
		},
		"clip_sigma": map[string]interface{}{
			"type":        "number",
			"description": "Kappa for kappa-sigma background clipping",
			"default":     3.0,
		},
		"clip_iterations": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum kappa-sigma clipping iterations",
			"default":     5,
		},
		"smooth_sigma": map[string]interface{}{
			"type":        "number",
			"description": "Gaussian pre-filter sigma for the image the tree is built on; measurements always use the original pixels",
			"default":     0.0,
		},
		"precision": map[string]interface{}{
			"type":        "string",
			"description": "Pixel precision: single, double, or both to compare the two",
			"enum":        []string{"single", "double", "both"},
			"default":     "double",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	detectProps := detectionProperties()
	detectProps["max_objects"] = map[string]interface{}{
		"type":        "integer",
		"description": "Maximum number of catalog entries to return, brightest first. The full catalog is kept under catalog_id. 0 returns all",
		"default":     100,
	}

	return []Tool{
		// Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, bit depth and intensity range.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_background",
			Description: "Estimate the sky background of an image by iterative kappa-sigma clipping. Returns mean, sigma and median.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"clip_sigma": map[string]interface{}{
						"type":        "number",
						"description": "Clip pixels further than this many sigmas from the mean",
						"default":     3.0,
					},
					"clip_iterations": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum clipping iterations",
						"default":     5,
					},
				},
				"required": []string{"path"},
			},
		},

		// Detection
		{
			Name:        "image_detect_sources",
			Description: "Detect sources with a max-tree and a per-node statistical significance test. Returns a catalog (flux, centroid, shape, bounding box, peak) and a catalog_id for the rendering tools.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": detectProps,
				"required":   []string{"path"},
			},
		},
		{
			Name:        "image_tree_stats",
			Description: "Report max-tree statistics (node count, depth, leaves, significant nodes) for an existing catalog or a fresh detection run.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": func() map[string]interface{} {
					props := detectionProperties()
					props["catalog_id"] = catalogIDProperty()
					return props
				}(),
			},
		},

		// Rendering
		{
			Name:        "image_segmentation_map",
			Description: "Render a catalog's label map as a PNG with one colour per object and black sky.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"catalog_id": catalogIDProperty(),
				},
				"required": []string{"catalog_id"},
			},
		},
		{
			Name:        "image_object_overlay",
			Description: "Draw each catalog object's bounding box, and optionally its ID, on a stretched copy of the image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"catalog_id": catalogIDProperty(),
					"box_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color for every box (e.g. '#FF0000'). Empty uses one palette colour per object",
						"default":     "",
					},
					"show_ids": map[string]interface{}{
						"type":        "boolean",
						"description": "Label each box with its object ID",
						"default":     true,
					},
					"max_objects": map[string]interface{}{
						"type":        "integer",
						"description": "Only draw the brightest N objects. 0 draws all",
						"default":     0,
					},
				},
				"required": []string{"catalog_id"},
			},
		},
		{
			Name:        "image_object_cutout",
			Description: "Crop a stamp around one catalog object and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"catalog_id": catalogIDProperty(),
					"object_id": map[string]interface{}{
						"type":        "integer",
						"description": "Object ID from the catalog (1 is the brightest)",
					},
					"margin": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels added around the bounding box",
						"default":     5,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Scale factor for the stamp",
						"default":     4.0,
					},
				},
				"required": []string{"catalog_id", "object_id"},
			},
		},

		// Catalog Analysis
		{
			Name:        "image_catalog_summary",
			Description: "Summarise every numeric attribute of a catalog: count, min, max, mean, median, standard deviation and total.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"catalog_id": catalogIDProperty(),
				},
				"required": []string{"catalog_id"},
			},
		},
		{
			Name:        "image_catalog_histogram",
			Description: "Plot a histogram of one catalog attribute and return it as base64-encoded PNG with the bin counts.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"catalog_id": catalogIDProperty(),
					"field": map[string]interface{}{
						"type":        "string",
						"description": "Attribute to plot",
						"enum":        []string{"flux", "area", "peak", "a", "b", "elongation", "significance"},
						"default":     "flux",
					},
					"bins": map[string]interface{}{
						"type":        "integer",
						"description": "Number of bins. 0 picks about sqrt(n)",
						"default":     0,
					},
					"log": map[string]interface{}{
						"type":        "boolean",
						"description": "Bin log10 of the values; non-positive values are dropped",
						"default":     false,
					},
				},
				"required": []string{"catalog_id"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
