package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/mto-mcp/internal/catalog"
	"github.com/ironsheep/mto-mcp/internal/config"
	"github.com/ironsheep/mto-mcp/internal/detection"
	"github.com/ironsheep/mto-mcp/internal/imaging"
	"github.com/ironsheep/mto-mcp/internal/maxtree"
	"github.com/ironsheep/mto-mcp/internal/monitoring"
	"github.com/ironsheep/mto-mcp/internal/objects"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_detect_sources").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(context.Background(), params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies file defaults, then per-call overrides
//  3. Loads rasters from the image cache or catalogs from the catalog store
//  4. Calls the appropriate detection/imaging/catalog function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_background":
		return s.handleImageBackground(args)

	// Detection
	case "image_detect_sources":
		return s.handleDetectSources(ctx, args)
	case "image_tree_stats":
		return s.handleTreeStats(ctx, args)

	// Rendering
	case "image_segmentation_map":
		return s.handleSegmentationMap(args)
	case "image_object_overlay":
		return s.handleObjectOverlay(args)
	case "image_object_cutout":
		return s.handleObjectCutout(args)

	// Catalog Analysis
	case "image_catalog_summary":
		return s.handleCatalogSummary(args)
	case "image_catalog_histogram":
		return s.handleCatalogHistogram(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments. Missing arguments decode as an
// empty object so optional-only tools can be called bare.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	return json.Unmarshal(args, v)
}

func requirePath(path string) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// finite replaces infinities with the largest finite value of the same sign
// and NaN with zero, so results always encode as JSON.
func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

// encodableObjects copies objs with every float field made finite. Nodes
// tested against a zero-variance sky carry an infinite significance.
func encodableObjects(objs []objects.DetectedObject) []objects.DetectedObject {
	out := make([]objects.DetectedObject, len(objs))
	for i, o := range objs {
		o.Flux = finite(o.Flux)
		o.RawFlux = finite(o.RawFlux)
		o.Significance = finite(o.Significance)
		o.Peak = finite(o.Peak)
		out[i] = o
	}
	return out
}

// === Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type imageBackgroundArgs struct {
	Path           string   `json:"path"`
	ClipSigma      *float64 `json:"clip_sigma"`
	ClipIterations *int     `json:"clip_iterations"`
}

func (s *Server) handleImageBackground(args json.RawMessage) (interface{}, error) {
	var a imageBackgroundArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	cfg, _, _, err := s.resolveConfig(&config.DetectionConfig{
		ClipSigma:      a.ClipSigma,
		ClipIterations: a.ClipIterations,
	})
	if err != nil {
		return nil, err
	}
	raster, err := s.cache.Raster(a.Path)
	if err != nil {
		return nil, err
	}
	return detection.EstimateBackground(raster, cfg.ClipSigma, cfg.ClipIterations)
}

// === Detection Handlers ===

type detectArgs struct {
	Path string `json:"path"`
	config.DetectionConfig
	MaxObjects *int `json:"max_objects"`
}

// parityReport summarises a precision comparison without repeating the
// single-precision catalog.
type parityReport struct {
	SingleCount      int     `json:"single_count"`
	DoubleCount      int     `json:"double_count"`
	CountMatch       bool    `json:"count_match"`
	MaxCentroidDelta float64 `json:"max_centroid_delta"`
	MaxFluxRelDelta  float64 `json:"max_flux_rel_delta"`
}

// detectRun is one pipeline run and the ID its catalog is stored under.
type detectRun struct {
	CatalogID   string
	Precision   string
	SmoothSigma float64
	Result      *detection.Result
	Parity      *parityReport
}

type detectResponse struct {
	CatalogID   string  `json:"catalog_id"`
	Path        string  `json:"path"`
	Precision   string  `json:"precision"`
	SmoothSigma float64 `json:"smooth_sigma"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`

	// Count is the catalog size; Returned is the number of objects listed.
	Count    int                      `json:"count"`
	Returned int                      `json:"returned"`
	Objects  []objects.DetectedObject `json:"objects"`

	Background     detection.Background  `json:"background"`
	TreeBackground *detection.Background `json:"tree_background,omitempty"`

	TreeNodes        int `json:"tree_nodes"`
	SignificantNodes int `json:"significant_nodes"`

	Parity *parityReport `json:"parity,omitempty"`
}

// resolveConfig layers the server's file defaults and then overrides onto
// detection.DefaultConfig. It also resolves the server-side smoothing and
// precision settings.
func (s *Server) resolveConfig(overrides *config.DetectionConfig) (cfg detection.Config, smooth float64, precision string, err error) {
	if err := overrides.Validate(); err != nil {
		return cfg, 0, "", err
	}
	cfg, err = s.defaults.Apply(detection.DefaultConfig())
	if err != nil {
		return cfg, 0, "", err
	}
	cfg, err = overrides.Apply(cfg)
	if err != nil {
		return cfg, 0, "", err
	}

	smooth = s.defaults.GetSmoothSigma()
	if overrides.SmoothSigma != nil {
		smooth = *overrides.SmoothSigma
	}
	precision = s.defaults.GetPrecision()
	if overrides.Precision != nil {
		precision = *overrides.Precision
	}
	return cfg, smooth, precision, nil
}

// runDetection runs the pipeline on the image at path and stores the
// catalog.
func (s *Server) runDetection(ctx context.Context, path string, overrides *config.DetectionConfig) (*detectRun, error) {
	if err := requirePath(path); err != nil {
		return nil, err
	}
	cfg, smooth, precision, err := s.resolveConfig(overrides)
	if err != nil {
		return nil, err
	}
	raster, err := s.cache.Raster(path)
	if err != nil {
		return nil, err
	}

	build := raster
	if smooth > 0 {
		build = imaging.Smooth(raster, smooth)
	}

	run := &detectRun{Precision: precision, SmoothSigma: smooth}
	switch precision {
	case "single":
		measure32 := maxtree.Convert[float32](raster)
		build32 := measure32
		if smooth > 0 {
			build32 = maxtree.Convert[float32](build)
		}
		run.Result, err = detection.DetectFiltered(ctx, measure32, build32, cfg)
	case "both":
		var report *detection.PrecisionReport
		report, err = detection.DetectBothPrecisionsFiltered(ctx, raster, build, cfg)
		if err == nil {
			run.Result = report.Double
			run.Parity = &parityReport{
				SingleCount:      report.Single.Count,
				DoubleCount:      report.Double.Count,
				CountMatch:       report.CountMatch,
				MaxCentroidDelta: finite(report.MaxCentroidDelta),
				MaxFluxRelDelta:  finite(report.MaxFluxRelDelta),
			}
		}
	default:
		run.Result, err = detection.DetectFiltered(ctx, raster, build, cfg)
	}
	if err != nil {
		return nil, err
	}

	run.CatalogID = s.catalogs.put(path, run.Result, raster)
	monitoring.Logf("catalog %s: %d objects from %s (precision %s, smooth %.2f)",
		run.CatalogID, run.Result.Count, path, precision, smooth)
	return run, nil
}

func (s *Server) handleDetectSources(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	maxObjects := 100
	if a.MaxObjects != nil {
		maxObjects = *a.MaxObjects
	}
	if maxObjects < 0 {
		return nil, fmt.Errorf("max_objects must be non-negative, got %d", maxObjects)
	}

	run, err := s.runDetection(ctx, a.Path, &a.DetectionConfig)
	if err != nil {
		return nil, err
	}
	res := run.Result

	listed := res.Objects
	if maxObjects > 0 && len(listed) > maxObjects {
		listed = listed[:maxObjects]
	}
	resp := &detectResponse{
		CatalogID:        run.CatalogID,
		Path:             a.Path,
		Precision:        run.Precision,
		SmoothSigma:      run.SmoothSigma,
		Width:            res.Width,
		Height:           res.Height,
		Count:            res.Count,
		Returned:         len(listed),
		Objects:          encodableObjects(listed),
		Background:       res.Background,
		TreeNodes:        res.TreeNodes,
		SignificantNodes: res.SignificantNodes,
		Parity:           run.Parity,
	}
	if run.SmoothSigma > 0 {
		tb := res.TreeBackground
		resp.TreeBackground = &tb
	}
	return resp, nil
}

type treeStatsArgs struct {
	CatalogID string `json:"catalog_id"`
	Path      string `json:"path"`
	config.DetectionConfig
}

type treeStatsResponse struct {
	CatalogID        string               `json:"catalog_id"`
	Path             string               `json:"path"`
	Pixels           int                  `json:"pixels"`
	TreeNodes        int                  `json:"tree_nodes"`
	TreeDepth        int                  `json:"tree_depth"`
	TreeLeaves       int                  `json:"tree_leaves"`
	SignificantNodes int                  `json:"significant_nodes"`
	Objects          int                  `json:"objects"`
	TreeBackground   detection.Background `json:"tree_background"`
}

func (s *Server) handleTreeStats(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a treeStatsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	var (
		id   string
		path string
		res  *detection.Result
	)
	if a.CatalogID != "" {
		entry, err := s.catalogs.get(a.CatalogID)
		if err != nil {
			return nil, err
		}
		id, path, res = entry.ID, entry.Path, entry.Result
	} else {
		if a.Path == "" {
			return nil, fmt.Errorf("either catalog_id or path is required")
		}
		run, err := s.runDetection(ctx, a.Path, &a.DetectionConfig)
		if err != nil {
			return nil, err
		}
		id, path, res = run.CatalogID, a.Path, run.Result
	}

	return &treeStatsResponse{
		CatalogID:        id,
		Path:             path,
		Pixels:           res.Width * res.Height,
		TreeNodes:        res.TreeNodes,
		TreeDepth:        res.TreeDepth,
		TreeLeaves:       res.TreeLeaves,
		SignificantNodes: res.SignificantNodes,
		Objects:          res.Count,
		TreeBackground:   res.TreeBackground,
	}, nil
}

// === Rendering Handlers ===

type catalogArgs struct {
	CatalogID string `json:"catalog_id"`
}

func (s *Server) handleSegmentationMap(args json.RawMessage) (interface{}, error) {
	var a catalogArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	entry, err := s.catalogs.get(a.CatalogID)
	if err != nil {
		return nil, err
	}
	res := entry.Result
	return imaging.SegmentationMap(res.Labels, res.Width, res.Height, res.Count)
}

type objectOverlayArgs struct {
	CatalogID  string `json:"catalog_id"`
	BoxColor   string `json:"box_color"`
	ShowIDs    *bool  `json:"show_ids"`
	MaxObjects int    `json:"max_objects"`
}

func (s *Server) handleObjectOverlay(args json.RawMessage) (interface{}, error) {
	var a objectOverlayArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.MaxObjects < 0 {
		return nil, fmt.Errorf("max_objects must be non-negative, got %d", a.MaxObjects)
	}
	entry, err := s.catalogs.get(a.CatalogID)
	if err != nil {
		return nil, err
	}

	opts := imaging.OverlayOptions{BoxColor: a.BoxColor, ShowIDs: true}
	if a.ShowIDs != nil {
		opts.ShowIDs = *a.ShowIDs
	}
	objs := entry.Result.Objects
	if a.MaxObjects > 0 && len(objs) > a.MaxObjects {
		objs = objs[:a.MaxObjects]
	}
	return imaging.Overlay(entry.Raster, objs, opts)
}

type objectCutoutArgs struct {
	CatalogID string  `json:"catalog_id"`
	ObjectID  int     `json:"object_id"`
	Margin    *int    `json:"margin"`
	Scale     float64 `json:"scale"`
}

func (s *Server) handleObjectCutout(args json.RawMessage) (interface{}, error) {
	var a objectCutoutArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 4.0
	}
	if a.Scale < 0 {
		return nil, fmt.Errorf("scale must be positive, got %v", a.Scale)
	}
	margin := 5
	if a.Margin != nil {
		margin = *a.Margin
	}

	entry, err := s.catalogs.get(a.CatalogID)
	if err != nil {
		return nil, err
	}
	obj, ok := entry.Result.Object(a.ObjectID)
	if !ok {
		return nil, fmt.Errorf("object_id %d not in catalog (1..%d)", a.ObjectID, entry.Result.Count)
	}
	return imaging.Cutout(entry.Raster, obj, margin, a.Scale)
}

// === Catalog Analysis Handlers ===

type catalogSummaryResponse struct {
	CatalogID string            `json:"catalog_id"`
	Count     int               `json:"count"`
	Summaries []catalog.Summary `json:"summaries"`
}

func (s *Server) handleCatalogSummary(args json.RawMessage) (interface{}, error) {
	var a catalogArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	entry, err := s.catalogs.get(a.CatalogID)
	if err != nil {
		return nil, err
	}

	resp := &catalogSummaryResponse{
		CatalogID: entry.ID,
		Count:     entry.Result.Count,
		Summaries: []catalog.Summary{},
	}
	for _, f := range catalog.Fields() {
		sum, err := catalog.Summarize(entry.Result.Objects, f)
		if errors.Is(err, catalog.ErrNoValues) {
			continue
		}
		if err != nil {
			return nil, err
		}
		resp.Summaries = append(resp.Summaries, sum)
	}
	return resp, nil
}

type catalogHistogramArgs struct {
	CatalogID string `json:"catalog_id"`
	Field     string `json:"field"`
	Bins      int    `json:"bins"`
	Log       bool   `json:"log"`
}

type catalogHistogramResponse struct {
	CatalogID   string          `json:"catalog_id"`
	Field       catalog.Field   `json:"field"`
	Log         bool            `json:"log"`
	Bins        []catalog.Bin   `json:"bins"`
	Summary     catalog.Summary `json:"summary"`
	Dropped     int             `json:"dropped"`
	ImageBase64 string          `json:"image_base64"`
	MimeType    string          `json:"mime_type"`
}

func (s *Server) handleCatalogHistogram(args json.RawMessage) (interface{}, error) {
	var a catalogHistogramArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Field == "" {
		a.Field = string(catalog.FieldFlux)
	}
	field, err := catalog.ParseField(a.Field)
	if err != nil {
		return nil, err
	}
	entry, err := s.catalogs.get(a.CatalogID)
	if err != nil {
		return nil, err
	}

	h, err := catalog.Histogram(entry.Result.Objects, field, catalog.HistogramOptions{Bins: a.Bins, Log: a.Log})
	if err != nil {
		return nil, err
	}
	return &catalogHistogramResponse{
		CatalogID:   entry.ID,
		Field:       h.Field,
		Log:         h.Log,
		Bins:        h.Bins,
		Summary:     h.Summary,
		Dropped:     h.Dropped,
		ImageBase64: base64.StdEncoding.EncodeToString(h.PNG),
		MimeType:    "image/png",
	}, nil
}
