package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"

	"github.com/deskpilot/platform/internal/errors"
	"github.com/deskpilot/platform/internal/geometry"
	"github.com/deskpilot/platform/internal/ocr"
	"github.com/deskpilot/platform/internal/session"
	"github.com/deskpilot/platform/internal/trace"
)

// Request shapes for operations that carry parameters.

type CaptureFullRequest struct {
	Message
	MaxDimension int `json:"max_dimension"`
}

type CaptureRegionRequest struct {
	Message
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type EnhancementRequest struct {
	Message
	Enabled bool `json:"enabled"`
}

type TextRequest struct {
	Message
	Query string `json:"query"`
	Ref   string `json:"ref,omitempty"`
}

type ListRequest struct {
	Message
	Limit int `json:"limit"`
}

type RetrieveRequest struct {
	Message
	Ref string `json:"ref"`
}

type PointRequest struct {
	Message
	X int `json:"x"`
	Y int `json:"y"`
}

type DragRequest struct {
	Message
	From geometry.NativePoint `json:"from"`
	To   geometry.NativePoint `json:"to"`
}

type ScrollRequest struct {
	Message
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Direction string `json:"direction"`
	Amount    int    `json:"amount"`
}

type TypeRequest struct {
	Message
	Text string `json:"text"`
}

type KeyRequest struct {
	Message
	Chord string `json:"chord"`
}

// Response shapes.

type CaptureResult struct {
	Type        string           `json:"type,omitempty"`
	ID          string           `json:"id,omitempty"`
	Artifact    session.Artifact `json:"artifact"`
	Image       string           `json:"image"` // base64 PNG
	ScaleFactor float64          `json:"scale_factor"`
	Enhanced    bool             `json:"enhanced"`
}

type EnhancementMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Enabled bool   `json:"enabled"`
}

type SpansMessage struct {
	Type  string         `json:"type"`
	ID    string         `json:"id,omitempty"`
	Spans []ocr.TextSpan `json:"spans"`
}

type VerifyMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Found bool   `json:"found"`
}

type ArtifactsMessage struct {
	Type      string             `json:"type"`
	ID        string             `json:"id,omitempty"`
	SessionID string             `json:"session_id"`
	Artifacts []session.Artifact `json:"artifacts"`
}

type ArtifactMessage struct {
	Type     string           `json:"type"`
	ID       string           `json:"id,omitempty"`
	Artifact session.Artifact `json:"artifact"`
	Image    string           `json:"image"` // base64 PNG
}

type SizeMessage struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type PointMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type SessionMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	SessionID string `json:"session_id"`
}

// dispatch routes a WebSocket request to its handler and returns the
// response message. Every path returns exactly one message carrying the
// request's ID.
func (s *Server) dispatch(ctx context.Context, base Message, raw json.RawMessage) any {
	log := trace.Logger(ctx)

	switch base.Type {
	case "capture_full":
		var req CaptureFullRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse(base.ID, errors.Wrap(err, errors.Invalid, "decoding capture_full"))
		}
		maxDim := req.MaxDimension
		if maxDim == 0 {
			maxDim = s.cfg.MaxPreviewDimension
		}
		result, err := s.captureAndArchiveFull(maxDim)
		if err != nil {
			log.Error("capture_full failed", "error", err)
			return errorResponse(base.ID, err)
		}
		result.Type = "capture"
		result.ID = base.ID
		return result

	case "capture_region":
		var req CaptureRegionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse(base.ID, errors.Wrap(err, errors.Invalid, "decoding capture_region"))
		}
		region := geometry.Region{X: req.X, Y: req.Y, Width: req.Width, Height: req.Height}
		result, err := s.captureAndArchiveRegion(region)
		if err != nil {
			log.Warn("capture_region failed", "region", region, "error", err)
			return errorResponse(base.ID, err)
		}
		result.Type = "capture"
		result.ID = base.ID
		return result

	case "set_enhancement":
		var req EnhancementRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse(base.ID, errors.Wrap(err, errors.Invalid, "decoding set_enhancement"))
		}
		s.state.SetEnhancement(req.Enabled)
		log.Info("enhancement toggled", "enabled", req.Enabled)
		return EnhancementMessage{Type: "enhancement", ID: base.ID, Enabled: req.Enabled}

	case "get_enhancement":
		return EnhancementMessage{Type: "enhancement", ID: base.ID, Enabled: s.state.Enhancement()}

	case "recognize_text":
		var req TextRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse(base.ID, errors.Wrap(err, errors.Invalid, "decoding recognize_text"))
		}
		spans, err := s.recognize(req.Ref)
		if err != nil {
			log.Error("recognize_text failed", "error", err)
			return errorResponse(base.ID, err)
		}
		return SpansMessage{Type: "spans", ID: base.ID, Spans: spans}

	case "find_text":
		var req TextRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse(base.ID, errors.Wrap(err, errors.Invalid, "decoding find_text"))
		}
		if req.Query == "" {
			return errorResponse(base.ID, errors.New(errors.Invalid, "find_text requires a query"))
		}
		var matches []ocr.TextSpan
		var err error
		if req.Ref != "" {
			var spans []ocr.TextSpan
			spans, err = s.recognize(req.Ref)
			if err == nil {
				matches = ocr.Find(spans, req.Query)
			}
		} else {
			matches, err = s.resolver.FindOnScreen(req.Query)
		}
		if err != nil {
			log.Error("find_text failed", "query", req.Query, "error", err)
			return errorResponse(base.ID, err)
		}
		return SpansMessage{Type: "spans", ID: base.ID, Spans: matches}

	case "verify_text":
		var req TextRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse(base.ID, errors.Wrap(err, errors.Invalid, "decoding verify_text"))
		}
		if req.Query == "" {
			return errorResponse(base.ID, errors.New(errors.Invalid, "verify_text requires a query"))
		}
		found, err := s.resolver.VerifyOnScreen(req.Query)
		if err != nil {
			log.Error("verify_text failed", "query", req.Query, "error", err)
			return errorResponse(base.ID, err)
		}
		return VerifyMessage{Type: "verify", ID: base.ID, Found: found}

	case "list_artifacts":
		var req ListRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse(base.ID, errors.Wrap(err, errors.Invalid, "decoding list_artifacts"))
		}
		limit := req.Limit
		if limit <= 0 {
			limit = DefaultListLimit
		}
		artifacts := s.store.List()
		if len(artifacts) > limit {
			artifacts = artifacts[len(artifacts)-limit:]
		}
		return ArtifactsMessage{Type: "artifacts", ID: base.ID, SessionID: s.store.ID(), Artifacts: artifacts}

	case "retrieve_artifact":
		var req RetrieveRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse(base.ID, errors.Wrap(err, errors.Invalid, "decoding retrieve_artifact"))
		}
		art, data, err := s.store.Retrieve(req.Ref)
		if err != nil {
			return errorResponse(base.ID, err)
		}
		return ArtifactMessage{Type: "artifact", ID: base.ID, Artifact: art,
			Image: base64.StdEncoding.EncodeToString(data)}

	case "screen_size":
		size, err := s.capture.ScreenSize()
		if err != nil {
			return errorResponse(base.ID, err)
		}
		return SizeMessage{Type: "size", ID: base.ID, Width: size.Width, Height: size.Height}

	case "mouse_position":
		p := s.input.Pointer()
		return PointMessage{Type: "point", ID: base.ID, X: p.X, Y: p.Y}

	case "left_click", "right_click", "double_click", "mouse_move":
		var req PointRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse(base.ID, errors.Wrap(err, errors.Invalid, "decoding "+base.Type))
		}
		p := geometry.NativePoint{X: req.X, Y: req.Y}
		switch base.Type {
		case "left_click":
			s.input.LeftClick(p)
		case "right_click":
			s.input.RightClick(p)
		case "double_click":
			s.input.DoubleClick(p)
		case "mouse_move":
			s.input.Move(p)
		}
		log.Info("input", "op", base.Type, "x", p.X, "y", p.Y)
		return AckMessage{Type: "ack", ID: base.ID}

	case "drag":
		var req DragRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse(base.ID, errors.Wrap(err, errors.Invalid, "decoding drag"))
		}
		s.input.Drag(req.From, req.To)
		log.Info("input", "op", "drag", "from", req.From, "to", req.To)
		return AckMessage{Type: "ack", ID: base.ID}

	case "scroll":
		var req ScrollRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse(base.ID, errors.Wrap(err, errors.Invalid, "decoding scroll"))
		}
		if err := s.input.Scroll(geometry.NativePoint{X: req.X, Y: req.Y}, req.Direction, req.Amount); err != nil {
			return errorResponse(base.ID, err)
		}
		return AckMessage{Type: "ack", ID: base.ID}

	case "type_text":
		var req TypeRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse(base.ID, errors.Wrap(err, errors.Invalid, "decoding type_text"))
		}
		s.input.TypeText(req.Text)
		return AckMessage{Type: "ack", ID: base.ID}

	case "key":
		var req KeyRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse(base.ID, errors.Wrap(err, errors.Invalid, "decoding key"))
		}
		if err := s.input.Key(req.Chord); err != nil {
			return errorResponse(base.ID, err)
		}
		return AckMessage{Type: "ack", ID: base.ID}

	case "session_id":
		return SessionMessage{Type: "session", ID: base.ID, SessionID: s.store.ID()}

	default:
		return errorResponse(base.ID, errors.Newf(errors.Invalid, "unknown operation %q", base.Type))
	}
}

// captureAndArchiveFull takes a full-screen preview, archives it, and
// prepares the wire result.
func (s *Server) captureAndArchiveFull(maxDimension int) (CaptureResult, error) {
	full, err := s.capture.CaptureFull(maxDimension)
	if err != nil {
		return CaptureResult{}, err
	}
	art, err := s.store.Archive(full.Image, session.KindFull,
		geometry.FullScreen(full.NativeSize), full.NativeSize, full.OutputSize,
		full.ScaleFactor, full.Enhanced)
	if err != nil {
		return CaptureResult{}, err
	}
	encoded, err := encodePNG(full.Image)
	if err != nil {
		return CaptureResult{}, err
	}
	return CaptureResult{
		Artifact:    art,
		Image:       encoded,
		ScaleFactor: full.ScaleFactor,
		Enhanced:    full.Enhanced,
	}, nil
}

// captureAndArchiveRegion grabs a native-resolution region, archives it,
// and prepares the wire result. Region captures are never scaled.
func (s *Server) captureAndArchiveRegion(region geometry.Region) (CaptureResult, error) {
	rc, err := s.capture.CaptureRegion(region)
	if err != nil {
		return CaptureResult{}, err
	}
	size := geometry.Size{Width: rc.Region.Width, Height: rc.Region.Height}
	art, err := s.store.Archive(rc.Image, session.KindZoom, rc.Region,
		size, size, 1.0, rc.Enhanced)
	if err != nil {
		return CaptureResult{}, err
	}
	encoded, err := encodePNG(rc.Image)
	if err != nil {
		return CaptureResult{}, err
	}
	return CaptureResult{
		Artifact:    art,
		Image:       encoded,
		ScaleFactor: 1.0,
		Enhanced:    rc.Enhanced,
	}, nil
}

// recognize runs OCR either on a stored artifact or, with an empty ref,
// on a fresh native capture. Spans always come back in screen-native
// coordinates: the engine reports positions in the stored image's own
// pixel space, so zoom artifacts are translated by their crop origin, and
// downscaled previews are refused outright because no exact inverse
// mapping exists for them.
func (s *Server) recognize(ref string) ([]ocr.TextSpan, error) {
	if ref == "" {
		return s.resolver.RecognizeScreen()
	}
	art, data, err := s.store.Retrieve(ref)
	if err != nil {
		return nil, err
	}
	if art.ScaleFactor < 1.0 {
		return nil, errors.Newf(errors.Invalid,
			"artifact %s is a downscaled preview (factor %.2f); recognition needs a native-resolution artifact or the live screen",
			ref, art.ScaleFactor)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, errors.StorageFailure, "decoding artifact %s", ref)
	}
	spans, err := s.resolver.Recognize(img)
	if err != nil {
		return nil, err
	}
	return toNativeSpans(spans, art.Source), nil
}

// toNativeSpans shifts spans recognized inside an artifact back into
// screen-native coordinates by the artifact's source origin. Full-screen
// artifacts have origin (0,0), so only zoom crops actually move.
func toNativeSpans(spans []ocr.TextSpan, source geometry.Region) []ocr.TextSpan {
	if source.X == 0 && source.Y == 0 {
		return spans
	}
	out := make([]ocr.TextSpan, len(spans))
	for i, sp := range spans {
		sp.Box.X += source.X
		sp.Box.Y += source.Y
		sp.Click = sp.Box.Center()
		out[i] = sp
	}
	return out
}
