// Package session owns the per-run capture history: session identity,
// artifact numbering, and file-backed image persistence.
package session

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deskpilot/platform/internal/errors"
	"github.com/deskpilot/platform/internal/geometry"
)

// Capture kinds used in artifact filenames.
const (
	KindFull = "full"
	KindZoom = "zoom"
)

// Artifact describes one completed, archived capture. Immutable once
// created.
type Artifact struct {
	SessionID   string        `json:"session_id"`
	Sequence    int           `json:"sequence"`
	Timestamp   time.Time     `json:"timestamp"`
	Kind        string        `json:"kind"`
	Source      geometry.Region `json:"source"`
	NativeSize  geometry.Size `json:"native_size"`
	OutputSize  geometry.Size `json:"output_size"`
	ScaleFactor float64       `json:"scale_factor"`
	Enhanced    bool          `json:"enhanced"`
	Filename    string        `json:"filename"`
}

// Store archives captures for one server run. Archival is serialized so
// sequence numbers are strictly increasing with no gaps or duplicates.
type Store struct {
	mu        sync.Mutex
	id        string
	createdAt time.Time
	dir       string
	seq       int
	artifacts []Artifact
}

// Begin creates the session for this process run. The identity combines
// the start time with a random fragment so concurrent instances sharing a
// storage root cannot collide.
func Begin(baseDir string) (*Store, error) {
	now := time.Now()
	id := now.Format("20060102_150405") + "_" + uuid.NewString()[:6]
	dir := filepath.Join(baseDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.StorageFailure, "creating session dir %s", dir)
	}
	return &Store{id: id, createdAt: now, dir: dir}, nil
}

// ID returns the session identity.
func (s *Store) ID() string { return s.id }

// Dir returns the directory artifacts are written to.
func (s *Store) Dir() string { return s.dir }

// Archive assigns the next sequence number, persists the image as PNG
// under a deterministic name, and appends the artifact to the session.
// Append-only: nothing is ever overwritten or deleted during a session.
func (s *Store) Archive(img image.Image, kind string, source geometry.Region,
	nativeSize, outputSize geometry.Size, scaleFactor float64, enhanced bool) (Artifact, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seq + 1
	filename := artifactFilename(seq, kind, source, enhanced)
	path := filepath.Join(s.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return Artifact{}, errors.Wrapf(err, errors.StorageFailure, "creating %s", filename)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return Artifact{}, errors.Wrapf(err, errors.StorageFailure, "encoding %s", filename)
	}
	if err := f.Close(); err != nil {
		return Artifact{}, errors.Wrapf(err, errors.StorageFailure, "writing %s", filename)
	}

	// The sequence advances only after the write succeeds, so a failed
	// archive leaves no gap.
	s.seq = seq
	art := Artifact{
		SessionID:   s.id,
		Sequence:    seq,
		Timestamp:   time.Now(),
		Kind:        kind,
		Source:      source,
		NativeSize:  nativeSize,
		OutputSize:  outputSize,
		ScaleFactor: scaleFactor,
		Enhanced:    enhanced,
		Filename:    filename,
	}
	s.artifacts = append(s.artifacts, art)
	return art, nil
}

// List returns the session's artifacts in archival order, most recent
// last.
func (s *Store) List() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Artifact, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

// Retrieve resolves an artifact reference (sequence number or filename)
// and returns its descriptor plus the stored PNG bytes.
func (s *Store) Retrieve(ref string) (Artifact, []byte, error) {
	art, ok := s.lookup(ref)
	if !ok {
		return Artifact{}, nil, errors.Newf(errors.NotFound,
			"no artifact %q in session %s", ref, s.id)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, art.Filename))
	if err != nil {
		return Artifact{}, nil, errors.Wrapf(err, errors.StorageFailure,
			"reading artifact %s", art.Filename)
	}
	return art, data, nil
}

func (s *Store) lookup(ref string) (Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq, err := strconv.Atoi(ref); err == nil {
		for _, a := range s.artifacts {
			if a.Sequence == seq {
				return a, true
			}
		}
		return Artifact{}, false
	}
	for _, a := range s.artifacts {
		if a.Filename == ref {
			return a, true
		}
	}
	return Artifact{}, false
}

func artifactFilename(seq int, kind string, source geometry.Region, enhanced bool) string {
	suffix := ""
	if enhanced {
		suffix = "_enhanced"
	}
	if kind == KindZoom {
		return fmt.Sprintf("%04d_zoom_%dx%d_%dx%d%s.png",
			seq, source.X, source.Y, source.Width, source.Height, suffix)
	}
	return fmt.Sprintf("%04d_full%s.png", seq, suffix)
}
