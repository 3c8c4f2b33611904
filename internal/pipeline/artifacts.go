package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names produced by every run.
const (
	ArtifactInventory   = "inventory.json"
	ArtifactRankedPages = "ranked_pages.json"
	ArtifactDeepExtract = "deep_extract.json"
	ArtifactPack        = "site_intelligence_pack.json"
)

// ArtifactWriter writes the immutable, versioned run artifacts. Each run
// gets its own directory; files are created exclusively and made read-only
// so a finished run can never be rewritten in place.
type ArtifactWriter struct {
	runDir string
}

// NewArtifactWriter creates the run directory under <baseDir>/<domain>/<runID>.
func NewArtifactWriter(baseDir, domain, runID string) (*ArtifactWriter, error) {
	runDir := filepath.Join(baseDir, domain, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	return &ArtifactWriter{runDir: runDir}, nil
}

// Dir returns the run directory.
func (w *ArtifactWriter) Dir() string {
	return w.runDir
}

// WriteJSON marshals v into the named artifact. Writing an artifact that
// already exists is an error: artifacts are immutable.
func (w *ArtifactWriter) WriteJSON(name string, v any) (string, error) {
	path := filepath.Join(w.runDir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create artifact %s: %w", name, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("encode artifact %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close artifact %s: %w", name, err)
	}

	if err := os.Chmod(path, 0o444); err != nil {
		return "", fmt.Errorf("seal artifact %s: %w", name, err)
	}

	return path, nil
}
