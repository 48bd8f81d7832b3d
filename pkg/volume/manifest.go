package volume

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestFile is the name of the manifest kept in a dataset's HOME_BASE.
const ManifestFile = ".shamroq-manifest.json"

const manifestVersion = "1.0.0"

// Manifest records which volumes of a dataset have been fetched.
type Manifest struct {
	Version   string             `json:"version"`
	UpdatedAt time.Time          `json:"updated_at"`
	Volumes   map[string]*Record `json:"volumes"`
}

// Record describes one fetched volume.
type Record struct {
	Volume       string    `json:"volume"`
	URL          string    `json:"url"`
	LocalPath    string    `json:"local_path"`
	SizeBytes    int64     `json:"size_bytes"`
	SHA256       string    `json:"sha256"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Version:   manifestVersion,
		UpdatedAt: time.Now(),
		Volumes:   make(map[string]*Record),
	}
}

// LoadManifest reads a manifest from disk. A missing file yields an empty
// manifest.
func LoadManifest(manifestPath string) (*Manifest, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	manifest := &Manifest{}
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.Volumes == nil {
		manifest.Volumes = make(map[string]*Record)
	}
	return manifest, nil
}

// Save writes the manifest to disk.
func (manifest *Manifest) Save(manifestPath string) error {
	manifest.UpdatedAt = time.Now()

	if err := os.MkdirAll(filepath.Dir(manifestPath), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Record adds or replaces the entry for a volume.
func (manifest *Manifest) Record(record *Record) {
	manifest.Volumes[record.Volume] = record
}

// Get returns the entry for a volume, or nil.
func (manifest *Manifest) Get(volume string) *Record {
	return manifest.Volumes[volume]
}

// TotalSize returns the bytes recorded across all volumes.
func (manifest *Manifest) TotalSize() int64 {
	var totalBytes int64
	for _, record := range manifest.Volumes {
		totalBytes += record.SizeBytes
	}
	return totalBytes
}
