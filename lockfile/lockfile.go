// Package lockfile implements locbridge.lock, a manifest of the MD5
// checksums of every translation document injected into each platform.
// It lets status report which documents changed since the last prepare.
// It never decides whether a file is written: prepare always upserts.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "locbridge.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the locbridge.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // platform -> document -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path

	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}
	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported version %d", path, lf.Version)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of data.
func Hash(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

// HashFile computes the MD5 hex digest of a file's content.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return Hash(data), nil
}

// DocumentKey builds the lock file key of a translation document from its
// path relative to the project root, e.g. "translations/en.json".
func DocumentKey(relPath string) string {
	return filepath.ToSlash(relPath)
}

// State is the change state of a document for one platform.
type State string

const (
	StateNew       State = "new"
	StateChanged   State = "changed"
	StateUnchanged State = "unchanged"
)

// StateOf compares a document checksum with the recorded one.
func (lf *LockFile) StateOf(platform, key, sum string) State {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	docs, ok := lf.Checksums[platform]
	if !ok {
		return StateNew
	}
	old, ok := docs[key]
	switch {
	case !ok:
		return StateNew
	case old != sum:
		return StateChanged
	default:
		return StateUnchanged
	}
}

// IsChanged reports whether a document is new or changed for platform.
func (lf *LockFile) IsChanged(platform, key, sum string) bool {
	return lf.StateOf(platform, key, sum) != StateUnchanged
}

// Update records the checksum of a document after a successful run.
func (lf *LockFile) Update(platform, key, sum string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[platform] == nil {
		lf.Checksums[platform] = make(map[string]string)
	}
	lf.Checksums[platform][key] = sum
}

// Clean removes entries from the lock file that are no longer present in
// the current set of documents. This prevents stale entries from accumulating.
func (lf *LockFile) Clean(platform string, currentKeys []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	existing := lf.Checksums[platform]
	if existing == nil {
		return
	}

	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}

	for k := range existing {
		if !valid[k] {
			delete(existing, k)
		}
	}
}

// RemovePlatform removes all checksums for a platform.
func (lf *LockFile) RemovePlatform(platform string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Checksums, platform)
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of platforms and total documents in the lock file.
func (lf *LockFile) Stats() (platforms, documents int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	platforms = len(lf.Checksums)
	for _, m := range lf.Checksums {
		documents += len(m)
	}
	return
}

// Platforms returns the sorted list of platforms.
func (lf *LockFile) Platforms() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	platforms := make([]string, 0, len(lf.Checksums))
	for p := range lf.Checksums {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	return platforms
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	platforms, docs := lf.Stats()
	if platforms == 0 {
		return "empty"
	}

	var parts []string
	for _, p := range lf.Platforms() {
		n := len(lf.Checksums[p])
		parts = append(parts, fmt.Sprintf("%s: %d documents", p, n))
	}
	return fmt.Sprintf("%d platforms, %d documents (%s)", platforms, docs, strings.Join(parts, ", "))
}
