package homography

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/teslashibe/go-gaze/pkg/geom"
)

const (
	filePrefix     = "homography_"
	fileExt        = ".json"
	currentVersion = 1
)

// Record is the persisted calibration result for one display.
type Record struct {
	Version   int          `json:"version"`
	DisplayID string       `json:"display_id"`
	RunID     string       `json:"run_id,omitempty"`
	Matrix    Matrix       `json:"matrix"`
	RMS       float64      `json:"rms"`
	Source    []geom.Point `json:"source,omitempty"`
	Target    []geom.Point `json:"target,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Store persists one JSON document per display under a directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create directory: %v", ErrPersistence, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file a display's transform is stored in.
func (s *Store) Path(displayID string) string {
	return filepath.Join(s.dir, filePrefix+SanitizeID(displayID)+fileExt)
}

// Save writes rec atomically, replacing any previous transform for its display.
func (s *Store) Save(rec *Record) error {
	if rec.DisplayID == "" {
		return fmt.Errorf("%w: empty display id", ErrPersistence)
	}
	if !rec.Matrix.Finite() {
		return fmt.Errorf("%w: refusing to store non-finite matrix", ErrPersistence)
	}
	rec.Version = currentVersion
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(rec.DisplayID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("%w: write temp file: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: rename temp file: %v", ErrPersistence, err)
	}
	return nil
}

// Load reads the transform for displayID. A missing file yields ErrNotFound.
func (s *Store) Load(displayID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(s.Path(displayID))
}

func (s *Store) read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrPersistence, path, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrPersistence, path, err)
	}
	if !rec.Matrix.Finite() {
		return nil, fmt.Errorf("%w: %s", ErrNonFinite, path)
	}
	return &rec, nil
}

// Delete removes the stored transform for displayID. Deleting a missing
// transform is not an error.
func (s *Store) Delete(displayID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.Path(displayID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: delete: %v", ErrPersistence, err)
	}
	return nil
}

// List returns every stored record sorted by display id. Unreadable files are skipped.
func (s *Store) List() ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrPersistence, err)
	}
	var out []*Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		rec, err := s.read(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayID < out[j].DisplayID })
	return out, nil
}

// SanitizeID makes a display id safe for use in a file name. When characters
// had to be replaced a short hash of the raw id is appended, so ids that
// differ only in those characters keep separate files.
func SanitizeID(id string) string {
	if id == "" {
		return "_"
	}
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.String() == id {
		return id
	}
	return fmt.Sprintf("%s-%08x", b.String(), uint32(xxhash.Sum64String(id)))
}
