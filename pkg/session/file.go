package session

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mkruijt/linkmap/pkg/errors"
	mapio "github.com/mkruijt/linkmap/pkg/io"
	"github.com/mkruijt/linkmap/pkg/linkage"
)

// FileStore keeps sessions as JSON files in a directory, one file per
// session. It is the backend for CLI runs.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates a file-backed store rooted at dir. An empty dir
// defaults to ~/.config/linkmap/sessions.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "resolving home directory")
		}
		dir = filepath.Join(home, ".config", "linkmap", "sessions")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "creating session directory")
	}
	return &FileStore{dir: dir}, nil
}

// fileDoc is the on-disk form. The map goes through its JSON document so
// unknown recombination fractions survive as nulls.
type fileDoc struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	DatasetHash string          `json:"dataset_hash"`
	Params      Params          `json:"params"`
	Map         *mapio.MapDoc   `json:"map,omitempty"`
	Summary     linkage.Summary `json:"summary"`
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "reading session %s", id)
	}

	var doc fileDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parsing session %s", id)
	}
	sess := &Session{
		ID:          doc.ID,
		CreatedAt:   doc.CreatedAt,
		DatasetHash: doc.DatasetHash,
		Params:      doc.Params,
		Summary:     doc.Summary,
	}
	if doc.Map != nil {
		m, err := mapio.DecodeMap(*doc.Map)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "decoding map of session %s", id)
		}
		sess.Map = m
	}
	return sess, nil
}

// Put implements Store.
func (s *FileStore) Put(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := fileDoc{
		ID:          sess.ID,
		CreatedAt:   sess.CreatedAt,
		DatasetHash: sess.DatasetHash,
		Params:      sess.Params,
		Summary:     sanitizeSummary(sess.Summary),
	}
	if sess.Map != nil {
		m := mapio.EncodeMap(sess.Map)
		doc.Map = &m
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "marshaling session %s", sess.ID)
	}
	if err := os.WriteFile(s.path(sess.ID), raw, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "writing session %s", sess.ID)
	}
	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeInternal, err, "removing session %s", id)
	}
	return nil
}

// List implements Store.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "listing sessions")
	}

	type stamped struct {
		id string
		at time.Time
	}
	var found []stamped
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		var doc struct {
			CreatedAt time.Time `json:"created_at"`
		}
		if raw, err := os.ReadFile(filepath.Join(s.dir, e.Name())); err == nil {
			_ = json.Unmarshal(raw, &doc)
		}
		found = append(found, stamped{id: id, at: doc.CreatedAt})
	}
	sort.Slice(found, func(i, j int) bool {
		if !found[i].at.Equal(found[j].at) {
			return found[i].at.After(found[j].at)
		}
		return found[i].id < found[j].id
	})
	ids := make([]string, len(found))
	for i, f := range found {
		ids[i] = f.id
	}
	return ids, nil
}

// Close does nothing for the file backend.
func (s *FileStore) Close(ctx context.Context) error { return nil }

// Dir returns the session directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// sanitizeSummary keeps the JSON encoder away from NaN statistics, which
// can appear when a map has no determined intervals.
func sanitizeSummary(sum linkage.Summary) linkage.Summary {
	for _, f := range []*float64{&sum.LengthCM, &sum.MeanIntervalCM, &sum.MaxIntervalCM, &sum.MedianRF, &sum.LogLik} {
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			*f = 0
		}
	}
	return sum
}

var _ Store = (*FileStore)(nil)
