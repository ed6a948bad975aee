// Package session persists finished mapping runs.
//
// A session records one completed map construction: the input identity,
// the parameters used, the resulting map, and its summary statistics.
// Two backends exist: FileStore for CLI runs and MongoStore for the API
// server. Sessions are immutable once written; re-running with different
// parameters creates a new session.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mkruijt/linkmap/pkg/linkage"
)

// Params captures the knobs a map was built with, enough to reproduce
// the run against the same input.
type Params struct {
	MapFunc      string  `json:"map_func" bson:"map_func"`
	BatchSize    int     `json:"batch_size" bson:"batch_size"`
	BatchOverlap int     `json:"batch_overlap" bson:"batch_overlap"`
	SizeWindow   int     `json:"size_window" bson:"size_window"`
	RippleWindow int     `json:"ripple_window" bson:"ripple_window"`
	RippleRule   string  `json:"ripple_rule" bson:"ripple_rule"`
	Tolerance    float64 `json:"tolerance" bson:"tolerance"`
	Parallel     int     `json:"parallel" bson:"parallel"`
}

// Session is one persisted mapping run.
type Session struct {
	ID        string    `json:"id" bson:"_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// DatasetHash identifies the input; two sessions with the same hash
	// and params are reruns of each other.
	DatasetHash string `json:"dataset_hash" bson:"dataset_hash"`

	Params  Params             `json:"params" bson:"params"`
	Map     *linkage.GlobalMap `json:"map" bson:"map"`
	Summary linkage.Summary    `json:"summary" bson:"summary"`
}

// New creates a session with a fresh ID and the current timestamp.
func New(datasetHash string, params Params, m *linkage.GlobalMap, summary linkage.Summary) *Session {
	return &Session{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		DatasetHash: datasetHash,
		Params:      params,
		Map:         m,
		Summary:     summary,
	}
}

// Store is the persistence interface for sessions.
type Store interface {
	// Get retrieves a session by ID; a missing ID yields a
	// SESSION_NOT_FOUND error.
	Get(ctx context.Context, id string) (*Session, error)

	// Put stores a session, replacing any previous one with the same ID.
	Put(ctx context.Context, s *Session) error

	// Delete removes a session. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	// List returns session IDs, newest first.
	List(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
