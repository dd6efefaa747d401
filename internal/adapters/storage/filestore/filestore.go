// Package filestore implements the storage backend on per-record JSON files.
//
// Layout: one file per session under <dir>/sessions/<session_id>.json plus an
// append-only <dir>/events.log of JSON lines. Writes go through a temp file
// and os.Rename so a crash mid-write never leaves a partial record readable.
// A single-writer mutex serializes session writes; reads open only final
// files and proceed without holding it.
package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cafecultura/cuppingd/internal/adapters/storage"
	"github.com/cafecultura/cuppingd/internal/domain/model"
	"github.com/cafecultura/cuppingd/pkg/metrics"
)

const (
	sessionsDir    = "sessions"
	eventsFile     = "events.log"
	recordPerm     = 0o600
	dirPerm        = 0o755
	recordSuffix   = ".json"
	tmpPrefix      = ".tmp-"
	importedSuffix = ".imported"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLegacyPath sets the path of the old single-file layout that is
// imported on first read. Defaults to <dir>/data.json.
func WithLegacyPath(path string) Option {
	return func(s *Store) {
		if path != "" {
			s.legacyPath = path
		}
	}
}

// Store is the file-backed storage.Backend implementation.
type Store struct {
	dir        string
	legacyPath string

	mu   sync.Mutex   // serializes session writes and legacy import
	evMu sync.RWMutex // serializes event log appends against scans

	importOnce sync.Once
	importErr  error
}

// New creates a file store rooted at dir, creating the layout if needed.
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		dir:        dir,
		legacyPath: filepath.Join(dir, "data.json"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(filepath.Join(dir, sessionsDir), dirPerm); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return s, nil
}

// Put writes or replaces a full session record atomically.
func (s *Store) Put(ctx context.Context, rec model.CuppingSession) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	done := metrics.TimeStorageOp("put")
	defer done()

	rec.SchemaVersion = model.SchemaVersionCurrent
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeRecordLocked(rec.SessionID, data)
}

func (s *Store) writeRecordLocked(sessionID string, data []byte) error {
	final := s.recordPath(sessionID)
	tmp, err := os.CreateTemp(filepath.Join(s.dir, sessionsDir), tmpPrefix+sessionID+"-*")
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// Get returns the session with the given internal id.
func (s *Store) Get(ctx context.Context, sessionID string) (model.CuppingSession, error) {
	if err := s.importLegacy(ctx); err != nil {
		return model.CuppingSession{}, err
	}
	done := metrics.TimeStorageOp("get")
	defer done()
	return s.readRecord(sessionID)
}

func (s *Store) readRecord(sessionID string) (model.CuppingSession, error) {
	data, err := os.ReadFile(s.recordPath(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return model.CuppingSession{}, storage.ErrNotFound
	}
	if err != nil {
		return model.CuppingSession{}, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	var rec model.CuppingSession
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.CuppingSession{}, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return rec, nil
}

// GetByShareID returns the session carrying the given public share id.
func (s *Store) GetByShareID(ctx context.Context, shareID string) (model.CuppingSession, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return model.CuppingSession{}, err
	}
	for _, rec := range all {
		if rec.ShareID == shareID {
			return rec, nil
		}
	}
	return model.CuppingSession{}, storage.ErrNotFound
}

// ListAll returns every stored session. Records are read individually so
// each one is seen whole or not at all.
func (s *Store) ListAll(ctx context.Context) ([]model.CuppingSession, error) {
	if err := s.importLegacy(ctx); err != nil {
		return nil, err
	}
	done := metrics.TimeStorageOp("list_all")
	defer done()

	entries, err := os.ReadDir(filepath.Join(s.dir, sessionsDir))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	out := make([]model.CuppingSession, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, tmpPrefix) || !strings.HasSuffix(name, recordSuffix) {
			continue
		}
		rec, err := s.readRecord(strings.TrimSuffix(name, recordSuffix))
		if errors.Is(err, storage.ErrNotFound) {
			continue // removed between ReadDir and read
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ShareIDExists reports whether a share id is already assigned.
func (s *Store) ShareIDExists(ctx context.Context, shareID string) (bool, error) {
	_, err := s.GetByShareID(ctx, shareID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AppendEvent appends one interaction event to the JSON-lines log.
func (s *Store) AppendEvent(ctx context.Context, e model.AnalyticsEvent) error {
	if err := s.importLegacy(ctx); err != nil {
		return err
	}
	return s.appendEventRaw(ctx, e)
}

// appendEventRaw writes to the log without triggering the legacy import.
// The import itself appends through here.
func (s *Store) appendEventRaw(ctx context.Context, e model.AnalyticsEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	done := metrics.TimeStorageOp("append_event")
	defer done()

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	s.evMu.Lock()
	defer s.evMu.Unlock()
	f, err := os.OpenFile(filepath.Join(s.dir, eventsFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, recordPerm)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// EventsByShareID scans the log and returns matching events in timestamp
// order. Append order and timestamp order coincide since timestamps are
// stamped at append time, but the scan sorts anyway.
func (s *Store) EventsByShareID(ctx context.Context, shareID string) ([]model.AnalyticsEvent, error) {
	if err := s.importLegacy(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	done := metrics.TimeStorageOp("query_events")
	defer done()

	s.evMu.RLock()
	defer s.evMu.RUnlock()
	f, err := os.Open(filepath.Join(s.dir, eventsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	defer f.Close()

	var out []model.AnalyticsEvent
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e model.AnalyticsEvent
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
		}
		if e.ShareID == shareID {
			out = append(out, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Close releases store resources. The file store holds no open handles
// between calls.
func (s *Store) Close() error { return nil }

func (s *Store) recordPath(sessionID string) string {
	return filepath.Join(s.dir, sessionsDir, sessionID+recordSuffix)
}
