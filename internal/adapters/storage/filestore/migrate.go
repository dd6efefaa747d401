package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/cafecultura/cuppingd/internal/adapters/storage"
	"github.com/cafecultura/cuppingd/internal/domain/model"
)

// legacyFile is the old single-file layout: a flat array of session
// records (schema version 1) alongside the event list.
type legacyFile struct {
	CuppingSessions []model.CuppingSession `json:"cupping_sessions"`
	Analytics       []model.AnalyticsEvent `json:"analytics"`
}

// importLegacy translates a legacy single-file layout into per-record
// files on first read. The legacy file is renamed away afterwards, so a
// second read never re-triggers the import.
func (s *Store) importLegacy(ctx context.Context) error {
	s.importOnce.Do(func() {
		s.importErr = s.runImport(ctx)
	})
	return s.importErr
}

func (s *Store) runImport(ctx context.Context) error {
	data, err := os.ReadFile(s.legacyPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	var legacy legacyFile
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("%w: legacy layout unreadable: %v", storage.ErrUnavailable, err)
	}

	s.mu.Lock()
	for _, rec := range legacy.CuppingSessions {
		rec.SchemaVersion = model.SchemaVersionCurrent
		// A record already migrated in the current layout is authoritative.
		if _, statErr := os.Stat(s.recordPath(rec.SessionID)); statErr == nil {
			continue
		}
		encoded, err := json.Marshal(rec)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
		}
		if err := s.writeRecordLocked(rec.SessionID, encoded); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()

	for _, e := range legacy.Analytics {
		if err := s.appendEventRaw(ctx, e); err != nil {
			return err
		}
	}

	if err := os.Rename(s.legacyPath, s.legacyPath+importedSuffix); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return nil
}
