package sqlite

import (
	"context"
	"log"
	"time"
)

// savedKey is the key for the in-memory saved-movie map.
type savedKey struct {
	userID  int64
	movieID int64
}

type savedState struct {
	saved     bool
	timestamp time.Time
}

// SetSaved bookmarks or unbookmarks a movie for a user. The change lands
// in the in-memory store and is flushed to the database by the background job.
func (s *SqliteRepo) SetSaved(ctx context.Context, userID, movieID int64, saved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.savedEntries[savedKey{userID: userID, movieID: movieID}] = savedState{
		saved:     saved,
		timestamp: time.Now().UTC(),
	}
	return nil
}

// GetSavedMovieIDs returns the ids of all movies a user bookmarked.
func (s *SqliteRepo) GetSavedMovieIDs(ctx context.Context, userID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var movieIDs []int64
	for key, state := range s.savedEntries {
		if key.userID == userID && state.saved {
			movieIDs = append(movieIDs, key.movieID)
		}
	}
	return movieIDs, nil
}

// loadSavedFromDB loads the saved table into memory.
func (s *SqliteRepo) loadSavedFromDB() error {
	var rows []struct {
		UserID    int64     `db:"userid"`
		MovieID   int64     `db:"movieid"`
		Saved     bool      `db:"saved"`
		Timestamp time.Time `db:"timestamp"`
	}

	err := s.dbReadHandle.Select(&rows, "SELECT userid, movieid, saved, timestamp FROM saved")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		s.savedEntries[savedKey{userID: r.UserID, movieID: r.MovieID}] = savedState{
			saved:     r.Saved,
			timestamp: r.Timestamp,
		}
	}
	return nil
}

// writeSavedToDB writes all changed saved entries to the database.
func (s *SqliteRepo) writeSavedToDB() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.dbWriteHandle.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range s.savedEntries {
		if value.timestamp.After(s.savedEntriesSyncTime) {
			_, err := tx.NamedExec(`INSERT OR REPLACE INTO saved (userid, movieid, saved, timestamp)
                VALUES (:userid, :movieid, :saved, :timestamp)`,
				map[string]any{
					"userid":    key.userID,
					"movieid":   key.movieID,
					"saved":     value.saved,
					"timestamp": value.timestamp.UTC(),
				})
			if err != nil {
				return err
			}
		}
	}

	s.savedEntriesSyncTime = time.Now().UTC()
	return tx.Commit()
}

// savedBackgroundJob flushes changed saved entries to the database until ctx ends.
func (s *SqliteRepo) savedBackgroundJob(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	s.savedEntriesSyncTime = time.Now().UTC()
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// final flush so a clean shutdown loses nothing
			if err := s.writeSavedToDB(); err != nil {
				log.Printf("Error writing saved state to db: %s\n", err)
			}
			return
		case <-ticker.C:
			if err := s.writeSavedToDB(); err != nil {
				log.Printf("Error writing saved state to db: %s\n", err)
			}
		}
	}
}
