package sqlite

import (
	"context"
	"log"
	"time"

	"github.com/exfatt/films-server/database/model"
	"github.com/exfatt/films-server/idhash"
)

// CreateAccessToken generates and stores a new token for a user.
func (s *SqliteRepo) CreateAccessToken(ctx context.Context, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := idhash.NewRandomID()
	t := &model.AccessToken{
		Token:    token,
		UserID:   userID,
		Created:  time.Now().UTC(),
		LastUsed: time.Now().UTC(),
	}
	// Store accesstoken in database
	if err := s.storeToken(t); err != nil {
		return "", err
	}

	// Store accesstoken in memory
	s.accessTokenCache[token] = t

	return token, nil
}

// GetAccessToken returns accesstoken details based upon token string.
func (s *SqliteRepo) GetAccessToken(ctx context.Context, token string) (*model.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Try our in-memory store first
	if at, ok := s.accessTokenCache[token]; ok {
		// Update token timestamp so we can keep track of in-use tokens
		at.LastUsed = time.Now().UTC()
		return at, nil
	}

	// try database
	var row struct {
		UserID   int64     `db:"userid"`
		Token    string    `db:"token"`
		Created  time.Time `db:"created"`
		LastUsed time.Time `db:"lastused"`
	}
	err := s.dbReadHandle.GetContext(ctx, &row,
		"SELECT userid, token, created, lastused FROM accesstokens WHERE token=? LIMIT 1", token)
	if err == nil {
		t := &model.AccessToken{
			UserID:   row.UserID,
			Token:    row.Token,
			Created:  row.Created,
			LastUsed: time.Now().UTC(),
		}
		s.accessTokenCache[token] = t
		return t, nil
	}

	return nil, model.ErrNotFound
}

// accessTokenBackgroundJob persists last-use timestamps of changed tokens.
func (s *SqliteRepo) accessTokenBackgroundJob(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	s.accessTokenCacheSyncTime = time.Now().UTC()
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.writeChangedAccessTokensToDB(); err != nil {
				log.Printf("Error writing access tokens to db: %s\n", err)
			}
		}
	}
}

// writeChangedAccessTokensToDB writes updated access tokens to db to persist last use date.
func (s *SqliteRepo) writeChangedAccessTokensToDB() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, value := range s.accessTokenCache {
		if value.LastUsed.After(s.accessTokenCacheSyncTime) {
			if err := s.storeToken(value); err != nil {
				return err
			}
		}
	}
	s.accessTokenCacheSyncTime = time.Now().UTC()
	return nil
}

// storeToken stores an access token in the database. Caller holds s.mu.
func (s *SqliteRepo) storeToken(t *model.AccessToken) error {
	tx, err := s.dbWriteHandle.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.NamedExec(`INSERT OR REPLACE INTO accesstokens (userid, token, created, lastused)
		VALUES (:userid, :token, :created, :lastused)`,
		map[string]any{
			"userid":   t.UserID,
			"token":    t.Token,
			"created":  t.Created,
			"lastused": t.LastUsed,
		})
	if err != nil {
		return err
	}
	return tx.Commit()
}
