package sqlite

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/exfatt/films-server/database/model"
)

type SqliteRepo struct {
	// Read db handle
	dbReadHandle *sqlx.DB
	// Handle specifically for writes
	dbWriteHandle *sqlx.DB
	// in-memory saved-movie store, entries are flushed to the database periodically.
	savedEntries map[savedKey]savedState
	// last time the saved entries were synced to the database
	savedEntriesSyncTime time.Time
	// in-memory access token store, entries are flushed to the database periodically.
	accessTokenCache map[string]*model.AccessToken
	// last time the access token cache was synced to the database
	accessTokenCacheSyncTime time.Time
	// mutex to protect access to in-memory stores
	mu sync.Mutex
}

// Config holds configuration options.
type Config struct {
	Filename string `yaml:"filename"`
}

// New initializes a sqlite database and creates the schema if necessary.
func New(c *Config) (*SqliteRepo, error) {
	if c == nil || c.Filename == "" {
		return nil, model.ErrNoConfiguration
	}

	dbHandle, err := sqlx.Connect("sqlite3", c.Filename)
	if err != nil {
		return nil, err
	}
	dbHandle.SetMaxOpenConns(max(4, runtime.NumCPU()))

	writeDB, err := sqlx.Connect("sqlite3", c.Filename)
	if err != nil {
		return nil, err
	}
	// sqlite needs to have a single writer
	writeDB.SetMaxOpenConns(1)

	if err := dbInitSchema(writeDB); err != nil {
		return nil, err
	}

	s := &SqliteRepo{
		dbReadHandle:     dbHandle,
		dbWriteHandle:    writeDB,
		savedEntries:     make(map[savedKey]savedState),
		accessTokenCache: make(map[string]*model.AccessToken),
	}

	if err := s.loadSavedFromDB(); err != nil {
		return nil, err
	}

	return s, nil
}

// StartBackgroundJobs starts the periodic jobs that sync the in-memory
// saved-state and access-token caches to the database.
func (s *SqliteRepo) StartBackgroundJobs(ctx context.Context) {
	syncInterval := 10 * time.Second

	go s.savedBackgroundJob(ctx, syncInterval)
	go s.accessTokenBackgroundJob(ctx, syncInterval)
}
