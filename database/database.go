package database

import (
	"context"

	"github.com/exfatt/films-server/database/model"
	"github.com/exfatt/films-server/database/sqlite"
)

type (
	Options struct {
		Filename string
	}

	// Repository bundles all database operations.
	Repository interface {
		MovieRepo
		UserRepo
		SavedRepo
		AccessTokenRepo

		// StartBackgroundJobs starts the periodic cache-to-database sync jobs.
		StartBackgroundJobs(ctx context.Context)
	}

	// MovieRepo defines movie database operations.
	MovieRepo interface {
		// GetMovies returns all movies, newest first.
		GetMovies(ctx context.Context) ([]model.Movie, error)
		// GetMovie retrieves one movie by id.
		GetMovie(ctx context.Context, id int64) (*model.Movie, error)
		// InsertMovie inserts a movie and returns it with its assigned id.
		InsertMovie(ctx context.Context, movie *model.Movie) (*model.Movie, error)
		// UpdateMovie applies the non-nil fields of update and returns the result.
		UpdateMovie(ctx context.Context, id int64, update *model.MovieUpdate) (*model.Movie, error)
		// DeleteMovie removes a movie and its saved-state rows.
		DeleteMovie(ctx context.Context, id int64) error
	}

	// UserRepo defines user database operations.
	UserRepo interface {
		// GetUsers returns all users, oldest first, password hashes blanked.
		GetUsers(ctx context.Context) ([]model.User, error)
		// GetUser retrieves a user by username.
		GetUser(ctx context.Context, username string) (*model.User, error)
		// GetUserByID retrieves a user by id.
		GetUserByID(ctx context.Context, userID int64) (*model.User, error)
		// ValidateUser checks if the user exists and the password is correct.
		ValidateUser(ctx context.Context, username, password string) (*model.User, error)
		// InsertUser creates a user with a bcrypt-hashed password.
		InsertUser(ctx context.Context, username, password, role string) (*model.User, error)
		// DeleteUser removes a user by username. Admin accounts are refused.
		DeleteUser(ctx context.Context, username string) error
	}

	// SavedRepo tracks the per-user saved-movie relation.
	SavedRepo interface {
		// SetSaved bookmarks or unbookmarks a movie for a user.
		SetSaved(ctx context.Context, userID, movieID int64, saved bool) error
		// GetSavedMovieIDs returns the ids of all movies a user bookmarked.
		GetSavedMovieIDs(ctx context.Context, userID int64) ([]int64, error)
	}

	AccessTokenRepo interface {
		// CreateAccessToken generates and stores a new token for a user.
		CreateAccessToken(ctx context.Context, userID int64) (string, error)
		// GetAccessToken returns token details by token string.
		GetAccessToken(ctx context.Context, token string) (*model.AccessToken, error)
	}
)

// New opens the sqlite-backed repository.
func New(o *Options) (Repository, error) {
	return sqlite.New(&sqlite.Config{Filename: o.Filename})
}
