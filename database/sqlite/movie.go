package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/exfatt/films-server/database/model"
)

// movieRow mirrors the movies table. Genre and hashtags are stored as
// comma-joined text.
type movieRow struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Year        int       `db:"year"`
	Genre       string    `db:"genre"`
	Rating      float64   `db:"rating"`
	Votes       int       `db:"votes"`
	Description string    `db:"description"`
	ImageURL    string    `db:"imageurl"`
	VideoURL    string    `db:"videourl"`
	Hashtags    string    `db:"hashtags"`
	Created     time.Time `db:"created"`
}

func (r *movieRow) toModel() model.Movie {
	return model.Movie{
		ID:          r.ID,
		Title:       r.Title,
		Year:        r.Year,
		Genre:       splitTags(r.Genre),
		Rating:      r.Rating,
		Votes:       r.Votes,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		VideoURL:    r.VideoURL,
		Hashtags:    splitTags(r.Hashtags),
		Created:     r.Created,
	}
}

// splitTags splits comma-joined tag text. Entries are trimmed but not
// deduplicated or normalized.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

const movieColumns = `id, title, year, genre, rating, votes, description, imageurl, videourl, hashtags, created`

// GetMovies returns all movies, newest first.
func (s *SqliteRepo) GetMovies(ctx context.Context) ([]model.Movie, error) {
	var rows []movieRow
	err := s.dbReadHandle.SelectContext(ctx, &rows,
		`SELECT `+movieColumns+` FROM movies ORDER BY created DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	movies := make([]model.Movie, len(rows))
	for i := range rows {
		movies[i] = rows[i].toModel()
	}
	return movies, nil
}

// GetMovie retrieves one movie by id.
func (s *SqliteRepo) GetMovie(ctx context.Context, id int64) (*model.Movie, error) {
	var row movieRow
	err := s.dbReadHandle.GetContext(ctx, &row,
		`SELECT `+movieColumns+` FROM movies WHERE id=? LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	movie := row.toModel()
	return &movie, nil
}

// InsertMovie inserts a movie and returns it with its assigned id.
// Votes are server-maintained and start at zero.
func (s *SqliteRepo) InsertMovie(ctx context.Context, movie *model.Movie) (*model.Movie, error) {
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO movies (title, year, genre, rating, votes, description, imageurl, videourl, hashtags, created)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		movie.Title,
		movie.Year,
		joinTags(movie.Genre),
		movie.Rating,
		movie.Description,
		movie.ImageURL,
		movie.VideoURL,
		joinTags(movie.Hashtags),
		time.Now().UTC())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetMovie(ctx, id)
}

// UpdateMovie applies the non-nil fields of update and returns the result.
func (s *SqliteRepo) UpdateMovie(ctx context.Context, id int64, update *model.MovieUpdate) (*model.Movie, error) {
	if _, err := s.GetMovie(ctx, id); err != nil {
		return nil, err
	}

	var set []string
	var args []any
	if update.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Year != nil {
		set = append(set, "year = ?")
		args = append(args, *update.Year)
	}
	if update.Genre != nil {
		set = append(set, "genre = ?")
		args = append(args, joinTags(*update.Genre))
	}
	if update.Rating != nil {
		set = append(set, "rating = ?")
		args = append(args, *update.Rating)
	}
	if update.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *update.Description)
	}
	if update.ImageURL != nil {
		set = append(set, "imageurl = ?")
		args = append(args, *update.ImageURL)
	}
	if update.VideoURL != nil {
		set = append(set, "videourl = ?")
		args = append(args, *update.VideoURL)
	}
	if update.Hashtags != nil {
		set = append(set, "hashtags = ?")
		args = append(args, joinTags(*update.Hashtags))
	}
	if len(set) > 0 {
		args = append(args, id)
		tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()
		_, err = tx.ExecContext(ctx,
			`UPDATE movies SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
	}
	return s.GetMovie(ctx, id)
}

// DeleteMovie removes a movie and its saved-state rows.
func (s *SqliteRepo) DeleteMovie(ctx context.Context, id int64) error {
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM saved WHERE movieid = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	// drop cached saved-state for the movie as well
	s.mu.Lock()
	for key := range s.savedEntries {
		if key.movieID == id {
			delete(s.savedEntries, key)
		}
	}
	s.mu.Unlock()
	return nil
}
