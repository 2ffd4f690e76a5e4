// Package viewstate holds the client-side application state: the movie and
// user collections, the current filter selections, the editing slot and the
// create-form drafts. All mutation goes through intents that call the gateway
// and fold the result back in.
package viewstate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/exfatt/films-server/catalog"
	"github.com/exfatt/films-server/database/model"
)

// ErrValidation is returned when a required form field is empty. The gateway
// is not called in that case.
var ErrValidation = errors.New("validation failed")

// Gateway is the remote side the controller dispatches intents to.
// *client.Client satisfies it.
type Gateway interface {
	GetMovies(ctx context.Context, userID int64) ([]model.Movie, error)
	AddMovie(ctx context.Context, movie *model.Movie) (*model.Movie, error)
	UpdateMovie(ctx context.Context, id int64, update *model.MovieUpdate) (*model.Movie, error)
	DeleteMovie(ctx context.Context, id int64) error
	ToggleSaved(ctx context.Context, userID, movieID int64, isSaved bool) error
	Login(ctx context.Context, username, password string) (*model.User, error)
	GetUsers(ctx context.Context) ([]model.User, error)
	AddUser(ctx context.Context, username, password, role string) (*model.User, error)
	DeleteUser(ctx context.Context, username string) error
}

// MovieDraft is the transient form state for a new movie.
type MovieDraft struct {
	Title       string
	Year        int
	Genre       []string
	Rating      float64
	Description string
	ImageURL    string
	VideoURL    string
	Hashtags    []string
}

// UserDraft is the transient form state for a new user.
type UserDraft struct {
	Username string
	Password string
	Role     string
}

// Controller owns the view state. The collections are mutated only by a
// completed gateway call or a local toggle; gateway calls are made without
// holding the lock so unrelated intents stay serviceable while a request is
// in flight.
type Controller struct {
	gw Gateway

	mu          sync.Mutex
	movies      []model.Movie
	users       []model.User
	query       string
	genre       string
	tab         catalog.Tab
	currentUser *model.User
	// editingID is the movie being edited, 0 when the slot is empty.
	editingID  int64
	movieDraft MovieDraft
	userDraft  UserDraft
	// refresh sequence numbers; stale responses are discarded so the newest
	// request wins, not the last response to arrive.
	moviesSeq uint64
	usersSeq  uint64
}

// New creates a controller. The movie collection starts out with the given
// seed (may be nil) until LoadMovies replaces it.
func New(gw Gateway, seed []model.Movie) *Controller {
	return &Controller{
		gw:     gw,
		movies: seed,
		genre:  catalog.AllGenres,
		tab:    catalog.TabHome,
	}
}

// SetSearch sets the search query.
func (c *Controller) SetSearch(query string) {
	c.mu.Lock()
	c.query = query
	c.mu.Unlock()
}

// SetGenre sets the genre selection.
func (c *Controller) SetGenre(genre string) {
	c.mu.Lock()
	c.genre = genre
	c.mu.Unlock()
}

// SetTab sets the active tab.
func (c *Controller) SetTab(tab catalog.Tab) {
	c.mu.Lock()
	c.tab = tab
	c.mu.Unlock()
}

// Visible derives the filtered movie list from the current selections.
func (c *Controller) Visible() []model.Movie {
	c.mu.Lock()
	defer c.mu.Unlock()
	return catalog.Filter(c.movies, c.query, c.genre, c.tab)
}

// Movies returns a copy of the full movie collection.
func (c *Controller) Movies() []model.Movie {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Movie(nil), c.movies...)
}

// Users returns a copy of the user collection.
func (c *Controller) Users() []model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.User(nil), c.users...)
}

// CurrentUser returns the logged-in user, or nil.
func (c *Controller) CurrentUser() *model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentUser
}

// StartEditing puts the movie with the given id in the editing slot.
func (c *Controller) StartEditing(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(id) < 0 {
		return model.ErrNotFound
	}
	c.editingID = id
	return nil
}

// Editing returns the id in the editing slot, false when empty.
func (c *Controller) Editing() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingID, c.editingID != 0
}

// CancelEditing empties the editing slot.
func (c *Controller) CancelEditing() {
	c.mu.Lock()
	c.editingID = 0
	c.mu.Unlock()
}

// SetMovieDraft stores the new-movie form state.
func (c *Controller) SetMovieDraft(d MovieDraft) {
	c.mu.Lock()
	c.movieDraft = d
	c.mu.Unlock()
}

// SetUserDraft stores the new-user form state.
func (c *Controller) SetUserDraft(d UserDraft) {
	c.mu.Lock()
	c.userDraft = d
	c.mu.Unlock()
}

// LoadMovies refreshes the movie collection through the gateway. When a newer
// refresh was started while this one was in flight, its response is dropped.
func (c *Controller) LoadMovies(ctx context.Context) error {
	c.mu.Lock()
	c.moviesSeq++
	seq := c.moviesSeq
	var userID int64
	if c.currentUser != nil {
		userID = c.currentUser.ID
	}
	c.mu.Unlock()

	movies, err := c.gw.GetMovies(ctx, userID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.moviesSeq {
		return nil
	}
	c.movies = movies
	return nil
}

// LoadUsers refreshes the user collection through the gateway.
func (c *Controller) LoadUsers(ctx context.Context) error {
	c.mu.Lock()
	c.usersSeq++
	seq := c.usersSeq
	c.mu.Unlock()

	users, err := c.gw.GetUsers(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.usersSeq {
		return nil
	}
	c.users = users
	return nil
}

// ToggleSaved flips the bookmark flag of the movie with the given id.
// The flip is applied optimistically; when the gateway call fails it is
// rolled back and the error returned. Without a logged-in user the flip
// stays local.
func (c *Controller) ToggleSaved(ctx context.Context, id int64) error {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return model.ErrNotFound
	}
	c.movies[i].IsSaved = !c.movies[i].IsSaved
	newState := c.movies[i].IsSaved
	user := c.currentUser
	c.mu.Unlock()

	if user == nil {
		return nil
	}

	if err := c.gw.ToggleSaved(ctx, user.ID, id, newState); err != nil {
		c.mu.Lock()
		if i := c.indexOf(id); i >= 0 {
			c.movies[i].IsSaved = !newState
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// AddMovie submits a new-movie draft. Title and description are required;
// on a validation error the gateway is not called and the collection is
// untouched. On success the server-returned movie is appended.
func (c *Controller) AddMovie(ctx context.Context, draft MovieDraft) error {
	if draft.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if draft.Description == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}

	movie, err := c.gw.AddMovie(ctx, &model.Movie{
		Title:       draft.Title,
		Year:        draft.Year,
		Genre:       draft.Genre,
		Rating:      draft.Rating,
		Description: draft.Description,
		ImageURL:    draft.ImageURL,
		VideoURL:    draft.VideoURL,
		Hashtags:    draft.Hashtags,
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.movies = append(c.movies, *movie)
	c.movieDraft = MovieDraft{}
	c.mu.Unlock()
	return nil
}

// SubmitMovieDraft submits the stored new-movie draft.
func (c *Controller) SubmitMovieDraft(ctx context.Context) error {
	c.mu.Lock()
	draft := c.movieDraft
	c.mu.Unlock()
	return c.AddMovie(ctx, draft)
}

// UpdateMovie applies a partial update to the movie with the given id.
// On success the returned record replaces the local entry and the editing
// slot is cleared.
func (c *Controller) UpdateMovie(ctx context.Context, id int64, update *model.MovieUpdate) error {
	c.mu.Lock()
	if c.indexOf(id) < 0 {
		c.mu.Unlock()
		return model.ErrNotFound
	}
	c.mu.Unlock()

	movie, err := c.gw.UpdateMovie(ctx, id, update)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		// the response has no per-user context, keep the local bookmark flag
		saved := c.movies[i].IsSaved
		c.movies[i] = *movie
		c.movies[i].IsSaved = saved
	}
	if c.editingID == id {
		c.editingID = 0
	}
	return nil
}

// DeleteMovie removes the movie with the given id.
func (c *Controller) DeleteMovie(ctx context.Context, id int64) error {
	if err := c.gw.DeleteMovie(ctx, id); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		c.movies = append(c.movies[:i], c.movies[i+1:]...)
	}
	if c.editingID == id {
		c.editingID = 0
	}
	return nil
}

// AddUser submits a new-user draft. Username and password are required.
func (c *Controller) AddUser(ctx context.Context, draft UserDraft) error {
	if draft.Username == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}
	if draft.Password == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}

	user, err := c.gw.AddUser(ctx, draft.Username, draft.Password, draft.Role)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.users = append(c.users, *user)
	c.userDraft = UserDraft{}
	c.mu.Unlock()
	return nil
}

// SubmitUserDraft submits the stored new-user draft.
func (c *Controller) SubmitUserDraft(ctx context.Context) error {
	c.mu.Lock()
	draft := c.userDraft
	c.mu.Unlock()
	return c.AddUser(ctx, draft)
}

// DeleteUser removes the user with the given username. Admin-role entries
// are refused before any network call; the server enforces the same rule.
func (c *Controller) DeleteUser(ctx context.Context, username string) error {
	c.mu.Lock()
	for i := range c.users {
		if c.users[i].Username == username && c.users[i].Role == model.RoleAdmin {
			c.mu.Unlock()
			return model.ErrAdminUndeletable
		}
	}
	c.mu.Unlock()

	if err := c.gw.DeleteUser(ctx, username); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.users {
		if c.users[i].Username == username {
			c.users = append(c.users[:i], c.users[i+1:]...)
			break
		}
	}
	return nil
}

// Login authenticates and stores the returned user as current. On failure
// the gateway error, carrying the server message, is returned as is.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	user, err := c.gw.Login(ctx, username, password)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.currentUser = user
	c.mu.Unlock()
	return nil
}

// Logout clears the current user.
func (c *Controller) Logout() {
	c.mu.Lock()
	c.currentUser = nil
	c.mu.Unlock()
}

// indexOf returns the position of the movie with the given id, -1 when
// absent. Caller holds c.mu.
func (c *Controller) indexOf(id int64) int {
	for i := range c.movies {
		if c.movies[i].ID == id {
			return i
		}
	}
	return -1
}
