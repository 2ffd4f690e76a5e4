package viewstate

import (
	"context"
	"errors"
	"testing"

	"github.com/exfatt/films-server/catalog"
	"github.com/exfatt/films-server/database/model"
)

// fakeGateway records calls and answers from canned data.
type fakeGateway struct {
	calls []string

	movies    []model.Movie
	users     []model.User
	loginUser *model.User
	err       error
}

func (f *fakeGateway) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeGateway) GetMovies(ctx context.Context, userID int64) ([]model.Movie, error) {
	f.record("GetMovies")
	return f.movies, f.err
}

func (f *fakeGateway) AddMovie(ctx context.Context, movie *model.Movie) (*model.Movie, error) {
	f.record("AddMovie")
	if f.err != nil {
		return nil, f.err
	}
	result := *movie
	result.ID = int64(len(f.movies) + 100)
	return &result, nil
}

func (f *fakeGateway) UpdateMovie(ctx context.Context, id int64, update *model.MovieUpdate) (*model.Movie, error) {
	f.record("UpdateMovie")
	if f.err != nil {
		return nil, f.err
	}
	result := model.Movie{ID: id}
	if update.Title != nil {
		result.Title = *update.Title
	}
	return &result, nil
}

func (f *fakeGateway) DeleteMovie(ctx context.Context, id int64) error {
	f.record("DeleteMovie")
	return f.err
}

func (f *fakeGateway) ToggleSaved(ctx context.Context, userID, movieID int64, isSaved bool) error {
	f.record("ToggleSaved")
	return f.err
}

func (f *fakeGateway) Login(ctx context.Context, username, password string) (*model.User, error) {
	f.record("Login")
	if f.err != nil {
		return nil, f.err
	}
	return f.loginUser, nil
}

func (f *fakeGateway) GetUsers(ctx context.Context) ([]model.User, error) {
	f.record("GetUsers")
	return f.users, f.err
}

func (f *fakeGateway) AddUser(ctx context.Context, username, password, role string) (*model.User, error) {
	f.record("AddUser")
	if f.err != nil {
		return nil, f.err
	}
	return &model.User{ID: 42, Username: username, Role: role}, nil
}

func (f *fakeGateway) DeleteUser(ctx context.Context, username string) error {
	f.record("DeleteUser")
	return f.err
}

func seedMovies() []model.Movie {
	return []model.Movie{
		{ID: 1, Title: "Матрица", Genre: []string{"Фантастика"}, Description: "d"},
		{ID: 2, Title: "Начало", Genre: []string{"Триллер"}, Description: "d"},
	}
}

func TestVisibleFollowsSelections(t *testing.T) {
	c := New(&fakeGateway{}, seedMovies())

	if got := len(c.Visible()); got != 2 {
		t.Fatalf("Visible() = %d movies, want 2", got)
	}

	c.SetSearch("матр")
	if got := c.Visible(); len(got) != 1 || got[0].ID != 1 {
		t.Errorf("Visible() after SetSearch = %v", got)
	}

	c.SetSearch("")
	c.SetGenre("Триллер")
	if got := c.Visible(); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("Visible() after SetGenre = %v", got)
	}

	c.SetGenre(catalog.AllGenres)
	c.SetTab(catalog.TabSaved)
	if got := len(c.Visible()); got != 0 {
		t.Errorf("Visible() on saved tab = %d movies, want 0", got)
	}
}

func TestToggleSavedLocalOnly(t *testing.T) {
	gw := &fakeGateway{}
	c := New(gw, seedMovies())

	if err := c.ToggleSaved(context.Background(), 1); err != nil {
		t.Fatalf("ToggleSaved: %v", err)
	}
	if !c.Movies()[0].IsSaved {
		t.Errorf("movie 1 not saved after toggle")
	}
	if len(gw.calls) != 0 {
		t.Errorf("gateway called without a logged-in user: %v", gw.calls)
	}

	// toggling twice restores the original state
	if err := c.ToggleSaved(context.Background(), 1); err != nil {
		t.Fatalf("ToggleSaved: %v", err)
	}
	if c.Movies()[0].IsSaved {
		t.Errorf("movie 1 still saved after double toggle")
	}
}

func TestToggleSavedPersistsForUser(t *testing.T) {
	gw := &fakeGateway{loginUser: &model.User{ID: 7, Username: "alice"}}
	c := New(gw, seedMovies())

	if err := c.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := c.ToggleSaved(context.Background(), 2); err != nil {
		t.Fatalf("ToggleSaved: %v", err)
	}
	if want := []string{"Login", "ToggleSaved"}; len(gw.calls) != 2 || gw.calls[1] != "ToggleSaved" {
		t.Errorf("gateway calls = %v, want %v", gw.calls, want)
	}
}

func TestToggleSavedRollsBackOnError(t *testing.T) {
	gw := &fakeGateway{loginUser: &model.User{ID: 7, Username: "alice"}}
	c := New(gw, seedMovies())
	if err := c.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	gw.err = errors.New("boom")
	if err := c.ToggleSaved(context.Background(), 1); err == nil {
		t.Fatalf("ToggleSaved: want error")
	}
	if c.Movies()[0].IsSaved {
		t.Errorf("optimistic toggle not rolled back after gateway error")
	}
}

func TestToggleSavedUnknownMovie(t *testing.T) {
	c := New(&fakeGateway{}, seedMovies())
	if err := c.ToggleSaved(context.Background(), 99); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("ToggleSaved(99) = %v, want ErrNotFound", err)
	}
}

func TestAddMovieValidation(t *testing.T) {
	tests := []struct {
		name  string
		draft MovieDraft
	}{
		{"empty title", MovieDraft{Description: "d"}},
		{"empty description", MovieDraft{Title: "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			c := New(gw, seedMovies())

			err := c.AddMovie(context.Background(), tt.draft)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("AddMovie() = %v, want ErrValidation", err)
			}
			if len(gw.calls) != 0 {
				t.Errorf("gateway called on validation failure: %v", gw.calls)
			}
			if len(c.Movies()) != 2 {
				t.Errorf("collection changed on validation failure")
			}
		})
	}
}

func TestAddMovieAppendsServerRecord(t *testing.T) {
	gw := &fakeGateway{}
	c := New(gw, seedMovies())

	draft := MovieDraft{Title: "Матрица 2", Description: "d", Genre: []string{"Фантастика"}}
	if err := c.AddMovie(context.Background(), draft); err != nil {
		t.Fatalf("AddMovie: %v", err)
	}
	movies := c.Movies()
	if len(movies) != 3 {
		t.Fatalf("collection has %d movies, want 3", len(movies))
	}
	if movies[2].ID == 0 {
		t.Errorf("appended movie has no server-assigned id")
	}
}

func TestSubmitMovieDraftClearsDraft(t *testing.T) {
	gw := &fakeGateway{}
	c := New(gw, seedMovies())

	c.SetMovieDraft(MovieDraft{Title: "t", Description: "d"})
	if err := c.SubmitMovieDraft(context.Background()); err != nil {
		t.Fatalf("SubmitMovieDraft: %v", err)
	}
	// a second submit sees the cleared draft and must fail validation
	if err := c.SubmitMovieDraft(context.Background()); !errors.Is(err, ErrValidation) {
		t.Errorf("SubmitMovieDraft after clear = %v, want ErrValidation", err)
	}
}

func TestUpdateMoviePreservesSavedFlag(t *testing.T) {
	gw := &fakeGateway{}
	c := New(gw, seedMovies())
	if err := c.ToggleSaved(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	title := "Матрица: Перезагрузка"
	if err := c.UpdateMovie(context.Background(), 1, &model.MovieUpdate{Title: &title}); err != nil {
		t.Fatalf("UpdateMovie: %v", err)
	}
	m := c.Movies()[0]
	if m.Title != title {
		t.Errorf("title = %q, want %q", m.Title, title)
	}
	if !m.IsSaved {
		t.Errorf("local bookmark flag lost on update")
	}
}

func TestUpdateMovieClearsEditingSlot(t *testing.T) {
	c := New(&fakeGateway{}, seedMovies())
	if err := c.StartEditing(1); err != nil {
		t.Fatal(err)
	}

	title := "t"
	if err := c.UpdateMovie(context.Background(), 1, &model.MovieUpdate{Title: &title}); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Editing(); ok {
		t.Errorf("editing slot not cleared after update")
	}
}

func TestDeleteMovieRemovesEntry(t *testing.T) {
	c := New(&fakeGateway{}, seedMovies())
	if err := c.DeleteMovie(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	movies := c.Movies()
	if len(movies) != 1 || movies[0].ID != 2 {
		t.Errorf("Movies() after delete = %v", movies)
	}
}

func TestDeleteUserRefusesAdminLocally(t *testing.T) {
	gw := &fakeGateway{}
	c := New(gw, nil)
	c.users = []model.User{
		{ID: 1, Username: "admin", Role: model.RoleAdmin},
		{ID: 2, Username: "bob", Role: model.RoleUser},
	}

	err := c.DeleteUser(context.Background(), "admin")
	if !errors.Is(err, model.ErrAdminUndeletable) {
		t.Fatalf("DeleteUser(admin) = %v, want ErrAdminUndeletable", err)
	}
	if len(gw.calls) != 0 {
		t.Errorf("gateway called for an admin delete: %v", gw.calls)
	}

	if err := c.DeleteUser(context.Background(), "bob"); err != nil {
		t.Fatalf("DeleteUser(bob): %v", err)
	}
	if users := c.Users(); len(users) != 1 || users[0].Username != "admin" {
		t.Errorf("Users() after delete = %v", users)
	}
}

func TestAddUserValidation(t *testing.T) {
	gw := &fakeGateway{}
	c := New(gw, nil)

	if err := c.AddUser(context.Background(), UserDraft{Password: "p"}); !errors.Is(err, ErrValidation) {
		t.Errorf("AddUser without username = %v, want ErrValidation", err)
	}
	if err := c.AddUser(context.Background(), UserDraft{Username: "u"}); !errors.Is(err, ErrValidation) {
		t.Errorf("AddUser without password = %v, want ErrValidation", err)
	}
	if len(gw.calls) != 0 {
		t.Errorf("gateway called on validation failure: %v", gw.calls)
	}
}

func TestLoginSetsCurrentUser(t *testing.T) {
	gw := &fakeGateway{loginUser: &model.User{ID: 7, Username: "alice"}}
	c := New(gw, nil)

	if err := c.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatal(err)
	}
	if u := c.CurrentUser(); u == nil || u.Username != "alice" {
		t.Errorf("CurrentUser() = %v", u)
	}

	c.Logout()
	if c.CurrentUser() != nil {
		t.Errorf("CurrentUser() not nil after logout")
	}
}

func TestLoginErrorPassedThrough(t *testing.T) {
	gw := &fakeGateway{err: errors.New("Invalid credentials")}
	c := New(gw, nil)

	err := c.Login(context.Background(), "alice", "wrong")
	if err == nil || err.Error() != "Invalid credentials" {
		t.Errorf("Login error = %v, want the gateway message verbatim", err)
	}
	if c.CurrentUser() != nil {
		t.Errorf("CurrentUser() set after failed login")
	}
}

func TestLoadMoviesReplacesCollection(t *testing.T) {
	gw := &fakeGateway{movies: []model.Movie{{ID: 10, Title: "t", Description: "d"}}}
	c := New(gw, seedMovies())

	if err := c.LoadMovies(context.Background()); err != nil {
		t.Fatal(err)
	}
	movies := c.Movies()
	if len(movies) != 1 || movies[0].ID != 10 {
		t.Errorf("Movies() after load = %v", movies)
	}
}

// slowGateway hands each in-flight refresh to the test, which decides when
// and with what data the call returns.
type slowGateway struct {
	fakeGateway
	movieCalls chan chan []model.Movie
	userCalls  chan chan []model.User
}

func newSlowGateway() *slowGateway {
	return &slowGateway{
		movieCalls: make(chan chan []model.Movie, 2),
		userCalls:  make(chan chan []model.User, 2),
	}
}

func (g *slowGateway) GetMovies(ctx context.Context, userID int64) ([]model.Movie, error) {
	reply := make(chan []model.Movie)
	g.movieCalls <- reply
	return <-reply, nil
}

func (g *slowGateway) GetUsers(ctx context.Context) ([]model.User, error) {
	reply := make(chan []model.User)
	g.userCalls <- reply
	return <-reply, nil
}

func TestLoadMoviesNewestRefreshWins(t *testing.T) {
	gw := newSlowGateway()
	c := New(gw, nil)
	ctx := context.Background()

	done := make(chan error, 2)
	go func() { done <- c.LoadMovies(ctx) }()
	stale := <-gw.movieCalls
	go func() { done <- c.LoadMovies(ctx) }()
	fresh := <-gw.movieCalls

	// the newer refresh returns first and lands
	fresh <- []model.Movie{{ID: 2, Title: "fresh", Description: "d"}}
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	// the older one straggles in afterwards and must be dropped
	stale <- []model.Movie{{ID: 1, Title: "stale", Description: "d"}}
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	movies := c.Movies()
	if len(movies) != 1 || movies[0].ID != 2 {
		t.Errorf("Movies() = %v, want the newer refresh's data", movies)
	}
}

func TestLoadUsersNewestRefreshWins(t *testing.T) {
	gw := newSlowGateway()
	c := New(gw, nil)
	ctx := context.Background()

	done := make(chan error, 2)
	go func() { done <- c.LoadUsers(ctx) }()
	stale := <-gw.userCalls
	go func() { done <- c.LoadUsers(ctx) }()
	fresh := <-gw.userCalls

	fresh <- []model.User{{ID: 2, Username: "fresh"}}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	stale <- []model.User{{ID: 1, Username: "stale"}}
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	users := c.Users()
	if len(users) != 1 || users[0].Username != "fresh" {
		t.Errorf("Users() = %v, want the newer refresh's data", users)
	}
}
