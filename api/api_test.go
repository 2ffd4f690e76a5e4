package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/exfatt/films-server/catalog/search"
	"github.com/exfatt/films-server/database"
	"github.com/exfatt/films-server/database/model"
)

type testEnv struct {
	srv  *httptest.Server
	repo database.Repository
}

// newTestEnv spins up the action endpoint backed by a fresh sqlite database
// with one admin, one regular user and two movies.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := database.New(&database.Options{
		Filename: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}

	ctx := context.Background()
	if _, err := repo.InsertUser(ctx, "admin", "adminpw", model.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.InsertUser(ctx, "alice", "alicepw", model.RoleUser); err != nil {
		t.Fatal(err)
	}
	for _, m := range []model.Movie{
		{Title: "Матрица", Year: 1999, Genre: []string{"Фантастика"}, Rating: 8.7, Description: "d"},
		{Title: "Начало", Year: 2010, Genre: []string{"Триллер"}, Rating: 8.8, Description: "d"},
	} {
		if _, err := repo.InsertMovie(ctx, &m); err != nil {
			t.Fatal(err)
		}
	}

	idx, err := search.New()
	if err != nil {
		t.Fatalf("search.New: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	movies, err := repo.GetMovies(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.AddBatch(ctx, movies); err != nil {
		t.Fatal(err)
	}

	a := New(&Options{Repo: repo, Search: idx})
	r := mux.NewRouter()
	a.RegisterHandlers(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, repo: repo}
}

// call runs one action round trip and decodes the response into out.
func (e *testEnv) call(t *testing.T, method, query, token, body string, out any) int {
	t.Helper()

	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+"/api?"+query, reqBody)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("X-Api-Token", token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

// login returns an access token for the given account.
func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	var response struct {
		Token string `json:"token"`
	}
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	if status := e.call(t, http.MethodPost, "action=login", "", body, &response); status != http.StatusOK {
		t.Fatalf("login %s: status %d", username, status)
	}
	if response.Token == "" {
		t.Fatalf("login %s: no token in response", username)
	}
	return response.Token
}

func TestUnknownAction(t *testing.T) {
	e := newTestEnv(t)
	var response map[string]string
	if status := e.call(t, http.MethodGet, "action=fly", "", "", &response); status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
	if response["error"] != "Not found" {
		t.Errorf("body = %v", response)
	}
}

func TestGetMovies(t *testing.T) {
	e := newTestEnv(t)
	var movies []Movie
	if status := e.call(t, http.MethodGet, "action=getMovies", "", "", &movies); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(movies) != 2 {
		t.Fatalf("got %d movies, want 2", len(movies))
	}
	// newest first
	if movies[0].Title != "Начало" || movies[1].Title != "Матрица" {
		t.Errorf("order = %q, %q", movies[0].Title, movies[1].Title)
	}
	for _, m := range movies {
		if m.ImageURL == "" {
			t.Errorf("movie %q has no image_url, placeholder expected", m.Title)
		}
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e := newTestEnv(t)

	var response map[string]string
	body := `{"username":"alice","password":"wrong"}`
	if status := e.call(t, http.MethodPost, "action=login", "", body, &response); status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", status)
	}
	if response["error"] != "Invalid credentials" {
		t.Errorf("error = %q", response["error"])
	}

	if status := e.call(t, http.MethodPost, "action=login", "", `{"username":"alice"}`, nil); status != http.StatusBadRequest {
		t.Errorf("empty password: status = %d, want 400", status)
	}
}

func TestMovieCRUDRequiresAdmin(t *testing.T) {
	e := newTestEnv(t)
	userToken := e.login(t, "alice", "alicepw")

	body := `{"title":"t","description":"d"}`
	if status := e.call(t, http.MethodPost, "action=addMovie", "", body, nil); status != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", status)
	}
	if status := e.call(t, http.MethodPost, "action=addMovie", userToken, body, nil); status != http.StatusForbidden {
		t.Errorf("user token: status = %d, want 403", status)
	}
}

func TestMovieCRUD(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin", "adminpw")

	var created Movie
	body := `{"title":"Интерстеллар","year":2014,"genre":["Фантастика","Драма"],"rating":8.6,
		"description":"d","imageUrl":"http://example.com/p.jpg"}`
	if status := e.call(t, http.MethodPost, "action=addMovie", token, body, &created); status != http.StatusCreated {
		t.Fatalf("addMovie: status = %d", status)
	}
	if created.ID == 0 || created.Title != "Интерстеллар" {
		t.Fatalf("created = %+v", created)
	}

	var updated Movie
	body = fmt.Sprintf(`{"id":%d,"rating":8.7}`, created.ID)
	if status := e.call(t, http.MethodPost, "action=updateMovie", token, body, &updated); status != http.StatusOK {
		t.Fatalf("updateMovie: status = %d", status)
	}
	if updated.Rating != 8.7 || updated.Title != "Интерстеллар" {
		t.Errorf("updated = %+v", updated)
	}

	var response map[string]any
	body = fmt.Sprintf(`{"id":%d}`, created.ID)
	if status := e.call(t, http.MethodPost, "action=deleteMovie", token, body, &response); status != http.StatusOK {
		t.Fatalf("deleteMovie: status = %d", status)
	}
	if response["success"] != true {
		t.Errorf("deleteMovie body = %v", response)
	}

	var movies []Movie
	e.call(t, http.MethodGet, "action=getMovies", "", "", &movies)
	if len(movies) != 2 {
		t.Errorf("got %d movies after delete, want 2", len(movies))
	}
}

func TestAddMovieValidation(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin", "adminpw")

	var response map[string]string
	if status := e.call(t, http.MethodPost, "action=addMovie", token, `{"title":"t"}`, &response); status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if response["error"] == "" {
		t.Errorf("validation error has no message")
	}
}

func TestUpdateMovieNotFound(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin", "adminpw")

	if status := e.call(t, http.MethodPost, "action=updateMovie", token, `{"id":999,"rating":1}`, nil); status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestSearchMovies(t *testing.T) {
	e := newTestEnv(t)

	var movies []Movie
	if status := e.call(t, http.MethodGet, "action=searchMovies&q=матрица", "", "", &movies); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(movies) == 0 || movies[0].Title != "Матрица" {
		t.Errorf("search result = %v", movies)
	}
}

func TestToggleSaved(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice", "alicepw")

	ctx := context.Background()
	alice, err := e.repo.GetUser(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	movies, err := e.repo.GetMovies(ctx)
	if err != nil {
		t.Fatal(err)
	}
	movieID := movies[0].ID

	body := fmt.Sprintf(`{"userId":%d,"movieId":%d,"isSaved":true}`, alice.ID, movieID)
	if status := e.call(t, http.MethodPost, "action=toggleSaved", token, body, nil); status != http.StatusOK {
		t.Fatalf("toggleSaved: status = %d", status)
	}

	var annotated []Movie
	query := fmt.Sprintf("action=getMovies&userId=%d", alice.ID)
	e.call(t, http.MethodGet, query, "", "", &annotated)
	saved := 0
	for _, m := range annotated {
		if m.IsSaved {
			saved++
			if m.ID != movieID {
				t.Errorf("wrong movie saved: %d", m.ID)
			}
		}
	}
	if saved != 1 {
		t.Errorf("%d movies saved, want 1", saved)
	}

	// without a userId parameter the flags stay false
	var plain []Movie
	e.call(t, http.MethodGet, "action=getMovies", "", "", &plain)
	for _, m := range plain {
		if m.IsSaved {
			t.Errorf("movie %d saved without a userId parameter", m.ID)
		}
	}
}

func TestToggleSavedRequiresMatchingUser(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice", "alicepw")

	if status := e.call(t, http.MethodPost, "action=toggleSaved", "", `{"userId":1,"movieId":1,"isSaved":true}`, nil); status != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", status)
	}

	var response map[string]string
	if status := e.call(t, http.MethodPost, "action=toggleSaved", token, `{"userId":999,"movieId":1,"isSaved":true}`, &response); status != http.StatusForbidden {
		t.Errorf("foreign userId: status = %d, want 403", status)
	}
}

func TestUserAdministration(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin", "adminpw")

	if status := e.call(t, http.MethodGet, "action=getUsers", "", "", nil); status != http.StatusUnauthorized {
		t.Errorf("getUsers without token: status = %d, want 401", status)
	}

	var users []User
	if status := e.call(t, http.MethodGet, "action=getUsers", token, "", &users); status != http.StatusOK {
		t.Fatalf("getUsers: status = %d", status)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}

	var created User
	body := `{"username":"bob","password":"bobpw","role":"user"}`
	if status := e.call(t, http.MethodPost, "action=addUser", token, body, &created); status != http.StatusCreated {
		t.Fatalf("addUser: status = %d", status)
	}
	if created.Username != "bob" || created.Role != model.RoleUser {
		t.Errorf("created = %+v", created)
	}

	var response map[string]string
	if status := e.call(t, http.MethodPost, "action=addUser", token, body, &response); status != http.StatusConflict {
		t.Errorf("duplicate addUser: status = %d, want 409", status)
	}
	if response["error"] != "User already exists" {
		t.Errorf("error = %q", response["error"])
	}

	if status := e.call(t, http.MethodPost, "action=deleteUser", token, `{"username":"bob"}`, nil); status != http.StatusOK {
		t.Errorf("deleteUser: status = %d", status)
	}
	if status := e.call(t, http.MethodPost, "action=deleteUser", token, `{"username":"bob"}`, nil); status != http.StatusNotFound {
		t.Errorf("deleteUser again: status = %d, want 404", status)
	}
}

func TestAdminAccountUndeletable(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin", "adminpw")

	var response map[string]string
	if status := e.call(t, http.MethodPost, "action=deleteUser", token, `{"username":"admin"}`, &response); status != http.StatusConflict {
		t.Errorf("status = %d, want 409", status)
	}
	if response["error"] != "Admin accounts cannot be deleted" {
		t.Errorf("error = %q", response["error"])
	}
}

func TestOptionsPreflight(t *testing.T) {
	e := newTestEnv(t)

	req, err := http.NewRequest(http.MethodOptions, e.srv.URL+"/api?action=getMovies", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
