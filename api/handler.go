package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/exfatt/films-server/database/model"
)

// GET /api?action=getMovies[&userId=N]
//
// getMoviesHandler returns all movies, newest first. With userId the
// is_saved field reflects that user's bookmarks.
func (a *API) getMoviesHandler(w http.ResponseWriter, r *http.Request) {
	movies, err := a.repo.GetMovies(r.Context())
	if err != nil {
		apierror(w, "Failed to fetch movies", http.StatusInternalServerError)
		return
	}

	a.annotateSaved(r, movies)
	serveJSON(copyMovies(movies), w)
}

// annotateSaved fills the per-user is_saved view field when the request
// carries a userId parameter.
func (a *API) annotateSaved(r *http.Request, movies []model.Movie) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil || userID <= 0 {
		return
	}
	savedIDs, err := a.repo.GetSavedMovieIDs(r.Context(), userID)
	if err != nil {
		return
	}
	saved := make(map[int64]bool, len(savedIDs))
	for _, id := range savedIDs {
		saved[id] = true
	}
	for i := range movies {
		movies[i].IsSaved = saved[movies[i].ID]
	}
}

// GET /api?action=searchMovies&q=...
//
// searchMoviesHandler returns movies matching a fuzzy query, best first.
func (a *API) searchMoviesHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := a.search.Search(r.Context(), r.URL.Query().Get("q"), 50)
	if err != nil {
		apierror(w, "Search failed", http.StatusInternalServerError)
		return
	}

	var movies []model.Movie
	for _, id := range ids {
		movie, err := a.repo.GetMovie(r.Context(), id)
		if err != nil {
			// index can briefly run ahead of the database, skip
			continue
		}
		movies = append(movies, *movie)
	}

	a.annotateSaved(r, movies)
	serveJSON(copyMovies(movies), w)
}

// GET /api?action=poster&id=N[&w=&h=&q=]
//
// posterHandler serves the movie's poster through the resize cache.
func (a *API) posterHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		apierror(w, "Invalid movie id", http.StatusBadRequest)
		return
	}
	movie, err := a.repo.GetMovie(r.Context(), id)
	if err != nil {
		apierror(w, "Not found", http.StatusNotFound)
		return
	}
	url := movie.ImageURL
	if url == "" {
		url = placeholderPoster
	}
	a.posters.Serve(w, r, url)
}

// POST /api?action=addMovie
func (a *API) addMovieHandler(w http.ResponseWriter, r *http.Request) {
	if a.requireAdmin(w, r) == nil {
		return
	}

	var request addMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		apierror(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if request.Title == "" || request.Description == "" {
		apierror(w, "title and description are required", http.StatusBadRequest)
		return
	}

	movie, err := a.repo.InsertMovie(r.Context(), &model.Movie{
		Title:       request.Title,
		Year:        request.Year,
		Genre:       request.Genre,
		Rating:      request.Rating,
		Description: request.Description,
		ImageURL:    request.ImageURL,
		VideoURL:    request.VideoURL,
		Hashtags:    request.Hashtags,
	})
	if err != nil {
		apierror(w, "Failed to add movie", http.StatusInternalServerError)
		return
	}
	a.search.Add(r.Context(), movie)

	serveJSONStatus(copyMovie(movie), w, http.StatusCreated)
}

// POST /api?action=updateMovie
func (a *API) updateMovieHandler(w http.ResponseWriter, r *http.Request) {
	if a.requireAdmin(w, r) == nil {
		return
	}

	var request updateMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		apierror(w, "Invalid request", http.StatusBadRequest)
		return
	}

	movie, err := a.repo.UpdateMovie(r.Context(), request.ID, &model.MovieUpdate{
		Title:       request.Title,
		Year:        request.Year,
		Genre:       request.Genre,
		Rating:      request.Rating,
		Description: request.Description,
		ImageURL:    request.ImageURL,
		VideoURL:    request.VideoURL,
		Hashtags:    request.Hashtags,
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			apierror(w, "Not found", http.StatusNotFound)
			return
		}
		apierror(w, "Failed to update movie", http.StatusInternalServerError)
		return
	}
	a.search.Add(r.Context(), movie)

	serveJSON(copyMovie(movie), w)
}

// POST /api?action=deleteMovie
func (a *API) deleteMovieHandler(w http.ResponseWriter, r *http.Request) {
	if a.requireAdmin(w, r) == nil {
		return
	}

	var request deleteMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		apierror(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := a.repo.DeleteMovie(r.Context(), request.ID); err != nil {
		apierror(w, "Failed to delete movie", http.StatusInternalServerError)
		return
	}
	a.search.Delete(r.Context(), request.ID)

	serveJSON(successResponse{Success: true}, w)
}

// POST /api?action=toggleSaved
//
// toggleSavedHandler bookmarks or unbookmarks a movie for the acting user.
func (a *API) toggleSavedHandler(w http.ResponseWriter, r *http.Request) {
	user := a.requireUser(w, r)
	if user == nil {
		return
	}

	var request toggleSavedRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		apierror(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if request.UserID != user.ID && user.Role != model.RoleAdmin {
		apierror(w, "userId does not match access token", http.StatusForbidden)
		return
	}

	if err := a.repo.SetSaved(r.Context(), request.UserID, request.MovieID, request.IsSaved); err != nil {
		apierror(w, "Failed to toggle saved", http.StatusInternalServerError)
		return
	}
	serveJSON(successResponse{Success: true}, w)
}

// POST /api?action=login
//
// loginHandler verifies credentials and issues an access token.
func (a *API) loginHandler(w http.ResponseWriter, r *http.Request) {
	var request loginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		apierror(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if request.Username == "" || request.Password == "" {
		apierror(w, "username and password required", http.StatusBadRequest)
		return
	}

	user, err := a.repo.ValidateUser(r.Context(), request.Username, request.Password)
	if err != nil {
		apierror(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := a.repo.CreateAccessToken(r.Context(), user.ID)
	if err != nil {
		apierror(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	serveJSON(loginResponse{User: copyUser(user), Token: token}, w)
}

// GET /api?action=getUsers
func (a *API) getUsersHandler(w http.ResponseWriter, r *http.Request) {
	if a.requireAdmin(w, r) == nil {
		return
	}

	users, err := a.repo.GetUsers(r.Context())
	if err != nil {
		apierror(w, "Failed to fetch users", http.StatusInternalServerError)
		return
	}

	response := make([]User, len(users))
	for i := range users {
		response[i] = copyUser(&users[i])
	}
	serveJSON(response, w)
}

// POST /api?action=addUser
func (a *API) addUserHandler(w http.ResponseWriter, r *http.Request) {
	if a.requireAdmin(w, r) == nil {
		return
	}

	var request addUserRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		apierror(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if request.Username == "" || request.Password == "" {
		apierror(w, "username and password are required", http.StatusBadRequest)
		return
	}

	user, err := a.repo.InsertUser(r.Context(), request.Username, request.Password, request.Role)
	if err != nil {
		if errors.Is(err, model.ErrUserExists) {
			apierror(w, "User already exists", http.StatusConflict)
			return
		}
		apierror(w, "Failed to add user", http.StatusInternalServerError)
		return
	}

	serveJSONStatus(copyUser(user), w, http.StatusCreated)
}

// POST /api?action=deleteUser
func (a *API) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	if a.requireAdmin(w, r) == nil {
		return
	}

	var request deleteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		apierror(w, "Invalid request", http.StatusBadRequest)
		return
	}

	err := a.repo.DeleteUser(r.Context(), request.Username)
	switch {
	case errors.Is(err, model.ErrAdminUndeletable):
		apierror(w, "Admin accounts cannot be deleted", http.StatusConflict)
	case errors.Is(err, model.ErrNotFound):
		apierror(w, "Not found", http.StatusNotFound)
	case err != nil:
		apierror(w, "Failed to delete user", http.StatusInternalServerError)
	default:
		serveJSON(successResponse{Success: true}, w)
	}
}
