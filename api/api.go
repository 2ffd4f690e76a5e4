// Package api implements the action-dispatch HTTP endpoint: a single /api
// route dispatching on the "action" query parameter, mirroring the wire
// contract of the original cloud function.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/exfatt/films-server/catalog/search"
	"github.com/exfatt/films-server/database"
	"github.com/exfatt/films-server/postercache"
)

type Options struct {
	Repo    database.Repository
	Search  *search.Index
	Posters *postercache.Cache
}

type API struct {
	repo    database.Repository
	search  *search.Index
	posters *postercache.Cache
}

func New(o *Options) *API {
	return &API{
		repo:    o.Repo,
		search:  o.Search,
		posters: o.Posters,
	}
}

func (a *API) RegisterHandlers(r *mux.Router) {
	gzip := handlers.CompressHandler

	r.Handle("/api", gzip(http.HandlerFunc(a.actionHandler)))
}

// actionHandler dispatches on the "action" query parameter.
func (a *API) actionHandler(w http.ResponseWriter, r *http.Request) {
	setheaders(w.Header())
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	action := r.URL.Query().Get("action")

	switch {
	case action == "getMovies" && r.Method == http.MethodGet:
		a.getMoviesHandler(w, r)
	case action == "searchMovies" && r.Method == http.MethodGet:
		a.searchMoviesHandler(w, r)
	case action == "poster" && r.Method == http.MethodGet:
		a.posterHandler(w, r)
	case action == "addMovie" && r.Method == http.MethodPost:
		a.addMovieHandler(w, r)
	case action == "updateMovie" && r.Method == http.MethodPost:
		a.updateMovieHandler(w, r)
	case action == "deleteMovie" && r.Method == http.MethodPost:
		a.deleteMovieHandler(w, r)
	case action == "toggleSaved" && r.Method == http.MethodPost:
		a.toggleSavedHandler(w, r)
	case action == "login" && r.Method == http.MethodPost:
		a.loginHandler(w, r)
	case action == "getUsers" && r.Method == http.MethodGet:
		a.getUsersHandler(w, r)
	case action == "addUser" && r.Method == http.MethodPost:
		a.addUserHandler(w, r)
	case action == "deleteUser" && r.Method == http.MethodPost:
		a.deleteUserHandler(w, r)
	default:
		apierror(w, "Not found", http.StatusNotFound)
	}
}

func setheaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, X-Api-Token")
}

func serveJSON(obj any, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	j := json.NewEncoder(w)
	j.SetIndent("", "  ")
	j.Encode(obj)
}

// serveJSONStatus is serveJSON with a non-200 status code.
func serveJSONStatus(obj any, w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	j := json.NewEncoder(w)
	j.SetIndent("", "  ")
	j.Encode(obj)
}

// apierror writes the error body the original wire format uses.
func apierror(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
