// Package client is the typed gateway to the films action endpoint. Every
// call is a single synchronous round trip: no retries, no caching.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/exfatt/films-server/database/model"
)

// RequestError is returned for any non-2xx response. Message carries the
// server-provided error string verbatim when the body has one.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a gateway for the endpoint at baseURL (e.g. "https://host/api").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Token returns the access token received at login, if any.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken installs an access token for subsequent calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// do runs one action round trip. A nil body means no request body, a nil out
// discards the response body.
func (c *Client) do(ctx context.Context, method, action string, query url.Values, body, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("action", action)

	var reqBody *bytes.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(blob)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"?"+query.Encode(), reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("X-Api-Token", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reqerr := &RequestError{Status: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil {
			reqerr.Message = errBody.Error
		}
		return reqerr
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// wireMovie is the movie as it appears on the wire (snake_case responses).
type wireMovie struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Year        int      `json:"year"`
	Genre       []string `json:"genre"`
	Rating      float64  `json:"rating"`
	Votes       int      `json:"votes"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	VideoURL    string   `json:"video_url"`
	Hashtags    []string `json:"hashtags"`
	IsSaved     bool     `json:"is_saved"`
}

func (m *wireMovie) toModel() model.Movie {
	return model.Movie{
		ID:          m.ID,
		Title:       m.Title,
		Year:        m.Year,
		Genre:       m.Genre,
		Rating:      m.Rating,
		Votes:       m.Votes,
		Description: m.Description,
		ImageURL:    m.ImageURL,
		VideoURL:    m.VideoURL,
		Hashtags:    m.Hashtags,
		IsSaved:     m.IsSaved,
	}
}

type wireUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Token    string `json:"token"`
}

func (u *wireUser) toModel() model.User {
	return model.User{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
	}
}

// GetMovies fetches all movies. With a positive userID the is_saved flags
// reflect that user's bookmarks.
func (c *Client) GetMovies(ctx context.Context, userID int64) ([]model.Movie, error) {
	query := url.Values{}
	if userID > 0 {
		query.Set("userId", strconv.FormatInt(userID, 10))
	}
	var wire []wireMovie
	if err := c.do(ctx, http.MethodGet, "getMovies", query, nil, &wire); err != nil {
		return nil, err
	}
	movies := make([]model.Movie, len(wire))
	for i := range wire {
		movies[i] = wire[i].toModel()
	}
	return movies, nil
}

// SearchMovies fetches movies matching a fuzzy query, best first.
func (c *Client) SearchMovies(ctx context.Context, q string, userID int64) ([]model.Movie, error) {
	query := url.Values{}
	query.Set("q", q)
	if userID > 0 {
		query.Set("userId", strconv.FormatInt(userID, 10))
	}
	var wire []wireMovie
	if err := c.do(ctx, http.MethodGet, "searchMovies", query, nil, &wire); err != nil {
		return nil, err
	}
	movies := make([]model.Movie, len(wire))
	for i := range wire {
		movies[i] = wire[i].toModel()
	}
	return movies, nil
}

// AddMovie creates a movie. The returned movie carries the server-assigned
// id and vote count.
func (c *Client) AddMovie(ctx context.Context, movie *model.Movie) (*model.Movie, error) {
	body := map[string]any{
		"title":       movie.Title,
		"year":        movie.Year,
		"genre":       movie.Genre,
		"rating":      movie.Rating,
		"description": movie.Description,
		"imageUrl":    movie.ImageURL,
		"videoUrl":    movie.VideoURL,
		"hashtags":    movie.Hashtags,
	}
	var wire wireMovie
	if err := c.do(ctx, http.MethodPost, "addMovie", nil, body, &wire); err != nil {
		return nil, err
	}
	result := wire.toModel()
	return &result, nil
}

// UpdateMovie applies a partial update and returns the resulting movie.
func (c *Client) UpdateMovie(ctx context.Context, id int64, update *model.MovieUpdate) (*model.Movie, error) {
	body := map[string]any{"id": id}
	if update.Title != nil {
		body["title"] = *update.Title
	}
	if update.Year != nil {
		body["year"] = *update.Year
	}
	if update.Genre != nil {
		body["genre"] = *update.Genre
	}
	if update.Rating != nil {
		body["rating"] = *update.Rating
	}
	if update.Description != nil {
		body["description"] = *update.Description
	}
	if update.ImageURL != nil {
		body["imageUrl"] = *update.ImageURL
	}
	if update.VideoURL != nil {
		body["videoUrl"] = *update.VideoURL
	}
	if update.Hashtags != nil {
		body["hashtags"] = *update.Hashtags
	}
	var wire wireMovie
	if err := c.do(ctx, http.MethodPost, "updateMovie", nil, body, &wire); err != nil {
		return nil, err
	}
	result := wire.toModel()
	return &result, nil
}

// DeleteMovie removes a movie.
func (c *Client) DeleteMovie(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, "deleteMovie", nil, map[string]any{"id": id}, nil)
}

// ToggleSaved persists the bookmark state of a movie for a user.
func (c *Client) ToggleSaved(ctx context.Context, userID, movieID int64, isSaved bool) error {
	body := map[string]any{
		"userId":  userID,
		"movieId": movieID,
		"isSaved": isSaved,
	}
	return c.do(ctx, http.MethodPost, "toggleSaved", nil, body, nil)
}

// Login verifies credentials. On success the returned access token is stored
// on the client and sent with subsequent calls.
func (c *Client) Login(ctx context.Context, username, password string) (*model.User, error) {
	body := map[string]any{
		"username": username,
		"password": password,
	}
	var wire wireUser
	if err := c.do(ctx, http.MethodPost, "login", nil, body, &wire); err != nil {
		return nil, err
	}
	c.SetToken(wire.Token)
	user := wire.toModel()
	return &user, nil
}

// GetUsers fetches all user accounts.
func (c *Client) GetUsers(ctx context.Context) ([]model.User, error) {
	var wire []wireUser
	if err := c.do(ctx, http.MethodGet, "getUsers", nil, nil, &wire); err != nil {
		return nil, err
	}
	users := make([]model.User, len(wire))
	for i := range wire {
		users[i] = wire[i].toModel()
	}
	return users, nil
}

// AddUser creates a user account.
func (c *Client) AddUser(ctx context.Context, username, password, role string) (*model.User, error) {
	body := map[string]any{
		"username": username,
		"password": password,
		"role":     role,
	}
	var wire wireUser
	if err := c.do(ctx, http.MethodPost, "addUser", nil, body, &wire); err != nil {
		return nil, err
	}
	user := wire.toModel()
	return &user, nil
}

// DeleteUser removes a user account by username.
func (c *Client) DeleteUser(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodPost, "deleteUser", nil, map[string]any{"username": username}, nil)
}
