package model

import (
	"errors"
	"time"
)

var (
	ErrNoConfiguration  = errors.New("database filename not set")
	ErrNoDbHandle       = errors.New("db connection not available")
	ErrNotFound         = errors.New("not found")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrUserExists       = errors.New("user already exists")
	ErrAdminUndeletable = errors.New("admin accounts cannot be deleted")
)

// Movie represents a movie in the catalog.
type Movie struct {
	// ID is the unique identifier, assigned by the database.
	ID int64
	// Title of the movie.
	Title string
	// Year of release.
	Year int
	// Genre tags, ordered, may be empty.
	Genre []string
	// Rating on a 0-10 scale.
	Rating float64
	// Votes is the vote count, server-maintained.
	Votes int
	// Description is the plot summary.
	Description string
	// ImageURL points at the poster image.
	ImageURL string
	// VideoURL points at the trailer or stream, optional.
	VideoURL string
	// Hashtags, optional.
	Hashtags []string
	// Created is the time the movie was added.
	Created time.Time
	// IsSaved tells whether the requesting user bookmarked this movie.
	// View field, computed per user, never stored on the movie row.
	IsSaved bool
}

// MovieUpdate carries a partial movie update. Nil fields are left unchanged.
type MovieUpdate struct {
	Title       *string
	Year        *int
	Genre       *[]string
	Rating      *float64
	Description *string
	ImageURL    *string
	VideoURL    *string
	Hashtags    *[]string
}

// User represents a user account.
type User struct {
	// ID is the unique identifier for the user.
	ID int64
	// Username is the unique login name.
	Username string
	// Password is the bcrypt hash of the user's password.
	Password string
	// Role is either "user" or "admin".
	Role string
	// Created is the time the account was created.
	Created time.Time
	// LastLogin is the last time the user logged in.
	LastLogin time.Time
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AccessToken represents an access token issued at login.
type AccessToken struct {
	// UserID is the ID of the user the token belongs to.
	UserID int64
	// Token is the access token string.
	Token string
	// Created is the time the token was issued.
	Created time.Time
	// LastUsed is the last time the token was presented.
	LastUsed time.Time
}
