package api

import "github.com/exfatt/films-server/database/model"

// placeholderPoster is served when a movie has no image of its own.
const placeholderPoster = "https://images.unsplash.com/photo-1489599849927-2ee91cede3ba?w=500"

// Responses use snake_case field names, requests camelCase. Both sides match
// the original endpoint so existing front-ends keep working unchanged.

type Movie struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Year        int      `json:"year"`
	Genre       []string `json:"genre"`
	Rating      float64  `json:"rating"`
	Votes       int      `json:"votes"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	VideoURL    string   `json:"video_url,omitempty"`
	Hashtags    []string `json:"hashtags,omitempty"`
	IsSaved     bool     `json:"is_saved"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Created  string `json:"created_at,omitempty"`
}

type loginResponse struct {
	User
	Token string `json:"token"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type addMovieRequest struct {
	Title       string   `json:"title"`
	Year        int      `json:"year"`
	Genre       []string `json:"genre"`
	Rating      float64  `json:"rating"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl"`
	VideoURL    string   `json:"videoUrl"`
	Hashtags    []string `json:"hashtags"`
}

// updateMovieRequest carries a partial update; absent fields stay untouched.
type updateMovieRequest struct {
	ID          int64     `json:"id"`
	Title       *string   `json:"title"`
	Year        *int      `json:"year"`
	Genre       *[]string `json:"genre"`
	Rating      *float64  `json:"rating"`
	Description *string   `json:"description"`
	ImageURL    *string   `json:"imageUrl"`
	VideoURL    *string   `json:"videoUrl"`
	Hashtags    *[]string `json:"hashtags"`
}

type deleteMovieRequest struct {
	ID int64 `json:"id"`
}

type toggleSavedRequest struct {
	UserID  int64 `json:"userId"`
	MovieID int64 `json:"movieId"`
	IsSaved bool  `json:"isSaved"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type addUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type deleteUserRequest struct {
	Username string `json:"username"`
}

func copyMovie(m *model.Movie) Movie {
	cm := Movie{
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
	if cm.Genre == nil {
		cm.Genre = []string{}
	}
	if cm.ImageURL == "" {
		cm.ImageURL = placeholderPoster
	}
	return cm
}

func copyMovies(movies []model.Movie) []Movie {
	result := make([]Movie, len(movies))
	for i := range movies {
		result[i] = copyMovie(&movies[i])
	}
	return result
}

func copyUser(u *model.User) User {
	cu := User{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
	}
	if !u.Created.IsZero() {
		cu.Created = u.Created.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return cu
}
