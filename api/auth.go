package api

import (
	"net/http"

	"github.com/exfatt/films-server/database/model"
)

// authenticate resolves the access token on the request to its user.
// The token can be provided in the X-Api-Token header or, for clients that
// cannot set headers, the api_key query parameter.
func (a *API) authenticate(r *http.Request) (*model.User, error) {
	token := r.Header.Get("X-Api-Token")
	if token == "" {
		token = r.URL.Query().Get("api_key")
	}
	if token == "" {
		return nil, model.ErrNotFound
	}

	details, err := a.repo.GetAccessToken(r.Context(), token)
	if err != nil {
		return nil, err
	}
	return a.repo.GetUserByID(r.Context(), details.UserID)
}

// requireUser writes a 401 and returns nil when the request carries no valid token.
func (a *API) requireUser(w http.ResponseWriter, r *http.Request) *model.User {
	user, err := a.authenticate(r)
	if err != nil {
		apierror(w, "Authentication required", http.StatusUnauthorized)
		return nil
	}
	return user
}

// requireAdmin writes a 401/403 and returns nil unless the request carries a
// valid token of an admin account.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) *model.User {
	user, err := a.authenticate(r)
	if err != nil {
		apierror(w, "Authentication required", http.StatusUnauthorized)
		return nil
	}
	if user.Role != model.RoleAdmin {
		apierror(w, "Admin role required", http.StatusForbidden)
		return nil
	}
	return user
}
