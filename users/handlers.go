// Package users, HTTP layer. Translates requests into service calls and
// service results into JSON responses.
//
// Per request the flow is: extract and validate parameters (a bad typed
// parameter stops everything with a 400 before any query exists), build
// predicates, execute, encode. Store failures come back as a generic 500
// body; the connection the request held is released by the service on every
// one of those paths.
package users

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/userdir-go/apperror"
	"github.com/user/userdir-go/auth"
)

// UserHandlers provides the HTTP handlers of the user directory.
type UserHandlers struct {
	service *UserService
}

// NewUserHandlers creates new UserHandlers.
func NewUserHandlers(service *UserService) *UserHandlers {
	return &UserHandlers{service: service}
}

// RegisterRoutes wires the directory routes onto a router, typically mounted
// at /users. The listing is public; the profile routes sit behind the given
// auth middleware.
func (h *UserHandlers) RegisterRoutes(router chi.Router, authMiddleware func(http.Handler) http.Handler) {
	router.Get("/", h.HandleListUsers())
	router.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/me", h.HandleGetProfile())
		r.Put("/me", h.HandleUpdateProfile())
	})
}

// HandleListUsers serves GET /users: the directory listing, optionally
// narrowed by the whitelisted query parameters (id, username/name, email,
// search/q). Responds 200 with a JSON array of {id, username, email}.
func (h *UserHandlers) HandleListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := ParseListFilters(r.URL.Query())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		result, err := h.service.ListUsers(r.Context(), filters)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(result)
	}
}

// HandleGetProfile serves GET /users/me for the authenticated user.
func (h *UserHandlers) HandleGetProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewUnauthorizedError("user ID not found in context", nil))
			return
		}

		profile, err := h.service.GetProfile(r.Context(), userID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(profile)
	}
}

// HandleUpdateProfile serves PUT /users/me for the authenticated user.
func (h *UserHandlers) HandleUpdateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewUnauthorizedError("user ID not found in context", nil))
			return
		}

		var req UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request payload", err))
			return
		}
		defer r.Body.Close()

		if req.Username == nil && req.Email == nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("no fields provided for update", nil))
			return
		}

		profile, err := h.service.UpdateProfile(r.Context(), userID, &req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(profile)
	}
}
