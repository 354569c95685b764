// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/merchant-admin/internal/platform/apperr"
	"github.com/taibuivan/merchant-admin/internal/platform/ctxutil"
	"github.com/taibuivan/merchant-admin/internal/platform/middleware"
	requestutil "github.com/taibuivan/merchant-admin/internal/platform/request"
	"github.com/taibuivan/merchant-admin/internal/platform/respond"
	"github.com/taibuivan/merchant-admin/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the /admin/v1/auth endpoints.
type Handler struct {
	authService  *Service
	authz        *middleware.Authz
	loginLimiter *middleware.RateLimiter
}

// NewHandler constructs a new [Handler]. loginLimiter may be nil to leave
// the login endpoint under the global limiter only.
func NewHandler(service *Service, authz *middleware.Authz, loginLimiter *middleware.RateLimiter) *Handler {
	return &Handler{authService: service, authz: authz, loginLimiter: loginLimiter}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /login           : Verifies credentials and returns a token.
//   - POST /refresh         : Exchanges the bearer token for a new one.
//   - POST /logout          : Revokes the bearer token.
//   - GET  /profile         : Returns the caller's account and privileges.
//   - POST /change-password : Replaces the caller's password.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Group(func(r chi.Router) {
		if handler.loginLimiter != nil {
			r.Use(handler.loginLimiter.Middleware)
		}
		r.Post("/login", handler.login)
	})
	router.Post("/refresh", handler.refresh)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(handler.authz.Authenticate)
		r.Post("/logout", handler.logout)
		r.Get("/profile", handler.profile)
		r.Post("/change-password", handler.changePassword)
	})

	return router
}

// # Request Payloads

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

/*
Login authenticates a console user.

POST /admin/v1/auth/login

Request:
  - Body: loginRequest (Login = username or email, Password)

Response:
  - 200: LoginResult: Token, expiry, user, roles and permissions
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 401: ErrUnauthorized: Invalid credentials
  - 403: ErrForbidden: Account disabled
  - 429: ErrRateLimited: Too many attempts from this address
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldLogin, input.Login).
		MaxLen(FieldLogin, input.Login, MaxLoginLength).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), LoginInput{
		Login:     input.Login,
		Password:  input.Password,
		IPAddress: middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
Refresh exchanges the presented token for a new one.

POST /admin/v1/auth/refresh

Description: The old token must be valid and not revoked. It is revoked once
the new token is issued, so each token can be refreshed at most once.

Request:
  - Header: Authorization: Bearer <token>

Response:
  - 200: Issued: New token and expiry
  - 401: ErrUnauthorized: Missing, invalid, expired or already used token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	token, ok := requestutil.BearerToken(request)
	if !ok {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	result, err := handler.authService.Refresh(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result.Issued)
}

/*
Logout revokes the bearer token of this request.

POST /admin/v1/auth/logout

Response:
  - 204: No Content
  - 401: ErrUnauthorized
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	token := ctxutil.GetBearerToken(request.Context())
	if err := handler.authService.Logout(request.Context(), identity, token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
Profile returns the caller's account.

GET /admin/v1/auth/profile

Response:
  - 200: Profile: User, roles and permissions
  - 401: ErrUnauthorized
  - 404: ErrNotFound: Account deleted since the token was issued
*/
func (handler *Handler) profile(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.authService.Profile(request.Context(), identity.UserID())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

/*
ChangePassword replaces the caller's password.

POST /admin/v1/auth/change-password

Request:
  - Body: changePasswordRequest (OldPassword, NewPassword)

Response:
  - 200: Confirmation message
  - 400: ErrValidation: Bad input or wrong old password
  - 401: ErrUnauthorized
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldOldPassword, input.OldPassword).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, MinPasswordLength).
		MaxBytes(FieldNewPassword, input.NewPassword, MaxPasswordLength).
		Differs(FieldNewPassword, input.NewPassword, input.OldPassword, "Must differ from the current password")

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ChangePassword(request.Context(), identity.UserID(), input.OldPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OKMessage(writer, nil, "Password changed")
}
