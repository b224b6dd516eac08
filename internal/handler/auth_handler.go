package handler

import (
	"encoding/json"
	"net/http"

	"nota/internal/domain"
	"nota/internal/middleware"
	"nota/internal/service"
	"nota/pkg/response"

	"github.com/go-playground/validator/v10"
)

type AuthHandler struct {
	authService *service.AuthService
	validate    *validator.Validate
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.authService.Register(r.Context(), &req); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, map[string]string{
		"message": "Registration successful. You can now log in.",
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	loginResp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		response.Unauthorized(w, "Invalid credentials.")
		return
	}

	response.Success(w, loginResp)
}

// Logout is a client-side concern with bearer tokens; the endpoint exists so
// clients have a uniform call surface.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{
		"message": "Logged out successfully",
	})
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess, err := h.authService.Session(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, sess)
}
