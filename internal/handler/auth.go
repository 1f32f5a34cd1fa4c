package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aryan0dhankhar/aptlease/internal/service"
)

// AccountHandler serves registration, login, logout and admin account management
type AccountHandler struct {
	accounts *service.AccountService
	identity *service.IdentityService
	logger   *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts *service.AccountService, identity *service.IdentityService, logger *slog.Logger) *AccountHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountHandler{accounts: accounts, identity: identity, logger: logger}
}

// RegisterRequest is the tenant self-registration body
type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"fullName"`
	Gender       string `json:"gender"`
	DateOfBirth  string `json:"dob"` // dd/mm/yyyy
	PhoneNumber  string `json:"phoneNumber"`
	IDCardNumber string `json:"idCardNumber"`
}

// LoginRequest is the login body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUserRequest is the admin body for creating a manager account
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Warn("failed to decode register request", slog.String("error", err.Error()))
		writeError(w, h.logger, err, nil)
		return
	}

	profile, err := h.accounts.RegisterTenant(r.Context(), service.TenantRegistration{
		Email:              req.Email,
		Password:           req.Password,
		FullName:           req.FullName,
		Gender:             req.Gender,
		DateOfBirth:        req.DateOfBirth,
		PhoneNumber:        req.PhoneNumber,
		IdentityCardNumber: req.IDCardNumber,
	})
	if err != nil {
		h.logger.Info("registration failed", slog.String("error", err.Error()))
		writeError(w, h.logger, err, nil)
		return
	}

	writeSuccess(w, http.StatusCreated, "registration successful", envelope{
		"user": envelope{"uid": profile.UserID, "profile": profile},
	})
}

// Login handles POST /api/auth/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err, nil)
		return
	}

	result, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err, nil)
		return
	}

	writeSuccess(w, http.StatusOK, "login successful", envelope{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt.Format(time.RFC3339),
		"user": envelope{
			"uid":     result.Identity.ID,
			"email":   result.Identity.Email,
			"role":    result.Identity.Role,
			"profile": result.Profile,
		},
	})
}

// Logout handles POST /api/auth/logout by revoking the presented token
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.identity.RevokeToken(r.Context(), principal(r)); err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "logged out", nil)
}

// CreateUser handles POST /api/user
func (h *AccountHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err, nil)
		return
	}

	manager, err := h.accounts.CreateManager(r.Context(), principal(r), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusCreated, "user created", envelope{"userId": manager.UserID})
}

// DeleteUser handles DELETE /api/user/{uid}
func (h *AccountHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	if err := h.accounts.DeleteAccount(r.Context(), principal(r), uid); err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "user deleted", envelope{"userId": uid})
}
