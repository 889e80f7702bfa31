package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"taskflow/models"
	"taskflow/utils"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserID returns the authenticated user's id placed in the request context
// by RequireAuth.
func UserID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(userIDKey).(uuid.UUID)
	return id
}

// AuthHandler owns registration, login, and token verification.
type AuthHandler struct {
	Users   UserRepository
	Tokens  *utils.TokenManager
	Limiter Limiter
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register creates a user and returns a token so the client is signed in
// immediately.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := utils.ValidateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	inUse, err := h.Users.EmailInUse(r.Context(), req.Email)
	if err != nil {
		log.Println("error checking email:", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if inUse {
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		log.Println("error hashing password:", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := h.Users.Create(r.Context(), req.Email, strings.TrimSpace(req.Name), hash)
	if err != nil {
		log.Println("error adding user:", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := h.Tokens.Issue(user.ID)
	if err != nil {
		log.Println("error issuing token:", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// Login checks credentials and hands out a bearer token. The failure message
// never reveals whether the email or the password was wrong.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, utils.ErrUserNotFound) {
			log.Println("error looking up user:", err)
		}
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.Tokens.Issue(user.ID)
	if err != nil {
		log.Println("error issuing token:", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if h.Limiter != nil {
		h.Limiter.Reset(r.Context(), utils.GetIP(r))
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// Verify confirms the presented token still identifies a live user.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.GetByID(r.Context(), UserID(r))
	if err != nil {
		if errors.Is(err, utils.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		log.Println("error looking up user:", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]models.User{"user": user})
}

// RequireAuth rejects requests without a valid bearer token before any
// handler logic runs, and stores the caller's user id in the context.
func (h *AuthHandler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Token not provided")
			return
		}

		userID, err := h.Tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

func (h *AuthHandler) allow(w http.ResponseWriter, r *http.Request) bool {
	if h.Limiter == nil {
		return true
	}
	if !h.Limiter.Allow(r.Context(), utils.GetIP(r)) {
		writeError(w, http.StatusTooManyRequests, "Too many attempts, try again later")
		return false
	}
	return true
}
