package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"vinylbook/internal/auth"
	"vinylbook/internal/database"
	"vinylbook/internal/models"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "username, password and phone are required")
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !models.ValidRole(role) {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeInternalError(w, "Error registering user", err)
		return
	}

	user := &models.User{
		Username: req.Username,
		Password: hash,
		FullName: req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Role:     role,
	}
	if err := s.db.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, duplicateUserMessage(err))
			return
		}
		writeInternalError(w, "Error registering user", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"userId":  user.ID,
	})
}

// duplicateUserMessage names the field behind a user uniqueness error.
func duplicateUserMessage(err error) string {
	if errors.Is(err, database.ErrDuplicatePhone) {
		return "Phone already in use"
	}
	return "Username already exists"
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// A missing user and a wrong password produce the same answer so the
	// endpoint cannot be used to enumerate accounts.
	user, err := s.db.GetUserByPhone(r.Context(), req.Phone)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid phone or password")
			return
		}
		writeInternalError(w, "Error logging in", err)
		return
	}
	if !auth.CheckPassword(req.Password, user.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid phone or password")
		return
	}

	token, err := auth.GenerateToken(s.cfg.Auth.JWTSecret, user.ID, user.Phone, user.Role, s.tokenTTL())
	if err != nil {
		writeInternalError(w, "Error logging in", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   token,
		"user":    user.Summary(),
	})
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())

	user, err := s.db.GetUserByID(r.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeInternalError(w, "Error fetching profile", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
