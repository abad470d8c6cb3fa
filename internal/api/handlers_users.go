package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vinylbook/internal/auth"
	"vinylbook/internal/database"
	"vinylbook/internal/models"
)

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	role := strings.TrimSpace(r.URL.Query().Get("role"))
	if role != "" && !models.ValidRole(role) {
		writeError(w, http.StatusBadRequest, "invalid role filter")
		return
	}

	users, err := s.db.ListUsers(r.Context(), role)
	if err != nil {
		writeInternalError(w, "Error fetching users", err)
		return
	}

	summaries := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, u.Summary())
	}

	writeJSON(w, http.StatusOK, summaries)
}

func (s *HTTPServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "username, password and name are required")
		return
	}
	if req.Role == "" {
		req.Role = models.RoleCustomer
	}
	if !models.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		writeInternalError(w, "Error creating user", err)
		return
	}

	user := &models.User{
		Username: req.Username,
		Password: hashed,
		FullName: req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Role:     req.Role,
	}
	if err := s.db.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, duplicateUserMessage(err))
			return
		}
		writeInternalError(w, "Error creating user", err)
		return
	}

	writeJSON(w, http.StatusCreated, user.Summary())
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	Address  *string `json:"address"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

func (s *HTTPServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	session := auth.SessionFrom(r.Context())
	isAdmin := session.Role == models.RoleAdmin
	if !isAdmin && session.UserID != id {
		writeError(w, http.StatusForbidden, "Access Denied: Insufficient Permissions")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	fields := make(map[string]any)
	if req.Name != nil {
		fields["full_name"] = *req.Name
	}
	if req.Phone != nil {
		fields["phone"] = *req.Phone
	}
	if req.Email != nil {
		fields["email"] = *req.Email
	}
	if req.Address != nil {
		fields["address"] = *req.Address
	}
	// Only an admin may reassign roles; a self-update ignores the field.
	if req.Role != nil && isAdmin {
		if !models.ValidRole(*req.Role) {
			writeError(w, http.StatusBadRequest, "invalid role")
			return
		}
		fields["role"] = *req.Role
	}
	if req.Password != nil && *req.Password != "" {
		hashed, err := auth.HashPassword(*req.Password)
		if err != nil {
			writeInternalError(w, "Error updating user", err)
			return
		}
		fields["password"] = hashed
	}

	user, err := s.db.UpdateUser(r.Context(), id, fields)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		if errors.Is(err, database.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "Phone already in use")
			return
		}
		writeInternalError(w, "Error updating user", err)
		return
	}

	writeJSON(w, http.StatusOK, user.Summary())
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := s.db.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeInternalError(w, "Error deleting user", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// handleAvailableTechnicians lists technicians with their open workload on a
// date so the dispatcher can pick the least loaded one.
func (s *HTTPServer) handleAvailableTechnicians(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r, "date", time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	load, err := s.db.ListTechnicianLoad(r.Context(), date)
	if err != nil {
		writeInternalError(w, "Error fetching technicians", err)
		return
	}
	if load == nil {
		load = []models.TechnicianLoad{}
	}

	writeJSON(w, http.StatusOK, load)
}
