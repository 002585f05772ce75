package internal

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"arka-asset-api/internal/auth"
	"arka-asset-api/internal/models"
	"arka-asset-api/internal/permission"
	"arka-asset-api/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// loginUser handles user authentication and returns a JWT token
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	var found *models.User
	err := s.Store.Update(r.Context(), []string{store.Users}, func(tx store.Tx) error {
		var users []models.User
		if err := tx.Get(store.Users, &users); err != nil {
			return err
		}
		for i := range users {
			if strings.EqualFold(users[i].Email, req.Email) {
				if !users[i].IsActive {
					return fmt.Errorf("account disabled")
				}
				if bcrypt.CompareHashAndPassword([]byte(users[i].PasswordHash), []byte(req.Password)) != nil {
					return nil
				}
				now := time.Now().UTC()
				users[i].LastLoginAt = &now
				found = &users[i]
				return tx.Put(store.Users, users)
			}
		}
		return nil
	})
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if found == nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := s.JWTManager.GenerateToken(found.ID, found.Name, found.Division, found.Role, found.Permissions)
	if err != nil {
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: found.Redacted()})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := s.Store.Get(r.Context(), store.Users, &users); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]models.User, 0, len(users))
	for i := range users {
		out = append(out, users[i].Redacted())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var users []models.User
	if err := s.Store.Get(r.Context(), store.Users, &users); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for i := range users {
		if users[i].ID == id {
			writeJSON(w, http.StatusOK, users[i].Redacted())
			return
		}
	}
	http.Error(w, "user not found", http.StatusNotFound)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	switch {
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		http.Error(w, "valid email is required", http.StatusBadRequest)
		return
	case len(req.Password) < 8:
		http.Error(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	case strings.TrimSpace(req.Name) == "":
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	case !permission.IsValidRole(req.Role):
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Division:     strings.TrimSpace(req.Division),
		Role:         req.Role,
		Permissions:  s.Resolver.DefaultsFor(req.Role),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.Update(r.Context(), []string{store.Users}, func(tx store.Tx) error {
		var users []models.User
		if err := tx.Get(store.Users, &users); err != nil {
			return err
		}
		for i := range users {
			if strings.EqualFold(users[i].Email, user.Email) {
				return fmt.Errorf("email already registered")
			}
		}
		users = append(users, user)
		return tx.Put(store.Users, users)
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusCreated, user.Redacted())
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Role != nil && !permission.IsValidRole(*req.Role) {
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}

	var updated *models.User
	err := s.Store.Update(r.Context(), []string{store.Users}, func(tx store.Tx) error {
		var users []models.User
		if err := tx.Get(store.Users, &users); err != nil {
			return err
		}
		for i := range users {
			if users[i].ID != id {
				continue
			}
			if req.Name != nil {
				users[i].Name = strings.TrimSpace(*req.Name)
			}
			if req.Division != nil {
				users[i].Division = strings.TrimSpace(*req.Division)
			}
			if req.Role != nil && *req.Role != users[i].Role {
				// A role change resets the permission set to the new
				// role's defaults.
				users[i].Role = *req.Role
				users[i].Permissions = s.Resolver.DefaultsFor(*req.Role)
			}
			if req.IsActive != nil {
				users[i].IsActive = *req.IsActive
			}
			users[i].UpdatedAt = time.Now().UTC()
			updated = &users[i]
			return tx.Put(store.Users, users)
		}
		return fmt.Errorf("user not found")
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, updated.Redacted())
}

// updateUserPermissions applies one permission action to a user. Dependency
// cascades happen server side so a client can never produce a permission set
// that references an ungranted ancestor.
func (s *Server) updateUserPermissions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Action     string   `json:"action"` // grant, revoke, toggle_group, select_all, deselect_all
		Permission string   `json:"permission,omitempty"`
		Group      []string `json:"group,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	var updated *models.User
	err := s.Store.Update(r.Context(), []string{store.Users}, func(tx store.Tx) error {
		var users []models.User
		if err := tx.Get(store.Users, &users); err != nil {
			return err
		}
		for i := range users {
			if users[i].ID != id {
				continue
			}
			u := &users[i]
			switch req.Action {
			case "grant":
				u.Permissions = s.Resolver.Grant(u.Permissions, req.Permission)
			case "revoke":
				u.Permissions = s.Resolver.Revoke(u.Permissions, req.Permission, u.Role)
			case "toggle_group":
				u.Permissions = s.Resolver.GroupToggle(u.Permissions, req.Group, u.Role)
			case "select_all":
				u.Permissions = s.Resolver.SelectAll()
			case "deselect_all":
				u.Permissions = s.Resolver.DeselectAll(u.Role)
			default:
				return fmt.Errorf("unknown action %q", req.Action)
			}
			u.UpdatedAt = time.Now().UTC()
			updated = u
			return tx.Put(store.Users, users)
		}
		return fmt.Errorf("user not found")
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, updated.Redacted())
}

// getUserProfile returns the authenticated user's own record
func (s *Server) getUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var users []models.User
	if err := s.Store.Get(r.Context(), store.Users, &users); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for i := range users {
		if users[i].ID == userID {
			writeJSON(w, http.StatusOK, users[i].Redacted())
			return
		}
	}
	http.Error(w, "user not found", http.StatusNotFound)
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req models.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if len(req.NewPassword) < 8 {
		http.Error(w, "new password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	err := s.Store.Update(r.Context(), []string{store.Users}, func(tx store.Tx) error {
		var users []models.User
		if err := tx.Get(store.Users, &users); err != nil {
			return err
		}
		for i := range users {
			if users[i].ID != userID {
				continue
			}
			if bcrypt.CompareHashAndPassword([]byte(users[i].PasswordHash), []byte(req.CurrentPassword)) != nil {
				return fmt.Errorf("current password is incorrect")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			users[i].PasswordHash = string(hash)
			users[i].UpdatedAt = time.Now().UTC()
			return tx.Put(store.Users, users)
		}
		return fmt.Errorf("user not found")
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}
