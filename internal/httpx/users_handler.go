package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-commerce-bench/internal/identity"
	"github.com/ariefcatur/go-commerce-bench/internal/users"
)

type UsersHandler struct {
	Repo *users.Repo
}

type createUserReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *UsersHandler) Register(r chi.Router) {
	r.Get("/users", h.listUsers)
	r.Post("/users", h.createUser)
}

func (h *UsersHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePage(r)
	q := users.ListQuery{
		Search:   r.URL.Query().Get("search"),
		Page:     page,
		PageSize: pageSize,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, total, err := h.Repo.List(ctx, q)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	writeData(w, http.StatusOK, paginated{Items: items, Total: total, Page: page, PageSize: pageSize})
}

func (h *UsersHandler) createUser(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req createUserReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" || req.Email == "" {
		writeErr(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u := &users.User{Name: req.Name, Email: req.Email}
	if err := h.Repo.Create(ctx, u, p.Owner()); err != nil {
		writeErr(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	writeData(w, http.StatusOK, u)
}
