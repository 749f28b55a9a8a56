package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-commerce-bench/internal/catalog"
)

type ProductsHandler struct {
	Store *catalog.Store
}

type createProductReq struct {
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	PriceCents  *int64 `json:"price_cents"`
	Stock       *int   `json:"stock"`
}

type patchProductReq struct {
	Name        *string `json:"name"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"price_cents"`
	Stock       *int    `json:"stock"`
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Patch("/products/{id}", h.patchProduct)
}

func (h *ProductsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePage(r)
	q := catalog.ListQuery{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
		Page:     page,
		PageSize: pageSize,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, total, err := h.Store.List(ctx, q)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	writeData(w, http.StatusOK, paginated{Items: items, Total: total, Page: page, PageSize: pageSize})
}

func (h *ProductsHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SKU == "" || req.Name == "" || req.PriceCents == nil || req.Stock == nil {
		writeErr(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if *req.PriceCents < 0 || *req.Stock < 0 {
		writeErr(w, http.StatusBadRequest, "price and stock must be non-negative")
		return
	}
	if req.Category == "" {
		req.Category = "General"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p := &catalog.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		PriceCents:  *req.PriceCents,
		Stock:       *req.Stock,
	}
	err := h.Store.Create(ctx, p)
	if errors.Is(err, catalog.ErrSKUExists) {
		writeErr(w, http.StatusConflict, "SKU already exists")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "Failed to create product")
		return
	}
	writeData(w, http.StatusCreated, p)
}

func (h *ProductsHandler) patchProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req patchProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	upd := catalog.FieldUpdates{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
	}
	if upd == (catalog.FieldUpdates{}) {
		writeErr(w, http.StatusBadRequest, "No valid fields to update")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Store.Patch(ctx, id, upd)
	if errors.Is(err, catalog.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "Failed to update product")
		return
	}
	writeData(w, http.StatusOK, p)
}
