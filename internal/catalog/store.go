package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrSKUExists = errors.New("sku already exists")
	ErrNotFound  = errors.New("product not found")
)

type Store struct{ DB *pgxpool.Pool }

const productCols = `id, sku, name, category, COALESCE(description,''), price_cents, stock, created_at, updated_at`

func scanProduct(row pgx.Row, p *Product) error {
	return row.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
}

// GetBySKUs fetches all products for the given SKUs in one query. Missing SKUs
// are simply absent from the returned map.
func (s *Store) GetBySKUs(ctx context.Context, skus []string) (map[string]Product, error) {
	if len(skus) == 0 {
		return map[string]Product{}, nil
	}
	args := make([]any, 0, len(skus))
	params := ""
	for i, sku := range skus {
		if i > 0 {
			params += ","
		}
		params += fmt.Sprintf("$%d", i+1)
		args = append(args, sku)
	}
	rows, err := s.DB.Query(ctx, `SELECT `+productCols+` FROM products WHERE sku IN (`+params+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Product, len(skus))
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		out[p.SKU] = p
	}
	return out, rows.Err()
}

// ReserveAll issues one conditional decrement per line, as a single ordered
// batch. Each UPDATE only applies when enough stock is on hand, so stock can
// never go negative; per-row atomicity in the database is the only
// serialization point. Lines commit independently: a losing line does not
// undo the winners (callers decide what to do with a partial result).
func (s *Store) ReserveAll(ctx context.Context, lines []ReserveLine) (reserved []bool, n int, err error) {
	b := &pgx.Batch{}
	for _, ln := range lines {
		b.Queue(`UPDATE products SET stock = stock - $2, updated_at = now()
		         WHERE sku = $1 AND stock >= $2`, ln.SKU, ln.Qty)
	}
	br := s.DB.SendBatch(ctx, b)
	defer br.Close()

	reserved = make([]bool, len(lines))
	for i := range lines {
		ct, err := br.Exec()
		if err != nil {
			return nil, n, err
		}
		if ct.RowsAffected() == 1 {
			reserved[i] = true
			n++
		}
	}
	return reserved, n, nil
}

func (s *Store) List(ctx context.Context, q ListQuery) ([]Product, int, error) {
	where := []string{}
	args := []any{}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		p := fmt.Sprintf("$%d", len(args))
		where = append(where, `(name ILIKE `+p+` OR description ILIKE `+p+` OR sku ILIKE `+p+`)`)
	}
	if q.Category != "" {
		args = append(args, q.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := s.DB.Query(ctx, `SELECT `+productCols+` FROM products`+cond+
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (s *Store) Create(ctx context.Context, p *Product) error {
	p.ID = uuid.NewString()
	ct, err := s.DB.Exec(ctx, `
		INSERT INTO products(id, sku, name, category, description, price_cents, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (sku) DO NOTHING`,
		p.ID, p.SKU, p.Name, p.Category, p.Description, p.PriceCents, p.Stock)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrSKUExists
	}
	return scanProduct(s.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, p.ID), p)
}

func (s *Store) Patch(ctx context.Context, id string, upd FieldUpdates) (*Product, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Category != nil {
		add("category", *upd.Category)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.PriceCents != nil {
		add("price_cents", *upd.PriceCents)
	}
	if upd.Stock != nil {
		add("stock", *upd.Stock)
	}
	if len(args) == 1 {
		return nil, errors.New("no valid fields to update")
	}

	var p Product
	err := scanProduct(s.DB.QueryRow(ctx, `UPDATE products SET `+strings.Join(sets, ", ")+
		` WHERE id = $1 RETURNING `+productCols, args...), &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
