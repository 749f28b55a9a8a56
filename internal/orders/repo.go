package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrNotPending    = errors.New("order is not pending")
	ErrBadTransition = errors.New("invalid status transition")
)

// Repo is the order ledger: insert once, finalize once, read forever.
type Repo struct{ DB *pgxpool.Pool }

// Insert persists the order and its lines in one tx. The order arrives fully
// priced with status PENDING; timestamps come from the database.
func (r *Repo) Insert(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, owner_id, owner_legacy, buyer_email, status, total_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		o.ID, o.Owner.ID, o.Owner.LegacyName, o.BuyerEmail, o.Status, o.TotalCents,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	for i, ln := range o.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_lines(order_id, line_no, sku, quantity, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, i, ln.SKU, ln.Quantity, ln.PriceCents,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Finalize moves a PENDING order to PAID or FAILED. The WHERE guard keeps
// terminal states immutable even if two finalizers race.
func (r *Repo) Finalize(ctx context.Context, id string, to Status) error {
	if !CanTransition(StatusPending, to) {
		return ErrBadTransition
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`, id, to, StatusPending)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, owner_id, owner_legacy, COALESCE(buyer_email,''), status, total_cents, created_at, updated_at
		FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.Owner.ID, &o.Owner.LegacyName, &o.BuyerEmail, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT sku, quantity, price_cents FROM order_lines
		WHERE order_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.SKU, &ln.Quantity, &ln.PriceCents); err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, ln)
	}
	return &o, rows.Err()
}

// List returns one page, newest first. Non-privileged callers only see their
// own orders; the filter matches the canonical id OR the legacy username so
// pre-migration rows keep showing up.
func (r *Repo) List(ctx context.Context, q ListQuery) ([]Order, int, error) {
	where := ""
	args := []any{}
	if !q.AllOwner {
		args = append(args, q.Owner.ID, q.Owner.LegacyName)
		where = ` WHERE (owner_id = $1 OR owner_legacy = $2)`
	}
	if q.Status != "" {
		args = append(args, q.Status)
		if where == "" {
			where = fmt.Sprintf(` WHERE status = $%d`, len(args))
		} else {
			where += fmt.Sprintf(` AND status = $%d`, len(args))
		}
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := r.DB.Query(ctx, `
		SELECT id, owner_id, owner_legacy, COALESCE(buyer_email,''), status, total_cents, created_at, updated_at
		FROM orders`+where+fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Order
	byID := map[string]int{}
	ids := []any{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Owner.ID, &o.Owner.LegacyName, &o.BuyerEmail, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		byID[o.ID] = len(out)
		ids = append(ids, o.ID)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(out) == 0 {
		return out, total, nil
	}

	params := ""
	for i := range ids {
		if i > 0 {
			params += ","
		}
		params += fmt.Sprintf("$%d", i+1)
	}
	lrows, err := r.DB.Query(ctx, `
		SELECT order_id, sku, quantity, price_cents FROM order_lines
		WHERE order_id IN (`+params+`) ORDER BY order_id, line_no`, ids...)
	if err != nil {
		return nil, 0, err
	}
	defer lrows.Close()
	for lrows.Next() {
		var oid string
		var ln Line
		if err := lrows.Scan(&oid, &ln.SKU, &ln.Quantity, &ln.PriceCents); err != nil {
			return nil, 0, err
		}
		out[byID[oid]].Lines = append(out[byID[oid]].Lines, ln)
	}
	return out, total, lrows.Err()
}
