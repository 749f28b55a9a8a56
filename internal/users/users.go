package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-commerce-bench/internal/identity"
)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type ListQuery struct {
	Search   string
	Page     int
	PageSize int
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) List(ctx context.Context, q ListQuery) ([]User, int, error) {
	where := ""
	args := []any{}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = ` WHERE (name ILIKE $1 OR email ILIKE $1)`
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := r.DB.Query(ctx, `SELECT id, name, email, created_at FROM users`+where+
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// Create ties the new user to the caller, canonical id plus legacy name, same
// dual-write convention as orders.
func (r *Repo) Create(ctx context.Context, u *User, owner identity.Owner) error {
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return r.DB.QueryRow(ctx, `
		INSERT INTO users(id, name, email, owner_id, owner_legacy)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		u.ID, u.Name, u.Email, owner.ID, owner.LegacyName,
	).Scan(&u.CreatedAt)
}
