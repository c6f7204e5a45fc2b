package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/domain/user"
)

// userColumns is the list of columns to select for a user.
const userColumns = `id, email, name, status, notify_on_ingest, created_at, updated_at`

// UserRepository implements user.Repository using PostgreSQL.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		u.ID().String(),
		u.Email(),
		u.Name(),
		string(u.Status()),
		u.NotifyOnIngest(),
		u.CreatedAt(),
		u.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError(shared.CodeAlreadyExists, "user with this email already exists", shared.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id shared.ID) (*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.NotFoundError(id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ListIngestRecipients returns active users opted in to batch notifications.
func (r *UserRepository) ListIngestRecipients(ctx context.Context) ([]*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE status = $1 AND notify_on_ingest ORDER BY email`, userColumns)

	rows, err := r.db.QueryContext(ctx, query, string(user.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list ingest recipients: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetDisplayNames resolves user ids to display names in one query.
// Unknown ids are omitted.
func (r *UserRepository) GetDisplayNames(ctx context.Context, ids []shared.ID) (map[shared.ID]string, error) {
	names := make(map[shared.ID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	query := `SELECT id, COALESCE(NULLIF(name, ''), email) FROM users WHERE id = ANY($1::uuid[])`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(shared.IDStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("failed to get display names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   shared.ID
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan display name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

func scanUser(row rowScanner) (*user.User, error) {
	var (
		id                   shared.ID
		email, name, status  string
		notifyOnIngest       bool
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &email, &name, &status, &notifyOnIngest, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return user.Reconstitute(id, email, name, user.Status(status), notifyOnIngest, createdAt.UTC(), updatedAt.UTC()), nil
}
