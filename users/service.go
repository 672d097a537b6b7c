// Package users, service layer. Executes the listing and profile queries.
//
// Every operation follows the same connection discipline: acquire one
// connection from the pool, hold it for exactly one statement, release it on
// every exit path (the deferred Release covers success, error returns, and
// panics). Rows are mapped into records field by field against the fixed
// column list.
package users

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/user/userdir-go/apperror"
	"github.com/user/userdir-go/config"
	"github.com/user/userdir-go/db"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// UserService provides the user directory operations.
type UserService struct {
	store    db.Pool
	rowLimit int
}

// NewUserService creates a new UserService.
func NewUserService(store db.Pool, cfg *config.UsersConfig) *UserService {
	return &UserService{store: store, rowLimit: cfg.RowLimit}
}

// ListUsers returns the users matching the given filters, up to the
// configured row cap, ordered by id. Store failures surface as a generic
// database error; the driver detail is logged, never returned to the caller.
func (s *UserService) ListUsers(ctx context.Context, filters []Filter) ([]User, error) {
	query, args := BuildListQuery(filters, s.rowLimit)

	conn, err := s.store.Acquire(ctx)
	if err != nil {
		log.Printf("ListUsers: failed to acquire connection: %v", err)
		return nil, apperror.NewDatabaseError("failed to list users", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		log.Printf("ListUsers: query failed: %v", err)
		return nil, apperror.NewDatabaseError("failed to list users", err)
	}
	defer rows.Close()

	// Initialized non-nil so an empty result serializes as [] rather than null.
	result := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email); err != nil {
			log.Printf("ListUsers: row scan failed: %v", err)
			return nil, apperror.NewDatabaseError("failed to list users", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		log.Printf("ListUsers: row iteration failed: %v", err)
		return nil, apperror.NewDatabaseError("failed to list users", err)
	}

	return result, nil
}

// GetProfile retrieves a user's profile by their ID.
func (s *UserService) GetProfile(ctx context.Context, userID int) (*Profile, error) {
	conn, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to get user profile", err)
	}
	defer conn.Release()

	query := `SELECT id, username, email, created_at FROM users WHERE id = $1`

	var profile Profile
	err = conn.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.Username,
		&profile.Email,
		&profile.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("user with ID %d not found", userID), nil)
		}
		return nil, apperror.NewDatabaseError("failed to get user profile", err)
	}

	return &profile, nil
}

// UpdateProfile applies a partial update to the authenticated user's record.
// The SET clause is assembled only from fields present in the request, each
// bound as a positional parameter.
func (s *UserService) UpdateProfile(ctx context.Context, userID int, req *UpdateProfileRequest) (*Profile, error) {
	var setClauses []string
	var args []any
	argID := 1

	if req.Username != nil && *req.Username != "" {
		setClauses = append(setClauses, fmt.Sprintf("username = $%d", argID))
		args = append(args, *req.Username)
		argID++
	}
	if req.Email != nil && *req.Email != "" {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", argID))
		args = append(args, strings.ToLower(*req.Email))
		argID++
	}

	if len(setClauses) == 0 {
		// Nothing to change; return the current profile.
		return s.GetProfile(ctx, userID)
	}

	args = append(args, userID)
	query := fmt.Sprintf(
		"UPDATE users SET %s WHERE id = $%d RETURNING id, username, email, created_at",
		strings.Join(setClauses, ", "), argID,
	)

	conn, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to update user profile", err)
	}
	defer conn.Release()

	var profile Profile
	err = conn.QueryRow(ctx, query, args...).Scan(
		&profile.ID,
		&profile.Username,
		&profile.Email,
		&profile.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("user with ID %d not found", userID), nil)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			// Name only the kind of field that collided, not the value.
			if strings.Contains(pgErr.ConstraintName, "email") {
				return nil, apperror.NewConflictError("email already exists", nil)
			}
			if strings.Contains(pgErr.ConstraintName, "username") {
				return nil, apperror.NewConflictError("username already exists", nil)
			}
		}
		return nil, apperror.NewDatabaseError("failed to update user profile", err)
	}

	return &profile, nil
}
