package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/sakif/linkify/internal/apperror"
	"github.com/sakif/linkify/internal/model"
	"github.com/sakif/linkify/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

var userColumns = []string{"id", "email", "name", "pseudo", "theme", "created_at", "updated_at"}

// UserDB stores users. Email and pseudo are UNIQUE; a violation of either
// comes back as apperror.ErrConflict with Field set to the column.
type UserDB struct {
	conn *sql.DB
}

// Create inserts user, filling in ID, timestamps and the default theme.
//
// QUERY BUILDING WITH squirrel:
// sq.Insert(...).Columns(...).Values(...).ToSql() produces
//
//	INSERT INTO users (id,email,...) VALUES (?,?,...)
//
// plus the argument slice, in the same order. The values still travel as
// bound parameters; squirrel only assembles the SQL text.
//
// UNIQUE CONSTRAINTS AS THE ARBITER:
// email and pseudo are UNIQUE in the schema. When two first logins race for
// the same handle, both may pass the PseudoExists check, but only one INSERT
// succeeds. The other gets "UNIQUE constraint failed: users.pseudo", which
// is turned into apperror.ConflictOn("user", "pseudo") so the handle
// allocator knows to try the next suffix. A clash on users.email means the
// same person won the race in another request.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = xid.New().String()
	}
	if user.Theme == "" {
		user.Theme = model.DefaultTheme
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := sq.Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.Email, user.Name, user.Pseudo, user.Theme, user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building user insert: %w", err)
	}

	if _, err := u.conn.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			field := violatedColumn(err, "users")
			if field == "" {
				field = "pseudo"
			}
			return fmt.Errorf("sqlite: inserting user: %w", apperror.ConflictOn("user", field))
		}
		return fmt.Errorf("sqlite: inserting user (pseudo=%s): %w", user.Pseudo, err)
	}

	return nil
}

func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, err := u.getBy(ctx, "id", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	return user, err
}

func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := u.getBy(ctx, "email", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFoundBy("user", "email", email)
	}
	return user, err
}

func (u *UserDB) GetByPseudo(ctx context.Context, pseudo string) (*model.User, error) {
	user, err := u.getBy(ctx, "pseudo", pseudo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFoundBy("user", "pseudo", pseudo)
	}
	return user, err
}

// PseudoExists is the allocator's cheap pre-check. It is advisory only: the
// UNIQUE index still decides when two inserts race.
func (u *UserDB) PseudoExists(ctx context.Context, pseudo string) (bool, error) {
	var exists bool
	err := u.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE pseudo = ?)`, pseudo,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking pseudo %s: %w", pseudo, err)
	}
	return exists, nil
}

func (u *UserDB) UpdateTheme(ctx context.Context, id, theme string) (*model.User, error) {
	query, args, err := sq.Update("users").
		Set("theme", theme).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building theme update: %w", err)
	}

	res, err := u.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating theme for user %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	} else if n == 0 {
		return nil, apperror.NotFound("user", id)
	}

	return u.GetByID(ctx, id)
}

// getBy returns sql.ErrNoRows unwrapped so callers can choose the
// not-found message.
func (u *UserDB) getBy(ctx context.Context, column, value string) (*model.User, error) {
	query, args, err := sq.Select(userColumns...).
		From("users").
		Where(sq.Eq{column: value}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building user select: %w", err)
	}

	var user model.User
	err = u.conn.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Pseudo,
		&user.Theme,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}
	return &user, nil
}
