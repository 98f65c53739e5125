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

var _ repository.LinkRepository = (*LinkDB)(nil)

var linkColumns = []string{
	"id", "user_id", "title", "url", "pseudo", "description",
	"active", "clicks", "created_at", "updated_at",
}

type LinkDB struct {
	conn *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*model.SocialLink, error) {
	var l model.SocialLink
	err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.Title,
		&l.URL,
		&l.Pseudo,
		&l.Description,
		&l.Active,
		&l.Clicks,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts link. ID and timestamps are always assigned here; Active
// and Clicks are taken as given so callers control the initial state.
func (d *LinkDB) Create(ctx context.Context, link *model.SocialLink) error {
	now := time.Now().UTC()
	link.ID = xid.New().String()
	link.CreatedAt = now
	link.UpdatedAt = now

	query, args, err := sq.Insert("social_links").
		Columns(linkColumns...).
		Values(link.ID, link.UserID, link.Title, link.URL, link.Pseudo, link.Description,
			link.Active, link.Clicks, link.CreatedAt, link.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building link insert: %w", err)
	}

	if _, err := d.conn.ExecContext(ctx, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", link.UserID)
		}
		return fmt.Errorf("sqlite: inserting link: %w", err)
	}
	return nil
}

func (d *LinkDB) GetByID(ctx context.Context, id string) (*model.SocialLink, error) {
	query, args, err := sq.Select(linkColumns...).
		From("social_links").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building link select: %w", err)
	}

	link, err := scanLink(d.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("link", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting link %s: %w", id, err)
	}
	return link, nil
}

// List returns the links of filter.UserID oldest first. rowid breaks ties
// between links created within the same clock tick.
func (d *LinkDB) List(ctx context.Context, filter repository.LinkFilter) ([]model.SocialLink, error) {
	builder := sq.Select(linkColumns...).
		From("social_links").
		Where(sq.Eq{"user_id": filter.UserID}).
		OrderBy("created_at ASC", "rowid ASC")
	if filter.ActiveOnly {
		builder = builder.Where(sq.Eq{"active": true})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building link list: %w", err)
	}

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing links for user %s: %w", filter.UserID, err)
	}
	defer rows.Close()

	links := []model.SocialLink{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning link: %w", err)
		}
		links = append(links, *link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating links: %w", err)
	}

	return links, nil
}

// Update applies the non-nil fields of patch and returns the stored link.
func (d *LinkDB) Update(ctx context.Context, id string, patch repository.LinkPatch) (*model.SocialLink, error) {
	if patch.Empty() {
		return d.GetByID(ctx, id)
	}

	set := sq.Eq{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.URL != nil {
		set["url"] = *patch.URL
	}
	if patch.Pseudo != nil {
		set["pseudo"] = *patch.Pseudo
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}

	return d.execAndReload(ctx, id, "updating",
		sq.Update("social_links").SetMap(set).Where(sq.Eq{"id": id}))
}

// ToggleActive flips the flag inside the UPDATE, so two concurrent toggles
// always cancel out.
func (d *LinkDB) ToggleActive(ctx context.Context, id string) (*model.SocialLink, error) {
	return d.execAndReload(ctx, id, "toggling",
		sq.Update("social_links").
			Set("active", sq.Expr("NOT active")).
			Set("updated_at", time.Now().UTC()).
			Where(sq.Eq{"id": id}))
}

// IncrementClicks adds one click to the link and returns the updated row.
//
// ATOMIC INCREMENT:
// The obvious version reads the link, adds one in Go and writes it back:
//
//	link := GetByID(id)          // clicks = 7
//	UPDATE ... SET clicks = 8    // another request also read 7 and wrote 8
//
// Two visitors clicking at the same moment both read 7 and both write 8,
// and one click is lost. Instead the addition happens inside the database:
//
//	UPDATE social_links SET clicks = clicks + 1 WHERE id = ?
//
// SQLite runs each statement under its write lock, so the second UPDATE sees
// the first one's result. N concurrent calls add exactly N.
//
// sq.Expr tells squirrel to emit "clicks + 1" as SQL rather than binding it
// as a string parameter.
//
// This method does not look at the active flag. Whether a click counts is
// decided by the service before it gets here.
func (d *LinkDB) IncrementClicks(ctx context.Context, id string) (*model.SocialLink, error) {
	return d.execAndReload(ctx, id, "incrementing clicks on",
		sq.Update("social_links").
			Set("clicks", sq.Expr("clicks + 1")).
			Where(sq.Eq{"id": id}))
}

func (d *LinkDB) Delete(ctx context.Context, id string) error {
	query, args, err := sq.Delete("social_links").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building link delete: %w", err)
	}

	res, err := d.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: deleting link %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("link", id)
	}
	return nil
}

func (d *LinkDB) execAndReload(ctx context.Context, id, action string, b sq.UpdateBuilder) (*model.SocialLink, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building link update: %w", err)
	}

	res, err := d.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s link %s: %w", action, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, apperror.NotFound("link", id)
	}

	return d.GetByID(ctx, id)
}
