package repository

import (
	"context"

	"github.com/sakif/linkify/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByPseudo(ctx context.Context, pseudo string) (*model.User, error)
	PseudoExists(ctx context.Context, pseudo string) (bool, error)
	UpdateTheme(ctx context.Context, id, theme string) (*model.User, error)
}

// LinkFilter selects the links of one user. ActiveOnly hides inactive links.
type LinkFilter struct {
	UserID     string
	ActiveOnly bool
}

// LinkPatch is a partial update; nil fields are left unchanged.
type LinkPatch struct {
	Title       *string
	URL         *string
	Pseudo      *string
	Description *string
}

// Empty reports whether the patch changes nothing.
func (p LinkPatch) Empty() bool {
	return p.Title == nil && p.URL == nil && p.Pseudo == nil && p.Description == nil
}

type LinkRepository interface {
	Create(ctx context.Context, link *model.SocialLink) error
	GetByID(ctx context.Context, id string) (*model.SocialLink, error)
	List(ctx context.Context, filter LinkFilter) ([]model.SocialLink, error)
	Update(ctx context.Context, id string, patch LinkPatch) (*model.SocialLink, error)
	ToggleActive(ctx context.Context, id string) (*model.SocialLink, error)
	IncrementClicks(ctx context.Context, id string) (*model.SocialLink, error)
	Delete(ctx context.Context, id string) error
}
