package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/linkify/internal/apperror"
	"github.com/sakif/linkify/internal/cache"
	"github.com/sakif/linkify/internal/model"
	"github.com/sakif/linkify/internal/repository"
	"github.com/sakif/linkify/internal/search"
)

// Viewer says who is looking at a page. Owners see every link; the public
// sees active links only. Construct one with OwnerViewer or PublicViewer.
type Viewer struct {
	owner  bool
	email  string
	pseudo string
}

// OwnerViewer is the authenticated owner, identified by email.
func OwnerViewer(email string) Viewer {
	return Viewer{owner: true, email: normalizeEmail(email)}
}

// PublicViewer is an anonymous visitor of the page at pseudo.
func PublicViewer(pseudo string) Viewer {
	return Viewer{pseudo: strings.TrimSpace(pseudo)}
}

// Page is a resolved page: the owner's handle and theme plus the links the
// viewer may see, oldest first.
type Page struct {
	Pseudo string             `json:"pseudo"`
	Theme  string             `json:"theme"`
	Links  []model.SocialLink `json:"links"`
}

type PageService struct {
	users    repository.UserRepository
	links    repository.LinkRepository
	profiles cache.ProfileCache
	observer Observer
	logger   *slog.Logger
}

func NewPageService(
	users repository.UserRepository,
	links repository.LinkRepository,
	profiles cache.ProfileCache,
	observer Observer,
	logger *slog.Logger,
) *PageService {
	if profiles == nil {
		profiles = cache.Noop{}
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &PageService{
		users:    users,
		links:    links,
		profiles: profiles,
		observer: observer,
		logger:   logger,
	}
}

// Resolve loads the page for v. An unknown owner or handle is ErrNotFound.
func (s *PageService) Resolve(ctx context.Context, v Viewer) (*Page, error) {
	var profile *cache.Profile
	var err error
	if v.owner {
		profile, err = s.ownerProfile(ctx, v.email)
	} else {
		profile, err = s.publicProfile(ctx, v.pseudo)
	}
	if err != nil {
		return nil, err
	}

	links, err := s.links.List(ctx, repository.LinkFilter{
		UserID:     profile.UserID,
		ActiveOnly: !v.owner,
	})
	if err != nil {
		s.logger.Error("failed to list links",
			slog.String("userID", profile.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing links: %w", err)
	}

	return &Page{Pseudo: profile.Pseudo, Theme: profile.Theme, Links: links}, nil
}

// Search resolves the page and keeps only the links matching query. A
// blank query returns the page unchanged.
func (s *PageService) Search(ctx context.Context, v Viewer, query string) (*Page, error) {
	page, err := s.Resolve(ctx, v)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return page, nil
	}

	page.Links = search.NewIndex(page.Links).Search(query)
	return page, nil
}

func (s *PageService) ownerProfile(ctx context.Context, email string) (*cache.Profile, error) {
	if email == "" {
		return nil, apperror.Unauthorized("login required")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return &cache.Profile{UserID: user.ID, Pseudo: user.Pseudo, Theme: user.Theme}, nil
}

// publicProfile reads through the profile cache. Cache failures are logged
// and the store is used instead.
func (s *PageService) publicProfile(ctx context.Context, pseudo string) (*cache.Profile, error) {
	if pseudo == "" {
		return nil, apperror.ValidationFailed("pseudo", "pseudo is required")
	}

	cached, err := s.profiles.Get(ctx, pseudo)
	switch {
	case err != nil:
		s.observer.CacheLookup("error")
		s.logger.Warn("profile cache read failed",
			slog.String("pseudo", pseudo),
			slog.String("error", err.Error()),
		)
	case cached != nil:
		s.observer.CacheLookup("hit")
		return cached, nil
	default:
		s.observer.CacheLookup("miss")
	}

	user, err := s.users.GetByPseudo(ctx, pseudo)
	if err != nil {
		return nil, err
	}

	profile := &cache.Profile{UserID: user.ID, Pseudo: user.Pseudo, Theme: user.Theme}
	if err := s.profiles.Set(ctx, profile); err != nil {
		s.logger.Warn("profile cache write failed",
			slog.String("pseudo", pseudo),
			slog.String("error", err.Error()),
		)
	}
	return profile, nil
}
