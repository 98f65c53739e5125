package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/linkify/internal/apperror"
	"github.com/sakif/linkify/internal/model"
	"github.com/sakif/linkify/internal/platform"
	"github.com/sakif/linkify/internal/repository"
	"github.com/sakif/linkify/internal/upload"
)

const (
	MaxTitleLength       = 100
	MaxPseudoLength      = 100
	MaxDescriptionLength = 500
	MaxURLLength         = 2048
)

// LinkInput is the content of a new link.
type LinkInput struct {
	Title       string
	URL         string
	Pseudo      string
	Description string
}

// LinkService owns every change to a user's links. Owner operations go
// through authorize, which resolves the caller by email and checks that the
// link belongs to them.
type LinkService struct {
	users    repository.UserRepository
	links    repository.LinkRepository
	host     upload.FileHost
	observer Observer
	logger   *slog.Logger
}

func NewLinkService(
	users repository.UserRepository,
	links repository.LinkRepository,
	host upload.FileHost,
	observer Observer,
	logger *slog.Logger,
) *LinkService {
	if observer == nil {
		observer = nopObserver{}
	}
	return &LinkService{
		users:    users,
		links:    links,
		host:     host,
		observer: observer,
		logger:   logger,
	}
}

// Add creates an active link with zero clicks for the owner.
func (s *LinkService) Add(ctx context.Context, ownerEmail string, in LinkInput) (*model.SocialLink, error) {
	in = in.trimmed()
	if err := validateLink(in); err != nil {
		return nil, err
	}

	owner, err := s.users.GetByEmail(ctx, normalizeEmail(ownerEmail))
	if err != nil {
		return nil, err
	}

	link := &model.SocialLink{
		UserID:      owner.ID,
		Title:       in.Title,
		URL:         in.URL,
		Pseudo:      in.Pseudo,
		Description: in.Description,
		Active:      true,
		Clicks:      0,
	}
	if err := s.links.Create(ctx, link); err != nil {
		s.logger.Error("failed to create link",
			slog.String("userID", owner.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("adding link: %w", err)
	}

	s.logger.Info("link added",
		slog.String("id", link.ID),
		slog.String("userID", owner.ID),
		slog.String("title", link.Title),
	)
	return link, nil
}

// Update applies a partial change. The merged link is validated with the
// same rules as Add before anything is written.
func (s *LinkService) Update(ctx context.Context, ownerEmail, linkID string, patch repository.LinkPatch) (*model.SocialLink, error) {
	_, link, err := s.authorize(ctx, ownerEmail, linkID)
	if err != nil {
		return nil, err
	}

	patch = trimPatch(patch)
	merged := LinkInput{
		Title:       pick(patch.Title, link.Title),
		URL:         pick(patch.URL, link.URL),
		Pseudo:      pick(patch.Pseudo, link.Pseudo),
		Description: pick(patch.Description, link.Description),
	}
	if err := validateLink(merged); err != nil {
		return nil, err
	}

	updated, err := s.links.Update(ctx, link.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("updating link: %w", err)
	}

	s.logger.Info("link updated", slog.String("id", updated.ID))
	return updated, nil
}

// ToggleActive flips the link between visible and owner-only.
func (s *LinkService) ToggleActive(ctx context.Context, ownerEmail, linkID string) (*model.SocialLink, error) {
	_, link, err := s.authorize(ctx, ownerEmail, linkID)
	if err != nil {
		return nil, err
	}

	toggled, err := s.links.ToggleActive(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("toggling link: %w", err)
	}

	s.logger.Info("link toggled",
		slog.String("id", toggled.ID),
		slog.Bool("active", toggled.Active),
	)
	return toggled, nil
}

// Remove deletes the link. Nothing changes when the caller is not the owner.
func (s *LinkService) Remove(ctx context.Context, ownerEmail, linkID string) error {
	_, link, err := s.authorize(ctx, ownerEmail, linkID)
	if err != nil {
		return err
	}

	if err := s.links.Delete(ctx, link.ID); err != nil {
		return fmt.Errorf("removing link: %w", err)
	}

	s.logger.Info("link removed", slog.String("id", link.ID))
	return nil
}

// RecordClick counts a visitor click. Inactive links are invisible to
// visitors, so they report not found and are not counted.
func (s *LinkService) RecordClick(ctx context.Context, linkID string) (*model.SocialLink, error) {
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return nil, apperror.ValidationFailed("id", "link ID is required")
	}

	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if !link.Active {
		return nil, apperror.NotFound("link", linkID)
	}

	counted, err := s.links.IncrementClicks(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("recording click: %w", err)
	}
	s.observer.ClickRecorded()
	return counted, nil
}

// AttachFile uploads f and points the link at it. The title becomes "Image"
// or "Document PDF" after the file type. The file is validated before the
// host is contacted.
func (s *LinkService) AttachFile(ctx context.Context, ownerEmail, linkID string, f upload.File) (*model.SocialLink, *upload.Asset, error) {
	if err := upload.Validate(f); err != nil {
		return nil, nil, err
	}

	_, link, err := s.authorize(ctx, ownerEmail, linkID)
	if err != nil {
		return nil, nil, err
	}

	asset, err := s.host.Upload(ctx, f)
	s.observer.UploadFinished(s.host.Name(), err)
	if err != nil {
		s.logger.Error("upload failed",
			slog.String("backend", s.host.Name()),
			slog.String("linkID", link.ID),
			slog.String("error", err.Error()),
		)
		return nil, nil, fmt.Errorf("uploading file: %w", err)
	}

	title := platform.TitleImage
	if f.IsPDF() {
		title = platform.TitleDocumentPDF
	}
	updated, err := s.links.Update(ctx, link.ID, repository.LinkPatch{
		Title: &title,
		URL:   &asset.URL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("attaching upload: %w", err)
	}

	s.logger.Info("file attached",
		slog.String("linkID", updated.ID),
		slog.String("backend", s.host.Name()),
		slog.Int64("bytes", asset.Bytes),
	)
	return updated, asset, nil
}

// authorize is the single ownership check for link mutations. The link is
// looked up before the owner so a missing link is reported as not found
// regardless of who asks.
func (s *LinkService) authorize(ctx context.Context, ownerEmail, linkID string) (*model.User, *model.SocialLink, error) {
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return nil, nil, apperror.ValidationFailed("id", "link ID is required")
	}

	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return nil, nil, err
	}

	owner, err := s.users.GetByEmail(ctx, normalizeEmail(ownerEmail))
	if err != nil {
		return nil, nil, err
	}

	if link.UserID != owner.ID {
		s.logger.Warn("link access denied",
			slog.String("linkID", link.ID),
			slog.String("userID", owner.ID),
		)
		return nil, nil, apperror.Forbidden("you do not own this link")
	}
	return owner, link, nil
}

func validateLink(in LinkInput) error {
	switch {
	case in.Title == "":
		return apperror.ValidationFailed("title", "title is required")
	case utf8.RuneCountInString(in.Title) > MaxTitleLength:
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	case in.URL == "":
		return apperror.ValidationFailed("url", "url is required")
	case len(in.URL) > MaxURLLength:
		return apperror.ValidationFailed("url",
			fmt.Sprintf("url must be %d characters or less", MaxURLLength))
	case !platform.IsWebURL(in.URL):
		return apperror.ValidationFailed("url", "url must be an absolute http or https address")
	case in.Pseudo == "":
		return apperror.ValidationFailed("pseudo", "pseudo is required")
	case utf8.RuneCountInString(in.Pseudo) > MaxPseudoLength:
		return apperror.ValidationFailed("pseudo",
			fmt.Sprintf("pseudo must be %d characters or less", MaxPseudoLength))
	case utf8.RuneCountInString(in.Description) > MaxDescriptionLength:
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	case !platform.Allows(in.Title, in.URL):
		return apperror.ValidationFailed("url",
			fmt.Sprintf("url does not belong to %s", in.Title))
	}
	return nil
}

func (in LinkInput) trimmed() LinkInput {
	return LinkInput{
		Title:       strings.TrimSpace(in.Title),
		URL:         strings.TrimSpace(in.URL),
		Pseudo:      strings.TrimSpace(in.Pseudo),
		Description: strings.TrimSpace(in.Description),
	}
}

func trimPatch(p repository.LinkPatch) repository.LinkPatch {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		return &v
	}
	return repository.LinkPatch{
		Title:       trim(p.Title),
		URL:         trim(p.URL),
		Pseudo:      trim(p.Pseudo),
		Description: trim(p.Description),
	}
}

func pick(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}
