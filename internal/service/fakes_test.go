package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/linkify/internal/apperror"
	"github.com/sakif/linkify/internal/cache"
	"github.com/sakif/linkify/internal/model"
	"github.com/sakif/linkify/internal/repository"
	"github.com/sakif/linkify/internal/upload"
)

// =========================================================================
// FAKES
// =========================================================================
//
// In-memory stand-ins for the repositories. They enforce the same UNIQUE
// rules as the SQLite schema so the allocator's conflict handling can be
// exercised without a database.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int

	// createConflicts forces Create to fail with a pseudo conflict for the
	// listed handles even though PseudoExists reports them free, which is
	// what a lost race looks like.
	createConflicts map[string]bool
	// emailRaceWinner, when set, is inserted on the first Create call to
	// simulate a concurrent first login for the same email.
	emailRaceWinner *model.User
	getErr          error
	creates         int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), createConflicts: map[string]bool{}}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++

	if w := f.emailRaceWinner; w != nil {
		f.emailRaceWinner = nil
		stored := *w
		f.users[stored.ID] = &stored
	}
	if f.createConflicts[user.Pseudo] {
		return apperror.ConflictOn("user", "pseudo")
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.ConflictOn("user", "email")
		}
		if u.Pseudo == user.Pseudo {
			return apperror.ConflictOn("user", "pseudo")
		}
	}

	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	if user.Theme == "" {
		user.Theme = model.DefaultTheme
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) find(match func(*model.User) bool) *model.User {
	for _, u := range f.users {
		if match(u) {
			c := *u
			return &c
		}
	}
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.find(func(u *model.User) bool { return u.ID == id }); u != nil {
		return u, nil
	}
	return nil, apperror.NotFound("user", id)
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u := f.find(func(u *model.User) bool { return u.Email == email }); u != nil {
		return u, nil
	}
	return nil, apperror.NotFoundBy("user", "email", email)
}

func (f *fakeUserRepo) GetByPseudo(_ context.Context, pseudo string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.find(func(u *model.User) bool { return u.Pseudo == pseudo }); u != nil {
		return u, nil
	}
	return nil, apperror.NotFoundBy("user", "pseudo", pseudo)
}

func (f *fakeUserRepo) PseudoExists(_ context.Context, pseudo string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u *model.User) bool { return u.Pseudo == pseudo }) != nil, nil
}

func (f *fakeUserRepo) UpdateTheme(_ context.Context, id, theme string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	u.Theme = theme
	c := *u
	return &c, nil
}

type fakeLinkRepo struct {
	mu     sync.Mutex
	links  []*model.SocialLink // insertion order
	nextID int
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{}
}

func (f *fakeLinkRepo) get(id string) *model.SocialLink {
	for _, l := range f.links {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (f *fakeLinkRepo) Create(_ context.Context, link *model.SocialLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	link.ID = fmt.Sprintf("link-%d", f.nextID)
	link.CreatedAt = time.Now()
	link.UpdatedAt = link.CreatedAt
	stored := *link
	f.links = append(f.links, &stored)
	return nil
}

func (f *fakeLinkRepo) GetByID(_ context.Context, id string) (*model.SocialLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l := f.get(id); l != nil {
		c := *l
		return &c, nil
	}
	return nil, apperror.NotFound("link", id)
}

func (f *fakeLinkRepo) List(_ context.Context, filter repository.LinkFilter) ([]model.SocialLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.SocialLink{}
	for _, l := range f.links {
		if l.UserID != filter.UserID || (filter.ActiveOnly && !l.Active) {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (f *fakeLinkRepo) Update(_ context.Context, id string, p repository.LinkPatch) (*model.SocialLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.get(id)
	if l == nil {
		return nil, apperror.NotFound("link", id)
	}
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.URL != nil {
		l.URL = *p.URL
	}
	if p.Pseudo != nil {
		l.Pseudo = *p.Pseudo
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	c := *l
	return &c, nil
}

func (f *fakeLinkRepo) ToggleActive(_ context.Context, id string) (*model.SocialLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.get(id)
	if l == nil {
		return nil, apperror.NotFound("link", id)
	}
	l.Active = !l.Active
	c := *l
	return &c, nil
}

func (f *fakeLinkRepo) IncrementClicks(_ context.Context, id string) (*model.SocialLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.get(id)
	if l == nil {
		return nil, apperror.NotFound("link", id)
	}
	l.Clicks++
	c := *l
	return &c, nil
}

func (f *fakeLinkRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, l := range f.links {
		if l.ID == id {
			f.links = append(f.links[:i], f.links[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("link", id)
}

type fakeHost struct {
	calls int
	err   error
}

func (h *fakeHost) Name() string { return "fake" }

func (h *fakeHost) Upload(_ context.Context, f upload.File) (*upload.Asset, error) {
	h.calls++
	if h.err != nil {
		return nil, h.err
	}
	b, _ := io.ReadAll(f.Body)
	return &upload.Asset{URL: "https://files.example/" + f.Name, PublicID: f.Name, Bytes: int64(len(b))}, nil
}

type recordingObserver struct {
	mu      sync.Mutex
	clicks  int
	lookups map[string]int
	uploads int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{lookups: map[string]int{}}
}

func (o *recordingObserver) ClickRecorded() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clicks++
}

func (o *recordingObserver) CacheLookup(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lookups[result]++
}

func (o *recordingObserver) UploadFinished(string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.uploads++
}

// mapCache is a ProfileCache backed by a map.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]cache.Profile
	getErr  error
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]cache.Profile{}}
}

func (c *mapCache) Get(_ context.Context, pseudo string) (*cache.Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	p, ok := c.entries[pseudo]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *mapCache) Set(_ context.Context, p *cache.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[p.Pseudo] = *p
	return nil
}

func (c *mapCache) Delete(_ context.Context, pseudo string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, pseudo)
	return nil
}

var errDatabaseDown = errors.New("database is down")

// =========================================================================
// HELPERS
// =========================================================================

type fixture struct {
	users    *fakeUserRepo
	links    *fakeLinkRepo
	host     *fakeHost
	observer *recordingObserver
	cache    *mapCache

	accounts *AccountService
	linkSvc  *LinkService
	pages    *PageService
}

func newFixture() *fixture {
	f := &fixture{
		users:    newFakeUserRepo(),
		links:    newFakeLinkRepo(),
		host:     &fakeHost{},
		observer: newRecordingObserver(),
		cache:    newMapCache(),
	}
	logger := discardLogger()
	f.accounts = NewAccountService(f.users, f.cache, logger)
	f.linkSvc = NewLinkService(f.users, f.links, f.host, f.observer, logger)
	f.pages = NewPageService(f.users, f.links, f.cache, f.observer, logger)
	return f
}

func (f *fixture) mustUser(email, name string) *model.User {
	u, err := f.accounts.ProvisionUser(context.Background(), email, name)
	if err != nil {
		panic(err)
	}
	return u
}

func (f *fixture) mustLink(email, title, url string) *model.SocialLink {
	l, err := f.linkSvc.Add(context.Background(), email, LinkInput{Title: title, URL: url, Pseudo: "@" + title})
	if err != nil {
		panic(err)
	}
	return l
}
