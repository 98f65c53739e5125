// Package cache keeps the public profile lookup (pseudo -> owner, theme)
// out of the database on hot public pages.
//
// Only the profile is cached. Link lists are always read from the store so
// click counts and visibility changes show up immediately.
package cache

import "context"

// Profile is the cached part of a public page.
type Profile struct {
	UserID string `json:"userId"`
	Pseudo string `json:"pseudo"`
	Theme  string `json:"theme"`
}

// ProfileCache is implemented by Redis and Noop. Get returns (nil, nil) on
// a miss.
type ProfileCache interface {
	Get(ctx context.Context, pseudo string) (*Profile, error)
	Set(ctx context.Context, p *Profile) error
	Delete(ctx context.Context, pseudo string) error
}

// Noop is used when no cache is configured. Every Get is a miss.
type Noop struct{}

var _ ProfileCache = Noop{}

func (Noop) Get(context.Context, string) (*Profile, error) { return nil, nil }
func (Noop) Set(context.Context, *Profile) error          { return nil }
func (Noop) Delete(context.Context, string) error         { return nil }
