// Package platform holds the per-platform URL rules applied to links.
//
// A link whose title names a known platform must point at that platform:
// its URL, with the scheme and a leading "www." removed, has to begin with
// one of the platform's prefixes. Titles that are not known platforms carry
// no rule beyond the generic http/https check done by the service.
package platform

import (
	"net/url"
	"strings"
)

// Titles given to links whose destination is an uploaded file.
const (
	TitleImage       = "Image"
	TitleDocumentPDF = "Document PDF"
)

// Platform is a named destination with its accepted URL prefixes.
type Platform struct {
	Name     string   `json:"name"`
	Prefixes []string `json:"prefixes"`
}

var known = []Platform{
	{Name: "YouTube", Prefixes: []string{"youtube.com", "m.youtube.com", "youtu.be"}},
	{Name: "Twitter", Prefixes: []string{"twitter.com"}},
	{Name: "X", Prefixes: []string{"x.com", "twitter.com"}},
	{Name: "Instagram", Prefixes: []string{"instagram.com"}},
	{Name: "Facebook", Prefixes: []string{"facebook.com", "fb.com"}},
	{Name: "LinkedIn", Prefixes: []string{"linkedin.com"}},
	{Name: "GitHub", Prefixes: []string{"github.com"}},
	{Name: "TikTok", Prefixes: []string{"tiktok.com"}},
	{Name: "Discord", Prefixes: []string{"discord.gg", "discord.com"}},
	{Name: "Twitch", Prefixes: []string{"twitch.tv"}},
	{Name: "Reddit", Prefixes: []string{"reddit.com"}},
	{Name: "Pinterest", Prefixes: []string{"pinterest.com"}},
	{Name: "Snapchat", Prefixes: []string{"snapchat.com"}},
	{Name: "Spotify", Prefixes: []string{"open.spotify.com", "spotify.com"}},
	{Name: "Dribbble", Prefixes: []string{"dribbble.com"}},
	{Name: "Behance", Prefixes: []string{"behance.net"}},
	{Name: "Medium", Prefixes: []string{"medium.com"}},
	{Name: "Telegram", Prefixes: []string{"t.me", "telegram.me"}},
	{Name: "WhatsApp", Prefixes: []string{"wa.me", "whatsapp.com"}},
}

// All returns a copy of the known platforms.
func All() []Platform {
	out := make([]Platform, len(known))
	copy(out, known)
	return out
}

// Lookup finds the platform named by a link title, ignoring case and
// surrounding space.
func Lookup(title string) (Platform, bool) {
	title = strings.TrimSpace(title)
	for _, p := range known {
		if strings.EqualFold(p.Name, title) {
			return p, true
		}
	}
	return Platform{}, false
}

// IsUploadTitle reports whether title marks a link created by a file upload.
func IsUploadTitle(title string) bool {
	return title == TitleImage || title == TitleDocumentPDF
}

// Accepts reports whether rawURL starts with one of p's prefixes.
// A prefix must end on a boundary: "youtube.com" does not match
// "youtube.com.example.org".
func (p Platform) Accepts(rawURL string) bool {
	rest := stripScheme(rawURL)
	for _, prefix := range p.Prefixes {
		if !strings.HasPrefix(rest, prefix) {
			continue
		}
		tail := rest[len(prefix):]
		if tail == "" || strings.ContainsRune("/?#:", rune(tail[0])) {
			return true
		}
	}
	return false
}

// Allows applies the rule for title to rawURL. Unknown titles and upload
// titles always pass.
func Allows(title, rawURL string) bool {
	if IsUploadTitle(title) {
		return true
	}
	p, ok := Lookup(title)
	if !ok {
		return true
	}
	return p.Accepts(rawURL)
}

// IsWebURL reports whether rawURL is an absolute http or https URL with a host.
func IsWebURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

func stripScheme(rawURL string) string {
	s := strings.ToLower(strings.TrimSpace(rawURL))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	return strings.TrimPrefix(s, "www.")
}
