// Package search ranks a user's links against a free-text query.
//
// Each link is indexed on title, url, description and pseudo. A field is
// scored between 0 (exact) and 1 (no resemblance); a link takes the score of
// its best field and is kept when that score is at most Threshold.
//
// A field containing the query as a contiguous substring scores by where the
// substring starts: 0.01 at the beginning, growing by 0.01 per rune of
// offset up to 0.2. Only when there is no contiguous hit does the field fall
// back to fzf's FuzzyMatchV2 (letters spread across the field), normalised by
// the score the query earns against itself, and then to the Levenshtein
// distance to the closest same-length window so small typos still match.
// Those fallbacks never score below 0.25, so "hub" ranks "GitHub" ahead of
// a URL that merely has an h, a u and a b in order.
package search

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"

	"github.com/sakif/linkify/internal/model"
)

// Threshold is the highest score a link may have and still be returned.
const Threshold = 0.4

const (
	locationStep  = 0.01
	maxContiguous = 0.2
	minScattered  = 0.25
)

var initOnce sync.Once

var slabs = sync.Pool{
	New: func() any { return util.MakeSlab(100*1024, 2048) },
}

// Index is an immutable snapshot of a link list. Build a new one whenever
// the list changes.
type Index struct {
	links  []model.SocialLink
	fields [][]string
}

func NewIndex(links []model.SocialLink) *Index {
	initOnce.Do(func() { algo.Init("default") })

	ix := &Index{
		links:  make([]model.SocialLink, len(links)),
		fields: make([][]string, len(links)),
	}
	copy(ix.links, links)
	for i, l := range links {
		ix.fields[i] = []string{
			strings.ToLower(l.Title),
			strings.ToLower(l.URL),
			strings.ToLower(l.Description),
			strings.ToLower(l.Pseudo),
		}
	}
	return ix
}

// Search returns the links matching query, best first. Ties keep the
// indexed order. A blank query returns every link in indexed order.
func (ix *Index) Search(query string) []model.SocialLink {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]model.SocialLink, len(ix.links))
		copy(out, ix.links)
		return out
	}

	slab := slabs.Get().(*util.Slab)
	defer slabs.Put(slab)

	m := newMatcher(query, slab)

	type hit struct {
		pos   int
		score float64
	}
	var hits []hit
	for i, fields := range ix.fields {
		best := 1.0
		for _, f := range fields {
			if s := m.score(f); s < best {
				best = s
			}
		}
		if best <= Threshold {
			hits = append(hits, hit{pos: i, score: best})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score < hits[b].score })

	out := make([]model.SocialLink, 0, len(hits))
	for _, h := range hits {
		out = append(out, ix.links[h.pos])
	}
	return out
}

type matcher struct {
	query   string
	pattern []rune
	perfect int
	slab    *util.Slab
}

func newMatcher(query string, slab *util.Slab) *matcher {
	m := &matcher{query: query, pattern: []rune(query), slab: slab}
	m.perfect = m.fzfScore(query)
	return m
}

// score returns 0 for an exact field match up to 1 for no resemblance.
func (m *matcher) score(field string) float64 {
	if field == "" {
		return 1
	}
	if field == m.query {
		return 0
	}

	if i := strings.Index(field, m.query); i >= 0 {
		loc := utf8.RuneCountInString(field[:i])
		return math.Min(float64(loc+1)*locationStep, maxContiguous)
	}

	if m.perfect > 0 {
		if s := m.fzfScore(field); s > 0 {
			norm := float64(s) / float64(m.perfect)
			if norm > 1 {
				norm = 1
			}
			return math.Max(1-norm, minScattered)
		}
	}

	return math.Max(m.typoScore(field), minScattered)
}

func (m *matcher) fzfScore(text string) int {
	chars := util.ToChars([]byte(text))
	res, _ := algo.FuzzyMatchV2(false, false, true, &chars, m.pattern, false, m.slab)
	if res.Start < 0 {
		return 0
	}
	return res.Score
}

// typoScore is the smallest edit distance between the query and any window
// of the field with the query's length, relative to that length.
func (m *matcher) typoScore(field string) float64 {
	runes := []rune(field)
	n := len(m.pattern)

	if len(runes) <= n {
		return ratio(levenshtein.ComputeDistance(m.query, field), n)
	}

	best := n
	for i := 0; i+n <= len(runes); i++ {
		d := levenshtein.ComputeDistance(m.query, string(runes[i:i+n]))
		if d < best {
			best = d
			if best == 0 {
				break
			}
		}
	}
	return ratio(best, n)
}

func ratio(distance, length int) float64 {
	if length == 0 {
		return 1
	}
	r := float64(distance) / float64(length)
	if r > 1 {
		return 1
	}
	return r
}
