// Package keywords matches transaction text against a curated
// merchant table before any model is consulted.
package keywords

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

//go:embed keywords.yaml
var tableYAML []byte

type entry struct {
	Keyword     string  `yaml:"keyword"`
	Category    string  `yaml:"category"`
	Subcategory string  `yaml:"subcategory"`
	Confidence  float64 `yaml:"confidence"`
}

type table struct {
	Entries []entry `yaml:"entries"`
}

// Matcher holds the table with pre-normalized keywords. Longer
// keywords are preferred on ties so "uber eats" beats "uber".
type Matcher struct {
	entries []entry
}

func NewMatcher() (*Matcher, error) {
	var t table
	if err := yaml.Unmarshal(tableYAML, &t); err != nil {
		return nil, fmt.Errorf("parse keyword table: %w", err)
	}
	if len(t.Entries) == 0 {
		return nil, fmt.Errorf("keyword table is empty")
	}

	m := &Matcher{}
	for _, e := range t.Entries {
		e.Keyword = m.normalize(e.Keyword)
		if e.Keyword == "" || e.Confidence <= 0 {
			continue
		}
		m.entries = append(m.entries, e)
	}
	return m, nil
}

func (m *Matcher) Match(description, merchant string) (domain.KeywordMatch, bool) {
	haystack := m.normalize(description + " " + merchant)
	if haystack == "" {
		return domain.KeywordMatch{}, false
	}

	var best entry
	found := false
	for _, e := range m.entries {
		if !strings.Contains(haystack, e.Keyword) {
			continue
		}
		if !found || e.Confidence > best.Confidence ||
			(e.Confidence == best.Confidence && len(e.Keyword) > len(best.Keyword)) {
			best = e
			found = true
		}
	}
	if !found {
		return domain.KeywordMatch{}, false
	}

	return domain.KeywordMatch{
		Category:    domain.NormalizeCategory(best.Category),
		Subcategory: best.Subcategory,
		Confidence:  best.Confidence,
		Keyword:     best.Keyword,
	}, true
}

// normalize lowercases, strips diacritics and squeezes every
// non-alphanumeric run into a single space, so "Café-Crème" and
// "CAFE CREME" match the same keyword.
func (m *Matcher) normalize(s string) string {
	// A fresh transformer per call; the chained transformer carries
	// state and is not safe to share across requests.
	folded, _, err := transform.String(newFolder(), strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

func newFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
