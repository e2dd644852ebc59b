package filter

import (
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"
)

// Keywords shorter than this (after compaction) only match literally.
// Short acronyms such as "PM" would otherwise hit inside unrelated words.
const minLooseRunes = 4

// automaton wraps an Aho-Corasick matcher over de-duplicated patterns.
// Several keywords may fold to the same pattern. The matcher keeps scratch
// state between calls, hence the mutex.
type automaton struct {
	mu       sync.Mutex
	ac       *ahocorasick.Matcher
	patterns []string
	owners   map[string][]int
}

func newAutomaton(forms []string, eligible func(i int) bool) *automaton {
	a := &automaton{owners: make(map[string][]int)}
	for i, p := range forms {
		if p == "" || !eligible(i) {
			continue
		}
		if _, ok := a.owners[p]; !ok {
			a.patterns = append(a.patterns, p)
		}
		a.owners[p] = append(a.owners[p], i)
	}
	if len(a.patterns) > 0 {
		a.ac = ahocorasick.NewStringMatcher(a.patterns)
	}
	return a
}

// candidates returns pattern strings found in text, in one pass.
func (a *automaton) candidates(text string) []string {
	if a.ac == nil || text == "" {
		return nil
	}
	a.mu.Lock()
	hits := a.ac.Match([]byte(text))
	a.mu.Unlock()
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if h >= 0 && h < len(a.patterns) {
			out = append(out, a.patterns[h])
		}
	}
	return out
}

// Matcher tests a fixed keyword list against documents. Matching is
// case-insensitive and width/diacritic-insensitive. A keyword hits when it
// appears literally, when it appears once separators are ignored, or, with
// fuzzy matching on, when a token or word n-gram is similar enough.
type Matcher struct {
	keywords  []string
	folded    []string
	compact   []string
	words     [][]string
	literal   *automaton
	loose     *automaton
	fuzzy     bool
	threshold float64
}

func NewMatcher(keywords []string, fuzzy bool, threshold float64) *Matcher {
	m := &Matcher{
		keywords:  keywords,
		folded:    make([]string, len(keywords)),
		compact:   make([]string, len(keywords)),
		words:     make([][]string, len(keywords)),
		fuzzy:     fuzzy,
		threshold: threshold,
	}
	for i, kw := range keywords {
		m.folded[i] = normalizeText(kw)
		m.compact[i] = compactText(m.folded[i])
		m.words[i] = wordRegex.FindAllString(m.folded[i], -1)
	}
	m.literal = newAutomaton(m.folded, func(int) bool { return true })
	m.loose = newAutomaton(m.compact, m.isLoose)
	return m
}

func (m *Matcher) isLoose(i int) bool {
	return utf8.RuneCountInString(m.compact[i]) >= minLooseRunes
}

func (m *Matcher) Len() int { return len(m.keywords) }

func (m *Matcher) Keyword(i int) string { return m.keywords[i] }

// Hits returns the indexes of every keyword found in d, ascending.
func (m *Matcher) Hits(d *Document) []int {
	if len(m.keywords) == 0 || d.Empty() {
		return nil
	}
	hit := make([]bool, len(m.keywords))

	for _, p := range m.literal.candidates(d.folded) {
		if !containsBounded(d.folded, p) {
			continue
		}
		for _, i := range m.literal.owners[p] {
			hit[i] = true
		}
	}
	for _, p := range m.loose.candidates(d.compact) {
		for _, i := range m.loose.owners[p] {
			hit[i] = true
		}
	}
	if m.fuzzy {
		for i := range m.keywords {
			if !hit[i] && m.isLoose(i) && m.fuzzyHit(i, d) {
				hit[i] = true
			}
		}
	}

	var out []int
	for i, ok := range hit {
		if ok {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

func (m *Matcher) fuzzyHit(i int, d *Document) bool {
	target := m.compact[i]
	for _, tok := range d.tokens {
		if similarity(tok, target) >= m.threshold {
			return true
		}
	}

	// multi-word keywords: compare against windows of the same word count
	k := len(m.words[i])
	if k < 2 || len(d.words) < k {
		return false
	}
	for start := 0; start+k <= len(d.words); start++ {
		gram := ""
		for _, w := range d.words[start : start+k] {
			gram += w
		}
		if similarity(gram, target) >= m.threshold {
			return true
		}
	}
	return false
}

// Any reports whether at least one keyword hits d.
func (m *Matcher) Any(d *Document) bool {
	return len(m.Hits(d)) > 0
}

// Matched returns the configured spelling of every keyword found in d.
func (m *Matcher) Matched(d *Document) []string {
	idx := m.Hits(d)
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, m.keywords[i])
	}
	return out
}
