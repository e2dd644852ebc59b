package filter

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var (
	tokenRegex = regexp.MustCompile(`[\p{L}\p{N}+#._/-]+`)
	wordRegex  = regexp.MustCompile(`[a-z0-9]+`)
)

// normalizeText folds full-width forms, strips diacritics and lower-cases.
func normalizeText(str string) string {
	t := transform.Chain(width.Fold, norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, str)
	if err != nil {
		result = str
	}
	return strings.ToLower(strings.Join(strings.Fields(result), " "))
}

// compactText keeps letters and digits only, so "road map" and "roadmap"
// compare equal.
func compactText(folded string) string {
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Document is one piece of record text prepared for matching.
type Document struct {
	folded  string
	compact string
	tokens  []string
	words   []string
}

// NewDocument prepares the given parts, joined by spaces.
func NewDocument(parts ...string) *Document {
	folded := normalizeText(strings.Join(parts, " "))
	d := &Document{
		folded:  folded,
		compact: compactText(folded),
		words:   wordRegex.FindAllString(folded, -1),
	}
	for _, tok := range tokenRegex.FindAllString(folded, -1) {
		if c := compactText(tok); c != "" {
			d.tokens = append(d.tokens, c)
		}
	}
	return d
}

func (d *Document) Empty() bool { return d.folded == "" }

func isWordByte(b byte) bool {
	return b < 0x80 && (b >= 'a' && b <= 'z' || b >= '0' && b <= '9')
}

// containsBounded reports whether needle occurs in hay without gluing onto
// neighbouring ASCII letters or digits, so "pm" does not hit "development".
// Non-ASCII edges (CJK) need no boundary.
func containsBounded(hay, needle string) bool {
	if needle == "" {
		return false
	}
	for from := 0; from <= len(hay)-len(needle); {
		i := strings.Index(hay[from:], needle)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(needle)
		leftOK := !isWordByte(needle[0]) || start == 0 || !isWordByte(hay[start-1])
		rightOK := !isWordByte(needle[len(needle)-1]) || end == len(hay) || !isWordByte(hay[end])
		if leftOK && rightOK {
			return true
		}
		from = start + 1
	}
	return false
}
