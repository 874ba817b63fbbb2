package conversation

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Intent is the top-level reason a customer is writing in.
type Intent int

const (
	IntentUndetermined Intent = iota
	IntentServices
	IntentProducts
	IntentExecutive
)

func (i Intent) String() string {
	switch i {
	case IntentServices:
		return "services"
	case IntentProducts:
		return "products"
	case IntentExecutive:
		return "executive"
	default:
		return "undetermined"
	}
}

// ResumeChoice is the answer to the continue-or-restart prompt.
type ResumeChoice int

const (
	ResumeUnknown ResumeChoice = iota
	ResumeContinue
	ResumeRestart
)

// combining diacritical marks block only; Devanagari vowel signs must survive.
var stripLatinMarks = runes.Remove(runes.Predicate(func(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
}))

// Normalize lowercases s, strips Latin diacritics and collapses whitespace.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, stripLatinMarks, norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(out), " ")
}

// parseOrdinal accepts a bare number, optionally followed by "." or ")".
// Devanagari digits are read as their ASCII values.
func parseOrdinal(text string) (int, bool) {
	s := strings.TrimRight(Normalize(text), ".)")
	if s == "" || len(s) > 12 {
		return 0, false
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '०' && r <= '९':
			b.WriteRune('0' + (r - '०'))
		default:
			return 0, false
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// containsKeyword reports whether the normalized keyword occurs in the
// normalized text starting at a word boundary. Suffixes are allowed so
// "rings" matches "ring" while "bring" does not.
func containsKeyword(normText, keyword string) bool {
	kw := Normalize(keyword)
	if kw == "" {
		return false
	}
	offset := 0
	for {
		idx := strings.Index(normText[offset:], kw)
		if idx < 0 {
			return false
		}
		start := offset + idx
		if start == 0 {
			return true
		}
		prev, _ := utf8.DecodeLastRuneInString(normText[:start])
		if !isWordRune(prev) {
			return true
		}
		offset = start + len(kw)
		if offset >= len(normText) {
			return false
		}
	}
}

func matchesAny(normText string, keywords []string) bool {
	for _, kw := range keywords {
		if containsKeyword(normText, kw) {
			return true
		}
	}
	return false
}

// ResolveIntent classifies free text typed at START or MENU.
// Bare 1/2/3 short-circuit to services/products/executive.
func (c *Catalog) ResolveIntent(text string) Intent {
	if n, ok := parseOrdinal(text); ok {
		switch n {
		case 1:
			return IntentServices
		case 2:
			return IntentProducts
		case 3:
			return IntentExecutive
		default:
			return IntentUndetermined
		}
	}

	normText := Normalize(text)
	service := matchesAny(normText, c.Intents.Service)
	product := matchesAny(normText, c.Intents.Product)
	executive := matchesAny(normText, c.Intents.Executive)

	switch {
	case service && product && !executive:
		if matchesAny(normText, c.Intents.Transactional) {
			return IntentProducts
		}
		if matchesAny(normText, c.Intents.Advisory) {
			return IntentServices
		}
		return IntentUndetermined
	case service && !product && !executive:
		return IntentServices
	case product && !service && !executive:
		return IntentProducts
	case executive && !service && !product:
		return IntentExecutive
	default:
		return IntentUndetermined
	}
}

func optionMatches(normText string, o Option) bool {
	if containsKeyword(normText, o.Label) {
		return true
	}
	return matchesAny(normText, o.Keywords)
}

// MatchOption selects a submenu entry: declared ordinal first, then keywords in table order.
func (c *Catalog) MatchOption(opts []Option, text string) (Option, bool) {
	if n, ok := parseOrdinal(text); ok {
		for _, o := range opts {
			if o.Ordinal == n {
				return o, true
			}
		}
	}
	normText := Normalize(text)
	for _, o := range opts {
		if optionMatches(normText, o) {
			return o, true
		}
	}
	return Option{}, false
}

// MatchConcrete returns the single concrete option whose keywords occur in
// text. Zero or several matches report false.
func (c *Catalog) MatchConcrete(opts []Option, text string) (Option, bool) {
	normText := Normalize(text)
	var found Option
	count := 0
	for _, o := range opts {
		if !o.IsConcrete() {
			continue
		}
		if optionMatches(normText, o) {
			found = o
			count++
		}
	}
	return found, count == 1
}

// IsMenuCommand reports whether text is one of the global menu commands, alone
// or as the first word of the message ("menu please").
func (c *Catalog) IsMenuCommand(text string) bool {
	normText := strings.TrimRight(Normalize(text), ".!?।")
	normText = strings.TrimSpace(normText)
	for _, cmd := range c.MenuCommands {
		nc := Normalize(cmd)
		if nc == "" {
			continue
		}
		rest, ok := strings.CutPrefix(normText, nc)
		if !ok {
			continue
		}
		if next, _ := utf8.DecodeRuneInString(rest); rest == "" || !isWordRune(next) {
			return true
		}
	}
	return false
}

// ResolveResumeChoice reads the reply to the continue-or-restart prompt.
// Numeric keywords must match exactly; words may appear anywhere.
func (c *Catalog) ResolveResumeChoice(text string) ResumeChoice {
	cont := resumeMatches(text, c.Resume.Continue)
	restart := resumeMatches(text, c.Resume.Restart)
	switch {
	case cont && !restart:
		return ResumeContinue
	case restart && !cont:
		return ResumeRestart
	default:
		return ResumeUnknown
	}
}

func resumeMatches(text string, keywords []string) bool {
	normText := Normalize(text)
	n, numeric := parseOrdinal(text)
	for _, kw := range keywords {
		if want, ok := parseOrdinal(kw); ok {
			if numeric && n == want {
				return true
			}
			continue
		}
		if !numeric && containsKeyword(normText, kw) {
			return true
		}
	}
	return false
}
