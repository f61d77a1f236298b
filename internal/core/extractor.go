package core

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/valter-silva-au/ditto/pkg/models"
)

// keyword is one spoken keyword and the field it introduces.
type keyword struct {
	text  string
	field models.Field
}

// keywordSpan is a keyword occurrence in the command text.
type keywordSpan struct {
	field models.Field
	start int // offset of the keyword
	end   int // offset just past the keyword
}

// FieldExtractor splits command text into raw field values using
// configured keywords. It performs no validation.
type FieldExtractor struct {
	trigger  string
	keywords []keyword
}

// NewFieldExtractor creates an extractor for the given trigger phrase and
// field -> keywords mapping.
func NewFieldExtractor(trigger string, fields map[models.Field][]string) *FieldExtractor {
	var kws []keyword
	for field, list := range fields {
		for _, kw := range list {
			kw = collapseSpaces(kw)
			if kw == "" {
				continue
			}
			kws = append(kws, keyword{text: kw, field: field})
		}
	}
	// Longest first so "due date" wins over "date" at the same offset.
	sort.Slice(kws, func(i, j int) bool {
		if len(kws[i].text) != len(kws[j].text) {
			return len(kws[i].text) > len(kws[j].text)
		}
		return kws[i].text < kws[j].text
	})
	return &FieldExtractor{trigger: collapseSpaces(trigger), keywords: kws}
}

// Extract parses text (normally beginning with the trigger phrase) into
// raw field values. A repeated field keeps only its last non-empty value,
// except label, which collects every value in order. Without an explicit
// title, the text before the first keyword becomes the title.
func (e *FieldExtractor) Extract(text string) models.ExtractedFields {
	body := e.commandBody(collapseSpaces(text))
	spans := e.scan(body)

	out := models.ExtractedFields{Values: make(map[models.Field]string)}
	for i, sp := range spans {
		end := len(body)
		if i+1 < len(spans) {
			end = spans[i+1].start
		}
		value := cleanValue(body[sp.end:end])
		if value == "" {
			continue
		}
		if sp.field == models.FieldLabel {
			out.Labels = append(out.Labels, value)
			continue
		}
		out.Values[sp.field] = value
	}

	if _, ok := out.Values[models.FieldTitle]; !ok {
		implicit := body
		if len(spans) > 0 {
			implicit = body[:spans[0].start]
		}
		if title := cleanValue(implicit); title != "" {
			out.Values[models.FieldTitle] = title
		}
	}

	return out
}

// ContainsTrigger reports whether text contains the trigger phrase.
func (e *FieldExtractor) ContainsTrigger(text string) bool {
	return indexFold(collapseSpaces(text), e.trigger) >= 0
}

// commandBody returns the text after the trigger phrase, or all of text
// when the trigger is absent.
func (e *FieldExtractor) commandBody(text string) string {
	if idx := indexFold(text, e.trigger); idx >= 0 {
		return text[idx+len(e.trigger):]
	}
	return text
}

// scan walks text once, left to right, and records every keyword that
// starts and ends on a word boundary. At each position the longest
// matching keyword is taken and scanning resumes after it.
func (e *FieldExtractor) scan(text string) []keywordSpan {
	var spans []keywordSpan
	prevWord := false
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !prevWord && isWordRune(r) {
			if kw, ok := e.matchAt(text, i); ok {
				spans = append(spans, keywordSpan{field: kw.field, start: i, end: i + len(kw.text)})
				last, _ := utf8.DecodeLastRuneInString(kw.text)
				prevWord = isWordRune(last)
				i += len(kw.text)
				continue
			}
		}
		prevWord = isWordRune(r)
		i += size
	}
	return spans
}

func (e *FieldExtractor) matchAt(text string, i int) (keyword, bool) {
	for _, kw := range e.keywords {
		end := i + len(kw.text)
		if end > len(text) || !strings.EqualFold(text[i:end], kw.text) {
			continue
		}
		if end < len(text) {
			next, _ := utf8.DecodeRuneInString(text[end:])
			if isWordRune(next) {
				continue
			}
		}
		return kw, true
	}
	return keyword{}, false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// cleanValue trims whitespace, leading separators, and trailing sentence
// punctuation from a raw value.
func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, ",;:-")
	s = strings.TrimRight(s, ".,;:!?")
	return strings.TrimSpace(s)
}
