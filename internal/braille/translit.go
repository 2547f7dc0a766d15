package braille

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var numberDigits = map[string]string{
	"a": "1", "b": "2", "c": "3", "d": "4", "e": "5",
	"f": "6", "g": "7", "h": "8", "i": "9", "j": "0",
}

// Transliterator turns ordered cells into text.
//
// A Transliterator carries the capital and number flags between cells, so one
// value must not be used from several goroutines at once. Translate resets
// both flags before it starts.
type Transliterator struct {
	mode Mode

	capitalizeNext bool
	numberMode     bool
}

// NewTransliterator returns a transliterator for cells produced under mode.
func NewTransliterator(mode Mode) *Transliterator {
	return &Transliterator{mode: mode}
}

// Mode returns the processing mode.
func (t *Transliterator) Mode() Mode { return t.mode }

// TranslateCells orders cells with GroupIntoLines and translates them.
func (t *Transliterator) TranslateCells(cells []Cell) string {
	return t.Translate(GroupIntoLines(cells))
}

// Translate renders lines as text. Tokens within a line are separated by one
// space and lines by "\n".
func (t *Transliterator) Translate(lines []Line) string {
	t.capitalizeNext = false
	t.numberMode = false

	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.Join(t.translateLine(line), " "))
		t.numberMode = false
	}
	return sb.String()
}

func (t *Transliterator) translateLine(line Line) []string {
	var tokens []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			tokens = append(tokens, buf.String())
			buf.Reset()
		}
	}

	for _, word := range GroupIntoWords(line) {
		for i := 0; i < len(word); i++ {
			cell := word[i]

			switch {
			case cell.Meaning == CapitalMeaning:
				t.capitalizeNext = true
				continue
			case cell.Meaning == NumberMeaning:
				t.numberMode = true
				continue
			case cell.Binary == Dot4Pattern:
				if i+1 < len(word) {
					if s, ok := t.composeTilde(word[i+1]); ok {
						buf.WriteString(s)
						i++
					}
				}
				continue
			case cell.Binary == Dot5Pattern:
				continue
			}

			text := t.render(cell.Meaning)
			if t.mode.HasGrade2() && IsStandaloneWord(text) {
				flush()
				tokens = append(tokens, text)
				continue
			}
			buf.WriteString(text)
		}
		flush()
	}
	return tokens
}

// composeTilde handles the cell after a dot-4 prefix.
func (t *Transliterator) composeTilde(next Cell) (string, bool) {
	switch next.Meaning {
	case "n":
		if t.capitalizeNext {
			t.capitalizeNext = false
			return "Ñ", true
		}
		return "ñ", true
	case "N":
		return "Ñ", true
	}
	return "", false
}

func (t *Transliterator) render(meaning string) string {
	if t.numberMode {
		if d, ok := numberDigits[meaning]; ok {
			return d
		}
	}
	if t.capitalizeNext {
		t.capitalizeNext = false
		return upperFirst(meaning)
	}
	return meaning
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
