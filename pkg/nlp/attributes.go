package nlp

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsAlpha reports whether the token consists of letters only.
func (token Token) IsAlpha() bool {
	return allRunes(token.Text, unicode.IsLetter)
}

// IsASCII reports whether every rune is in the ASCII range.
func (token Token) IsASCII() bool {
	return allRunes(token.Text, func(r rune) bool { return r < utf8.RuneSelf })
}

// IsDigit reports whether the token consists of digits only.
func (token Token) IsDigit() bool {
	return allRunes(token.Text, unicode.IsDigit)
}

// IsLower reports whether the token has cased letters and all of them are
// lower case.
func (token Token) IsLower() bool {
	cased := false
	for _, r := range token.Text {
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}

// IsUpper reports whether the token has cased letters and all of them are
// upper case.
func (token Token) IsUpper() bool {
	cased := false
	for _, r := range token.Text {
		if unicode.IsLower(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// IsTitle reports whether every cased run starts with an upper case letter
// followed only by lower case letters.
func (token Token) IsTitle() bool {
	cased, previousCased := false, false
	for _, r := range token.Text {
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			if previousCased {
				return false
			}
			previousCased, cased = true, true
		case unicode.IsLower(r):
			if !previousCased {
				return false
			}
			previousCased, cased = true, true
		default:
			previousCased = false
		}
	}
	return cased
}

// IsPunct reports whether the token consists of punctuation only.
func (token Token) IsPunct() bool {
	return allRunes(token.Text, unicode.IsPunct)
}

// IsSpace reports whether the token consists of whitespace only.
func (token Token) IsSpace() bool {
	return allRunes(token.Text, unicode.IsSpace)
}

// IsBracket reports whether the token is a single bracket character.
func (token Token) IsBracket() bool {
	return len(token.Text) == 1 && strings.ContainsAny(token.Text, "()[]{}<>")
}

var quotes = map[string]bool{
	`"`: true, `'`: true, "`": true, "``": true, "''": true,
	"«": true, "»": true, "‘": true, "’": true, "‚": true, "‛": true,
	"“": true, "”": true, "„": true, "‟": true, "‹": true, "›": true,
}

// IsQuote reports whether the token is a quotation mark.
func (token Token) IsQuote() bool {
	return quotes[token.Text]
}

var numberWords = map[string]bool{
	"zero": true, "one": true, "two": true, "three": true, "four": true,
	"five": true, "six": true, "seven": true, "eight": true, "nine": true,
	"ten": true, "eleven": true, "twelve": true, "thirteen": true,
	"fourteen": true, "fifteen": true, "sixteen": true, "seventeen": true,
	"eighteen": true, "nineteen": true, "twenty": true, "thirty": true,
	"forty": true, "fifty": true, "sixty": true, "seventy": true,
	"eighty": true, "ninety": true, "hundred": true, "thousand": true,
	"million": true, "billion": true, "trillion": true,
}

var ordinalWords = map[string]bool{
	"first": true, "second": true, "third": true, "fourth": true,
	"fifth": true, "sixth": true, "seventh": true, "eighth": true,
	"ninth": true, "tenth": true, "eleventh": true, "twelfth": true,
	"twentieth": true, "thirtieth": true, "hundredth": true,
	"thousandth": true, "millionth": true,
}

// LikeNum reports whether the token looks like a number: digits with
// optional sign and separators, a fraction, an ordinal such as 3rd, or an
// English number word.
func (token Token) LikeNum() bool {
	text := strings.TrimLeft(token.Text, "+-±~")
	text = strings.NewReplacer(",", "", ".", "").Replace(text)
	if text == "" {
		return false
	}
	if allRunes(text, unicode.IsDigit) {
		return true
	}
	if numerator, denominator, found := strings.Cut(text, "/"); found {
		if allRunes(numerator, unicode.IsDigit) && allRunes(denominator, unicode.IsDigit) {
			return true
		}
	}

	lower := strings.ToLower(text)
	if numberWords[lower] || ordinalWords[lower] {
		return true
	}
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if strings.HasSuffix(lower, suffix) && allRunes(strings.TrimSuffix(lower, suffix), unicode.IsDigit) {
			return true
		}
	}
	return false
}

// Length is the number of runes in the token.
func (token Token) Length() int {
	return utf8.RuneCountInString(token.Text)
}

// Shape maps letters to X or x and digits to d, truncating runs of the same
// shape character after four repetitions.
func (token Token) Shape() string {
	if utf8.RuneCountInString(token.Text) >= 100 {
		return "LONG"
	}

	var shape strings.Builder
	var last rune
	run := 0
	for _, r := range token.Text {
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			r = 'X'
		case unicode.IsLetter(r):
			r = 'x'
		case unicode.IsDigit(r):
			r = 'd'
		}
		if r == last {
			run++
		} else {
			last, run = r, 1
		}
		if run <= 4 {
			shape.WriteRune(r)
		}
	}
	return shape.String()
}

// Prefix is the first rune of the token.
func (token Token) Prefix() string {
	_, size := utf8.DecodeRuneInString(token.Text)
	return token.Text[:size]
}

// Suffix is the last three runes of the token.
func (token Token) Suffix() string {
	runes := []rune(token.Text)
	if len(runes) <= 3 {
		return token.Text
	}
	return string(runes[len(runes)-3:])
}

func allRunes(text string, predicate func(rune) bool) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if !predicate(r) {
			return false
		}
	}
	return true
}
