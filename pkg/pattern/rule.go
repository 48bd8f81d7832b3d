// Package pattern loads and validates span ruler rule dictionaries.
//
// A dictionary is a list of rules, each pairing a label with either a phrase
// (matched token by token) or a sequence of token specifications. Rules are
// usually stored as JSON Lines, one rule object per line:
//
//	{"label": "OBLIGATION", "pattern": "shall"}
//	{"label": "PROHIBITION", "pattern": [{"LOWER": "shall"}, {"LOWER": "not"}]}
//
// YAML dictionaries holding a list of the same objects are also accepted.
package pattern

import (
	"errors"
	"regexp"
)

var (
	// ErrInvalidRule is returned for rules that cannot be interpreted at all:
	// malformed JSON, a missing label, an empty pattern or an unknown operator.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrUnsupportedAttribute is returned for token attributes that need a
	// statistical model (POS, DEP, ENT_TYPE and similar). Rules using them are
	// skipped rather than rejected.
	ErrUnsupportedAttribute = errors.New("unsupported token attribute")
)

// Attribute names a token property a constraint tests.
type Attribute string

const (
	AttrOrth      Attribute = "ORTH"
	AttrText      Attribute = "TEXT"
	AttrLower     Attribute = "LOWER"
	AttrNorm      Attribute = "NORM"
	AttrLemma     Attribute = "LEMMA"
	AttrShape     Attribute = "SHAPE"
	AttrPrefix    Attribute = "PREFIX"
	AttrSuffix    Attribute = "SUFFIX"
	AttrLength    Attribute = "LENGTH"
	AttrIsAlpha   Attribute = "IS_ALPHA"
	AttrIsASCII   Attribute = "IS_ASCII"
	AttrIsDigit   Attribute = "IS_DIGIT"
	AttrIsLower   Attribute = "IS_LOWER"
	AttrIsUpper   Attribute = "IS_UPPER"
	AttrIsTitle   Attribute = "IS_TITLE"
	AttrIsPunct   Attribute = "IS_PUNCT"
	AttrIsSpace   Attribute = "IS_SPACE"
	AttrIsBracket Attribute = "IS_BRACKET"
	AttrIsQuote   Attribute = "IS_QUOTE"
	AttrLikeNum   Attribute = "LIKE_NUM"
	AttrSentStart Attribute = "IS_SENT_START"
)

// AttributeKind is the value type an attribute compares against.
type AttributeKind int

const (
	KindString AttributeKind = iota
	KindInteger
	KindBoolean
)

var supportedAttributes = map[Attribute]AttributeKind{
	AttrOrth:      KindString,
	AttrText:      KindString,
	AttrLower:     KindString,
	AttrNorm:      KindString,
	AttrLemma:     KindString,
	AttrShape:     KindString,
	AttrPrefix:    KindString,
	AttrSuffix:    KindString,
	AttrLength:    KindInteger,
	AttrIsAlpha:   KindBoolean,
	AttrIsASCII:   KindBoolean,
	AttrIsDigit:   KindBoolean,
	AttrIsLower:   KindBoolean,
	AttrIsUpper:   KindBoolean,
	AttrIsTitle:   KindBoolean,
	AttrIsPunct:   KindBoolean,
	AttrIsSpace:   KindBoolean,
	AttrIsBracket: KindBoolean,
	AttrIsQuote:   KindBoolean,
	AttrLikeNum:   KindBoolean,
	AttrSentStart: KindBoolean,
}

// Kind reports the value kind of a supported attribute.
func (attribute Attribute) Kind() (AttributeKind, bool) {
	kind, ok := supportedAttributes[attribute]
	return kind, ok
}

// Comparison is the relation a constraint applies between the token
// attribute and the rule value.
type Comparison string

const (
	CompareEqual        Comparison = "=="
	CompareNotEqual     Comparison = "!="
	CompareGreater      Comparison = ">"
	CompareGreaterEqual Comparison = ">="
	CompareLess         Comparison = "<"
	CompareLessEqual    Comparison = "<="
	CompareIn           Comparison = "IN"
	CompareNotIn        Comparison = "NOT_IN"
	CompareRegex        Comparison = "REGEX"
)

// Constraint is one predicate on one token attribute. Which value field is
// populated depends on the attribute kind and the comparison.
type Constraint struct {
	Attribute  Attribute
	Comparison Comparison

	String  string
	Strings []string
	Integer int
	Ints    []int
	Boolean bool
	Regex   *regexp.Regexp
}

// Quantifier bounds how many consecutive tokens a specification consumes.
// Max is negative when unbounded. Negated specifications consume exactly one
// token that fails the constraints.
type Quantifier struct {
	Min     int
	Max     int
	Negated bool
}

// Operator returns the quantifier as written in rule files.
func (quantifier Quantifier) Operator() string {
	switch {
	case quantifier.Negated:
		return "!"
	case quantifier.Min == 0 && quantifier.Max == 1:
		return "?"
	case quantifier.Min == 0 && quantifier.Max < 0:
		return "*"
	case quantifier.Min == 1 && quantifier.Max < 0:
		return "+"
	case quantifier.Min == 1 && quantifier.Max == 1:
		return "1"
	}
	return formatRange(quantifier)
}

// TokenSpec describes a single position in a token pattern. A token
// satisfies the spec when every constraint holds; an empty constraint list
// matches any token.
type TokenSpec struct {
	Constraints []Constraint
	Quantifier  Quantifier
}

// Rule is a labeled pattern. Exactly one of Phrase and Tokens is set.
type Rule struct {
	Label  string
	ID     string
	Phrase string
	Tokens []TokenSpec

	// Line is the 1-based source position of the rule, zero when unknown.
	Line int
}

// IsPhrase reports whether the rule is a phrase pattern.
func (rule Rule) IsPhrase() bool {
	return rule.Phrase != ""
}

// SkippedRule records a rule left out of a dictionary.
type SkippedRule struct {
	Line  int
	Label string
	Err   error
}

// Dictionary is an ordered collection of rules loaded from one source.
type Dictionary struct {
	Source  string
	Rules   []Rule
	Skipped []SkippedRule
}

// Labels counts the loaded rules per label.
func (dictionary *Dictionary) Labels() map[string]int {
	counts := make(map[string]int)
	for _, rule := range dictionary.Rules {
		counts[rule.Label]++
	}
	return counts
}

// Len returns the number of loaded rules.
func (dictionary *Dictionary) Len() int {
	return len(dictionary.Rules)
}
