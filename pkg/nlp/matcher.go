package nlp

import (
	"fmt"

	"github.com/coolbeans/shamroq/pkg/pattern"
)

type tokenPredicate func(token *Token) bool

type compiledSpec struct {
	predicates []tokenPredicate
	quantifier pattern.Quantifier
}

func (spec compiledSpec) accepts(token *Token) bool {
	for _, predicate := range spec.predicates {
		if !predicate(token) {
			return false
		}
	}
	return true
}

// compiledRule is a rule reduced to a sequence of token specifications.
// Phrase rules become one exact-match specification per phrase token.
type compiledRule struct {
	label string
	id    string
	specs []compiledSpec
}

func compileRule(rule pattern.Rule, phraseAttribute pattern.Attribute) (compiledRule, error) {
	compiled := compiledRule{label: rule.Label, id: rule.ID}

	if rule.IsPhrase() {
		phraseTokens := Tokenize(rule.Phrase)
		if len(phraseTokens) == 0 {
			return compiledRule{}, fmt.Errorf("%w: phrase %q has no tokens", pattern.ErrInvalidRule, rule.Phrase)
		}
		getter := stringAttribute(phraseAttribute)
		for index := range phraseTokens {
			expected := getter(&phraseTokens[index])
			compiled.specs = append(compiled.specs, compiledSpec{
				predicates: []tokenPredicate{func(token *Token) bool { return getter(token) == expected }},
				quantifier: pattern.Quantifier{Min: 1, Max: 1},
			})
		}
		return compiled, nil
	}

	for _, spec := range rule.Tokens {
		compiledSpec := compiledSpec{quantifier: spec.Quantifier}
		for _, constraint := range spec.Constraints {
			predicate, err := compileConstraint(constraint)
			if err != nil {
				return compiledRule{}, err
			}
			compiledSpec.predicates = append(compiledSpec.predicates, predicate)
		}
		compiled.specs = append(compiled.specs, compiledSpec)
	}
	return compiled, nil
}

// matchEnds returns every token index at which the rule can finish when it
// starts at start. Quantified specifications are expanded in all ways, so
// one start may produce several ends.
func (rule compiledRule) matchEnds(tokens []Token, start int) []int {
	seen := make(map[int]bool)
	var ends []int

	var walk func(specIndex, tokenIndex int)
	walk = func(specIndex, tokenIndex int) {
		if specIndex == len(rule.specs) {
			if !seen[tokenIndex] {
				seen[tokenIndex] = true
				ends = append(ends, tokenIndex)
			}
			return
		}

		spec := rule.specs[specIndex]
		if spec.quantifier.Negated {
			if tokenIndex < len(tokens) && !spec.accepts(&tokens[tokenIndex]) {
				walk(specIndex+1, tokenIndex+1)
			}
			return
		}

		count, position := 0, tokenIndex
		for {
			if count >= spec.quantifier.Min {
				walk(specIndex+1, position)
			}
			if spec.quantifier.Max >= 0 && count >= spec.quantifier.Max {
				return
			}
			if position >= len(tokens) || !spec.accepts(&tokens[position]) {
				return
			}
			position++
			count++
		}
	}

	walk(0, start)
	return ends
}

func stringAttribute(attribute pattern.Attribute) func(token *Token) string {
	switch attribute {
	case pattern.AttrLower:
		return func(token *Token) string { return token.Lower }
	case pattern.AttrNorm:
		return func(token *Token) string { return token.Norm }
	case pattern.AttrLemma:
		return func(token *Token) string { return token.Stem }
	case pattern.AttrShape:
		return func(token *Token) string { return token.Shape() }
	case pattern.AttrPrefix:
		return func(token *Token) string { return token.Prefix() }
	case pattern.AttrSuffix:
		return func(token *Token) string { return token.Suffix() }
	default:
		return func(token *Token) string { return token.Text }
	}
}

func booleanAttribute(attribute pattern.Attribute) (func(Token) bool, error) {
	switch attribute {
	case pattern.AttrIsAlpha:
		return Token.IsAlpha, nil
	case pattern.AttrIsASCII:
		return Token.IsASCII, nil
	case pattern.AttrIsDigit:
		return Token.IsDigit, nil
	case pattern.AttrIsLower:
		return Token.IsLower, nil
	case pattern.AttrIsUpper:
		return Token.IsUpper, nil
	case pattern.AttrIsTitle:
		return Token.IsTitle, nil
	case pattern.AttrIsPunct:
		return Token.IsPunct, nil
	case pattern.AttrIsSpace:
		return Token.IsSpace, nil
	case pattern.AttrIsBracket:
		return Token.IsBracket, nil
	case pattern.AttrIsQuote:
		return Token.IsQuote, nil
	case pattern.AttrLikeNum:
		return Token.LikeNum, nil
	case pattern.AttrSentStart:
		return func(token Token) bool { return token.SentenceStart }, nil
	}
	return nil, fmt.Errorf("%w: %s", pattern.ErrUnsupportedAttribute, attribute)
}

// lemmaValue reduces rule values for LEMMA to the same stem form tokens
// carry.
func lemmaValue(attribute pattern.Attribute, value string) string {
	if attribute != pattern.AttrLemma {
		return value
	}
	return stem(lowerString(value))
}

func compileConstraint(constraint pattern.Constraint) (tokenPredicate, error) {
	kind, ok := constraint.Attribute.Kind()
	if !ok {
		return nil, fmt.Errorf("%w: %s", pattern.ErrUnsupportedAttribute, constraint.Attribute)
	}

	switch kind {
	case pattern.KindBoolean:
		flag, err := booleanAttribute(constraint.Attribute)
		if err != nil {
			return nil, err
		}
		want := constraint.Boolean
		return func(token *Token) bool { return flag(*token) == want }, nil

	case pattern.KindInteger:
		return compileLength(constraint)
	}

	getter := stringAttribute(constraint.Attribute)
	switch constraint.Comparison {
	case pattern.CompareEqual:
		want := lemmaValue(constraint.Attribute, constraint.String)
		return func(token *Token) bool { return getter(token) == want }, nil
	case pattern.CompareNotEqual:
		want := lemmaValue(constraint.Attribute, constraint.String)
		return func(token *Token) bool { return getter(token) != want }, nil
	case pattern.CompareIn, pattern.CompareNotIn:
		set := make(map[string]bool, len(constraint.Strings))
		for _, value := range constraint.Strings {
			set[lemmaValue(constraint.Attribute, value)] = true
		}
		include := constraint.Comparison == pattern.CompareIn
		return func(token *Token) bool { return set[getter(token)] == include }, nil
	case pattern.CompareRegex:
		if constraint.Regex == nil {
			return nil, fmt.Errorf("%w: %s REGEX was not compiled", pattern.ErrInvalidRule, constraint.Attribute)
		}
		expression := constraint.Regex
		return func(token *Token) bool { return expression.MatchString(getter(token)) }, nil
	}
	return nil, fmt.Errorf("%w: predicate %s on %s", pattern.ErrUnsupportedAttribute, constraint.Comparison, constraint.Attribute)
}

func compileLength(constraint pattern.Constraint) (tokenPredicate, error) {
	want := constraint.Integer
	switch constraint.Comparison {
	case pattern.CompareEqual:
		return func(token *Token) bool { return token.Length() == want }, nil
	case pattern.CompareNotEqual:
		return func(token *Token) bool { return token.Length() != want }, nil
	case pattern.CompareGreater:
		return func(token *Token) bool { return token.Length() > want }, nil
	case pattern.CompareGreaterEqual:
		return func(token *Token) bool { return token.Length() >= want }, nil
	case pattern.CompareLess:
		return func(token *Token) bool { return token.Length() < want }, nil
	case pattern.CompareLessEqual:
		return func(token *Token) bool { return token.Length() <= want }, nil
	case pattern.CompareIn, pattern.CompareNotIn:
		set := make(map[int]bool, len(constraint.Ints))
		for _, value := range constraint.Ints {
			set[value] = true
		}
		include := constraint.Comparison == pattern.CompareIn
		return func(token *Token) bool { return set[token.Length()] == include }, nil
	}
	return nil, fmt.Errorf("%w: predicate %s on %s", pattern.ErrUnsupportedAttribute, constraint.Comparison, constraint.Attribute)
}
