package pattern

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const operatorKey = "OP"

type rawRule struct {
	Label   string          `json:"label"`
	Pattern json.RawMessage `json:"pattern"`
	ID      string          `json:"id"`
}

// ParseRule decodes a single JSON rule object. The line number is recorded
// on the rule and used in error messages.
func ParseRule(data []byte, line int) (Rule, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw rawRule
	if err := decoder.Decode(&raw); err != nil {
		return Rule{}, fmt.Errorf("%w: malformed JSON: %v", ErrInvalidRule, err)
	}

	label := strings.TrimSpace(raw.Label)
	if label == "" {
		return Rule{}, fmt.Errorf("%w: missing label", ErrInvalidRule)
	}

	rule := Rule{Label: label, ID: raw.ID, Line: line}

	trimmed := bytes.TrimSpace(raw.Pattern)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Rule{}, fmt.Errorf("%w: rule %q has no pattern", ErrInvalidRule, label)
	}

	switch trimmed[0] {
	case '"':
		var phrase string
		if err := json.Unmarshal(trimmed, &phrase); err != nil {
			return Rule{}, fmt.Errorf("%w: rule %q: %v", ErrInvalidRule, label, err)
		}
		if strings.TrimSpace(phrase) == "" {
			return Rule{}, fmt.Errorf("%w: rule %q has an empty phrase", ErrInvalidRule, label)
		}
		rule.Phrase = phrase
	case '[':
		specs, err := parseTokenSpecs(trimmed)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: %w", label, err)
		}
		rule.Tokens = specs
	default:
		return Rule{}, fmt.Errorf("%w: rule %q pattern must be a string or a list of token objects", ErrInvalidRule, label)
	}

	return rule, nil
}

func parseTokenSpecs(data []byte) ([]TokenSpec, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var rawSpecs []map[string]json.RawMessage
	if err := decoder.Decode(&rawSpecs); err != nil {
		return nil, fmt.Errorf("%w: token pattern: %v", ErrInvalidRule, err)
	}
	if len(rawSpecs) == 0 {
		return nil, fmt.Errorf("%w: empty token pattern", ErrInvalidRule)
	}

	specs := make([]TokenSpec, 0, len(rawSpecs))
	for position, rawSpec := range rawSpecs {
		spec, err := parseTokenSpec(rawSpec)
		if err != nil {
			return nil, fmt.Errorf("token %d: %w", position, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseTokenSpec(rawSpec map[string]json.RawMessage) (TokenSpec, error) {
	spec := TokenSpec{Quantifier: Quantifier{Min: 1, Max: 1}}

	keys := make([]string, 0, len(rawSpec))
	for key := range rawSpec {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := rawSpec[key]
		name := strings.ToUpper(key)

		if name == operatorKey {
			var operator string
			if err := json.Unmarshal(value, &operator); err != nil {
				return TokenSpec{}, fmt.Errorf("%w: OP must be a string", ErrInvalidRule)
			}
			quantifier, err := ParseOperator(operator)
			if err != nil {
				return TokenSpec{}, err
			}
			spec.Quantifier = quantifier
			continue
		}

		attribute := Attribute(name)
		kind, ok := attribute.Kind()
		if !ok {
			return TokenSpec{}, fmt.Errorf("%w: %s", ErrUnsupportedAttribute, key)
		}

		constraints, err := parseConstraints(attribute, kind, value)
		if err != nil {
			return TokenSpec{}, err
		}
		spec.Constraints = append(spec.Constraints, constraints...)
	}

	return spec, nil
}

// ParseOperator converts a rule file operator into a quantifier. Besides the
// single character operators it accepts the range forms {n}, {n,m}, {n,} and
// {,m}.
func ParseOperator(operator string) (Quantifier, error) {
	switch operator {
	case "!":
		return Quantifier{Min: 1, Max: 1, Negated: true}, nil
	case "?":
		return Quantifier{Min: 0, Max: 1}, nil
	case "*":
		return Quantifier{Min: 0, Max: -1}, nil
	case "+":
		return Quantifier{Min: 1, Max: -1}, nil
	case "1", "":
		return Quantifier{Min: 1, Max: 1}, nil
	}

	if !strings.HasPrefix(operator, "{") || !strings.HasSuffix(operator, "}") {
		return Quantifier{}, fmt.Errorf("%w: unknown operator %q", ErrInvalidRule, operator)
	}

	body := operator[1 : len(operator)-1]
	lower, upper, hasComma := strings.Cut(body, ",")

	parseBound := func(text string, fallback int) (int, error) {
		text = strings.TrimSpace(text)
		if text == "" {
			return fallback, nil
		}
		bound, err := strconv.Atoi(text)
		if err != nil || bound < 0 {
			return 0, fmt.Errorf("%w: bad operator bound in %q", ErrInvalidRule, operator)
		}
		return bound, nil
	}

	minimum, err := parseBound(lower, 0)
	if err != nil {
		return Quantifier{}, err
	}
	if !hasComma {
		if strings.TrimSpace(lower) == "" {
			return Quantifier{}, fmt.Errorf("%w: empty operator range %q", ErrInvalidRule, operator)
		}
		return Quantifier{Min: minimum, Max: minimum}, nil
	}

	maximum, err := parseBound(upper, -1)
	if err != nil {
		return Quantifier{}, err
	}
	if maximum >= 0 && maximum < minimum {
		return Quantifier{}, fmt.Errorf("%w: operator range %q is inverted", ErrInvalidRule, operator)
	}
	return Quantifier{Min: minimum, Max: maximum}, nil
}

func formatRange(quantifier Quantifier) string {
	switch {
	case quantifier.Min == quantifier.Max:
		return fmt.Sprintf("{%d}", quantifier.Min)
	case quantifier.Max < 0:
		return fmt.Sprintf("{%d,}", quantifier.Min)
	case quantifier.Min == 0:
		return fmt.Sprintf("{,%d}", quantifier.Max)
	}
	return fmt.Sprintf("{%d,%d}", quantifier.Min, quantifier.Max)
}

func parseConstraints(attribute Attribute, kind AttributeKind, value json.RawMessage) ([]Constraint, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return parsePredicateObject(attribute, kind, trimmed)
	}

	constraint := Constraint{Attribute: attribute, Comparison: CompareEqual}
	switch kind {
	case KindString:
		if err := json.Unmarshal(trimmed, &constraint.String); err != nil {
			return nil, fmt.Errorf("%w: %s expects a string", ErrInvalidRule, attribute)
		}
	case KindInteger:
		integer, err := decodeInteger(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects an integer", ErrInvalidRule, attribute)
		}
		constraint.Integer = integer
	case KindBoolean:
		if err := json.Unmarshal(trimmed, &constraint.Boolean); err != nil {
			return nil, fmt.Errorf("%w: %s expects true or false", ErrInvalidRule, attribute)
		}
	}
	return []Constraint{constraint}, nil
}

func parsePredicateObject(attribute Attribute, kind AttributeKind, data []byte) ([]Constraint, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var predicates map[string]json.RawMessage
	if err := decoder.Decode(&predicates); err != nil {
		return nil, fmt.Errorf("%w: %s predicate: %v", ErrInvalidRule, attribute, err)
	}
	if kind == KindBoolean {
		return nil, fmt.Errorf("%w: %s expects true or false", ErrInvalidRule, attribute)
	}

	names := make([]string, 0, len(predicates))
	for name := range predicates {
		names = append(names, name)
	}
	sort.Strings(names)

	constraints := make([]Constraint, 0, len(names))
	for _, name := range names {
		comparison := Comparison(strings.ToUpper(name))
		constraint := Constraint{Attribute: attribute, Comparison: comparison}
		raw := predicates[name]

		switch {
		case comparison == CompareIn || comparison == CompareNotIn:
			if kind == KindString {
				if err := json.Unmarshal(raw, &constraint.Strings); err != nil {
					return nil, fmt.Errorf("%w: %s %s expects a list of strings", ErrInvalidRule, attribute, comparison)
				}
			} else {
				ints, err := decodeIntegers(raw)
				if err != nil {
					return nil, fmt.Errorf("%w: %s %s expects a list of integers", ErrInvalidRule, attribute, comparison)
				}
				constraint.Ints = ints
			}
		case comparison == CompareRegex && kind == KindString:
			var expression string
			if err := json.Unmarshal(raw, &expression); err != nil {
				return nil, fmt.Errorf("%w: %s REGEX expects a string", ErrInvalidRule, attribute)
			}
			compiled, err := regexp.Compile(expression)
			if err != nil {
				return nil, fmt.Errorf("%w: %s REGEX: %v", ErrInvalidRule, attribute, err)
			}
			constraint.Regex = compiled
			constraint.String = expression
		case (comparison == CompareEqual || comparison == CompareNotEqual) && kind == KindString:
			if err := json.Unmarshal(raw, &constraint.String); err != nil {
				return nil, fmt.Errorf("%w: %s %s expects a string", ErrInvalidRule, attribute, comparison)
			}
		case isOrdering(comparison) && kind == KindInteger:
			integer, err := decodeInteger(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %s %s expects an integer", ErrInvalidRule, attribute, comparison)
			}
			constraint.Integer = integer
		default:
			return nil, fmt.Errorf("%w: predicate %s on %s", ErrUnsupportedAttribute, name, attribute)
		}

		constraints = append(constraints, constraint)
	}
	return constraints, nil
}

func isOrdering(comparison Comparison) bool {
	switch comparison {
	case CompareEqual, CompareNotEqual, CompareGreater, CompareGreaterEqual, CompareLess, CompareLessEqual:
		return true
	}
	return false
}

func decodeInteger(data []byte) (int, error) {
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(number.String())
	if err != nil {
		return 0, err
	}
	return value, nil
}

func decodeIntegers(data []byte) ([]int, error) {
	var numbers []json.Number
	if err := json.Unmarshal(data, &numbers); err != nil {
		return nil, err
	}
	values := make([]int, 0, len(numbers))
	for _, number := range numbers {
		value, err := strconv.Atoi(number.String())
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}
