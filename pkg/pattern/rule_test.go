package pattern

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseRulePhrase(t *testing.T) {
	rule, err := ParseRule([]byte(`{"label": "OBLIGATION", "pattern": "shall", "id": "shall"}`), 3)
	if err != nil {
		t.Fatalf("ParseRule() error = %v", err)
	}
	if !rule.IsPhrase() {
		t.Fatal("expected a phrase rule")
	}
	if rule.Label != "OBLIGATION" || rule.Phrase != "shall" || rule.ID != "shall" || rule.Line != 3 {
		t.Errorf("unexpected rule: %+v", rule)
	}
}

func TestParseRuleTokens(t *testing.T) {
	data := `{"label": "PROHIBITION", "pattern": [{"lower": {"IN": ["shall", "must"]}}, {"LOWER": "not", "OP": "?"}, {"LENGTH": {">=": 2}, "IS_ALPHA": true}]}`
	rule, err := ParseRule([]byte(data), 1)
	if err != nil {
		t.Fatalf("ParseRule() error = %v", err)
	}
	if rule.IsPhrase() {
		t.Fatal("expected a token rule")
	}
	if len(rule.Tokens) != 3 {
		t.Fatalf("expected 3 token specs, got %d", len(rule.Tokens))
	}

	first := rule.Tokens[0].Constraints[0]
	if first.Attribute != AttrLower || first.Comparison != CompareIn {
		t.Errorf("first constraint = %+v", first)
	}
	if strings.Join(first.Strings, ",") != "shall,must" {
		t.Errorf("IN values = %v", first.Strings)
	}

	if got := rule.Tokens[1].Quantifier.Operator(); got != "?" {
		t.Errorf("second operator = %q, want ?", got)
	}

	third := rule.Tokens[2]
	if len(third.Constraints) != 2 {
		t.Fatalf("expected 2 constraints on third spec, got %d", len(third.Constraints))
	}
	// keys are visited in sorted order: IS_ALPHA before LENGTH
	if third.Constraints[0].Attribute != AttrIsAlpha || !third.Constraints[0].Boolean {
		t.Errorf("IS_ALPHA constraint = %+v", third.Constraints[0])
	}
	if third.Constraints[1].Comparison != CompareGreaterEqual || third.Constraints[1].Integer != 2 {
		t.Errorf("LENGTH constraint = %+v", third.Constraints[1])
	}
}

func TestParseRuleRegex(t *testing.T) {
	rule, err := ParseRule([]byte(`{"label": "CITE", "pattern": [{"TEXT": {"REGEX": "^\\d+$"}}]}`), 1)
	if err != nil {
		t.Fatalf("ParseRule() error = %v", err)
	}
	constraint := rule.Tokens[0].Constraints[0]
	if constraint.Regex == nil || !constraint.Regex.MatchString("52") {
		t.Errorf("regex constraint did not compile as expected: %+v", constraint)
	}
}

func TestParseRuleErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"malformed json", `{"label": `, ErrInvalidRule},
		{"missing label", `{"pattern": "shall"}`, ErrInvalidRule},
		{"missing pattern", `{"label": "X"}`, ErrInvalidRule},
		{"empty phrase", `{"label": "X", "pattern": "  "}`, ErrInvalidRule},
		{"empty token list", `{"label": "X", "pattern": []}`, ErrInvalidRule},
		{"numeric pattern", `{"label": "X", "pattern": 4}`, ErrInvalidRule},
		{"unknown operator", `{"label": "X", "pattern": [{"LOWER": "a", "OP": "%"}]}`, ErrInvalidRule},
		{"wrong value type", `{"label": "X", "pattern": [{"LOWER": 4}]}`, ErrInvalidRule},
		{"bad regex", `{"label": "X", "pattern": [{"TEXT": {"REGEX": "("}}]}`, ErrInvalidRule},
		{"boolean predicate object", `{"label": "X", "pattern": [{"IS_ALPHA": {"IN": [true]}}]}`, ErrInvalidRule},
		{"part of speech", `{"label": "X", "pattern": [{"POS": "VERB"}]}`, ErrUnsupportedAttribute},
		{"dependency", `{"label": "X", "pattern": [{"LOWER": "shall"}, {"DEP": "aux"}]}`, ErrUnsupportedAttribute},
		{"fuzzy predicate", `{"label": "X", "pattern": [{"LOWER": {"FUZZY": "shall"}}]}`, ErrUnsupportedAttribute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRule([]byte(tt.data), 1)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseRule() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseOperator(t *testing.T) {
	tests := []struct {
		operator string
		want     Quantifier
	}{
		{"!", Quantifier{Min: 1, Max: 1, Negated: true}},
		{"?", Quantifier{Min: 0, Max: 1}},
		{"*", Quantifier{Min: 0, Max: -1}},
		{"+", Quantifier{Min: 1, Max: -1}},
		{"1", Quantifier{Min: 1, Max: 1}},
		{"{3}", Quantifier{Min: 3, Max: 3}},
		{"{1,3}", Quantifier{Min: 1, Max: 3}},
		{"{2,}", Quantifier{Min: 2, Max: -1}},
		{"{,2}", Quantifier{Min: 0, Max: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.operator, func(t *testing.T) {
			got, err := ParseOperator(tt.operator)
			if err != nil {
				t.Fatalf("ParseOperator(%q) error = %v", tt.operator, err)
			}
			if got != tt.want {
				t.Errorf("ParseOperator(%q) = %+v, want %+v", tt.operator, got, tt.want)
			}
			if tt.operator != "1" && got.Operator() != tt.operator {
				t.Errorf("Operator() = %q, want %q", got.Operator(), tt.operator)
			}
		})
	}

	for _, invalid := range []string{"{}", "{3,1}", "{a}", "++"} {
		if _, err := ParseOperator(invalid); !errors.Is(err, ErrInvalidRule) {
			t.Errorf("ParseOperator(%q) error = %v, want ErrInvalidRule", invalid, err)
		}
	}
}

func TestReadJSONL(t *testing.T) {
	input := strings.Join([]string{
		`{"label": "OBLIGATION", "pattern": "shall"}`,
		``,
		`{"label": "MODAL", "pattern": [{"POS": "AUX"}]}`,
		`   `,
		`{"label": "PROHIBITION", "pattern": [{"LOWER": "shall"}, {"LOWER": "not"}]}`,
	}, "\n")

	dictionary, err := ReadJSONL(strings.NewReader(input), "inline")
	if err != nil {
		t.Fatalf("ReadJSONL() error = %v", err)
	}
	if dictionary.Len() != 2 {
		t.Fatalf("expected 2 rules, got %d", dictionary.Len())
	}
	if dictionary.Rules[1].Line != 5 {
		t.Errorf("second rule line = %d, want 5", dictionary.Rules[1].Line)
	}
	if len(dictionary.Skipped) != 1 {
		t.Fatalf("expected 1 skipped rule, got %d", len(dictionary.Skipped))
	}
	skipped := dictionary.Skipped[0]
	if skipped.Line != 3 || skipped.Label != "MODAL" || !errors.Is(skipped.Err, ErrUnsupportedAttribute) {
		t.Errorf("unexpected skipped rule: %+v", skipped)
	}
}

func TestReadJSONLInvalidRuleAborts(t *testing.T) {
	input := "{\"label\": \"OBLIGATION\", \"pattern\": \"shall\"}\n{\"label\": \"\"}\n"
	_, err := ReadJSONL(strings.NewReader(input), "inline")
	if !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("ReadJSONL() error = %v, want ErrInvalidRule", err)
	}
	if !strings.Contains(err.Error(), "inline:2") {
		t.Errorf("error should name the line: %v", err)
	}
}

func TestLoadFileYAML(t *testing.T) {
	dictionary, err := LoadFile(filepath.Join("testdata", "rules.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if dictionary.Len() != 3 {
		t.Fatalf("expected 3 rules, got %d", dictionary.Len())
	}
	if dictionary.Rules[0].Phrase != "shall" {
		t.Errorf("first rule phrase = %q", dictionary.Rules[0].Phrase)
	}
	if !dictionary.Rules[2].Tokens[1].Quantifier.Negated {
		t.Error("expected negated operator on the permission rule")
	}
	labels := dictionary.Labels()
	if labels["OBLIGATION"] != 1 || labels["PROHIBITION"] != 1 || labels["PERMISSION"] != 1 {
		t.Errorf("Labels() = %v", labels)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatal("expected error for missing rules file")
	}
}

func TestDefaultRules(t *testing.T) {
	dictionary, err := DefaultRules()
	if err != nil {
		t.Fatalf("DefaultRules() error = %v", err)
	}
	if len(dictionary.Skipped) != 0 {
		t.Errorf("built-in rules should all be supported, skipped %v", dictionary.Skipped)
	}
	for _, label := range []string{"OBLIGATION", "PROHIBITION", "PERMISSION"} {
		if dictionary.Labels()[label] == 0 {
			t.Errorf("built-in rules missing label %s", label)
		}
	}
}

func TestWriteDefaultRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "rules.jsonl")
	if err := WriteDefaultRules(path, false); err != nil {
		t.Fatalf("WriteDefaultRules() error = %v", err)
	}
	if _, err := LoadFile(path); err != nil {
		t.Fatalf("written rules do not load: %v", err)
	}

	if err := os.WriteFile(path, []byte("{\"label\": \"X\", \"pattern\": \"y\"}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteDefaultRules(path, false); err != nil {
		t.Fatalf("WriteDefaultRules() error = %v", err)
	}
	dictionary, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if dictionary.Len() != 1 {
		t.Errorf("existing rules file was overwritten")
	}
}

func TestWatcherReloads(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping watch test in short mode")
	}

	path := filepath.Join(t.TempDir(), "rules.jsonl")
	if err := os.WriteFile(path, []byte("{\"label\": \"A\", \"pattern\": \"a\"}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Dictionary, 4)
	watcher, err := NewWatcher(path, func(dictionary *Dictionary, err error) {
		if err == nil {
			select {
			case reloaded <- dictionary:
			default:
			}
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	time.Sleep(100 * time.Millisecond)

	updated := "{\"label\": \"A\", \"pattern\": \"a\"}\n{\"label\": \"B\", \"pattern\": \"b\"}\n"
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case dictionary := <-reloaded:
			if dictionary.Len() == 2 {
				return
			}
		case <-deadline:
			t.Log("watcher did not report the change within timeout (may be CI environment)")
			return
		}
	}
}

func TestNewWatcherRequiresCallback(t *testing.T) {
	if _, err := NewWatcher(filepath.Join(t.TempDir(), "rules.jsonl"), nil); err == nil {
		t.Fatal("expected error without callback")
	}
}
