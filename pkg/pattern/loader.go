package pattern

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxRuleLineSize = 1024 * 1024

//go:embed default_rules.jsonl
var defaultRules []byte

// DefaultRulesSource is the Source of the built-in dictionary.
const DefaultRulesSource = "builtin:deontic"

// DefaultRules returns the built-in deontic dictionary.
func DefaultRules() (*Dictionary, error) {
	return ReadJSONL(bytes.NewReader(defaultRules), DefaultRulesSource)
}

// WriteDefaultRules writes the built-in dictionary to path, creating parent
// directories as needed. An existing file is left untouched unless overwrite
// is set.
func WriteDefaultRules(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}
	if err := os.WriteFile(path, defaultRules, 0644); err != nil {
		return fmt.Errorf("failed to write rules file: %w", err)
	}
	return nil
}

// LoadFile reads a dictionary from path. Files ending in .yaml or .yml are
// read as YAML; everything else is read as JSON Lines.
func LoadFile(path string) (*Dictionary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ReadYAML(file, path)
	default:
		return ReadJSONL(file, path)
	}
}

// ReadJSONL reads one rule per line. Blank lines are ignored. A rule that
// uses an unsupported attribute is recorded in Skipped; any other invalid
// rule aborts the load.
func ReadJSONL(reader io.Reader, source string) (*Dictionary, error) {
	dictionary := &Dictionary{Source: source}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRuleLineSize)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := dictionary.add(line, lineNumber); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", source, lineNumber, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rules from %s: %w", source, err)
	}

	return dictionary, nil
}

// ReadYAML reads a YAML sequence of rule objects.
func ReadYAML(reader io.Reader, source string) (*Dictionary, error) {
	dictionary := &Dictionary{Source: source}

	var document yaml.Node
	if err := yaml.NewDecoder(reader).Decode(&document); err != nil {
		if errors.Is(err, io.EOF) {
			return dictionary, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRule, source, err)
	}

	root := &document
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: %s: expected a list of rules", ErrInvalidRule, source)
	}

	for _, item := range root.Content {
		var value interface{}
		if err := item.Decode(&value); err != nil {
			return nil, fmt.Errorf("%s:%d: %w: %v", source, item.Line, ErrInvalidRule, err)
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w: %v", source, item.Line, ErrInvalidRule, err)
		}
		if err := dictionary.add(encoded, item.Line); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", source, item.Line, err)
		}
	}

	return dictionary, nil
}

func (dictionary *Dictionary) add(data []byte, line int) error {
	rule, err := ParseRule(data, line)
	if errors.Is(err, ErrUnsupportedAttribute) {
		dictionary.Skipped = append(dictionary.Skipped, SkippedRule{
			Line:  line,
			Label: peekLabel(data),
			Err:   err,
		})
		return nil
	}
	if err != nil {
		return err
	}
	dictionary.Rules = append(dictionary.Rules, rule)
	return nil
}

func peekLabel(data []byte) string {
	var raw rawRule
	if err := json.Unmarshal(data, &raw); err != nil {
		return ""
	}
	return raw.Label
}
