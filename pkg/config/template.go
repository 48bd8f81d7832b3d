package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Template is the starter configuration written by `shamroq init`. It
// defines one dataset for title 48 of the CFR as published by govinfo.
const Template = `{
  "settings": {
    "dataset": "FAR",
    "log_file": "./logs/app.shamroq.log",
    "log_level": "info",
    "rules_file": "./config/shamroq-patterns-rules.jsonl",
    "phrase_matcher_attr": "ORTH",
    "extract_format": "xlsx",
    "classify_format": "xlsx",
    "workers": 2
  },
  "FAR": {
    "HOME_BASE": "./data/far",
    "SOURCE_URL": "https://www.govinfo.gov/bulkdata/CFR/2023/title-48",
    "VOLUMES": [
      "CFR-2023-title48-vol1.xml",
      "CFR-2023-title48-vol2.xml"
    ],
    "REG_NAME": "FAR"
  }
}
`

// WriteTemplate writes Template to path unless a file already exists there.
// It reports whether the file was written.
func WriteTemplate(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(Template), 0644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}
