package avatar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
)

// ErrRulesFile is returned when a rules file cannot be loaded.
var ErrRulesFile = fmt.Errorf("rules file")

// RulesFile is the on-disk layout of extra extraction rules.
//
//	rules:
//	  - name: sigi_avatar
//	    pattern: '"avatar_url":"([^"]+)"'
type RulesFile struct {
	Rules []RuleEntry `json:"rules" yaml:"rules"`
}

// RuleEntry is one rule before compilation.
type RuleEntry struct {
	Name    string `json:"name" yaml:"name"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// LoadRulesFile reads and compiles rules from path.
// YAML is used for .yaml and .yml files, JSON otherwise.
func LoadRulesFile(path string) ([]domain.ExtractionRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrRulesFile, path, err)
	}
	return ParseRules(data, filepath.Ext(path))
}

// ParseRules compiles rules from data. ext selects the format.
func ParseRules(data []byte, ext string) ([]domain.ExtractionRule, error) {
	var file RulesFile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("%w: parse yaml: %v", ErrRulesFile, err)
		}
	default:
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("%w: parse json: %v", ErrRulesFile, err)
		}
	}

	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("%w: no rules defined", ErrRulesFile)
	}

	seen := make(map[string]bool, len(file.Rules))
	rules := make([]domain.ExtractionRule, 0, len(file.Rules))
	for i, entry := range file.Rules {
		rule, err := domain.NewExtractionRule(entry.Name, entry.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d: %v", ErrRulesFile, i, err)
		}
		if seen[rule.Name] {
			return nil, fmt.Errorf("%w: duplicate rule name %q", ErrRulesFile, rule.Name)
		}
		seen[rule.Name] = true
		rules = append(rules, rule)
	}
	return rules, nil
}

// MergeRules appends extra after the default chain, or returns extra alone
// when replace is set.
func MergeRules(extra []domain.ExtractionRule, replace bool) []domain.ExtractionRule {
	if replace && len(extra) > 0 {
		return extra
	}
	return append(domain.DefaultExtractionRules(), extra...)
}
