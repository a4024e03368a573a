package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ExtractionRule is one text matcher in the ordered avatar fallback chain.
// The first capture group of Pattern holds the avatar URL.
type ExtractionRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Built-in rule names, highest fidelity first.
const (
	RuleAvatarLarger = "avatar_larger"
	RuleAvatarMedium = "avatar_medium"
	RuleAvatarThumb  = "avatar_thumb"
	RuleOGImage      = "og_image"
)

// EscapedAmpersand is the JSON escape for "&" found in inlined page data.
const EscapedAmpersand = `\` + "u0026"

var defaultExtractionRules = []ExtractionRule{
	{Name: RuleAvatarLarger, Pattern: regexp.MustCompile(`"avatarLarger":"([^"]+)"`)},
	{Name: RuleAvatarMedium, Pattern: regexp.MustCompile(`"avatarMedium":"([^"]+)"`)},
	{Name: RuleAvatarThumb, Pattern: regexp.MustCompile(`"avatarThumb":"([^"]+)"`)},
	{Name: RuleOGImage, Pattern: regexp.MustCompile(`(?i)property="og:image"\s+content="([^"]+)"`)},
}

// DefaultExtractionRules returns a copy of the built-in rule chain:
// large avatar, medium avatar, thumbnail, then the og:image meta tag.
func DefaultExtractionRules() []ExtractionRule {
	rules := make([]ExtractionRule, len(defaultExtractionRules))
	copy(rules, defaultExtractionRules)
	return rules
}

// NewExtractionRule compiles a rule. The pattern must contain at least one
// capture group.
func NewExtractionRule(name, pattern string) (ExtractionRule, error) {
	if strings.TrimSpace(name) == "" {
		return ExtractionRule{}, fmt.Errorf("extraction rule name is required")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return ExtractionRule{}, fmt.Errorf("extraction rule %q: %w", name, err)
	}
	if re.NumSubexp() < 1 {
		return ExtractionRule{}, fmt.Errorf("extraction rule %q: pattern must have a capture group", name)
	}
	return ExtractionRule{Name: name, Pattern: re}, nil
}

// ExtractAvatarURL applies rules in order and returns the first non-empty
// capture, decoded of escaped ampersands, plus the name of the rule that hit.
func ExtractAvatarURL(document string, rules []ExtractionRule) (avatarURL string, rule string, ok bool) {
	for _, r := range rules {
		if r.Pattern == nil {
			continue
		}
		m := r.Pattern.FindStringSubmatch(document)
		if len(m) < 2 || m[1] == "" {
			continue
		}
		return DecodeEscapedAmpersands(m[1]), r.Name, true
	}
	return "", "", false
}

// DecodeEscapedAmpersands replaces every literal EscapedAmpersand sequence with "&".
func DecodeEscapedAmpersands(s string) string {
	return strings.ReplaceAll(s, EscapedAmpersand, "&")
}
