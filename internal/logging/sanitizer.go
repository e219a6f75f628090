package logging

import (
	"regexp"
	"sort"
	"strings"
)

const redactedMark = "[REDACTED]"

// credentialRules match the key formats of the model and search providers
// plus the generic header and DSN shapes they travel in.
var credentialRules = compileRules(map[string]string{
	"anthropic": `sk-ant-[a-zA-Z0-9_-]{20,}`,
	"openai":    `sk-[A-Za-z0-9]{20,}`,
	"tavily":    `tvly-[A-Za-z0-9_-]{16,}`,
	"google":    `AIza[a-zA-Z0-9_-]{35}`,
	"bearer":    `(?i)bearer\s+[a-zA-Z0-9._-]{20,}`,
	"api_key":   `(?i)(x-)?api[_-]?key["'\s:=]+[a-zA-Z0-9_-]{16,}`,
	"redis_dsn": `redis://[^:\s]*:[^@\s]+@`,
	"secret":    `(?i)secret["'\s:=]+[a-zA-Z0-9_-]{20,}`,
	"password":  `(?i)password["'\s:=]+[^\s"']{8,}`,
})

type rule struct {
	name string
	re   *regexp.Regexp
}

// compileRules orders by name so redaction is deterministic. The anthropic
// rule sorts ahead of openai, which would otherwise eat its prefix.
func compileRules(src map[string]string) []rule {
	rules := make([]rule, 0, len(src))
	for name, expr := range src {
		rules = append(rules, rule{name: name, re: regexp.MustCompile(expr)})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].name < rules[j].name })
	return rules
}

// Sanitizer redacts credentials from log text. Exact secrets registered with
// AddSecret are replaced before the pattern rules run.
type Sanitizer struct {
	rules   []rule
	secrets []string
	exact   *strings.Replacer
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{rules: credentialRules}
}

// Sanitize returns input with every known credential shape replaced.
func (s *Sanitizer) Sanitize(input string) string {
	if input == "" {
		return input
	}
	if s.exact != nil {
		input = s.exact.Replace(input)
	}
	for _, r := range s.rules {
		input = r.re.ReplaceAllLiteralString(input, redactedMark)
	}
	return input
}

// SanitizeMap copies m, redacting string values at any depth.
func (s *Sanitizer) SanitizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			v = s.Sanitize(val)
		case map[string]interface{}:
			v = s.SanitizeMap(val)
		}
		out[k] = v
	}
	return out
}

// AddPattern registers an extra redaction expression.
func (s *Sanitizer) AddPattern(expr string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return err
	}
	s.rules = append(append([]rule(nil), s.rules...), rule{name: "custom", re: re})
	return nil
}

// AddSecret redacts an exact configured value. Values shorter than eight
// bytes are ignored to keep ordinary words out of the replacer.
func (s *Sanitizer) AddSecret(secret string) {
	if len(secret) < 8 {
		return
	}
	s.secrets = append(s.secrets, secret)
	pairs := make([]string, 0, 2*len(s.secrets))
	for _, v := range s.secrets {
		pairs = append(pairs, v, redactedMark)
	}
	s.exact = strings.NewReplacer(pairs...)
}
