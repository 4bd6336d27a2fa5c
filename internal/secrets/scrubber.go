package secrets

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Scrubber detects and redacts secrets from content.
type Scrubber interface {
	Scrub(content string) *Result
	IsEnabled() bool
}

// compiledRule is a Rule with its pattern and keywords pre-compiled so
// Scrub never pays regexp.Compile cost on the hot path.
type compiledRule struct {
	Rule
	pattern  *regexp.Regexp
	keywords []*regexp.Regexp
}

// scrubber is the default Scrubber. All compiled state lives here,
// built once by New — Config itself stays a plain, reusable value.
type scrubber struct {
	enabled         bool
	redactionString string
	rules           []compiledRule
	allowList       []*regexp.Regexp
}

// New builds a Scrubber from cfg, compiling every rule and allow-list
// pattern up front so a bad pattern fails at startup, not mid-request.
// A nil cfg uses DefaultConfig.
func New(cfg *Config) (Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	redactionString := cfg.RedactionString
	if redactionString == "" {
		redactionString = "[REDACTED]"
	}

	rules := make([]compiledRule, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("secrets: rule missing ID")
		}
		if rule.Pattern == "" {
			return nil, fmt.Errorf("secrets: rule %q missing pattern", rule.ID)
		}
		pattern, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("secrets: rule %q has invalid pattern: %w", rule.ID, err)
		}
		keywords := make([]*regexp.Regexp, len(rule.Keywords))
		for i, kw := range rule.Keywords {
			keywords[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw))
		}
		rules = append(rules, compiledRule{Rule: rule, pattern: pattern, keywords: keywords})
	}

	allowList := make([]*regexp.Regexp, 0, len(cfg.AllowList))
	for _, pattern := range cfg.AllowList {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("secrets: invalid allow-list pattern %q: %w", pattern, err)
		}
		allowList = append(allowList, re)
	}

	return &scrubber{
		enabled:         cfg.Enabled,
		redactionString: redactionString,
		rules:           rules,
		allowList:       allowList,
	}, nil
}

func (s *scrubber) IsEnabled() bool {
	return s.enabled
}

// Scrub finds every rule match in content, drops ones covered by the
// allow list or failing their rule's entropy floor, and returns the
// content with the rest redacted.
func (s *scrubber) Scrub(content string) *Result {
	start := time.Now()
	result := &Result{
		Original: content,
		Scrubbed: content,
		Findings: make([]Finding, 0),
		ByRule:   make(map[string]int),
	}

	if !s.enabled {
		result.Duration = time.Since(start)
		return result
	}

	var hits []span
	for _, rule := range s.rules {
		if !hasAnyKeyword(content, rule.keywords) {
			continue
		}
		for _, match := range rule.pattern.FindAllStringIndex(content, -1) {
			text := content[match[0]:match[1]]
			if s.isAllowed(text) {
				continue
			}
			if rule.Entropy > 0 && shannonEntropy(text) < rule.Entropy {
				continue
			}

			result.Findings = append(result.Findings, Finding{
				RuleID:      rule.ID,
				Description: rule.Description,
				Severity:    rule.Severity,
				StartIndex:  match[0],
				EndIndex:    match[1],
				Line:        strings.Count(content[:match[0]], "\n") + 1,
			})
			result.ByRule[rule.ID]++
			hits = append(hits, span{start: match[0], end: match[1]})
		}
	}

	result.TotalFindings = len(result.Findings)
	if len(hits) > 0 {
		result.Scrubbed = redactSpans(content, mergeSpans(hits), s.redactionString)
	}
	result.Duration = time.Since(start)
	return result
}

func (s *scrubber) isAllowed(match string) bool {
	for _, pattern := range s.allowList {
		if pattern.MatchString(match) {
			return true
		}
	}
	return false
}

func hasAnyKeyword(content string, keywords []*regexp.Regexp) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, kw := range keywords {
		if kw.MatchString(content) {
			return true
		}
	}
	return false
}

// shannonEntropy returns the entropy in bits/char of s, used to reject
// low-entropy matches (e.g. "password: xxxxxxxx") that a pattern alone
// cannot rule out.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	for _, r := range s {
		counts[r]++
	}
	total := float64(len(s))
	var entropy float64
	for _, n := range counts {
		p := float64(n) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// span is a half-open [start,end) byte range to redact.
type span struct {
	start, end int
}

// mergeSpans sorts ascending and coalesces overlapping or touching
// ranges so redaction never produces adjacent [REDACTED][REDACTED] runs.
func mergeSpans(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	merged := spans[:1]
	for _, cur := range spans[1:] {
		last := &merged[len(merged)-1]
		if cur.start <= last.end {
			if cur.end > last.end {
				last.end = cur.end
			}
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}

// redactSpans replaces each span in content with replacement, working
// from the end of the string backward so earlier offsets stay valid.
func redactSpans(content string, spans []span, replacement string) string {
	out := content
	for i := len(spans) - 1; i >= 0; i-- {
		sp := spans[i]
		if sp.start < 0 || sp.end > len(out) || sp.start >= sp.end {
			continue
		}
		out = out[:sp.start] + replacement + out[sp.end:]
	}
	return out
}

var _ Scrubber = (*scrubber)(nil)
