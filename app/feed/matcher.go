package feed

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"

	"github.com/lysyi3m/rss-transmission/app/config"
)

// matchTimeout bounds a single pattern evaluation. A timed-out include
// counts as no match, a timed-out exclude as a match.
var matchTimeout = time.Second

// Matcher decides whether an entry title is wanted and where it goes.
// It is compiled from a feed's RuleSet once per processing cycle.
type Matcher struct {
	kind config.RuleKind

	includes     []*regexp2.Regexp
	excludes     []*regexp2.Regexp
	downloadPath string

	matchers []compiledMatcher
}

type compiledMatcher struct {
	include      *regexp2.Regexp
	exclude      *regexp2.Regexp
	downloadPath string
}

func CompileMatcher(rules config.RuleSet) (*Matcher, error) {
	m := &Matcher{kind: rules.Kind}

	if rules.Kind == config.RuleKindAdvanced {
		for i, rule := range rules.Matchers {
			include, err := compileOptional(rule.Include)
			if err != nil {
				return nil, fmt.Errorf("invalid matcher at index %d: %w", i, err)
			}
			exclude, err := compileOptional(rule.Exclude)
			if err != nil {
				return nil, fmt.Errorf("invalid exclude at index %d: %w", i, err)
			}
			m.matchers = append(m.matchers, compiledMatcher{
				include:      include,
				exclude:      exclude,
				downloadPath: rule.DownloadPath,
			})
		}
		return m, nil
	}

	// An empty pattern inside a legacy list matches every title.
	for _, pattern := range rules.Legacy.Includes {
		re, err := compilePattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regexp %q: %w", pattern, err)
		}
		m.includes = append(m.includes, re)
	}
	for _, pattern := range rules.Legacy.Excludes {
		re, err := compilePattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude %q: %w", pattern, err)
		}
		m.excludes = append(m.excludes, re)
	}
	m.downloadPath = rules.Legacy.DownloadPath

	return m, nil
}

// Select returns the download path for title and whether the entry should be
// added at all. An empty path means the server's default directory.
func (m *Matcher) Select(title string) (string, bool) {
	title = norm.NFC.String(title)

	if m.kind == config.RuleKindAdvanced {
		return m.selectAdvanced(title)
	}
	return m.selectLegacy(title)
}

// First matcher whose include pattern hits decides; an exclude hit rejects
// the entry without trying later matchers.
func (m *Matcher) selectAdvanced(title string) (string, bool) {
	for _, cm := range m.matchers {
		if cm.include == nil || !search(cm.include, title, false) {
			continue
		}
		if cm.exclude != nil && search(cm.exclude, title, true) {
			return "", false
		}
		return cm.downloadPath, true
	}
	return "", false
}

func (m *Matcher) selectLegacy(title string) (string, bool) {
	matched := len(m.includes) == 0
	for _, re := range m.includes {
		if search(re, title, false) {
			matched = true
			break
		}
	}

	for _, re := range m.excludes {
		if search(re, title, true) {
			return "", false
		}
	}

	if !matched {
		return "", false
	}
	return m.downloadPath, true
}

// SelectAction compiles rules and evaluates a single title
func SelectAction(rules config.RuleSet, title string) (string, bool, error) {
	m, err := CompileMatcher(rules)
	if err != nil {
		return "", false, err
	}
	path, ok := m.Select(title)
	return path, ok, nil
}

// compileOptional treats an empty advanced include or exclude as absent
func compileOptional(pattern string) (*regexp2.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return compilePattern(pattern)
}

func compilePattern(pattern string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(norm.NFC.String(pattern), regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout

	return re, nil
}

// search reports whether re matches title, or onError when the evaluation
// fails (match timeout).
func search(re *regexp2.Regexp, title string, onError bool) bool {
	ok, err := re.MatchString(title)
	if err != nil {
		slog.Warn("Pattern evaluation failed", "pattern", re.String(), "assumed_match", onError, "error", err)
		return onError
	}
	return ok
}
