package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type ruleFields struct {
	Regexp       yaml.Node `yaml:"regexp"`
	Exclude      yaml.Node `yaml:"exclude"`
	DownloadPath string    `yaml:"download_path"`
}

func (f *FeedConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain FeedConfig
	if err := value.Decode((*plain)(f)); err != nil {
		return err
	}

	var fields ruleFields
	if err := value.Decode(&fields); err != nil {
		return err
	}

	rules, err := parseRuleSet(fields)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	f.Rules = rules

	return nil
}

// parseRuleSet picks the rule variant from the shape of the regexp value:
// a list of mappings is the advanced form, anything else is legacy.
func parseRuleSet(fields ruleFields) (RuleSet, error) {
	if isMatcherList(&fields.Regexp) {
		var matchers []MatcherRule
		if err := fields.Regexp.Decode(&matchers); err != nil {
			return RuleSet{}, fmt.Errorf("failed to parse matchers: %w", err)
		}
		return RuleSet{Kind: RuleKindAdvanced, Matchers: matchers}, nil
	}

	includes, err := stringList(&fields.Regexp)
	if err != nil {
		return RuleSet{}, fmt.Errorf("invalid regexp: %w", err)
	}
	excludes, err := stringList(&fields.Exclude)
	if err != nil {
		return RuleSet{}, fmt.Errorf("invalid exclude: %w", err)
	}

	return RuleSet{
		Kind: RuleKindLegacy,
		Legacy: LegacyRule{
			Includes:     includes,
			Excludes:     excludes,
			DownloadPath: fields.DownloadPath,
		},
	}, nil
}

func isMatcherList(node *yaml.Node) bool {
	return node.Kind == yaml.SequenceNode &&
		len(node.Content) > 0 &&
		node.Content[0].Kind == yaml.MappingNode
}

func stringList(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" {
			return nil, nil
		}
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		var values []string
		if err := node.Decode(&values); err != nil {
			return nil, err
		}
		return values, nil
	default:
		return nil, fmt.Errorf("expected a string or a list of strings")
	}
}
