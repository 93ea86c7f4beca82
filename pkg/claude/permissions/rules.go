package permissions

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/conneroisu/claude-control/pkg/claude/options"
)

// Snapshot is the rule state read from one or more settings files.
type Snapshot struct {
	Rules       []PermissionRule
	Directories map[PermissionUpdateDestination][]string
	DefaultMode *options.PermissionMode
}

// RuleSet holds permission rules and additional directories per scope.
type RuleSet struct {
	rules       map[PermissionUpdateDestination][]PermissionRule
	directories map[PermissionUpdateDestination][]string
}

// NewRuleSet returns an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{
		rules:       make(map[PermissionUpdateDestination][]PermissionRule),
		directories: make(map[PermissionUpdateDestination][]string),
	}
}

// Add appends rules to a scope, skipping exact duplicates.
func (s *RuleSet) Add(dest PermissionUpdateDestination, behavior PermissionBehavior, values ...PermissionRuleValue) {
	for _, v := range values {
		rule := PermissionRule{PermissionRuleValue: v, Behavior: behavior, Destination: dest}
		if !slices.ContainsFunc(s.rules[dest], rule.equal) {
			s.rules[dest] = append(s.rules[dest], rule)
		}
	}
}

// Replace drops every rule of the given behavior in a scope and adds values.
func (s *RuleSet) Replace(dest PermissionUpdateDestination, behavior PermissionBehavior, values ...PermissionRuleValue) {
	s.rules[dest] = slices.DeleteFunc(s.rules[dest], func(r PermissionRule) bool {
		return r.Behavior == behavior
	})
	s.Add(dest, behavior, values...)
}

// Remove drops matching rules from a scope.
func (s *RuleSet) Remove(dest PermissionUpdateDestination, behavior PermissionBehavior, values ...PermissionRuleValue) {
	s.rules[dest] = slices.DeleteFunc(s.rules[dest], func(r PermissionRule) bool {
		if r.Behavior != behavior {
			return false
		}

		return slices.ContainsFunc(values, r.PermissionRuleValue.equal)
	})
}

// AddDirectories records additional working directories for a scope.
func (s *RuleSet) AddDirectories(dest PermissionUpdateDestination, dirs ...string) {
	for _, dir := range dirs {
		if !slices.Contains(s.directories[dest], dir) {
			s.directories[dest] = append(s.directories[dest], dir)
		}
	}
}

// RemoveDirectories forgets additional working directories for a scope.
func (s *RuleSet) RemoveDirectories(dest PermissionUpdateDestination, dirs ...string) {
	s.directories[dest] = slices.DeleteFunc(s.directories[dest], func(d string) bool {
		return slices.Contains(dirs, d)
	})
}

// Rules returns a copy of every rule in scope precedence order.
func (s *RuleSet) Rules() []PermissionRule {
	var out []PermissionRule
	for _, dest := range ScopePrecedence {
		out = append(out, s.rules[dest]...)
	}

	return out
}

// Directories returns the additional directories of every scope.
func (s *RuleSet) Directories() []string {
	var out []string
	for _, dest := range ScopePrecedence {
		for _, dir := range s.directories[dest] {
			if !slices.Contains(out, dir) {
				out = append(out, dir)
			}
		}
	}

	return out
}

// find returns the first rule with the given behavior matching the call,
// walking scopes in precedence order.
func (s *RuleSet) find(behavior PermissionBehavior, call target) (*PermissionRule, bool) {
	for _, dest := range ScopePrecedence {
		for i := range s.rules[dest] {
			rule := s.rules[dest][i]
			if rule.Behavior == behavior && rule.matches(call) {
				return &rule, true
			}
		}
	}

	return nil, false
}

// resetSettings replaces every non-session scope with a deep copy of snap.
func (s *RuleSet) resetSettings(snap Snapshot) {
	for _, dest := range ScopePrecedence[1:] {
		delete(s.rules, dest)
		delete(s.directories, dest)
	}
	for _, rule := range snap.Rules {
		if rule.Destination == PermissionDestinationSession {
			continue
		}
		s.Add(rule.Destination, rule.Behavior, rule.PermissionRuleValue.clone())
	}
	for dest, dirs := range snap.Directories {
		if dest == PermissionDestinationSession {
			continue
		}
		s.AddDirectories(dest, dirs...)
	}
}

func (v PermissionRuleValue) equal(other PermissionRuleValue) bool {
	if v.ToolName != other.ToolName {
		return false
	}
	if v.RuleContent == nil || other.RuleContent == nil {
		return v.RuleContent == nil && other.RuleContent == nil
	}

	return *v.RuleContent == *other.RuleContent
}

func (r PermissionRule) equal(other PermissionRule) bool {
	return r.Behavior == other.Behavior &&
		r.Destination == other.Destination &&
		r.PermissionRuleValue.equal(other.PermissionRuleValue)
}

func (v PermissionRuleValue) clone() PermissionRuleValue {
	if v.RuleContent != nil {
		content := *v.RuleContent
		v.RuleContent = &content
	}

	return v
}

// String renders the rule in settings form, "Tool" or "Tool(content)".
func (v PermissionRuleValue) String() string {
	if v.RuleContent == nil {
		return v.ToolName
	}

	return v.ToolName + "(" + *v.RuleContent + ")"
}

// ParseRule parses a settings rule string such as "Bash(npm run:*)".
func ParseRule(s string) (PermissionRuleValue, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return PermissionRuleValue{}, errors.New("permission rule is empty")
	}
	open := strings.IndexByte(trimmed, '(')
	if open < 0 {
		return PermissionRuleValue{ToolName: trimmed}, nil
	}
	if !strings.HasSuffix(trimmed, ")") || open == 0 {
		return PermissionRuleValue{}, fmt.Errorf("permission rule %q malformed", s)
	}
	content := trimmed[open+1 : len(trimmed)-1]
	value := PermissionRuleValue{ToolName: strings.TrimSpace(trimmed[:open])}
	if content != "" {
		value.RuleContent = &content
	}

	return value, nil
}
