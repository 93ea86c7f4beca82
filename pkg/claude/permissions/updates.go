package permissions

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/conneroisu/claude-control/pkg/claude/options"
)

// ParseSuggestions converts the raw permission_suggestions of a
// can_use_tool request.
func ParseSuggestions(raw []map[string]any) []PermissionUpdate {
	var updates []PermissionUpdate
	for _, data := range raw {
		updates = append(updates, ParseUpdate(data))
	}

	return updates
}

// ParseUpdate parses a single permission update from its wire form.
func ParseUpdate(data map[string]any) PermissionUpdate {
	update := PermissionUpdate{
		Type:        PermissionUpdateType(cast.ToString(data["type"])),
		Behavior:    PermissionBehavior(cast.ToString(data["behavior"])),
		Destination: PermissionUpdateDestination(cast.ToString(data["destination"])),
		Directories: cast.ToStringSlice(data["directories"]),
	}
	if modeStr, ok := data["mode"].(string); ok {
		mode := options.PermissionMode(modeStr)
		update.Mode = &mode
	}
	rules, _ := data["rules"].([]any)
	for _, ruleData := range rules {
		ruleMap, ok := ruleData.(map[string]any)
		if !ok {
			continue
		}
		value := PermissionRuleValue{ToolName: cast.ToString(ruleMap["toolName"])}
		if rc, ok := ruleMap["ruleContent"].(string); ok {
			value.RuleContent = &rc
		}
		update.Rules = append(update.Rules, value)
	}

	return update
}

// Wire renders the update in its control protocol form.
func (u PermissionUpdate) Wire() map[string]any {
	out := map[string]any{"type": string(u.Type)}
	if u.Destination != "" {
		out["destination"] = string(u.Destination)
	}
	switch u.Type {
	case UpdateAddRules, UpdateReplaceRules, UpdateRemoveRules:
		rules := make([]any, 0, len(u.Rules))
		for _, r := range u.Rules {
			rule := map[string]any{"toolName": r.ToolName}
			if r.RuleContent != nil {
				rule["ruleContent"] = *r.RuleContent
			}
			rules = append(rules, rule)
		}
		out["rules"] = rules
		out["behavior"] = string(u.Behavior)
	case UpdateSetMode:
		if u.Mode != nil {
			out["mode"] = string(*u.Mode)
		}
	case UpdateAddDirectories, UpdateRemoveDirectories:
		out["directories"] = append([]string{}, u.Directories...)
	}

	return out
}

// validate checks the fields an update kind requires.
func (u PermissionUpdate) validate() error {
	switch u.Type {
	case UpdateAddRules, UpdateReplaceRules, UpdateRemoveRules:
		switch u.Behavior {
		case PermissionBehaviorAllow, PermissionBehaviorDeny, PermissionBehaviorAsk:
		default:
			return fmt.Errorf("%s: invalid behavior %q", u.Type, u.Behavior)
		}
	case UpdateSetMode:
		if u.Mode == nil || !u.Mode.Valid() {
			return fmt.Errorf("%s: invalid mode", u.Type)
		}

		return nil
	case UpdateAddDirectories, UpdateRemoveDirectories:
	default:
		return fmt.Errorf("unknown permission update type %q", u.Type)
	}
	switch u.Destination {
	case PermissionDestinationSession,
		PermissionDestinationLocalSettings,
		PermissionDestinationProjectSettings,
		PermissionDestinationUserSettings:
		return nil
	default:
		return fmt.Errorf("%s: invalid destination %q", u.Type, u.Destination)
	}
}
