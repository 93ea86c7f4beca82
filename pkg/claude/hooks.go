package claude

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conneroisu/claude-control/pkg/claude/hooking"
)

// Hook types re-exported from package hooking.
type (
	HookEvent    = hooking.HookEvent
	HookContext  = hooking.HookContext
	HookCallback = hooking.HookCallback
	HookMatcher  = hooking.HookMatcher
	HookInput    = hooking.HookInput
	HookOutput   = hooking.HookOutput
)

// Hook events.
const (
	HookEventPreToolUse       = hooking.HookEventPreToolUse
	HookEventPostToolUse      = hooking.HookEventPostToolUse
	HookEventNotification     = hooking.HookEventNotification
	HookEventUserPromptSubmit = hooking.HookEventUserPromptSubmit
	HookEventSessionStart     = hooking.HookEventSessionStart
	HookEventSessionEnd       = hooking.HookEventSessionEnd
	HookEventStop             = hooking.HookEventStop
	HookEventSubagentStop     = hooking.HookEventSubagentStop
	HookEventPreCompact       = hooking.HookEventPreCompact
)

// BlockBashPatternHook denies Bash commands containing any of patterns.
func BlockBashPatternHook(patterns []string) HookCallback {
	return func(input HookInput, _ *string, _ HookContext) (*HookOutput, error) {
		pre, ok := input.(hooking.PreToolUseHookInput)
		if !ok || pre.ToolName != "Bash" {
			return nil, nil
		}
		typed, err := DecodeToolInput(pre.ToolName, pre.ToolInput)
		if err != nil {
			return nil, err
		}
		command := typed.(BashInput).Command
		for _, pattern := range patterns {
			if strings.Contains(command, pattern) {
				return hooking.DenyTool(fmt.Sprintf("Command contains forbidden pattern: %s", pattern)), nil
			}
		}

		return nil, nil
	}
}

// ProtectPathsHook denies file writes and edits whose target matches any
// of globs. Globs use filepath.Match syntax against the full path and the
// base name.
func ProtectPathsHook(globs []string) HookCallback {
	return func(input HookInput, _ *string, _ HookContext) (*HookOutput, error) {
		pre, ok := input.(hooking.PreToolUseHookInput)
		if !ok {
			return nil, nil
		}
		typed, err := DecodeToolInput(pre.ToolName, pre.ToolInput)
		if err != nil {
			return nil, nil
		}
		target, ok := touchedPath(typed)
		if !ok {
			return nil, nil
		}
		for _, glob := range globs {
			full, _ := filepath.Match(glob, target)
			base, _ := filepath.Match(glob, filepath.Base(target))
			if full || base {
				return hooking.DenyTool(fmt.Sprintf("%s is protected", target)), nil
			}
		}

		return nil, nil
	}
}
