package claude

import (
	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/claude/permissions"
)

// Message types re-exported from package messages.
type (
	Message          = messages.Message
	AssistantMessage = messages.AssistantMessage
	UserMessage      = messages.UserMessage
	ResultMessage    = messages.ResultMessage
	SystemMessage    = messages.SystemMessage
	StreamEvent      = messages.StreamEvent
	PermissionDenial = messages.PermissionDenial
)

// Permission types re-exported from package permissions.
type (
	CanUseToolFunc        = permissions.CanUseToolFunc
	ToolPermissionContext = permissions.ToolPermissionContext
	PermissionResult      = permissions.PermissionResult
	PermissionResultAllow = permissions.PermissionResultAllow
	PermissionResultDeny  = permissions.PermissionResultDeny
	PermissionRule        = permissions.PermissionRule
	PermissionUpdate      = permissions.PermissionUpdate
)

// ModelInfo describes a model the worker can switch to.
type ModelInfo struct {
	Value       string `json:"value"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

// SlashCommand describes a command the worker accepts.
type SlashCommand struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	ArgumentHint string `json:"argumentHint"`
}

// MCPServerStatus is the worker's view of one MCP server.
type MCPServerStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// AccountInfo describes the account behind the worker's credentials.
type AccountInfo struct {
	Email            *string `json:"email,omitempty"`
	Organization     *string `json:"organization,omitempty"`
	SubscriptionType *string `json:"subscriptionType,omitempty"`
	TokenSource      *string `json:"tokenSource,omitempty"`
	APIKeySource     *string `json:"apiKeySource,omitempty"`
}
