package tools

import "github.com/conneroisu/claude-control/pkg/claude/options"

func object(required []string, props map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

func str() map[string]any     { return map[string]any{"type": "string"} }
func integer() map[string]any { return map[string]any{"type": "integer"} }
func boolean() map[string]any { return map[string]any{"type": "boolean"} }

func array(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func enum(values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

var editProps = map[string]any{
	"old_string":  str(),
	"new_string":  str(),
	"replace_all": boolean(),
}

// Builtins returns the specs of the worker's built-in tools.
func Builtins() []Spec {
	return []Spec{
		{
			Name: string(options.ToolBash),
			Schema: object([]string{"command"}, map[string]any{
				"command":                   str(),
				"timeout":                   integer(),
				"description":               str(),
				"run_in_background":         boolean(),
				"dangerouslyDisableSandbox": boolean(),
			}),
		},
		{
			Name:     string(options.ToolBashOutput),
			ReadOnly: true,
			Schema: object([]string{"bash_id"}, map[string]any{
				"bash_id": str(),
				"filter":  str(),
			}),
		},
		{
			Name:   string(options.ToolKillShell),
			Schema: object([]string{"shell_id"}, map[string]any{"shell_id": str()}),
		},
		{
			Name:     string(options.ToolRead),
			ReadOnly: true,
			Schema: object([]string{"file_path"}, map[string]any{
				"file_path": str(),
				"offset":    integer(),
				"limit":     integer(),
			}),
		},
		{
			Name:      string(options.ToolWrite),
			EditClass: true,
			Schema: object([]string{"file_path", "content"}, map[string]any{
				"file_path": str(),
				"content":   str(),
			}),
		},
		{
			Name:      string(options.ToolEdit),
			EditClass: true,
			Schema: object([]string{"file_path", "old_string", "new_string"}, map[string]any{
				"file_path":   str(),
				"old_string":  str(),
				"new_string":  str(),
				"replace_all": boolean(),
			}),
		},
		{
			Name:      string(options.ToolMultiEdit),
			EditClass: true,
			Schema: object([]string{"file_path", "edits"}, map[string]any{
				"file_path": str(),
				"edits":     array(object([]string{"old_string", "new_string"}, editProps)),
			}),
		},
		{
			Name:      string(options.ToolNotebookEdit),
			EditClass: true,
			Schema: object([]string{"notebook_path", "new_source"}, map[string]any{
				"notebook_path": str(),
				"cell_id":       str(),
				"new_source":    str(),
				"cell_type":     enum("code", "markdown"),
				"edit_mode":     enum("replace", "insert", "delete"),
			}),
		},
		{
			Name:     string(options.ToolGlob),
			ReadOnly: true,
			Schema: object([]string{"pattern"}, map[string]any{
				"pattern": str(),
				"path":    str(),
			}),
		},
		{
			Name:     string(options.ToolGrep),
			ReadOnly: true,
			Schema: object([]string{"pattern"}, map[string]any{
				"pattern":     str(),
				"path":        str(),
				"glob":        str(),
				"output_mode": enum("content", "files_with_matches", "count"),
				"-B":          integer(),
				"-A":          integer(),
				"-C":          integer(),
				"-n":          boolean(),
				"-i":          boolean(),
				"type":        str(),
				"head_limit":  integer(),
				"multiline":   boolean(),
			}),
		},
		{
			Name: string(options.ToolTask),
			Schema: object([]string{"description", "prompt", "subagent_type"}, map[string]any{
				"description":   str(),
				"prompt":        str(),
				"subagent_type": str(),
				"model":         str(),
				"resume":        str(),
			}),
		},
		{
			Name:     string(options.ToolExitPlanMode),
			ReadOnly: true,
			Schema:   object([]string{"plan"}, map[string]any{"plan": str()}),
		},
		{
			Name:     string(options.ToolTodoWrite),
			ReadOnly: true,
			Schema: object([]string{"todos"}, map[string]any{
				"todos": array(object([]string{"content", "status", "activeForm"}, map[string]any{
					"content":    str(),
					"status":     enum("pending", "in_progress", "completed"),
					"activeForm": str(),
				})),
			}),
		},
		{
			Name:   string(options.ToolSlashCommand),
			Schema: object([]string{"command"}, map[string]any{"command": str()}),
		},
		{
			Name:     string(options.ToolWebFetch),
			ReadOnly: true,
			Schema: object([]string{"url", "prompt"}, map[string]any{
				"url":    str(),
				"prompt": str(),
			}),
		},
		{
			Name:     string(options.ToolWebSearch),
			ReadOnly: true,
			Schema: object([]string{"query"}, map[string]any{
				"query":           str(),
				"allowed_domains": array(str()),
				"blocked_domains": array(str()),
			}),
		},
		{
			Name:     string(options.ToolListMcpResources),
			ReadOnly: true,
			Schema:   object(nil, map[string]any{"server": str()}),
		},
		{
			Name:     string(options.ToolReadMcpResource),
			ReadOnly: true,
			Schema: object([]string{"server", "uri"}, map[string]any{
				"server": str(),
				"uri":    str(),
			}),
		},
	}
}
