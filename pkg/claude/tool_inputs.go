package claude

import (
	"encoding/json"
	"fmt"

	"github.com/conneroisu/claude-control/pkg/claude/options"
)

// ToolInput is the typed input of a builtin tool.
type ToolInput interface {
	toolInput()
}

// BashInput is the input of Bash.
type BashInput struct {
	Command         string  `json:"command"`
	Timeout         *int    `json:"timeout,omitempty"`
	Description     *string `json:"description,omitempty"`
	RunInBackground *bool   `json:"run_in_background,omitempty"`
}

func (BashInput) toolInput() {}

// FileReadInput is the input of Read.
type FileReadInput struct {
	FilePath string `json:"file_path"`
	Offset   *int   `json:"offset,omitempty"`
	Limit    *int   `json:"limit,omitempty"`
}

func (FileReadInput) toolInput() {}

// FileWriteInput is the input of Write.
type FileWriteInput struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

func (FileWriteInput) toolInput() {}

// FileEditInput is the input of Edit.
type FileEditInput struct {
	FilePath   string `json:"file_path"`
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll *bool  `json:"replace_all,omitempty"`
}

func (FileEditInput) toolInput() {}

// NotebookEditInput is the input of NotebookEdit.
type NotebookEditInput struct {
	NotebookPath string  `json:"notebook_path"`
	CellID       *string `json:"cell_id,omitempty"`
	NewSource    string  `json:"new_source"`
	CellType     *string `json:"cell_type,omitempty"`
	EditMode     *string `json:"edit_mode,omitempty"`
}

func (NotebookEditInput) toolInput() {}

// GlobInput is the input of Glob.
type GlobInput struct {
	Pattern string  `json:"pattern"`
	Path    *string `json:"path,omitempty"`
}

func (GlobInput) toolInput() {}

// GrepInput is the input of Grep.
type GrepInput struct {
	Pattern    string  `json:"pattern"`
	Path       *string `json:"path,omitempty"`
	Glob       *string `json:"glob,omitempty"`
	OutputMode *string `json:"output_mode,omitempty"`
}

func (GrepInput) toolInput() {}

// WebFetchInput is the input of WebFetch.
type WebFetchInput struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

func (WebFetchInput) toolInput() {}

// DecodeToolInput converts a raw tool input into its typed form. Tools
// without a typed form return an error.
func DecodeToolInput(tool string, input map[string]any) (ToolInput, error) {
	switch options.BuiltinTool(tool) {
	case options.ToolBash:
		return decodeToolInput[BashInput](input)
	case options.ToolRead:
		return decodeToolInput[FileReadInput](input)
	case options.ToolWrite:
		return decodeToolInput[FileWriteInput](input)
	case options.ToolEdit:
		return decodeToolInput[FileEditInput](input)
	case options.ToolNotebookEdit:
		return decodeToolInput[NotebookEditInput](input)
	case options.ToolGlob:
		return decodeToolInput[GlobInput](input)
	case options.ToolGrep:
		return decodeToolInput[GrepInput](input)
	case options.ToolWebFetch:
		return decodeToolInput[WebFetchInput](input)
	default:
		return nil, fmt.Errorf("no typed input for tool %s", tool)
	}
}

func decodeToolInput[T ToolInput](input map[string]any) (ToolInput, error) {
	var out T
	data, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %T: %w", out, err)
	}

	return out, nil
}

// touchedPath returns the file a typed input writes to.
func touchedPath(in ToolInput) (string, bool) {
	switch v := in.(type) {
	case FileWriteInput:
		return v.FilePath, true
	case FileEditInput:
		return v.FilePath, true
	case NotebookEditInput:
		return v.NotebookPath, true
	default:
		return "", false
	}
}
