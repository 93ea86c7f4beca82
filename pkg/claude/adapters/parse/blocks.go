package parse

import (
	"errors"
	"fmt"

	"github.com/conneroisu/claude-control/pkg/claude/messages"
)

// Content block type discriminators.
const (
	blockText       = "text"
	blockThinking   = "thinking"
	blockToolUse    = "tool_use"
	blockToolResult = "tool_result"
)

// decodeBlocks parses an array of content blocks. An empty array decodes
// as nil.
func decodeBlocks(raw []any) ([]messages.ContentBlock, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	blocks := make([]messages.ContentBlock, 0, len(raw))
	for i, item := range raw {
		block, err := decodeBlock(item)
		if err != nil {
			return nil, fmt.Errorf("content block %d: %w", i, err)
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}

func decodeBlock(item any) (messages.ContentBlock, error) {
	data, ok := item.(map[string]any)
	if !ok {
		return nil, errors.New("content block must be an object")
	}
	blockType, err := requiredString(data, "type")
	if err != nil {
		return nil, err
	}
	// A switch rather than a lookup table: tool_result blocks nest blocks,
	// so a table would refer to itself during initialization.
	switch blockType {
	case blockText:
		return decodeTextBlock(data)
	case blockThinking:
		return decodeThinkingBlock(data)
	case blockToolUse:
		return decodeToolUseBlock(data)
	case blockToolResult:
		return decodeToolResultBlock(data)
	default:
		return nil, fmt.Errorf("unknown content block type: %s", blockType)
	}
}

func decodeTextBlock(data map[string]any) (messages.ContentBlock, error) {
	text, err := optionalString(data, "text")
	if err != nil {
		return nil, err
	}

	return &messages.TextBlock{Text: text}, nil
}

func decodeThinkingBlock(data map[string]any) (messages.ContentBlock, error) {
	thinking, err := optionalString(data, "thinking")
	if err != nil {
		return nil, err
	}
	signature, err := optionalString(data, "signature")
	if err != nil {
		return nil, err
	}

	return &messages.ThinkingBlock{Thinking: thinking, Signature: signature}, nil
}

func decodeToolUseBlock(data map[string]any) (messages.ContentBlock, error) {
	id, err := requiredString(data, "id")
	if err != nil {
		return nil, err
	}
	name, err := requiredString(data, "name")
	if err != nil {
		return nil, err
	}
	input, err := objectField(data, "input")
	if err != nil {
		return nil, err
	}

	return &messages.ToolUseBlock{ID: id, Name: name, Input: input}, nil
}

func decodeToolResultBlock(data map[string]any) (messages.ContentBlock, error) {
	toolUseID, err := requiredString(data, "tool_use_id")
	if err != nil {
		return nil, err
	}
	isError, err := boolField(data, "is_error")
	if err != nil {
		return nil, err
	}

	var content messages.ToolResultContent
	switch raw := data["content"].(type) {
	case nil:
	case string:
		content = messages.ToolResultString(raw)
	case []any:
		blocks, blockErr := decodeBlocks(raw)
		if blockErr != nil {
			return nil, blockErr
		}
		content = messages.ToolResultBlocks(blocks)
	default:
		return nil, fmt.Errorf("%w: tool_result content must be string or array, got %T", ErrInvalidType, raw)
	}

	return &messages.ToolResultBlock{ToolUseID: toolUseID, Content: content, IsError: isError}, nil
}

func encodeBlocks(blocks []messages.ContentBlock) ([]any, error) {
	out := make([]any, 0, len(blocks))
	for i, block := range blocks {
		data, err := encodeBlock(block)
		if err != nil {
			return nil, fmt.Errorf("content block %d: %w", i, err)
		}
		out = append(out, data)
	}

	return out, nil
}

func encodeBlock(block messages.ContentBlock) (map[string]any, error) {
	switch b := block.(type) {
	case *messages.TextBlock:
		return map[string]any{"type": blockText, "text": b.Text}, nil
	case *messages.ThinkingBlock:
		return map[string]any{"type": blockThinking, "thinking": b.Thinking, "signature": b.Signature}, nil
	case *messages.ToolUseBlock:
		data := map[string]any{"type": blockToolUse, "id": b.ID, "name": b.Name}
		setObject(data, "input", b.Input)

		return data, nil
	case *messages.ToolResultBlock:
		data := map[string]any{"type": blockToolResult, "tool_use_id": b.ToolUseID}
		if b.IsError {
			data["is_error"] = true
		}
		switch c := b.Content.(type) {
		case nil:
		case messages.ToolResultString:
			data["content"] = string(c)
		case messages.ToolResultBlocks:
			nested, err := encodeBlocks(c)
			if err != nil {
				return nil, err
			}
			data["content"] = nested
		default:
			return nil, fmt.Errorf("unsupported tool result content %T", c)
		}

		return data, nil
	default:
		return nil, fmt.Errorf("unsupported content block %T", block)
	}
}
