package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/conneroisu/claude-control/pkg/claude/messages"
)

// printer renders messages for a terminal.
type printer struct {
	w       io.Writer
	verbose bool
}

func (p printer) message(msg messages.Message) {
	switch m := msg.(type) {
	case *messages.AssistantMessage:
		p.blocks(m.Content)
	case *messages.UserMessage:
		switch c := m.Content.(type) {
		case messages.StringContent:
			fmt.Fprintf(p.w, "> %s\n", string(c))
		case messages.BlocksContent:
			if p.verbose {
				p.blocks(c)
			}
		}
	case *messages.PermissionDenial:
		fmt.Fprintf(p.w, "[denied] %s (%s): %s\n", m.ToolName, m.Source, m.Message)
	case *messages.SystemMessage:
		if init, ok := m.Data.(*messages.InitData); ok && p.verbose {
			fmt.Fprintf(p.w, "[init] model=%s mode=%s tools=%d\n", init.Model, init.PermissionMode, len(init.Tools))
		}
	case *messages.ResultMessage:
		p.result(m)
	}
}

func (p printer) blocks(blocks []messages.ContentBlock) {
	for _, block := range blocks {
		switch b := block.(type) {
		case *messages.TextBlock:
			fmt.Fprintln(p.w, b.Text)
		case *messages.ThinkingBlock:
			if p.verbose {
				fmt.Fprintf(p.w, "[thinking] %s\n", b.Thinking)
			}
		case *messages.ToolUseBlock:
			input, _ := json.Marshal(b.Input)
			fmt.Fprintf(p.w, "[tool] %s %s\n", b.Name, input)
		case *messages.ToolResultBlock:
			label := "result"
			if b.IsError {
				label = "error"
			}
			if text, ok := b.Content.(messages.ToolResultString); ok {
				fmt.Fprintf(p.w, "[%s] %s\n", label, string(text))
			} else {
				fmt.Fprintf(p.w, "[%s] (structured)\n", label)
			}
		}
	}
}

func (p printer) result(m *messages.ResultMessage) {
	line := fmt.Sprintf("[%s] turns=%d duration=%dms", m.Subtype, m.NumTurns, m.DurationMS)
	if m.TotalCostUSD != nil {
		line += fmt.Sprintf(" cost=$%.4f", *m.TotalCostUSD)
	}
	if n := len(m.PermissionDenials); n > 0 {
		line += fmt.Sprintf(" denials=%d", n)
	}
	fmt.Fprintln(p.w, line)
}
