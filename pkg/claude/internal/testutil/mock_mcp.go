package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/conneroisu/claude-control/pkg/claude/ports"
)

// MockMCPServer implements ports.MCPServer. By default it answers every
// request with an empty result carrying the request's id.
type MockMCPServer struct {
	ServerName        string
	HandleMessageFunc func(context.Context, []byte) ([]byte, error)

	mu       sync.Mutex
	received [][]byte
}

var _ ports.MCPServer = (*MockMCPServer)(nil)

// Name returns ServerName, or "mock" when unset.
func (m *MockMCPServer) Name() string {
	if m.ServerName == "" {
		return "mock"
	}

	return m.ServerName
}

// HandleMessage records msg and answers it.
func (m *MockMCPServer) HandleMessage(ctx context.Context, msg []byte) ([]byte, error) {
	m.mu.Lock()
	m.received = append(m.received, append([]byte(nil), msg...))
	m.mu.Unlock()
	if m.HandleMessageFunc != nil {
		return m.HandleMessageFunc(ctx, msg)
	}

	var req struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(msg, &req); err != nil {
		return nil, err
	}
	if req.ID == nil {
		return nil, nil
	}

	return json.Marshal(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": map[string]any{}})
}

// Received returns the raw messages handled so far.
func (m *MockMCPServer) Received() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([][]byte(nil), m.received...)
}
