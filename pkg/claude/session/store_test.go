package session_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/claude/ports"
	"github.com/conneroisu/claude-control/pkg/claude/session"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

type storeFactory func(t *testing.T) ports.SessionStore

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(*testing.T) ports.SessionStore { return session.NewMemoryStore() },
		"file": func(t *testing.T) ports.SessionStore {
			fs, err := session.NewFileStore(t.TempDir(), nil)
			require.NoError(t, err)

			return fs
		},
	}
}

func userMsg(sessionID string, n int) messages.Message {
	return &messages.UserMessage{
		Meta:    messages.Meta{SessionID: sessionID, UUID: fmt.Sprintf("u-%d", n)},
		Content: messages.StringContent(fmt.Sprintf("turn %d", n)),
	}
}

func text(t *testing.T, e ports.TranscriptEntry) string {
	t.Helper()
	m, ok := e.Message.(*messages.UserMessage)
	require.True(t, ok)

	return string(m.Content.(messages.StringContent))
}

func appendN(t *testing.T, store ports.SessionStore, id string, n int) []ports.TranscriptEntry {
	t.Helper()
	entries := make([]ports.TranscriptEntry, n)
	for i := range n {
		e, err := store.Append(context.Background(), id, userMsg(id, i+1))
		require.NoError(t, err)
		entries[i] = e
	}

	return entries
}

func assertGapless(t *testing.T, entries []ports.TranscriptEntry) {
	t.Helper()
	for i, e := range entries {
		assert.Equal(t, uint64(i+1), e.Seq)
		if i > 0 {
			assert.Greater(t, e.ID, entries[i-1].ID, "entry ids must be time ordered")
		}
	}
}

func TestStores(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			t.Run("append and replay", func(t *testing.T) {
				ctx := context.Background()
				store := newStore(t)
				require.NoError(t, store.Create(ctx, "s1", "default"))
				entries := appendN(t, store, "s1", 4)
				assertGapless(t, entries)

				all, err := store.ReplayFrom(ctx, "s1", "")
				require.NoError(t, err)
				assert.Len(t, all, 4)

				tail, err := store.ReplayFrom(ctx, "s1", entries[2].ID)
				require.NoError(t, err)
				require.Len(t, tail, 2)
				assert.Equal(t, "turn 3", text(t, tail[0]))

				_, err = store.ReplayFrom(ctx, "s1", "missing")
				assert.True(t, errors.Is(err, clauderrs.ErrUnknownMessageID))
				_, err = store.ReplayFrom(ctx, "nope", "")
				assert.True(t, errors.Is(err, clauderrs.ErrSessionNotFound))
			})

			t.Run("create twice fails", func(t *testing.T) {
				store := newStore(t)
				require.NoError(t, store.Create(context.Background(), "s1", "plan"))
				err := store.Create(context.Background(), "s1", "plan")
				assert.True(t, clauderrs.IsSessionError(err))
			})

			t.Run("fork copies prefix with fresh ids", func(t *testing.T) {
				ctx := context.Background()
				store := newStore(t)
				require.NoError(t, store.Create(ctx, "s1", "acceptEdits"))
				orig := appendN(t, store, "s1", 5)

				forkID, err := store.Fork(ctx, "s1", orig[2].ID)
				require.NoError(t, err)
				assert.NotEqual(t, "s1", forkID)

				rs, err := store.Resume(ctx, forkID)
				require.NoError(t, err)
				require.Len(t, rs.Transcript, 3)
				assertGapless(t, rs.Transcript)
				assert.Equal(t, "acceptEdits", rs.Mode)
				assert.Equal(t, rs.Transcript[2].ID, rs.LastID)
				for i, e := range rs.Transcript {
					assert.NotEqual(t, orig[i].ID, e.ID)
					assert.Equal(t, text(t, orig[i]), text(t, e))
				}

				// The fork is isolated from its parent.
				_, err = store.Append(ctx, forkID, userMsg(forkID, 99))
				require.NoError(t, err)
				require.NoError(t, store.Truncate(ctx, "s1", orig[0].ID))

				parent, err := store.Resume(ctx, "s1")
				require.NoError(t, err)
				assert.Len(t, parent.Transcript, 1)
				child, err := store.Resume(ctx, forkID)
				require.NoError(t, err)
				assert.Len(t, child.Transcript, 4)
				assert.Equal(t, uint64(4), child.Transcript[3].Seq)

				infos, err := store.List(ctx)
				require.NoError(t, err)
				require.Len(t, infos, 2)
				for _, info := range infos {
					if info.ID == forkID {
						assert.Equal(t, "s1", info.ParentID)
						assert.Equal(t, 4, info.Length)
					}
				}
			})

			t.Run("fork whole transcript", func(t *testing.T) {
				ctx := context.Background()
				store := newStore(t)
				appendN(t, store, "s1", 3)
				forkID, err := store.Fork(ctx, "s1", "")
				require.NoError(t, err)
				rs, err := store.Resume(ctx, forkID)
				require.NoError(t, err)
				assert.Len(t, rs.Transcript, 3)

				_, err = store.Fork(ctx, "s1", "missing")
				assert.True(t, errors.Is(err, clauderrs.ErrUnknownMessageID))
			})

			t.Run("truncate then append stays gapless", func(t *testing.T) {
				ctx := context.Background()
				store := newStore(t)
				entries := appendN(t, store, "s1", 4)
				require.NoError(t, store.Truncate(ctx, "s1", entries[1].ID))
				appendN(t, store, "s1", 2)

				rs, err := store.Resume(ctx, "s1")
				require.NoError(t, err)
				require.Len(t, rs.Transcript, 4)
				assertGapless(t, rs.Transcript)
			})

			t.Run("stored messages are not shared", func(t *testing.T) {
				ctx := context.Background()
				store := newStore(t)
				input := map[string]any{"command": "git status"}
				sent := &messages.AssistantMessage{
					Meta:    messages.Meta{SessionID: "s1", UUID: "a-1"},
					Content: []messages.ContentBlock{&messages.ToolUseBlock{ID: "tu1", Name: "Bash", Input: input}},
				}
				entry, err := store.Append(ctx, "s1", sent)
				require.NoError(t, err)
				assert.Same(t, sent, entry.Message)
				forkID, err := store.Fork(ctx, "s1", "")
				require.NoError(t, err)

				input["command"] = "rm -rf /"
				replayed, err := store.ReplayFrom(ctx, "s1", "")
				require.NoError(t, err)
				replayed[0].Message.(*messages.AssistantMessage).Content = nil

				for _, id := range []string{"s1", forkID} {
					rs, err := store.Resume(ctx, id)
					require.NoError(t, err)
					require.Len(t, rs.Transcript, 1)
					msg := rs.Transcript[0].Message.(*messages.AssistantMessage)
					require.Len(t, msg.Content, 1)
					assert.Equal(t, "git status", msg.Content[0].(*messages.ToolUseBlock).Input["command"], id)
				}
			})

			t.Run("set mode", func(t *testing.T) {
				ctx := context.Background()
				store := newStore(t)
				require.NoError(t, store.Create(ctx, "s1", "default"))
				require.NoError(t, store.SetMode(ctx, "s1", "plan"))
				rs, err := store.Resume(ctx, "s1")
				require.NoError(t, err)
				assert.Equal(t, "plan", rs.Mode)
				assert.Empty(t, rs.LastID)

				assert.True(t, errors.Is(store.SetMode(ctx, "nope", "plan"), clauderrs.ErrSessionNotFound))
			})
		})
	}
}

func TestFileStore_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := session.NewFileStore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, store.Create(ctx, "s1", "default"))
	entries := appendN(t, store, "s1", 3)
	require.NoError(t, store.SetMode(ctx, "s1", "bypassPermissions"))
	forkID, err := store.Fork(ctx, "s1", entries[0].ID)
	require.NoError(t, err)
	require.NoError(t, store.Truncate(ctx, "s1", entries[1].ID))

	reopened, err := session.NewFileStore(dir, nil)
	require.NoError(t, err)

	rs, err := reopened.Resume(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "bypassPermissions", rs.Mode)
	require.Len(t, rs.Transcript, 2)
	assert.Equal(t, entries[1].ID, rs.LastID)
	assert.True(t, entries[0].Timestamp.Equal(rs.Transcript[0].Timestamp))
	assert.Equal(t, "turn 2", text(t, rs.Transcript[1]))
	id, uuid := messages.IdentityOf(rs.Transcript[1].Message)
	assert.Equal(t, "s1", id)
	assert.Equal(t, "u-2", uuid)

	child, err := reopened.Resume(ctx, forkID)
	require.NoError(t, err)
	assert.Len(t, child.Transcript, 1)

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFileStore_TruncatedTailIsDropped(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := session.NewFileStore(dir, nil)
	require.NoError(t, err)
	appendN(t, store, "s1", 2)

	// Simulate a crash mid-append: a CBOR map header with no body.
	f, err := os.OpenFile(filepath.Join(dir, "s1.cbor"), os.O_WRONLY|os.O_APPEND, 0o600)
	require.NoError(t, err)
	_, err = f.Write([]byte{0xa8, 0x01})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := session.NewFileStore(dir, nil)
	require.NoError(t, err)
	rs, err := reopened.Resume(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, rs.Transcript, 2)

	// The torn record was cut away, so later appends stay readable.
	appendN(t, reopened, "s1", 1)
	again, err := session.NewFileStore(dir, nil)
	require.NoError(t, err)
	rs, err = again.Resume(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, rs.Transcript, 3)
}

func TestFileStore_RejectsPathLikeIDs(t *testing.T) {
	store, err := session.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	err = store.Create(context.Background(), "../escape", "default")
	assert.True(t, clauderrs.IsSessionError(err))
}
