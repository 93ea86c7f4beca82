package ports

import (
	"context"
	"time"

	"github.com/conneroisu/claude-control/pkg/claude/messages"
)

// TranscriptEntry is one committed message of a session transcript.
type TranscriptEntry struct {
	// Seq is gapless and strictly increasing within a session, starting at 1.
	Seq uint64
	// ID is a time-ordered identifier assigned by the store.
	ID        string
	Timestamp time.Time
	Message   messages.Message
}

// SessionInfo summarizes a stored session.
type SessionInfo struct {
	ID        string
	ParentID  string
	Mode      string
	Length    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResumeState is everything needed to reopen a worker with the same
// conversational context.
type ResumeState struct {
	SessionID  string
	Mode       string
	Transcript []TranscriptEntry
	LastID     string
}

// SessionStore is the append-only transcript store. Stores keep their own
// copy of every message; mutating a message after Append, or one returned
// by a read, never changes the stored transcript.
type SessionStore interface {
	// Create registers a new, empty session. Creating an existing ID fails.
	Create(ctx context.Context, sessionID, mode string) error

	// Append commits a message and returns its entry. Unknown sessions are
	// created on first append.
	Append(ctx context.Context, sessionID string, msg messages.Message) (TranscriptEntry, error)

	// ReplayFrom returns entries starting at fromID inclusive, or the whole
	// transcript when fromID is empty.
	ReplayFrom(ctx context.Context, sessionID, fromID string) ([]TranscriptEntry, error)

	// Fork copies the transcript up to atID inclusive (everything when
	// empty) into a new session with fresh entry IDs.
	Fork(ctx context.Context, sessionID, atID string) (string, error)

	// Truncate drops every entry after toID.
	Truncate(ctx context.Context, sessionID, toID string) error

	// Resume returns the ordered, gapless transcript and session mode.
	Resume(ctx context.Context, sessionID string) (ResumeState, error)

	// SetMode records the session's permission mode.
	SetMode(ctx context.Context, sessionID, mode string) error

	// List returns a summary of every stored session.
	List(ctx context.Context) ([]SessionInfo, error)
}
