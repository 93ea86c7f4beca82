// Package session provides the append-only transcript stores used to
// resume and fork sessions.
package session

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/claude-control/pkg/claude/adapters/parse"
	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/claude/ports"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

// defaultMode is recorded for sessions created implicitly by Append.
const defaultMode = "default"

// state is one session's transcript. Entries are never edited in place;
// truncation and forking build new slices. Stored messages are private
// copies: Append copies in and reads copy out, so a fork may share them
// with its parent.
type state struct {
	info    ports.SessionInfo
	entries []ports.TranscriptEntry
}

func newState(id, parentID, mode string, now time.Time) *state {
	return &state{info: ports.SessionInfo{
		ID:        id,
		ParentID:  parentID,
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
	}}
}

// next builds the entry that Append would commit, without committing it.
func (s *state) next(msg messages.Message, now time.Time) (ports.TranscriptEntry, error) {
	stored, err := detach(msg)
	if err != nil {
		return ports.TranscriptEntry{}, clauderrs.NewSessionError(
			clauderrs.ErrCodeStoreFailed, "copy transcript message", err, s.info.ID,
		)
	}

	return ports.TranscriptEntry{
		Seq:       uint64(len(s.entries)) + 1,
		ID:        newEntryID(),
		Timestamp: now,
		Message:   stored,
	}, nil
}

// detach deep-copies msg through the wire codec.
func detach(msg messages.Message) (messages.Message, error) {
	line, err := parse.Encode(msg)
	if err != nil {
		return nil, err
	}

	return parse.Decode(line)
}

// detachAll copies entries for a caller.
func detachAll(sessionID string, entries []ports.TranscriptEntry) ([]ports.TranscriptEntry, error) {
	out := make([]ports.TranscriptEntry, len(entries))
	for i, e := range entries {
		msg, err := detach(e.Message)
		if err != nil {
			return nil, clauderrs.NewSessionError(
				clauderrs.ErrCodeStoreFailed, "copy transcript message", err, sessionID,
			)
		}
		e.Message = msg
		out[i] = e
	}

	return out, nil
}

func (s *state) commit(e ports.TranscriptEntry) {
	s.entries = append(s.entries, e)
	s.info.UpdatedAt = e.Timestamp
}

// index returns the position of entry id.
func (s *state) index(id string) (int, error) {
	for i, e := range s.entries {
		if e.ID == id {
			return i, nil
		}
	}

	return -1, clauderrs.NewSessionError(
		clauderrs.ErrCodeUnknownMessage,
		fmt.Sprintf("no entry %s", id),
		nil,
		s.info.ID,
	)
}

// prefix returns a copy of the entries up to and including id, or every
// entry when id is empty.
func (s *state) prefix(id string) ([]ports.TranscriptEntry, error) {
	if id == "" {
		return slices.Clone(s.entries), nil
	}
	i, err := s.index(id)
	if err != nil {
		return nil, err
	}

	return slices.Clone(s.entries[:i+1]), nil
}

// suffix returns detached copies of the entries from id inclusive.
func (s *state) suffix(id string) ([]ports.TranscriptEntry, error) {
	if id == "" {
		return detachAll(s.info.ID, s.entries)
	}
	i, err := s.index(id)
	if err != nil {
		return nil, err
	}

	return detachAll(s.info.ID, s.entries[i:])
}

// forked copies entries into a new session with fresh IDs and gapless
// sequence numbers. Relative order and timestamps are kept.
func forked(parent *state, newID string, entries []ports.TranscriptEntry, now time.Time) *state {
	child := newState(newID, parent.info.ID, parent.info.Mode, now)
	child.entries = make([]ports.TranscriptEntry, len(entries))
	for i, e := range entries {
		child.entries[i] = ports.TranscriptEntry{
			Seq:       uint64(i) + 1,
			ID:        newEntryID(),
			Timestamp: e.Timestamp,
			Message:   e.Message,
		}
	}

	return child
}

func (s *state) summary() ports.SessionInfo {
	info := s.info
	info.Length = len(s.entries)

	return info
}

func (s *state) resume() (ports.ResumeState, error) {
	transcript, err := detachAll(s.info.ID, s.entries)
	if err != nil {
		return ports.ResumeState{}, err
	}
	rs := ports.ResumeState{
		SessionID:  s.info.ID,
		Mode:       s.info.Mode,
		Transcript: transcript,
	}
	if n := len(s.entries); n > 0 {
		rs.LastID = s.entries[n-1].ID
	}

	return rs, nil
}

// newEntryID returns a time-ordered UUIDv7. The generator is monotonic
// within a process.
func newEntryID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func notFound(id string) error {
	return clauderrs.NewSessionError(clauderrs.ErrCodeSessionNotFound, "session not found", nil, id)
}

func alreadyExists(id string) error {
	return clauderrs.NewSessionError(clauderrs.ErrCodeSessionExists, "session already exists", nil, id)
}

func sortInfos(infos []ports.SessionInfo) {
	slices.SortFunc(infos, func(a, b ports.SessionInfo) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}

		return 0
	})
}
