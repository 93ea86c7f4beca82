package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conneroisu/claude-control/pkg/claude/adapters/parse"
	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/claude/ports"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

const fileExt = ".cbor"

// Record kinds in a session file.
const (
	kindHeader = "header"
	kindEntry  = "entry"
	kindMode   = "mode"
)

// record is one item of a session file's CBOR sequence. The first record
// is always a header.
type record struct {
	Kind      string    `cbor:"1,keyasint"`
	SessionID string    `cbor:"2,keyasint,omitempty"`
	ParentID  string    `cbor:"3,keyasint,omitempty"`
	Mode      string    `cbor:"4,keyasint,omitempty"`
	Seq       uint64    `cbor:"5,keyasint,omitempty"`
	ID        string    `cbor:"6,keyasint,omitempty"`
	Time      time.Time `cbor:"7,keyasint"`
	Message   []byte    `cbor:"8,keyasint,omitempty"`
}

var validID = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FileStore persists each session as an append-only CBOR sequence at
// <dir>/<id>.cbor. Truncation rewrites the file through a temp file and
// rename.
type FileStore struct {
	dir    string
	codec  ports.Codec
	enc    cbor.EncMode
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*state
}

var _ ports.SessionStore = (*FileStore)(nil)

// NewFileStore opens dir, creating it if needed, and loads every session
// file in it.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	enc, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor enc mode: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir session dir: %w", err)
	}
	fs := &FileStore{
		dir:      dir,
		codec:    parse.NewCodec(),
		enc:      enc,
		logger:   logger.Named("session"),
		now:      time.Now,
		sessions: make(map[string]*state),
	}
	if err := fs.load(); err != nil {
		return nil, err
	}

	return fs, nil
}

// Dir returns the store's directory.
func (f *FileStore) Dir() string {
	return f.dir
}

// Create implements ports.SessionStore.
func (f *FileStore) Create(ctx context.Context, sessionID, mode string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.sessions[sessionID]; ok {
		return alreadyExists(sessionID)
	}
	s := newState(sessionID, "", mode, f.now())
	if err := f.createFile(s); err != nil {
		return err
	}
	f.sessions[sessionID] = s

	return nil
}

// Append implements ports.SessionStore. The record is on disk before the
// entry becomes visible.
func (f *FileStore) Append(
	ctx context.Context,
	sessionID string,
	msg messages.Message,
) (ports.TranscriptEntry, error) {
	if err := ctx.Err(); err != nil {
		return ports.TranscriptEntry{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[sessionID]
	if !ok {
		s = newState(sessionID, "", defaultMode, f.now())
		if err := f.createFile(s); err != nil {
			return ports.TranscriptEntry{}, err
		}
		f.sessions[sessionID] = s
	}
	e, err := s.next(msg, f.now())
	if err != nil {
		return ports.TranscriptEntry{}, err
	}
	rec, err := f.entryRecord(e)
	if err != nil {
		return ports.TranscriptEntry{}, err
	}
	if err := f.appendRecords(sessionID, rec); err != nil {
		return ports.TranscriptEntry{}, err
	}
	s.commit(e)
	e.Message = msg

	return e, nil
}

// ReplayFrom implements ports.SessionStore.
func (f *FileStore) ReplayFrom(_ context.Context, sessionID, fromID string) ([]ports.TranscriptEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, notFound(sessionID)
	}

	return s.suffix(fromID)
}

// Fork implements ports.SessionStore. The fork gets its own file.
func (f *FileStore) Fork(ctx context.Context, sessionID, atID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[sessionID]
	if !ok {
		return "", notFound(sessionID)
	}
	entries, err := s.prefix(atID)
	if err != nil {
		return "", err
	}
	child := forked(s, uuid.NewString(), entries, f.now())
	if err := f.rewrite(child); err != nil {
		return "", err
	}
	f.sessions[child.info.ID] = child

	return child.info.ID, nil
}

// Truncate implements ports.SessionStore.
func (f *FileStore) Truncate(ctx context.Context, sessionID, toID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[sessionID]
	if !ok {
		return notFound(sessionID)
	}
	var kept []ports.TranscriptEntry
	if toID != "" {
		var err error
		if kept, err = s.prefix(toID); err != nil {
			return err
		}
	}
	next := &state{info: s.info, entries: kept}
	next.info.UpdatedAt = f.now()
	if err := f.rewrite(next); err != nil {
		return err
	}
	f.sessions[sessionID] = next

	return nil
}

// Resume implements ports.SessionStore.
func (f *FileStore) Resume(_ context.Context, sessionID string) (ports.ResumeState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[sessionID]
	if !ok {
		return ports.ResumeState{}, notFound(sessionID)
	}

	return s.resume()
}

// SetMode implements ports.SessionStore.
func (f *FileStore) SetMode(ctx context.Context, sessionID, mode string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[sessionID]
	if !ok {
		return notFound(sessionID)
	}
	now := f.now()
	if err := f.appendRecords(sessionID, record{Kind: kindMode, Mode: mode, Time: now}); err != nil {
		return err
	}
	s.info.Mode = mode
	s.info.UpdatedAt = now

	return nil
}

// List implements ports.SessionStore.
func (f *FileStore) List(context.Context) ([]ports.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	infos := make([]ports.SessionInfo, 0, len(f.sessions))
	for _, s := range f.sessions {
		infos = append(infos, s.summary())
	}
	sortInfos(infos)

	return infos, nil
}

// TranscriptPath returns the file holding a session's transcript, or ""
// for IDs that cannot be stored.
func (f *FileStore) TranscriptPath(sessionID string) string {
	p, err := f.path(sessionID)
	if err != nil {
		return ""
	}

	return p
}

func (f *FileStore) path(sessionID string) (string, error) {
	if !validID.MatchString(sessionID) || strings.Contains(sessionID, "..") {
		return "", clauderrs.NewSessionError(
			clauderrs.ErrCodeStoreFailed,
			fmt.Sprintf("session id %q is not a valid file name", sessionID),
			nil,
			sessionID,
		)
	}

	return filepath.Join(f.dir, sessionID+fileExt), nil
}

func headerRecord(s *state) record {
	return record{
		Kind:      kindHeader,
		SessionID: s.info.ID,
		ParentID:  s.info.ParentID,
		Mode:      s.info.Mode,
		Time:      s.info.CreatedAt,
	}
}

func (f *FileStore) entryRecord(e ports.TranscriptEntry) (record, error) {
	line, err := f.codec.Encode(e.Message)
	if err != nil {
		return record{}, fmt.Errorf("encode transcript entry: %w", err)
	}

	return record{Kind: kindEntry, Seq: e.Seq, ID: e.ID, Time: e.Timestamp, Message: line}, nil
}

func (f *FileStore) createFile(s *state) error {
	path, err := f.path(s.info.ID)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return alreadyExists(s.info.ID)
		}

		return storeFailed(s.info.ID, "create session file", err)
	}
	werr := f.enc.NewEncoder(file).Encode(headerRecord(s))
	if cerr := file.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return storeFailed(s.info.ID, "write session header", werr)
	}

	return nil
}

func (f *FileStore) appendRecords(sessionID string, recs ...record) error {
	path, err := f.path(sessionID)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return storeFailed(sessionID, "open session file", err)
	}
	enc := f.enc.NewEncoder(file)
	for _, rec := range recs {
		if err = enc.Encode(rec); err != nil {
			break
		}
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return storeFailed(sessionID, "append session record", err)
	}

	return nil
}

// rewrite replaces the session file with header and entries through a
// temp file and rename.
func (f *FileStore) rewrite(s *state) error {
	id := s.info.ID
	path, err := f.path(id)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, id+".*.tmp")
	if err != nil {
		return storeFailed(id, "create temp session file", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	enc := f.enc.NewEncoder(tmp)
	err = enc.Encode(headerRecord(s))
	for _, e := range s.entries {
		if err != nil {
			break
		}
		var rec record
		if rec, err = f.entryRecord(e); err == nil {
			err = enc.Encode(rec)
		}
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return storeFailed(id, "write temp session file", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// Windows can't rename over an existing file.
		_ = os.Remove(path)
		if retry := os.Rename(tmpPath, path); retry != nil {
			return storeFailed(id, "rename session file", retry)
		}
	}

	return nil
}

func (f *FileStore) load() error {
	matches, err := filepath.Glob(filepath.Join(f.dir, "*"+fileExt))
	if err != nil {
		return fmt.Errorf("list session files: %w", err)
	}
	for _, path := range matches {
		s, torn, err := f.loadFile(path)
		if err != nil {
			return err
		}
		if torn {
			// Appends must not land after a partial record.
			if err := f.rewrite(s); err != nil {
				return err
			}
		}
		f.sessions[s.info.ID] = s
	}

	return nil
}

// loadFile replays one session file. A truncated final record, left by a
// crash mid-append, is dropped with a warning and reported as torn.
func (f *FileStore) loadFile(path string) (*state, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("open session file: %w", err)
	}
	defer file.Close()

	dec := cbor.NewDecoder(file)
	var header record
	if err := dec.Decode(&header); err != nil {
		return nil, false, fmt.Errorf("session file %s: read header: %w", path, err)
	}
	if header.Kind != kindHeader {
		return nil, false, fmt.Errorf("session file %s: first record is %q, not a header", path, header.Kind)
	}
	s := newState(header.SessionID, header.ParentID, header.Mode, header.Time)

	for {
		var rec record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			f.logger.Warn("dropping truncated session record",
				zap.String("session_id", s.info.ID),
				zap.String("path", path),
			)

			return s, true, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("session file %s: %w", path, err)
		}

		switch rec.Kind {
		case kindEntry:
			msg, err := f.codec.Decode(rec.Message)
			if err != nil {
				return nil, false, fmt.Errorf("session file %s: entry %s: %w", path, rec.ID, err)
			}
			if rec.Seq != uint64(len(s.entries))+1 {
				return nil, false, fmt.Errorf("session file %s: sequence gap at %d", path, rec.Seq)
			}
			s.commit(ports.TranscriptEntry{Seq: rec.Seq, ID: rec.ID, Timestamp: rec.Time, Message: msg})
		case kindMode:
			s.info.Mode = rec.Mode
			s.info.UpdatedAt = rec.Time
		default:
			return nil, false, fmt.Errorf("session file %s: unknown record kind %q", path, rec.Kind)
		}
	}

	return s, false, nil
}

func storeFailed(sessionID, action string, cause error) error {
	return clauderrs.NewSessionError(clauderrs.ErrCodeStoreFailed, action, cause, sessionID)
}
