package claude

import "github.com/conneroisu/claude-control/pkg/clauderrs"

// Sentinel errors, matched with errors.Is.
var (
	ErrChannelClosed      = clauderrs.ErrChannelClosed
	ErrDuplicateRequestID = clauderrs.ErrDuplicateRequestID
	ErrControlTimeout     = clauderrs.ErrControlTimeout
	ErrSessionNotFound    = clauderrs.ErrSessionNotFound
	ErrUnknownMessageID   = clauderrs.ErrUnknownMessageID
	ErrClientClosed       = clauderrs.ErrClientClosed
	ErrInterrupted        = clauderrs.ErrInterrupted
	ErrNotConnected       = clauderrs.NewClientError(clauderrs.ErrCodeNotConnected, "client not connected", nil)
	ErrAlreadyConnected   = clauderrs.NewClientError(clauderrs.ErrCodeAlreadyConnected, "client already connected", nil)
)

// IsFatal reports whether err ended the session.
func IsFatal(err error) bool {
	return clauderrs.IsFatal(err)
}
