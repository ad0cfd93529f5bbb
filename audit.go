package goAuthClient

import (
	"context"

	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
)

// emitAudit queues an audit event. meta is only evaluated when auditing is
// enabled.
func (c *Client) emitAudit(ctx context.Context, eventType string, success bool, userID, username string, err error, meta func() map[string]string) {
	if c.audit == nil {
		return
	}
	ev := internalaudit.Event{
		Timestamp: c.now(),
		EventType: eventType,
		ClientID:  c.id,
		Profile:   string(c.config.Profile),
		UserID:    userID,
		Username:  username,
		Success:   success,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if meta != nil {
		ev.Metadata = meta()
	}
	c.audit.Emit(ctx, ev)
}

// AuditDropped returns the number of audit events that never reached the
// sink.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}
