package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"fondo/internal/core"
)

// Audit event operations.
const (
	OpAppend     = "append"
	OpEdit       = "edit"
	OpRemove     = "remove"
	OpAllocation = "allocation"
)

// AuditEvent is published after every committed ledger write. It carries
// a snapshot of the entry so the audit mirror can append a row without
// reading the database back.
type AuditEvent struct {
	EventID      string    `json:"event_id"`
	Op           string    `json:"op"`
	Owner        string    `json:"owner"`
	EntryID      int64     `json:"entry_id"`
	Kind         string    `json:"kind"`
	AmountCents  int64     `json:"amount_cents"`
	WalletID     *int64    `json:"wallet_id,omitempty"`
	GoalID       *int64    `json:"goal_id,omitempty"`
	Tag          string    `json:"tag,omitempty"`
	TransferKind string    `json:"transfer_kind,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewAuditEvent builds an event for one entry write.
func NewAuditEvent(op string, e core.Entry) *AuditEvent {
	return &AuditEvent{
		EventID:      uuid.NewString(),
		Op:           op,
		Owner:        e.Owner,
		EntryID:      e.ID,
		Kind:         string(e.Kind),
		AmountCents:  e.Amount.Cents,
		WalletID:     e.WalletID,
		GoalID:       e.GoalID,
		Tag:          e.Tag,
		TransferKind: string(e.TransferKind),
		OccurredAt:   e.OccurredAt,
		Timestamp:    time.Now().UTC(),
	}
}

func (m *AuditEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AuditEventFromJSON(data []byte) (*AuditEvent, error) {
	var msg AuditEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
