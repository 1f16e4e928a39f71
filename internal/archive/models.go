package archive

import "time"

// Event is the queue payload published for every message appended to a
// conversation.
type Event struct {
	EventID        string    `json:"event_id"`
	Identity       string    `json:"identity"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Role           string    `json:"role"`
	Text           string    `json:"text"`
	Model          string    `json:"model,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Record struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID        string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"event_id"` // ULID length
	Identity       string    `gorm:"type:varchar(128);index:idx_archive_identity_conv,priority:1;not null" json:"identity"`
	ConversationID string    `gorm:"type:varchar(36);index:idx_archive_identity_conv,priority:2;not null" json:"conversation_id"`
	MessageID      string    `gorm:"type:varchar(36);not null" json:"message_id"`
	Role           string    `gorm:"type:varchar(16);index;not null" json:"role"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	Model          string    `gorm:"type:varchar(32)" json:"model"`
	OccurredAt     time.Time `gorm:"index" json:"occurred_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Record) TableName() string { return "chat_archive" }

func recordFromEvent(e Event) *Record {
	return &Record{
		EventID:        e.EventID,
		Identity:       e.Identity,
		ConversationID: e.ConversationID,
		MessageID:      e.MessageID,
		Role:           e.Role,
		Text:           e.Text,
		Model:          e.Model,
		OccurredAt:     e.OccurredAt,
	}
}
