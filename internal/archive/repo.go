package archive

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrBadEvent = errors.New("archive: malformed event")

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Save inserts r unless a record with the same EventID already exists, so
// redelivered queue messages are harmless.
func (r *Repo) Save(ctx context.Context, rec *Record) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(rec).Error
}

// ListConversation returns one conversation's archived messages in
// arrival order.
func (r *Repo) ListConversation(ctx context.Context, identity, conversationID string) ([]Record, error) {
	var recs []Record
	if err := r.db.WithContext(ctx).
		Where("identity = ? AND conversation_id = ?", identity, conversationID).
		Order("id ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// HandleDelivery decodes one queue body and archives it.
func (r *Repo) HandleDelivery(ctx context.Context, body []byte) error {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return errors.Join(ErrBadEvent, err)
	}
	if e.EventID == "" || e.Identity == "" || e.MessageID == "" {
		return ErrBadEvent
	}
	return r.Save(ctx, recordFromEvent(e))
}
