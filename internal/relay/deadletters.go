package relay

import (
	"context"

	"github.com/jmehdipour/outbox-relay/internal/model"
)

// DeadLetters is the read-only query surface over dead-lettered records.
type DeadLetters struct {
	reader DeadLetterReader
}

func NewDeadLetters(r DeadLetterReader) *DeadLetters {
	return &DeadLetters{reader: r}
}

func (d *DeadLetters) List(ctx context.Context, limit, offset int) ([]model.DeadLetter, error) {
	return d.reader.ListDeadLetters(ctx, limit, offset)
}

// Get reports found=false, with a nil error, when no dead-lettered record
// carries eventID.
func (d *DeadLetters) Get(ctx context.Context, eventID string) (*model.DeadLetterDetail, bool, error) {
	if eventID == "" {
		return nil, false, nil
	}
	detail, err := d.reader.GetDeadLetter(ctx, eventID)
	if err != nil {
		return nil, false, err
	}

	return detail, detail != nil, nil
}
