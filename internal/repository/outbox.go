package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jmehdipour/outbox-relay/internal/backoff"
	"github.com/jmehdipour/outbox-relay/internal/model"
	"github.com/jmoiron/sqlx"
)

// ErrInvalidLimit is returned by ClaimPending for a non-positive limit.
var ErrInvalidLimit = errors.New("claim limit must be positive")

const (
	// MaxLastErrorLen is the number of runes kept in last_error.
	MaxLastErrorLen = 2000

	DefaultDeadLetterLimit = 50
	MaxDeadLetterLimit     = 1000
)

// OutboxRepository defines persistence methods for the outbox table.
type OutboxRepository interface {
	// Insert writes a single pending outbox row. If tx is nil, it will
	// open/commit an internal transaction; otherwise it uses the given tx.
	Insert(ctx context.Context, tx *sqlx.Tx, eventID, topic string, payload []byte) error

	// ClaimPending locks up to limit eligible rows, skipping rows locked by
	// other claimers, and increments their delivery_attempts before
	// committing. The returned records carry the pre-increment counts.
	ClaimPending(ctx context.Context, limit int) ([]model.ClaimedRecord, error)

	MarkDelivered(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, attempt int, errMsg string) (model.FailureOutcome, error)

	ListDeadLetters(ctx context.Context, limit, offset int) ([]model.DeadLetter, error)
	// GetDeadLetter returns nil, nil when no dead-lettered row has eventID.
	GetDeadLetter(ctx context.Context, eventID string) (*model.DeadLetterDetail, error)

	CountPending(ctx context.Context) (int, error)
}

// OutboxRepositoryImpl is a sqlx-backed implementation. Queries are written
// with ? placeholders and rebound for the connection's driver.
type OutboxRepositoryImpl struct {
	db     *sqlx.DB
	policy backoff.Policy
	lease  time.Duration
	now    func() time.Time
}

var _ OutboxRepository = (*OutboxRepositoryImpl)(nil)

type OutboxOption func(*OutboxRepositoryImpl)

// WithBackoff sets the retry schedule and attempt cap used by MarkFailed.
func WithBackoff(p backoff.Policy) OutboxOption {
	return func(r *OutboxRepositoryImpl) { r.policy = p }
}

// WithClaimLease makes ClaimPending push next_attempt_at out by d, so a claim
// that starts after another has committed skips its in-flight rows. Zero
// leaves next_attempt_at untouched.
func WithClaimLease(d time.Duration) OutboxOption {
	return func(r *OutboxRepositoryImpl) { r.lease = d }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) OutboxOption {
	return func(r *OutboxRepositoryImpl) {
		if now != nil {
			r.now = now
		}
	}
}

// NewOutboxRepository constructs an OutboxRepositoryImpl.
func NewOutboxRepository(db *sqlx.DB, opts ...OutboxOption) *OutboxRepositoryImpl {
	r := &OutboxRepositoryImpl{
		db:     db,
		policy: backoff.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Insert adds a pending row. next_attempt_at starts at the insert time so the
// row is eligible right away.
func (r *OutboxRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, eventID, topic string, payload []byte) error {
	const q = `
		INSERT INTO outbox (event_id, topic, payload_json, delivery_attempts, created_at, next_attempt_at)
		VALUES (?, ?, ?, 0, ?, ?)
	`
	now := r.now()

	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, r.db.Rebind(q), eventID, topic, string(payload), now, now)
		return err
	})
}

func (r *OutboxRepositoryImpl) ClaimPending(ctx context.Context, limit int) ([]model.ClaimedRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	const selectQ = `
		SELECT id, event_id, topic, payload_json, delivery_attempts, created_at
		FROM outbox
		WHERE delivered_at IS NULL
		  AND dead_lettered_at IS NULL
		  AND next_attempt_at <= ?
		ORDER BY created_at, id
		LIMIT ?
		FOR UPDATE SKIP LOCKED
	`
	const incrementQ = `UPDATE outbox SET delivery_attempts = delivery_attempts + 1 WHERE id IN (?)`
	const incrementLeaseQ = `UPDATE outbox SET delivery_attempts = delivery_attempts + 1, next_attempt_at = ? WHERE id IN (?)`

	now := r.now()
	claimed := []model.ClaimedRecord{}
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &claimed, r.db.Rebind(selectQ), now, limit); err != nil {
			return fmt.Errorf("select eligible: %w", err)
		}
		if len(claimed) == 0 {
			return nil
		}

		ids := make([]int64, len(claimed))
		for i, c := range claimed {
			ids[i] = c.ID
		}
		var (
			query string
			args  []any
			err   error
		)
		if r.lease > 0 {
			query, args, err = sqlx.In(incrementLeaseQ, now.Add(r.lease), ids)
		} else {
			query, args, err = sqlx.In(incrementQ, ids)
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
			return fmt.Errorf("increment attempts: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim pending: %w", err)
	}

	return claimed, nil
}

// MarkDelivered is a no-op for rows already in a terminal state.
func (r *OutboxRepositoryImpl) MarkDelivered(ctx context.Context, id int64) error {
	const q = `
		UPDATE outbox
		SET delivered_at = ?, last_error = NULL
		WHERE id = ? AND delivered_at IS NULL AND dead_lettered_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(q), r.now(), id); err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}

	return nil
}

// MarkFailed dead-letters the row once attempt reaches the policy's cap and
// otherwise pushes next_attempt_at out by the policy delay for attempt.
func (r *OutboxRepositoryImpl) MarkFailed(ctx context.Context, id int64, attempt int, errMsg string) (model.FailureOutcome, error) {
	const deadLetterQ = `
		UPDATE outbox
		SET dead_lettered_at = ?, last_error = ?
		WHERE id = ? AND delivered_at IS NULL AND dead_lettered_at IS NULL
	`
	const retryQ = `
		UPDATE outbox
		SET next_attempt_at = ?, last_error = ?
		WHERE id = ? AND delivered_at IS NULL AND dead_lettered_at IS NULL
	`
	now := r.now()
	lastErr := TruncateError(errMsg, MaxLastErrorLen)
	out := model.FailureOutcome{Attempt: attempt, At: now}

	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		if r.policy.Exhausted(attempt) {
			out.DeadLettered = true
			_, err := tx.ExecContext(ctx, r.db.Rebind(deadLetterQ), now, lastErr, id)
			return err
		}

		out.NextAttemptAt = now.Add(r.policy.Delay(attempt))
		_, err := tx.ExecContext(ctx, r.db.Rebind(retryQ), out.NextAttemptAt, lastErr, id)
		return err
	})
	if err != nil {
		return model.FailureOutcome{}, fmt.Errorf("mark failed: %w", err)
	}

	return out, nil
}

const deadLetterColumns = `
	o.id, o.event_id, o.topic, o.delivery_attempts, o.last_error, o.created_at, o.dead_lettered_at,
	e.event_type, e.source, e.entity_id, e.entity_type, e.occurred_at, e.schema_version, e.trace_id
`

func (r *OutboxRepositoryImpl) ListDeadLetters(ctx context.Context, limit, offset int) ([]model.DeadLetter, error) {
	if limit <= 0 {
		limit = DefaultDeadLetterLimit
	}
	if limit > MaxDeadLetterLimit {
		limit = MaxDeadLetterLimit
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT ` + deadLetterColumns + `
		FROM outbox o
		LEFT JOIN events e ON e.event_id = o.event_id
		WHERE o.dead_lettered_at IS NOT NULL
		ORDER BY o.dead_lettered_at DESC, o.id DESC
		LIMIT ? OFFSET ?
	`
	rows := []model.DeadLetter{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), limit, offset); err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}

	return rows, nil
}

func (r *OutboxRepositoryImpl) GetDeadLetter(ctx context.Context, eventID string) (*model.DeadLetterDetail, error) {
	q := `
		SELECT ` + deadLetterColumns + `, o.payload_json
		FROM outbox o
		LEFT JOIN events e ON e.event_id = o.event_id
		WHERE o.event_id = ? AND o.dead_lettered_at IS NOT NULL
		ORDER BY o.id DESC
		LIMIT 1
	`
	var d model.DeadLetterDetail
	if err := r.db.GetContext(ctx, &d, r.db.Rebind(q), eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dead letter: %w", err)
	}

	return &d, nil
}

func (r *OutboxRepositoryImpl) CountPending(ctx context.Context) (int, error) {
	const q = `SELECT COUNT(*) FROM outbox WHERE delivered_at IS NULL AND dead_lettered_at IS NULL`

	var n int
	if err := r.db.GetContext(ctx, &n, q); err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}

	return n, nil
}

// TruncateError keeps at most max runes of msg.
func TruncateError(msg string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(msg) <= max {
		return msg
	}

	return string([]rune(msg)[:max])
}
