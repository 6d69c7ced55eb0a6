package relay

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jmehdipour/outbox-relay/internal/backoff"
	"github.com/jmehdipour/outbox-relay/internal/model"
	"github.com/jmehdipour/outbox-relay/internal/publisher"
	"github.com/jmehdipour/outbox-relay/internal/repository"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memStore mirrors the SQL store's claim and outcome semantics in memory.
type memStore struct {
	mu     sync.Mutex
	clock  *fakeClock
	policy backoff.Policy
	rows   []*model.OutboxRecord
	nextID int64

	claimErr     error
	markErr      error
	deliveredErr error
}

func newMemStore(clock *fakeClock) *memStore {
	return &memStore{clock: clock, policy: backoff.Default()}
}

func (s *memStore) add(eventID, topic, payload string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := s.clock.Now()
	s.rows = append(s.rows, &model.OutboxRecord{
		ID:            s.nextID,
		EventID:       eventID,
		Topic:         topic,
		Payload:       []byte(payload),
		CreatedAt:     now,
		NextAttemptAt: now,
	})
	return s.nextID
}

func (s *memStore) get(id int64) model.OutboxRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id {
			return *r
		}
	}
	return model.OutboxRecord{}
}

func (s *memStore) ClaimPending(_ context.Context, limit int) ([]model.ClaimedRecord, error) {
	if limit <= 0 {
		return nil, repository.ErrInvalidLimit
	}
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	eligible := make([]*model.OutboxRecord, 0)
	for _, r := range s.rows {
		if r.DeliveredAt == nil && r.DeadLetteredAt == nil && !r.NextAttemptAt.After(now) {
			eligible = append(eligible, r)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].CreatedAt.Equal(eligible[j].CreatedAt) {
			return eligible[i].ID < eligible[j].ID
		}
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}

	claimed := make([]model.ClaimedRecord, 0, len(eligible))
	for _, r := range eligible {
		claimed = append(claimed, model.ClaimedRecord{
			ID:           r.ID,
			EventID:      r.EventID,
			Topic:        r.Topic,
			Payload:      r.Payload,
			PrevAttempts: r.DeliveryAttempts,
			CreatedAt:    r.CreatedAt,
		})
		r.DeliveryAttempts++
	}
	return claimed, nil
}

func (s *memStore) MarkDelivered(_ context.Context, id int64) error {
	if s.deliveredErr != nil {
		return s.deliveredErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id && r.DeliveredAt == nil && r.DeadLetteredAt == nil {
			now := s.clock.Now()
			r.DeliveredAt = &now
			r.LastError = nil
		}
	}
	return nil
}

func (s *memStore) MarkFailed(_ context.Context, id int64, attempt int, errMsg string) (model.FailureOutcome, error) {
	if s.markErr != nil {
		return model.FailureOutcome{}, s.markErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	out := model.FailureOutcome{Attempt: attempt, At: now}
	msg := repository.TruncateError(errMsg, repository.MaxLastErrorLen)
	for _, r := range s.rows {
		if r.ID != id || r.DeliveredAt != nil || r.DeadLetteredAt != nil {
			continue
		}
		r.LastError = &msg
		if s.policy.Exhausted(attempt) {
			out.DeadLettered = true
			r.DeadLetteredAt = &now
		} else {
			out.NextAttemptAt = now.Add(s.policy.Delay(attempt))
			r.NextAttemptAt = out.NextAttemptAt
		}
	}
	return out, nil
}

func (s *memStore) CountPending(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rows {
		if r.DeliveredAt == nil && r.DeadLetteredAt == nil {
			n++
		}
	}
	return n, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	fn   func(ctx context.Context, msg publisher.Message) error
	sent []publisher.Message
}

func (p *fakePublisher) Publish(ctx context.Context, msg publisher.Message) error {
	p.mu.Lock()
	p.sent = append(p.sent, msg)
	fn := p.fn
	p.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, msg)
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) messages() []publisher.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publisher.Message(nil), p.sent...)
}

var errBrokerDown = errors.New("broker unavailable")

type recordingObserver struct {
	mu            sync.Mutex
	delivered     int
	failed        []model.FailureOutcome
	outcomeErrors int
	cycles        []Summary
	backlog       []int
}

func (o *recordingObserver) Delivered(context.Context, model.ClaimedRecord, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delivered++
}

func (o *recordingObserver) Failed(_ context.Context, _ model.ClaimedRecord, _ error, out model.FailureOutcome, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, out)
}

func (o *recordingObserver) OutcomeWriteFailed(context.Context, model.ClaimedRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomeErrors++
}

func (o *recordingObserver) CycleCompleted(_ context.Context, s Summary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cycles = append(o.cycles, s)
}

func (o *recordingObserver) Backlog(_ context.Context, pending int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.backlog = append(o.backlog, pending)
}
