package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"school-service/internal/apperror"
	"school-service/internal/guardian"
	"school-service/internal/metrics"
	"school-service/internal/student"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Producer hands one payload to the message broker (NATS or Kafka).
type Producer interface {
	SendMessage(ctx context.Context, key string, value interface{}) error
	Close() error
}

type Service struct {
	db        bun.IDB
	guardians guardian.Repository
	producer  Producer
	logger    *slog.Logger
	metrics   *metrics.Metrics
	validate  *validator.Validate
	inflight  sync.WaitGroup
}

func NewService(db bun.IDB, guardians guardian.Repository, producer Producer, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		db:        db,
		guardians: guardians,
		producer:  producer,
		logger:    logger,
		metrics:   m,
		validate:  validator.New(),
	}
}

// recipients resolves the distinct guardians of the selected students, or of
// every active student when sendToAll is set.
func (s *Service) recipients(ctx context.Context, req SendRequest) ([]Recipient, error) {
	var out []Recipient
	q := s.db.NewSelect().
		Model((*student.Student)(nil)).
		Join("JOIN guardians AS g ON g.id = s.guardian_id").
		ColumnExpr("DISTINCT g.id AS guardian_id, g.phone_number").
		Where("g.phone_number <> ''").
		OrderExpr("g.id")
	if req.SendToAll {
		q = q.Where("s.is_active")
	} else {
		q = q.Where("s.id IN (?)", bun.In(req.StudentIDs))
	}
	err := q.Scan(ctx, &out)
	return out, err
}

// Send queues one intent per guardian and returns without waiting for the
// broker. Guardians are stamped with last_message_send before dispatch.
func (s *Service) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	const op = "notification.Send"

	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.Validation(op, err.Error())
	}
	if !req.SendToAll && len(req.StudentIDs) == 0 {
		return nil, apperror.Validation(op, "either student_ids or send_to_all is required")
	}

	recipients, err := s.recipients(ctx, req)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}
	if len(recipients) == 0 {
		return nil, apperror.NotFound(op, "no guardians found for the selected students")
	}

	now := time.Now().UTC()
	ids := make([]int64, 0, len(recipients))
	intents := make([]Intent, 0, len(recipients))
	for _, r := range recipients {
		ids = append(ids, r.GuardianID)
		intents = append(intents, Intent{
			ID:         uuid.NewString(),
			GuardianID: r.GuardianID,
			Phone:      r.Phone,
			Message:    req.Message,
			CreatedAt:  now,
		})
	}

	if err := s.guardians.TouchLastMessage(ctx, ids, now); err != nil {
		return nil, apperror.Internal(op, err)
	}

	s.dispatch(context.WithoutCancel(ctx), intents)
	s.metrics.RecordMessagesDispatched(ctx, len(intents))

	s.logger.InfoContext(ctx, "messages queued", "recipients", len(intents))
	return &SendResult{Status: "queued", Recipients: len(intents)}, nil
}

func (s *Service) dispatch(ctx context.Context, intents []Intent) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		for _, in := range intents {
			if err := s.producer.SendMessage(ctx, in.Phone, in); err != nil {
				s.logger.ErrorContext(ctx, "failed to dispatch message",
					"guardian_id", in.GuardianID,
					"intent_id", in.ID,
					"error", err,
				)
			}
		}
	}()
}

// Wait blocks until queued dispatches finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
