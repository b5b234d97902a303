package notification_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	commonmetrics "school-service/common/metrics"
	"school-service/internal/apperror"
	"school-service/internal/guardian"
	"school-service/internal/metrics"
	"school-service/internal/notification"
	"school-service/testing/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProducer struct {
	mu   sync.Mutex
	sent []notification.Intent
	keys []string
	err  error
}

func (p *recordingProducer) SendMessage(_ context.Context, key string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.sent = append(p.sent, value.(notification.Intent))
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func TestSend(t *testing.T) {
	pg := testdb.SetupSharedPostgres(t)
	pg.Migrate(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guardians := guardian.NewRepository(pg.DB, commonmetrics.NewMock())
	ctx := context.Background()

	newService := func(p notification.Producer) *notification.Service {
		return notification.NewService(pg.DB, guardians, p, logger, metrics.NewMock())
	}

	t.Run("SiblingsShareOneMessage", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		g := testdb.SeedGuardian(t, pg.DB, "42101-1111111-1", "03001234567")
		ali := testdb.SeedStudent(t, pg.DB, g.ID, "Ali", "10")
		sara := testdb.SeedStudent(t, pg.DB, g.ID, "Sara", "8")

		producer := &recordingProducer{}
		svc := newService(producer)

		result, err := svc.Send(ctx, notification.SendRequest{
			StudentIDs: []int64{ali.ID, sara.ID},
			Message:    "School is closed tomorrow",
		})
		require.NoError(t, err)
		assert.Equal(t, "queued", result.Status)
		assert.Equal(t, 1, result.Recipients)

		require.NoError(t, svc.Wait(ctx))
		require.Len(t, producer.sent, 1)
		assert.Equal(t, "03001234567", producer.keys[0])
		assert.Equal(t, g.ID, producer.sent[0].GuardianID)
		assert.Equal(t, "School is closed tomorrow", producer.sent[0].Message)
		assert.NotEmpty(t, producer.sent[0].ID)

		reloaded, err := guardians.GetByID(ctx, g.ID)
		require.NoError(t, err)
		assert.NotNil(t, reloaded.LastMessageSend)
	})

	t.Run("SendToAllSkipsInactive", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		g1 := testdb.SeedGuardian(t, pg.DB, "42101-1111111-1", "03001234567")
		g2 := testdb.SeedGuardian(t, pg.DB, "42101-2222222-2", "03007654321")
		testdb.SeedStudent(t, pg.DB, g1.ID, "Ali", "10")
		inactive := testdb.SeedStudent(t, pg.DB, g2.ID, "Bilal", "4")
		_, err := pg.DB.NewUpdate().Table("students").Set("is_active = false").Where("id = ?", inactive.ID).Exec(ctx)
		require.NoError(t, err)

		producer := &recordingProducer{}
		svc := newService(producer)

		result, err := svc.Send(ctx, notification.SendRequest{SendToAll: true, Message: "Fee reminder"})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Recipients)

		require.NoError(t, svc.Wait(ctx))
		require.Len(t, producer.sent, 1)
		assert.Equal(t, g1.ID, producer.sent[0].GuardianID)
	})

	t.Run("BrokerFailureDoesNotFailCaller", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		g := testdb.SeedGuardian(t, pg.DB, "42101-1111111-1", "03001234567")
		s := testdb.SeedStudent(t, pg.DB, g.ID, "Ali", "10")

		svc := newService(&recordingProducer{err: errors.New("broker down")})

		result, err := svc.Send(ctx, notification.SendRequest{StudentIDs: []int64{s.ID}, Message: "hello"})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Recipients)

		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		assert.NoError(t, svc.Wait(waitCtx))
	})

	t.Run("Rejected", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		svc := newService(&recordingProducer{})

		_, err := svc.Send(ctx, notification.SendRequest{Message: "no target"})
		assert.ErrorIs(t, err, apperror.ErrValidation)

		_, err = svc.Send(ctx, notification.SendRequest{StudentIDs: []int64{1}})
		assert.ErrorIs(t, err, apperror.ErrValidation)

		_, err = svc.Send(ctx, notification.SendRequest{StudentIDs: []int64{424242}, Message: "nobody"})
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}
