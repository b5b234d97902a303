package enrollment_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	commonmetrics "school-service/common/metrics"
	"school-service/internal/aggregate"
	"school-service/internal/apperror"
	"school-service/internal/enrollment"
	"school-service/internal/fee"
	"school-service/internal/guardian"
	"school-service/internal/metrics"
	"school-service/internal/ranking"
	"school-service/internal/reporting"
	"school-service/internal/student"
	"school-service/testing/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryPhotoStore struct {
	mu      sync.Mutex
	saved   map[string][]byte
	failOn  int
	calls   int
	removed []string
}

func newMemoryPhotoStore() *memoryPhotoStore {
	return &memoryPhotoStore{saved: map[string][]byte{}}
}

func (s *memoryPhotoStore) Save(_ context.Context, data []byte, ext string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.failOn > 0 && s.calls == s.failOn {
		return "", errors.New("disk full")
	}
	ref := fmt.Sprintf("photos/%d%s", s.calls, ext)
	s.saved[ref] = data
	return ref, nil
}

func (s *memoryPhotoStore) Remove(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.saved, ref)
	s.removed = append(s.removed, ref)
	return nil
}

func countRows(t *testing.T, pg *testdb.PostgresContainer, model any) int {
	t.Helper()
	n, err := pg.DB.NewSelect().Model(model).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestEnroll(t *testing.T) {
	pg := testdb.SetupSharedPostgres(t)
	pg.Migrate(t)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	dbMetrics := commonmetrics.NewMock()
	maintainer := aggregate.NewMaintainer(pg.DB, logger, metrics.NewMock())
	ctx := context.Background()

	newCoordinator := func(photos enrollment.PhotoStore) *enrollment.Coordinator {
		return enrollment.NewCoordinator(
			pg.DB,
			guardian.NewRepository(pg.DB, dbMetrics),
			student.NewRepository(pg.DB, dbMetrics),
			fee.NewRepository(pg.DB, dbMetrics),
			photos,
			maintainer,
			metrics.NewMock(),
			logger,
			enrollment.WithMaxPhotoBytes(1024),
		)
	}

	photo := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	guardianDescriptor := enrollment.GuardianDescriptor{
		Name:        "Ahmed Khan",
		CNIC:        "42101-1111111-1",
		PhoneNumber: "03001234567",
	}

	t.Run("TwoStudentsOneGuardian", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		coordinator := newCoordinator(newMemoryPhotoStore())

		result, err := coordinator.Enroll(ctx, enrollment.Request{
			Guardian: guardianDescriptor,
			Students: []enrollment.StudentDescriptor{
				{Name: "Ali", Grade: "10", Age: enrollment.OptionalInt{Value: 15, Valid: true}},
				{Name: "Sara", Grade: "8"},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "success", result.Status)
		assert.Equal(t, 2, result.TotalEnrolled)
		require.Len(t, result.Students, 2)
		assert.Equal(t, "Ali", result.Students[0].Name)
		assert.Equal(t, "Sara", result.Students[1].Name)

		ali := testdb.ReloadStudent(t, pg.DB, result.Students[0].ID)
		require.NotNil(t, ali.GuardianID)
		assert.Equal(t, result.GuardianID, *ali.GuardianID)
		assert.True(t, ali.IsActive)
		assert.NotNil(t, ali.DateJoined)
		assert.Equal(t, "no_payment", ali.LatestFeeStatus)

		engine := reporting.NewEngine(pg.DB, ranking.NewRepository(pg.DB, dbMetrics))
		summary, err := engine.AcademicSummary(ctx, ali.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.TotalStudentsInClass)
		assert.Equal(t, 0, summary.TotalTestsConducted)
		assert.Zero(t, summary.AveragePercentage)
		assert.Equal(t, 1, summary.ClassPosition)
	})

	t.Run("ExistingCNICReusesGuardian", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		coordinator := newCoordinator(newMemoryPhotoStore())

		first, err := coordinator.Enroll(ctx, enrollment.Request{
			Guardian: guardianDescriptor,
			Students: []enrollment.StudentDescriptor{{Name: "Ali", Grade: "10"}},
		})
		require.NoError(t, err)

		second, err := coordinator.Enroll(ctx, enrollment.Request{
			Guardian: guardianDescriptor,
			Students: []enrollment.StudentDescriptor{{Name: "Bilal", Grade: "3"}},
		})
		require.NoError(t, err)

		assert.Equal(t, first.GuardianID, second.GuardianID)
		assert.Equal(t, 1, countRows(t, pg, (*guardian.Guardian)(nil)))
		assert.Equal(t, 2, countRows(t, pg, (*student.Student)(nil)))
	})

	t.Run("ConcurrentSameCNICCreatesOneGuardian", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		coordinator := newCoordinator(newMemoryPhotoStore())

		const workers = 5
		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = coordinator.Enroll(ctx, enrollment.Request{
					Guardian: guardianDescriptor,
					Students: []enrollment.StudentDescriptor{{Name: fmt.Sprintf("Child %d", i), Grade: "5"}},
				})
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, 1, countRows(t, pg, (*guardian.Guardian)(nil)))
		assert.Equal(t, workers, countRows(t, pg, (*student.Student)(nil)))
	})

	t.Run("MalformedPhotoWritesNothing", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		photos := newMemoryPhotoStore()
		coordinator := newCoordinator(photos)

		_, err := coordinator.Enroll(ctx, enrollment.Request{
			Guardian: guardianDescriptor,
			Students: []enrollment.StudentDescriptor{
				{Name: "Ali", Grade: "10", Photo: photo},
				{Name: "Sara", Grade: "8", Photo: "data:image/png;base64,@@@@"},
			},
		})
		assert.ErrorIs(t, err, apperror.ErrValidation)

		assert.Zero(t, photos.calls)
		assert.Zero(t, countRows(t, pg, (*guardian.Guardian)(nil)))
		assert.Zero(t, countRows(t, pg, (*student.Student)(nil)))
	})

	t.Run("PhotoStoreFailureCleansUp", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		photos := newMemoryPhotoStore()
		photos.failOn = 2
		coordinator := newCoordinator(photos)

		_, err := coordinator.Enroll(ctx, enrollment.Request{
			Guardian: guardianDescriptor,
			Students: []enrollment.StudentDescriptor{
				{Name: "Ali", Grade: "10", Photo: photo},
				{Name: "Sara", Grade: "8", Photo: photo},
			},
		})
		assert.ErrorIs(t, err, apperror.ErrInternal)

		assert.Empty(t, photos.saved)
		assert.Equal(t, []string{"photos/1.png"}, photos.removed)
		assert.Zero(t, countRows(t, pg, (*student.Student)(nil)))
	})

	t.Run("PhotoReferenceStoredOnStudent", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		coordinator := newCoordinator(newMemoryPhotoStore())

		result, err := coordinator.Enroll(ctx, enrollment.Request{
			Guardian: guardianDescriptor,
			Students: []enrollment.StudentDescriptor{
				{Name: "Ali", Grade: "10", Photo: photo},
				{Name: "Sara", Grade: "8", Photo: "https://cdn.example.com/sara.jpg"},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "photos/1.png", testdb.ReloadStudent(t, pg.DB, result.Students[0].ID).Photo)
		assert.Equal(t, "https://cdn.example.com/sara.jpg", testdb.ReloadStudent(t, pg.DB, result.Students[1].ID).Photo)
	})

	t.Run("InitialFeeSetsLatestStatus", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		coordinator := newCoordinator(newMemoryPhotoStore())

		result, err := coordinator.Enroll(ctx, enrollment.Request{
			Guardian: guardianDescriptor,
			Students: []enrollment.StudentDescriptor{
				{
					Name:  "Ali",
					Grade: "10",
					InitialFee: &enrollment.FeeDescriptor{
						Amount:       enrollment.OptionalFloat{Value: 3000, Valid: true},
						MonthPaidFor: "2025-01",
						Status:       fee.StatusPaid,
					},
				},
				{
					Name:       "Sara",
					Grade:      "8",
					InitialFee: &enrollment.FeeDescriptor{MonthPaidFor: "2025-01"},
				},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, fee.StatusPaid, testdb.ReloadStudent(t, pg.DB, result.Students[0].ID).LatestFeeStatus)
		assert.Equal(t, "no_payment", testdb.ReloadStudent(t, pg.DB, result.Students[1].ID).LatestFeeStatus)
		assert.Equal(t, 1, countRows(t, pg, (*fee.FeePayment)(nil)))
	})

	t.Run("Rejected", func(t *testing.T) {
		cases := map[string]enrollment.Request{
			"no students": {Guardian: guardianDescriptor},
			"no cnic": {
				Guardian: enrollment.GuardianDescriptor{PhoneNumber: "03001234567"},
				Students: []enrollment.StudentDescriptor{{Name: "Ali"}},
			},
			"age out of range": {
				Guardian: guardianDescriptor,
				Students: []enrollment.StudentDescriptor{{Name: "Ali", Age: enrollment.OptionalInt{Value: 41, Valid: true}}},
			},
			"unknown grade": {
				Guardian: guardianDescriptor,
				Students: []enrollment.StudentDescriptor{{Name: "Ali", Grade: "13"}},
			},
			"fee without month": {
				Guardian: guardianDescriptor,
				Students: []enrollment.StudentDescriptor{{
					Name:       "Ali",
					InitialFee: &enrollment.FeeDescriptor{Amount: enrollment.OptionalFloat{Value: 100, Valid: true}},
				}},
			},
		}

		for name, req := range cases {
			t.Run(name, func(t *testing.T) {
				testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
				coordinator := newCoordinator(newMemoryPhotoStore())

				_, err := coordinator.Enroll(ctx, req)
				assert.ErrorIs(t, err, apperror.ErrValidation)
				assert.Zero(t, countRows(t, pg, (*guardian.Guardian)(nil)))
			})
		}
	})
}
