// Package enrollment admits a guardian and one or more students as a single
// unit: either the guardian, every student and every initial fee commit
// together or nothing does.
package enrollment

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"school-service/internal/apperror"
	"school-service/internal/calendar"
	"school-service/internal/fee"
	"school-service/internal/guardian"
	"school-service/internal/metrics"
	"school-service/internal/student"

	"github.com/go-playground/validator/v10"
	"github.com/uptrace/bun"
)

const DefaultMaxPhotoBytes = 5 << 20

type Coordinator struct {
	db            *bun.DB
	guardians     guardian.Repository
	students      student.Repository
	fees          fee.Repository
	photos        PhotoStore
	syncer        fee.StatusSyncer
	metrics       *metrics.Metrics
	logger        *slog.Logger
	validate      *validator.Validate
	maxPhotoBytes int64
}

type Option func(*Coordinator)

func WithMaxPhotoBytes(n int64) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxPhotoBytes = n
		}
	}
}

func NewCoordinator(
	db *bun.DB,
	guardians guardian.Repository,
	students student.Repository,
	fees fee.Repository,
	photos PhotoStore,
	syncer fee.StatusSyncer,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		db:            db,
		guardians:     guardians,
		students:      students,
		fees:          fees,
		photos:        photos,
		syncer:        syncer,
		metrics:       m,
		logger:        logger,
		validate:      validator.New(),
		maxPhotoBytes: DefaultMaxPhotoBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// prepared is a student descriptor that passed validation, with its photo
// decoded and its fee (if any) ready to insert.
type prepared struct {
	student *student.Student
	photo   Photo
	fee     *fee.Input
}

func (c *Coordinator) prepare(req Request) ([]prepared, error) {
	const op = "enrollment.Enroll"

	if err := c.validate.Struct(req); err != nil {
		return nil, apperror.Validation(op, err.Error())
	}

	out := make([]prepared, 0, len(req.Students))
	for i, d := range req.Students {
		if d.Age.Valid && (d.Age.Value < 1 || d.Age.Value > 40) {
			return nil, apperror.Validationf(op, "students[%d]: age must be between 1 and 40", i)
		}

		s := &student.Student{
			Name:     d.Name,
			Age:      d.Age.Ptr(),
			Grade:    d.Grade,
			IsActive: true,
		}
		if d.IsActive != nil {
			s.IsActive = *d.IsActive
		}
		joined := calendar.Today()
		if d.DateJoined != "" {
			parsed, err := calendar.ParseDate(d.DateJoined)
			if err != nil {
				return nil, apperror.Validationf(op, "students[%d]: %v", i, err)
			}
			joined = parsed
		}
		s.DateJoined = &joined

		photo, err := DecodePhoto(d.Photo, c.maxPhotoBytes)
		if err != nil {
			return nil, apperror.Validationf(op, "students[%d] (%s): %v", i, d.Name, err)
		}

		p := prepared{student: s, photo: photo}
		if d.InitialFee != nil && d.InitialFee.Amount.Valid {
			if d.InitialFee.MonthPaidFor == "" {
				return nil, apperror.Validationf(op, "students[%d]: initial_fee.month_paid_for is required", i)
			}
			if d.InitialFee.Amount.Value < 0 {
				return nil, apperror.Validationf(op, "students[%d]: initial_fee.amount must not be negative", i)
			}
			if err := c.validate.Struct(d.InitialFee); err != nil {
				return nil, apperror.Validationf(op, "students[%d]: %v", i, err)
			}
			p.fee = &fee.Input{
				Amount:       d.InitialFee.Amount.Value,
				MonthPaidFor: d.InitialFee.MonthPaidFor,
				Status:       d.InitialFee.Status,
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// storePhotos writes embedded photos and points each student at its stored
// reference. It returns the references written so far, also on error.
func (c *Coordinator) storePhotos(ctx context.Context, batch []prepared) ([]string, error) {
	var stored []string
	for _, p := range batch {
		switch {
		case p.photo.URL != "":
			p.student.Photo = p.photo.URL
		case len(p.photo.Data) > 0:
			ref, err := c.photos.Save(ctx, p.photo.Data, p.photo.Ext)
			if err != nil {
				return stored, apperror.Internal("enrollment.storePhotos", err)
			}
			stored = append(stored, ref)
			p.student.Photo = ref
		}
	}
	return stored, nil
}

func (c *Coordinator) removePhotos(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := c.photos.Remove(ctx, ref); err != nil {
			c.logger.WarnContext(ctx, "failed to remove orphaned photo", "ref", ref, "error", err)
		}
	}
}

// Enroll resolves the guardian by CNIC and creates every student and initial
// fee in one transaction. Nothing is written when validation or photo
// decoding fails.
func (c *Coordinator) Enroll(ctx context.Context, req Request) (*Result, error) {
	batch, err := c.prepare(req)
	if err != nil {
		return nil, err
	}

	stored, err := c.storePhotos(ctx, batch)
	if err != nil {
		c.removePhotos(ctx, stored)
		return nil, err
	}

	g := &guardian.Guardian{
		Name:        req.Guardian.Name,
		CNIC:        req.Guardian.CNIC,
		PhoneNumber: req.Guardian.PhoneNumber,
		Address:     req.Guardian.Address,
	}

	var withFees []int64
	err = c.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		resolved, err := c.guardians.GetOrCreateByCNIC(ctx, tx, g)
		if err != nil {
			return err
		}

		for _, p := range batch {
			p.student.GuardianID = &resolved.ID
			if err := c.students.Create(ctx, tx, p.student); err != nil {
				return fmt.Errorf("create student %q: %w", p.student.Name, err)
			}

			if p.fee == nil {
				continue
			}
			p.fee.StudentID = p.student.ID
			payment, err := fee.Build(c.validate, *p.fee)
			if err != nil {
				return err
			}
			if err := c.fees.Upsert(ctx, tx, payment); err != nil {
				return fmt.Errorf("create initial fee for %q: %w", p.student.Name, err)
			}
			withFees = append(withFees, p.student.ID)
		}
		return nil
	})
	if err != nil {
		c.removePhotos(ctx, stored)
		return nil, err
	}

	c.syncer.SyncFeeStatus(ctx, withFees...)

	result := &Result{
		Status:        "success",
		GuardianID:    g.ID,
		TotalEnrolled: len(batch),
		Students:      make([]EnrolledStudent, 0, len(batch)),
	}
	for _, p := range batch {
		result.Students = append(result.Students, EnrolledStudent{ID: p.student.ID, Name: p.student.Name})
	}

	c.metrics.RecordEnrollment(ctx)
	c.metrics.RecordStudentsEnrolled(ctx, len(batch))
	c.logger.InfoContext(ctx, "enrollment committed",
		"guardian_id", g.ID,
		"cnic", g.CNIC,
		"total_enrolled", len(batch),
	)
	return result, nil
}
