package testdb

import (
	"context"
	"testing"

	"school-service/internal/guardian"
	"school-service/internal/student"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// SeedGuardian inserts a guardian with the given CNIC and phone number.
func SeedGuardian(t *testing.T, db *bun.DB, cnic, phone string) *guardian.Guardian {
	t.Helper()

	g := &guardian.Guardian{Name: "Guardian " + cnic, CNIC: cnic, PhoneNumber: phone}
	_, err := db.NewInsert().Model(g).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return g
}

// SeedStudent inserts an active student. An empty grade stores NULL.
func SeedStudent(t *testing.T, db *bun.DB, guardianID int64, name, grade string) *student.Student {
	t.Helper()

	s := &student.Student{Name: name, Grade: grade, GuardianID: &guardianID, IsActive: true}
	_, err := db.NewInsert().Model(s).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return s
}

// ReloadStudent reads the student row back from the database.
func ReloadStudent(t *testing.T, db *bun.DB, id int64) *student.Student {
	t.Helper()

	s := new(student.Student)
	err := db.NewSelect().Model(s).Where("s.id = ?", id).Scan(context.Background())
	require.NoError(t, err)
	return s
}
