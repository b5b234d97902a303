package student_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	commonmetrics "school-service/common/metrics"
	"school-service/internal/metrics"
	"school-service/internal/student"
	"school-service/testing/testdb"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentHandler(t *testing.T) {
	pg := testdb.SetupSharedPostgres(t)
	pg.Migrate(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := student.NewService(student.NewRepository(pg.DB, commonmetrics.NewMock()))
	router := chi.NewRouter()
	student.NewHandler(service, logger, metrics.NewMock()).RegisterRoutes(router)

	do := func(method, path string, payload any) *httptest.ResponseRecorder {
		var body io.Reader
		if payload != nil {
			raw, err := json.Marshal(payload)
			require.NoError(t, err)
			body = bytes.NewReader(raw)
		}
		req := httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("CreateStudent", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		g := testdb.SeedGuardian(t, pg.DB, "42101-0000001-1", "03000000001")

		w := do(http.MethodPost, "/students", map[string]any{
			"name":        "Ali",
			"age":         15,
			"grade":       "10",
			"guardian_id": g.ID,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var created student.Student
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
		assert.NotZero(t, created.ID)
		assert.True(t, created.IsActive)
		assert.NotNil(t, created.DateJoined)
		assert.Equal(t, "no_payment", created.LatestFeeStatus)
		assert.Zero(t, created.TotalTestsConducted)
	})

	t.Run("CreateStudent_Invalid", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		g := testdb.SeedGuardian(t, pg.DB, "42101-0000001-1", "03000000001")

		cases := map[string]map[string]any{
			"no name":       {"guardian_id": g.ID},
			"bad grade":     {"name": "Ali", "grade": "13", "guardian_id": g.ID},
			"age too large": {"name": "Ali", "age": 41, "guardian_id": g.ID},
			"bad date":      {"name": "Ali", "guardian_id": g.ID, "date_joined": "yesterday"},
		}
		for name, payload := range cases {
			t.Run(name, func(t *testing.T) {
				w := do(http.MethodPost, "/students", payload)
				assert.Equal(t, http.StatusBadRequest, w.Code)

				var body map[string]string
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.Equal(t, "validation", body["kind"])
			})
		}
	})

	t.Run("CreateStudent_UnknownGuardian", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)

		w := do(http.MethodPost, "/students", map[string]any{"name": "Ali", "guardian_id": 424242})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GetStudent", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		g := testdb.SeedGuardian(t, pg.DB, "42101-0000001-1", "03000000001")
		s := testdb.SeedStudent(t, pg.DB, g.ID, "Sara", "8")

		w := do(http.MethodGet, fmt.Sprintf("/students/%d", s.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var found student.Student
		require.NoError(t, json.NewDecoder(w.Body).Decode(&found))
		assert.Equal(t, "Sara", found.Name)
		assert.Equal(t, "8", found.Grade)
		require.NotNil(t, found.Guardian)
		assert.Equal(t, "42101-0000001-1", found.Guardian.CNIC)
	})

	t.Run("GetStudent_NotFound", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)

		w := do(http.MethodGet, "/students/424242", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = do(http.MethodGet, "/students/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ListStudents_FiltersAndPaginates", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		g := testdb.SeedGuardian(t, pg.DB, "42101-0000001-1", "03000000001")
		for i := 0; i < 3; i++ {
			testdb.SeedStudent(t, pg.DB, g.ID, fmt.Sprintf("Tenth %d", i), "10")
		}
		testdb.SeedStudent(t, pg.DB, g.ID, "Eighth", "8")

		w := do(http.MethodGet, "/students?grade=10&page_size=2", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var page struct {
			Count    int               `json:"count"`
			PageSize int               `json:"page_size"`
			Results  []student.Student `json:"results"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
		assert.Equal(t, 3, page.Count)
		assert.Equal(t, 2, page.PageSize)
		assert.Len(t, page.Results, 2)

		w = do(http.MethodGet, "/students?search=eighth", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
		assert.Equal(t, 1, page.Count)

		w = do(http.MethodGet, "/students?is_active=maybe", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("UpdateStudent_PartialAndDerivedUntouched", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		g := testdb.SeedGuardian(t, pg.DB, "42101-0000001-1", "03000000001")
		s := testdb.SeedStudent(t, pg.DB, g.ID, "Ali", "9")
		_, err := pg.DB.NewUpdate().Table("students").
			Set("total_tests_conducted = 4").
			Where("id = ?", s.ID).
			Exec(context.Background())
		require.NoError(t, err)

		w := do(http.MethodPatch, fmt.Sprintf("/students/%d", s.ID), map[string]any{
			"grade":                 "10",
			"total_tests_conducted": 99,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		reloaded := testdb.ReloadStudent(t, pg.DB, s.ID)
		assert.Equal(t, "10", reloaded.Grade)
		assert.Equal(t, "Ali", reloaded.Name)
		assert.Equal(t, 4, reloaded.TotalTestsConducted)
	})

	t.Run("DeleteStudent", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		g := testdb.SeedGuardian(t, pg.DB, "42101-0000001-1", "03000000001")
		s := testdb.SeedStudent(t, pg.DB, g.ID, "Ali", "9")

		w := do(http.MethodDelete, fmt.Sprintf("/students/%d", s.ID), nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = do(http.MethodDelete, fmt.Sprintf("/students/%d", s.ID), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
