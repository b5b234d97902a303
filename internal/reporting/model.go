package reporting

import (
	"time"

	"school-service/internal/ranking"
)

type RecentStudent struct {
	ID         int64      `bun:"id" json:"id"`
	Name       string     `bun:"name" json:"name"`
	Grade      string     `bun:"grade" json:"grade"`
	DateJoined *time.Time `bun:"date_joined" json:"date_joined"`
	CreatedAt  time.Time  `bun:"created_at" json:"created_at"`
}

type Dashboard struct {
	TotalStudents       int             `json:"total_students"`
	TotalActiveStudents int             `json:"total_active_students"`
	RecentStudents      []RecentStudent `json:"recent_students"`
	PendingFees         float64         `json:"pending_fees"`
	PaidFees            float64         `json:"paid_fees"`
	TotalRevenue        float64         `json:"total_revenue"`
}

type MonthlyFinance struct {
	Month              int                `json:"month"`
	Year               int                `json:"year"`
	Revenue            float64            `json:"revenue"`
	TotalExpenses      float64            `json:"total_expenses"`
	Net                float64            `json:"net"`
	ExpensesByCategory map[string]float64 `json:"expenses_by_category"`
}

type AcademicSummary struct {
	StudentID            int64   `json:"student_id"`
	Name                 string  `json:"name"`
	Grade                string  `json:"grade"`
	TotalStudentsInClass int     `json:"total_students_in_class"`
	TotalObtainedMarks   float64 `json:"total_obtained"`
	TotalMarks           float64 `json:"total_marks"`
	AveragePercentage    float64 `json:"average_percentage"`
	TotalTestsConducted  int     `json:"total_tests_conducted"`
	// ClassPosition is the dense rank inside the grade; 1 is the top.
	ClassPosition int `json:"class_position"`
}

type ClassStandings struct {
	Grade     string           `json:"grade"`
	Standings []ranking.Ranked `json:"standings"`
}
