package aggregate_test

import (
	"testing"

	"school-service/internal/aggregate"

	"github.com/stretchr/testify/assert"
)

func TestAttendanceRate(t *testing.T) {
	tests := []struct {
		name           string
		present, total int
		want           float64
	}{
		{"NoRows", 0, 0, 0},
		{"AllPresent", 5, 5, 100},
		{"NonePresent", 0, 4, 0},
		{"TwoOfThree", 2, 3, 66.67},
		{"OneOfEight", 1, 8, 12.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, aggregate.AttendanceRate(tt.present, tt.total), 0.001)
		})
	}
}
