package enrollment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// OptionalInt decodes a JSON number, a numeric string, "" or null. Blank
// values and null leave it invalid.
type OptionalInt struct {
	Value int
	Valid bool
}

func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	raw, blank, err := scalar(data)
	if err != nil || blank {
		*o = OptionalInt{}
		return err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("expected an integer, got %s", data)
	}
	*o = OptionalInt{Value: v, Valid: true}
	return nil
}

func (o OptionalInt) Ptr() *int {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

type OptionalFloat struct {
	Value float64
	Valid bool
}

func (o *OptionalFloat) UnmarshalJSON(data []byte) error {
	raw, blank, err := scalar(data)
	if err != nil || blank {
		*o = OptionalFloat{}
		return err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("expected a number, got %s", data)
	}
	*o = OptionalFloat{Value: v, Valid: true}
	return nil
}

// scalar unwraps a JSON number or string and reports whether it is blank.
func scalar(data []byte) (string, bool, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", true, nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false, err
		}
		s = strings.TrimSpace(s)
		return s, s == "", nil
	}
	return string(data), false, nil
}

type GuardianDescriptor struct {
	Name        string `json:"name" validate:"max=100"`
	CNIC        string `json:"cnic" validate:"required,max=15"`
	PhoneNumber string `json:"phone_number" validate:"required,max=15"`
	Address     string `json:"address"`
}

type FeeDescriptor struct {
	Amount       OptionalFloat `json:"amount"`
	MonthPaidFor string        `json:"month_paid_for"`
	Status       string        `json:"status" validate:"omitempty,oneof=pending paid late"`
}

type StudentDescriptor struct {
	Name       string         `json:"name" validate:"required,max=100"`
	Age        OptionalInt    `json:"age"`
	Grade      string         `json:"grade" validate:"omitempty,oneof=Nursery Prep 1 2 3 4 5 6 7 8 9 10 11 12"`
	DateJoined string         `json:"date_joined" validate:"omitempty,datetime=2006-01-02"`
	IsActive   *bool          `json:"is_active"`
	Photo      string         `json:"photo"`
	InitialFee *FeeDescriptor `json:"initial_fee"`
}

type Request struct {
	Guardian GuardianDescriptor  `json:"guardian" validate:"required"`
	Students []StudentDescriptor `json:"students" validate:"required,min=1,dive"`
}

type EnrolledStudent struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Result struct {
	Status        string            `json:"status"`
	GuardianID    int64             `json:"guardian_id"`
	TotalEnrolled int               `json:"total_enrolled"`
	Students      []EnrolledStudent `json:"students"`
}
