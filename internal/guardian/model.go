package guardian

import (
	"time"

	"github.com/uptrace/bun"
)

type Guardian struct {
	bun.BaseModel `bun:"table:guardians,alias:g"`

	ID              int64      `bun:"id,pk,autoincrement" json:"id"`
	Name            string     `bun:"name" json:"name"`
	CNIC            string     `bun:"cnic,unique,notnull" json:"cnic"`
	PhoneNumber     string     `bun:"phone_number,unique,notnull" json:"phone_number"`
	Address         string     `bun:"address" json:"address"`
	LastMessageSend *time.Time `bun:"last_message_send" json:"last_message_send"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// StudentSummary is the slice of a student row shown on a guardian's page.
type StudentSummary struct {
	ID       int64  `bun:"id" json:"id"`
	Name     string `bun:"name" json:"name"`
	Grade    string `bun:"grade" json:"grade"`
	IsActive bool   `bun:"is_active" json:"is_active"`
}

type Detail struct {
	Guardian
	Students []StudentSummary `json:"students"`
}

// Input is the writable part of a guardian. CNIC and phone are mandatory
// because both identify the guardian outside the system.
type Input struct {
	Name        string `json:"name" validate:"max=100"`
	CNIC        string `json:"cnic" validate:"required,max=15"`
	PhoneNumber string `json:"phone_number" validate:"required,max=15"`
	Address     string `json:"address"`
}

func (in Input) toModel() *Guardian {
	return &Guardian{
		Name:        in.Name,
		CNIC:        in.CNIC,
		PhoneNumber: in.PhoneNumber,
		Address:     in.Address,
	}
}

type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
