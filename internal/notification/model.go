package notification

import "time"

type SendRequest struct {
	StudentIDs []int64 `json:"student_ids" validate:"omitempty,dive,gt=0"`
	SendToAll  bool    `json:"send_to_all"`
	Message    string  `json:"message" validate:"required,max=1000"`
}

// Intent is what the dispatcher receives: one text message for one phone.
type Intent struct {
	ID         string    `json:"id"`
	GuardianID int64     `json:"guardian_id"`
	Phone      string    `json:"phone"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

type Recipient struct {
	GuardianID int64  `bun:"guardian_id"`
	Phone      string `bun:"phone_number"`
}

type SendResult struct {
	Status     string `json:"status"`
	Recipients int    `json:"recipients"`
}
