package messages

import "time"

// Message is a plain-text note between an assigned patient and doctor.
type Message struct {
	ID          string
	SenderID    string
	RecipientID string
	Body        string
	CreatedAt   time.Time
	ReadAt      *time.Time
}
