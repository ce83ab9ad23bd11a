package messages

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/platform/logger"
	"health-record-portal/internal/platform/sanitize"
)

const (
	MaxBodyLen   = 2000
	DefaultLimit = 100
	MaxLimit     = 500
)

var (
	ErrNotFound          = apperr.NotFound("message not found")
	ErrRecipientNotFound = apperr.NotFound("recipient not found")
	ErrRecipientRequired = apperr.Validation("recipientId required")
	ErrEmptyBody         = apperr.Validation("body required")
	ErrBodyTooLong       = apperr.Validation("body must be at most 2000 characters")
	ErrNotAssigned       = apperr.Forbidden("messaging limited to assigned patients and doctors")
	ErrNotRecipient      = apperr.Forbidden("only the recipient can mark a message read")
)

// AssignmentChecker decides who may talk to whom.
type AssignmentChecker interface {
	Exists(ctx context.Context, patientID, doctorID string) (bool, error)
}

type Directory interface {
	Get(ctx context.Context, id string) (users.User, error)
}

type Service struct {
	repo        Repository
	assignments AssignmentChecker
	dir         Directory
	text        *sanitize.Text
	now         func() time.Time
	log         logger.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithLogger(l logger.Logger) Option     { return func(s *Service) { s.log = l } }

func NewService(repo Repository, assignments AssignmentChecker, dir Directory, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		assignments: assignments,
		dir:         dir,
		text:        sanitize.NewText(),
		now:         time.Now,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Send(ctx context.Context, senderID, recipientID, body string) (Message, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return Message{}, ErrRecipientRequired
	}
	clean := s.text.Clean(body)
	if clean == "" {
		return Message{}, ErrEmptyBody
	}
	if utf8.RuneCountInString(clean) > MaxBodyLen {
		return Message{}, ErrBodyTooLong
	}
	if err := s.requirePair(ctx, senderID, recipientID); err != nil {
		return Message{}, err
	}

	m := Message{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        clean,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return Message{}, err
	}

	s.log.Debug("message sent", map[string]any{"message_id": m.ID, "sender_id": senderID, "recipient_id": recipientID})
	return m, nil
}

// Conversation lists the thread between userID and withID.
func (s *Service) Conversation(ctx context.Context, userID, withID string, limit int) ([]Message, error) {
	withID = strings.TrimSpace(withID)
	if withID == "" {
		return nil, apperr.Validation("with required")
	}
	if err := s.requirePair(ctx, userID, withID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}
	return s.repo.Conversation(ctx, userID, withID, limit)
}

func (s *Service) MarkRead(ctx context.Context, userID, messageID string) (Message, error) {
	m, err := s.repo.Get(ctx, strings.TrimSpace(messageID))
	if err != nil {
		return Message{}, err
	}
	switch {
	case m.RecipientID == userID:
	case m.SenderID == userID:
		return Message{}, ErrNotRecipient
	default:
		return Message{}, ErrNotFound
	}
	if m.ReadAt != nil {
		return m, nil
	}
	return s.repo.MarkRead(ctx, m.ID, s.now())
}

// requirePair allows only a patient and a doctor linked by an assignment.
func (s *Service) requirePair(ctx context.Context, userID, otherID string) error {
	me, err := s.dir.Get(ctx, userID)
	if err != nil {
		return err
	}
	other, err := s.dir.Get(ctx, otherID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return ErrRecipientNotFound
		}
		return err
	}

	var patientID, doctorID string
	switch {
	case me.Role == users.RolePatient && other.Role == users.RoleDoctor:
		patientID, doctorID = me.ID, other.ID
	case me.Role == users.RoleDoctor && other.Role == users.RolePatient:
		patientID, doctorID = other.ID, me.ID
	default:
		return ErrNotAssigned
	}

	ok, err := s.assignments.Exists(ctx, patientID, doctorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAssigned
	}
	return nil
}
