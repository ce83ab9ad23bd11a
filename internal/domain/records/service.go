package records

import (
	"context"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/platform/logger"
	"health-record-portal/internal/platform/sanitize"
)

const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 2000

	dateLayout = "2006-01-02"
)

var (
	ErrNotFound        = apperr.NotFound("record not found")
	ErrTitleRequired   = apperr.Validation("title required")
	ErrTitleTooLong    = apperr.Validation("title must be at most 200 characters")
	ErrDescriptionLong = apperr.Validation("description must be at most 2000 characters")
	ErrInvalidCategory = apperr.Validation("category must be LAB_REPORT, PRESCRIPTION, IMAGING, DISCHARGE_SUMMARY or OTHER")
	ErrInvalidFileURL  = apperr.Validation("fileUrl must be an absolute http or https url")
	ErrInvalidDate     = apperr.Validation("recordDate must be YYYY-MM-DD and not in the future")
)

// AccessChecker guards doctor reads.
type AccessChecker interface {
	RequireActive(ctx context.Context, doctorID, patientID string) error
}

type Service struct {
	repo   Repository
	access AccessChecker
	text   *sanitize.Text
	now    func() time.Time
	log    logger.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithLogger(l logger.Logger) Option     { return func(s *Service) { s.log = l } }

func NewService(repo Repository, access AccessChecker, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		access: access,
		text:   sanitize.NewText(),
		now:    time.Now,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	Title       string
	Category    string
	Description string
	FileURL     string
	RecordDate  string
}

func (s *Service) Create(ctx context.Context, patientID string, in CreateInput) (Record, error) {
	now := s.now()

	title := s.text.Clean(in.Title)
	if title == "" {
		return Record{}, ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return Record{}, ErrTitleTooLong
	}
	desc := s.text.Clean(in.Description)
	if utf8.RuneCountInString(desc) > MaxDescriptionLen {
		return Record{}, ErrDescriptionLong
	}
	cat, ok := ParseCategory(in.Category)
	if !ok {
		return Record{}, ErrInvalidCategory
	}
	fileURL, err := normalizeFileURL(in.FileURL)
	if err != nil {
		return Record{}, err
	}
	date, err := parseRecordDate(in.RecordDate, now)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:          uuid.NewString(),
		PatientID:   patientID,
		Title:       title,
		Category:    cat,
		Description: desc,
		FileURL:     fileURL,
		RecordDate:  date,
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return Record{}, err
	}

	s.log.Info("record stored", map[string]any{"record_id": rec.ID, "patient_id": patientID, "category": string(cat)})
	return rec, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]Record, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// ListForDoctor requires an active grant from the patient.
func (s *Service) ListForDoctor(ctx context.Context, doctorID, patientID string) ([]Record, error) {
	if err := s.access.RequireActive(ctx, doctorID, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) Delete(ctx context.Context, patientID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, patientID, id); err != nil {
		return err
	}
	s.log.Info("record deleted", map[string]any{"record_id": id, "patient_id": patientID})
	return nil
}

func normalizeFileURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", ErrInvalidFileURL
	}
	return u.String(), nil
}

func parseRecordDate(raw string, now time.Time) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, ErrInvalidDate
	}
	// Compare by calendar day so "today" is always accepted.
	if d.After(now.UTC().Truncate(24 * time.Hour)) {
		return nil, ErrInvalidDate
	}
	return &d, nil
}
