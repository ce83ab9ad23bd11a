package records

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryLabReport        Category = "LAB_REPORT"
	CategoryPrescription     Category = "PRESCRIPTION"
	CategoryImaging          Category = "IMAGING"
	CategoryDischargeSummary Category = "DISCHARGE_SUMMARY"
	CategoryOther            Category = "OTHER"
)

func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.ToUpper(strings.TrimSpace(s))); c {
	case CategoryLabReport, CategoryPrescription, CategoryImaging, CategoryDischargeSummary, CategoryOther:
		return c, true
	case "":
		return CategoryOther, true
	}
	return "", false
}

// Record is metadata about a document kept elsewhere; only FileURL points at the bytes.
type Record struct {
	ID          string
	PatientID   string
	Title       string
	Category    Category
	Description string
	FileURL     string
	RecordDate  *time.Time
	CreatedAt   time.Time
}
