package repository

import (
	"context"

	"go-imaging-report/internal/report"
)

// ReportRepository defines the persistence operations for diagnostic reports.
type ReportRepository interface {
	// StoreReport persists a finished report document
	StoreReport(ctx context.Context, doc *report.Document) error

	// GetReport retrieves the most recent report for a filename
	GetReport(ctx context.Context, filename string) (*report.Document, error)

	// ListReports retrieves every stored report, newest first
	ListReports(ctx context.Context) ([]*report.Document, error)

	// Close releases the underlying connection
	Close(ctx context.Context) error
}
