package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"damagereport-be/models"
	"damagereport-be/repositories"
)

// ReportAnalysisStore is the slice of the report repository the analysis job needs.
type ReportAnalysisStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.DamageReport, error)
	SetAnalysis(ctx context.Context, id primitive.ObjectID, a models.Analysis) error
}

// Analyzer classifies a stored photo.
type Analyzer interface {
	Analyze(ctx context.Context, photoPath string) (models.Analysis, error)
}

// AnalyzeReportJob classifies a submitted report's photo and stores the result.
type AnalyzeReportJob struct {
	reports  ReportAnalysisStore
	analyzer Analyzer
}

func NewAnalyzeReportJob(reports ReportAnalysisStore, analyzer Analyzer) *AnalyzeReportJob {
	return &AnalyzeReportJob{reports: reports, analyzer: analyzer}
}

// Handle loads the report fresh on every attempt. A report that is gone or has no photo
// is a successful no-op.
func (j *AnalyzeReportJob) Handle(ctx context.Context, reportID primitive.ObjectID) error {
	report, err := j.reports.FindByID(ctx, reportID)
	if errors.Is(err, repositories.ErrNotFound) {
		log.Printf("Report %s no longer exists; skipping analysis", reportID.Hex())
		return nil
	}
	if err != nil {
		return fmt.Errorf("load report %s: %w", reportID.Hex(), err)
	}
	if !report.HasPhoto() {
		return nil
	}

	analysis, err := j.analyzer.Analyze(ctx, *report.PhotoPath)
	if err != nil {
		return err
	}
	if err := j.reports.SetAnalysis(ctx, reportID, analysis); err != nil {
		return fmt.Errorf("save analysis for report %s: %w", reportID.Hex(), err)
	}
	return nil
}
