package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"damagereport-be/models"
)

// ErrNotFound is returned when no document matches, including when a conditional
// write loses to a concurrent state change.
var ErrNotFound = mongo.ErrNoDocuments

const (
	ReportsCollection = "damage_reports"
	queryTimeout      = 10 * time.Second
)

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

type ReportRepository struct {
	coll *mongo.Collection
}

func NewReportRepository(db *mongo.Database) *ReportRepository {
	return &ReportRepository{coll: db.Collection(ReportsCollection)}
}

func (r *ReportRepository) Insert(ctx context.Context, report *models.DamageReport) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, report); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *ReportRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.DamageReport, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindMutable returns the report only while it is a Draft owned by ownerID.
func (r *ReportRepository) FindMutable(ctx context.Context, id, ownerID primitive.ObjectID) (*models.DamageReport, error) {
	return r.findOne(ctx, mutableFilter(id, ownerID))
}

func (r *ReportRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.DamageReport, error) {
	return r.find(ctx, bson.M{"user_id": ownerID}, options.Find().SetSort(newestFirst))
}

// ListSubmitted returns reports awaiting approval, longest waiting first.
func (r *ReportRepository) ListSubmitted(ctx context.Context) ([]models.DamageReport, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: 1}, {Key: "_id", Value: 1}})
	return r.find(ctx, bson.M{"status": models.StatusSubmitted}, opts)
}

// SaveDraft writes the editable fields and status of a report that is still a Draft in the
// database. The write is skipped with ErrNotFound if another request changed it first.
func (r *ReportRepository) SaveDraft(ctx context.Context, report *models.DamageReport) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"package_id":   report.PackageID,
		"location":     report.Location,
		"description":  report.Description,
		"photo_path":   report.PhotoPath,
		"status":       report.Status,
		"submitted_at": report.SubmittedAt,
		"updated_at":   report.UpdatedAt,
	}}
	res, err := r.coll.UpdateOne(ctx, mutableFilter(report.ID, report.UserID), update)
	if err != nil {
		return fmt.Errorf("save draft %s: %w", report.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Approve persists a Submitted→Approved transition.
func (r *ReportRepository) Approve(ctx context.Context, report *models.DamageReport) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"_id": report.ID, "status": models.StatusSubmitted}
	update := bson.M{"$set": bson.M{
		"status":      report.Status,
		"approved_at": report.ApprovedAt,
		"approved_by": report.ApprovedBy,
		"updated_at":  report.UpdatedAt,
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("approve report %s: %w", report.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReportRepository) DeleteDraft(ctx context.Context, id, ownerID primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, mutableFilter(id, ownerID))
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAnalysis writes all four AI fields in a single $set. Status is left alone.
func (r *ReportRepository) SetAnalysis(ctx context.Context, id primitive.ObjectID, a models.Analysis) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"ai_severity":     a.Severity,
		"ai_damage_type":  a.DamageType,
		"ai_value_impact": a.ValueImpact,
		"ai_liability":    a.Liability,
		"updated_at":      time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("set analysis %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReportRepository) findOne(ctx context.Context, filter bson.M) (*models.DamageReport, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var report models.DamageReport
	err := r.coll.FindOne(ctx, filter).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find report: %w", err)
	}
	return &report, nil
}

func (r *ReportRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.DamageReport, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer cursor.Close(ctx)

	reports := []models.DamageReport{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	return reports, nil
}

func mutableFilter(id, ownerID primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "user_id": ownerID, "status": models.StatusDraft}
}
