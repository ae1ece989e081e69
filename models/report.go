package models

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportStatus enum
type ReportStatus string

const (
	StatusDraft     ReportStatus = "draft"
	StatusSubmitted ReportStatus = "submitted"
	StatusApproved  ReportStatus = "approved"
)

// ErrInvalidTransition is returned when a status change would leave Approved or move backwards.
var ErrInvalidTransition = errors.New("invalid report status transition")

func (s ReportStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved:
		return true
	}
	return false
}

// Rank orders statuses along the lifecycle; -1 for unknown values.
func (s ReportStatus) Rank() int {
	switch s {
	case StatusDraft:
		return 0
	case StatusSubmitted:
		return 1
	case StatusApproved:
		return 2
	}
	return -1
}

// CanTransitionTo allows only Draft→Submitted and Submitted→Approved.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusSubmitted
	case StatusSubmitted:
		return next == StatusApproved
	case StatusApproved:
		return false
	}
	return false
}

// Analysis is the vision model's classification of a damage photo.
type Analysis struct {
	Severity    string `json:"severity"`
	DamageType  string `json:"damage_type"`
	ValueImpact string `json:"value_impact"`
	Liability   string `json:"liability"`
}

// DamageReport is a driver's report about a damaged package.
type DamageReport struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID  `bson:"user_id" json:"user_id"`
	PackageID     string              `bson:"package_id" json:"package_id"`
	Location      string              `bson:"location" json:"location"`
	Description   *string             `bson:"description" json:"description"`
	PhotoPath     *string             `bson:"photo_path" json:"photo_path"`
	Status        ReportStatus        `bson:"status" json:"status"`
	AISeverity    *string             `bson:"ai_severity" json:"ai_severity"`
	AIDamageType  *string             `bson:"ai_damage_type" json:"ai_damage_type"`
	AIValueImpact *string             `bson:"ai_value_impact" json:"ai_value_impact"`
	AILiability   *string             `bson:"ai_liability" json:"ai_liability"`
	SubmittedAt   *time.Time          `bson:"submitted_at" json:"submitted_at"`
	ApprovedAt    *time.Time          `bson:"approved_at" json:"approved_at"`
	ApprovedBy    *primitive.ObjectID `bson:"approved_by" json:"approved_by"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `bson:"updated_at" json:"updated_at"`
}

// IsOwnedBy reports whether the user filed this report.
func (r *DamageReport) IsOwnedBy(userID primitive.ObjectID) bool {
	return r.UserID == userID
}

func (r *DamageReport) HasPhoto() bool {
	return r.PhotoPath != nil && *r.PhotoPath != ""
}

// MarkSubmitted moves the report from Draft to Submitted and stamps submitted_at.
func (r *DamageReport) MarkSubmitted(at time.Time) error {
	if !r.Status.CanTransitionTo(StatusSubmitted) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, StatusSubmitted)
	}
	r.Status = StatusSubmitted
	r.SubmittedAt = &at
	r.UpdatedAt = at
	return nil
}

// MarkApproved moves the report from Submitted to Approved.
func (r *DamageReport) MarkApproved(approver primitive.ObjectID, at time.Time) error {
	if !r.Status.CanTransitionTo(StatusApproved) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, StatusApproved)
	}
	r.Status = StatusApproved
	r.ApprovedAt = &at
	r.ApprovedBy = &approver
	r.UpdatedAt = at
	return nil
}

// Analysis returns the stored classification, or nil while it is pending.
func (r *DamageReport) Analysis() *Analysis {
	if r.AISeverity == nil || r.AIDamageType == nil || r.AIValueImpact == nil || r.AILiability == nil {
		return nil
	}
	return &Analysis{
		Severity:    *r.AISeverity,
		DamageType:  *r.AIDamageType,
		ValueImpact: *r.AIValueImpact,
		Liability:   *r.AILiability,
	}
}

// ApplyAnalysis sets all four AI fields at once.
func (r *DamageReport) ApplyAnalysis(a Analysis) {
	severity, damageType, valueImpact, liability := a.Severity, a.DamageType, a.ValueImpact, a.Liability
	r.AISeverity = &severity
	r.AIDamageType = &damageType
	r.AIValueImpact = &valueImpact
	r.AILiability = &liability
}
