// Package services holds the damage report lifecycle. Every operation takes the acting
// user explicitly and re-evaluates the report policy against freshly loaded state.
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"damagereport-be/models"
	"damagereport-be/policies"
	"damagereport-be/repositories"
	"damagereport-be/storage"
)

// PhotoDir is the storage directory damage photos are written under, one subdirectory per driver.
const PhotoDir = "damage-reports"

// ReportStore persists reports. Writes on drafts must be conditional on the report still
// being a Draft owned by the same user and return repositories.ErrNotFound otherwise.
type ReportStore interface {
	Insert(ctx context.Context, report *models.DamageReport) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.DamageReport, error)
	FindMutable(ctx context.Context, id, ownerID primitive.ObjectID) (*models.DamageReport, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.DamageReport, error)
	ListSubmitted(ctx context.Context) ([]models.DamageReport, error)
	SaveDraft(ctx context.Context, report *models.DamageReport) error
	Approve(ctx context.Context, report *models.DamageReport) error
	DeleteDraft(ctx context.Context, id, ownerID primitive.ObjectID) error
}

// Dispatcher schedules classification of a submitted report.
//
//go:generate mockgen -destination=mock_dispatcher_test.go -package=services . Dispatcher
type Dispatcher interface {
	DispatchAnalysis(ctx context.Context, reportID primitive.ObjectID) error
}

type ReportService struct {
	store      ReportStore
	disk       storage.Disk
	dispatcher Dispatcher
	validate   *validator.Validate
	now        func() time.Time
}

func NewReportService(store ReportStore, disk storage.Disk, dispatcher Dispatcher) *ReportService {
	return &ReportService{
		store:      store,
		disk:       disk,
		dispatcher: dispatcher,
		validate:   newValidator(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// CreateDraft stores a new Draft report owned by actor.
func (s *ReportService) CreateDraft(ctx context.Context, actor models.Actor, in ReportInput) (*models.DamageReport, error) {
	return s.create(ctx, actor, in, false)
}

// CreateAndSubmit stores a new report directly in Submitted state and dispatches
// classification. The report is written once, so it either exists submitted or not at all.
func (s *ReportService) CreateAndSubmit(ctx context.Context, actor models.Actor, in ReportInput) (*models.DamageReport, error) {
	return s.create(ctx, actor, in, true)
}

func (s *ReportService) create(ctx context.Context, actor models.Actor, in ReportInput, submit bool) (*models.DamageReport, error) {
	if !policies.CanCreate(actor) {
		return nil, ErrForbidden
	}
	if err := s.validateInput(&in, true); err != nil {
		return nil, err
	}

	photoPath, err := s.storePhoto(ctx, actor.ID, in.Photo)
	if err != nil {
		return nil, err
	}

	now := s.now()
	report := &models.DamageReport{
		ID:          primitive.NewObjectID(),
		UserID:      actor.ID,
		PackageID:   in.PackageID,
		Location:    in.Location,
		Description: in.Description,
		PhotoPath:   photoPath,
		Status:      models.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if submit {
		if err := report.MarkSubmitted(now); err != nil {
			return nil, err
		}
	}

	if err := s.store.Insert(ctx, report); err != nil {
		s.removePhoto(ctx, photoPath)
		return nil, err
	}
	if submit {
		s.dispatch(ctx, report)
	}
	return report, nil
}

// UpdateDraft replaces the editable fields of an owned Draft.
func (s *ReportService) UpdateDraft(ctx context.Context, actor models.Actor, id primitive.ObjectID, in ReportInput) (*models.DamageReport, error) {
	return s.update(ctx, actor, id, in, false)
}

// UpdateAndSubmit saves the edit and the Submitted transition in one conditional write.
func (s *ReportService) UpdateAndSubmit(ctx context.Context, actor models.Actor, id primitive.ObjectID, in ReportInput) (*models.DamageReport, error) {
	return s.update(ctx, actor, id, in, true)
}

func (s *ReportService) update(ctx context.Context, actor models.Actor, id primitive.ObjectID, in ReportInput, submit bool) (*models.DamageReport, error) {
	report, err := s.FindMutable(ctx, id, actor.ID)
	if err != nil {
		return nil, err
	}
	if !policies.CanModify(actor, report) {
		return nil, ErrNotFound
	}
	if err := s.validateInput(&in, false); err != nil {
		return nil, err
	}

	// The new photo is written before anything is removed so a failure never loses the only copy.
	newPhoto, err := s.storePhoto(ctx, report.UserID, in.Photo)
	if err != nil {
		return nil, err
	}
	oldPhoto := report.PhotoPath

	now := s.now()
	report.PackageID = in.PackageID
	report.Location = in.Location
	report.Description = in.Description
	report.UpdatedAt = now
	if newPhoto != nil {
		report.PhotoPath = newPhoto
	}
	if submit {
		if err := report.MarkSubmitted(now); err != nil {
			s.removePhoto(ctx, newPhoto)
			return nil, ErrNotFound
		}
	}

	if err := s.store.SaveDraft(ctx, report); err != nil {
		s.removePhoto(ctx, newPhoto)
		return nil, storeError(err)
	}

	if newPhoto != nil {
		s.removePhoto(ctx, oldPhoto)
	}
	if submit {
		s.dispatch(ctx, report)
	}
	return report, nil
}

// Submit moves an owned Draft to Submitted and dispatches classification. Of two racing
// submits only one wins the conditional write, so classification is dispatched once.
func (s *ReportService) Submit(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.DamageReport, error) {
	report, err := s.FindMutable(ctx, id, actor.ID)
	if err != nil {
		return nil, err
	}
	if !policies.CanModify(actor, report) {
		return nil, ErrNotFound
	}
	if err := report.MarkSubmitted(s.now()); err != nil {
		return nil, ErrNotFound
	}
	if err := s.store.SaveDraft(ctx, report); err != nil {
		return nil, storeError(err)
	}
	s.dispatch(ctx, report)
	return report, nil
}

// Delete removes an owned Draft and then its photo.
func (s *ReportService) Delete(ctx context.Context, actor models.Actor, id primitive.ObjectID) error {
	report, err := s.FindMutable(ctx, id, actor.ID)
	if err != nil {
		return err
	}
	if !policies.CanModify(actor, report) {
		return ErrNotFound
	}
	if err := s.store.DeleteDraft(ctx, id, actor.ID); err != nil {
		return storeError(err)
	}
	s.removePhoto(ctx, report.PhotoPath)
	return nil
}

// FindMutable returns the report only if it is a Draft owned by ownerID. Any other case,
// including a report that does not exist, is ErrNotFound.
func (s *ReportService) FindMutable(ctx context.Context, id, ownerID primitive.ObjectID) (*models.DamageReport, error) {
	report, err := s.store.FindMutable(ctx, id, ownerID)
	if err != nil {
		return nil, storeError(err)
	}
	return report, nil
}

// Get returns a report the actor may view.
func (s *ReportService) Get(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.DamageReport, error) {
	report, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if !policies.CanView(actor, report) {
		return nil, ErrNotFound
	}
	return report, nil
}

// ListForDriver returns the actor's own reports, newest first.
func (s *ReportService) ListForDriver(ctx context.Context, actor models.Actor) ([]models.DamageReport, error) {
	return s.store.ListByOwner(ctx, actor.ID)
}

// ListSubmitted returns the supervisor review queue.
func (s *ReportService) ListSubmitted(ctx context.Context, actor models.Actor) ([]models.DamageReport, error) {
	if !actor.Role.IsSupervisor() {
		return nil, ErrForbidden
	}
	return s.store.ListSubmitted(ctx)
}

// Approve moves a Submitted report to Approved on behalf of a supervisor.
func (s *ReportService) Approve(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.DamageReport, error) {
	if !actor.Role.IsSupervisor() {
		return nil, ErrForbidden
	}
	report, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if !policies.CanApprove(actor, report) {
		return nil, ErrNotFound
	}
	if err := report.MarkApproved(actor.ID, s.now()); err != nil {
		return nil, ErrNotFound
	}
	if err := s.store.Approve(ctx, report); err != nil {
		return nil, storeError(err)
	}
	return report, nil
}

func (s *ReportService) storePhoto(ctx context.Context, ownerID primitive.ObjectID, data []byte) (*string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	p, err := s.disk.Put(ctx, path.Join(PhotoDir, ownerID.Hex()), data)
	if err != nil {
		return nil, fmt.Errorf("store photo: %w", err)
	}
	return &p, nil
}

func (s *ReportService) removePhoto(ctx context.Context, p *string) {
	if p == nil || *p == "" {
		return
	}
	if err := s.disk.Delete(ctx, *p); err != nil {
		log.Printf("Error deleting photo %s: %v", *p, err)
	}
}

// dispatch never fails the request: the report is already persisted as Submitted.
func (s *ReportService) dispatch(ctx context.Context, report *models.DamageReport) {
	if err := s.dispatcher.DispatchAnalysis(ctx, report.ID); err != nil {
		log.Printf("Error dispatching analysis for report %s: %v", report.ID.Hex(), err)
	}
}

func storeError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
