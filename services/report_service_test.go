package services

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"damagereport-be/models"
	"damagereport-be/repositories"
	"damagereport-be/storage"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []primitive.ObjectID
	err error
}

func (d *recordingDispatcher) DispatchAnalysis(_ context.Context, id primitive.ObjectID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, id)
	return d.err
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ids)
}

type fixture struct {
	svc        *ReportService
	store      *repositories.MemoryReportRepository
	disk       *storage.LocalDisk
	root       string
	dispatcher *recordingDispatcher
	now        time.Time
	driver     models.Actor
	other      models.Actor
	supervisor models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	disk, err := storage.NewLocalDisk(root)
	require.NoError(t, err)
	f := &fixture{
		root:       root,
		store:      repositories.NewMemoryReportRepository(),
		disk:       disk,
		dispatcher: &recordingDispatcher{},
		now:        time.Date(2025, 12, 11, 10, 0, 0, 0, time.UTC),
		driver:     models.Actor{ID: primitive.NewObjectID(), Role: models.RoleDriver},
		other:      models.Actor{ID: primitive.NewObjectID(), Role: models.RoleDriver},
		supervisor: models.Actor{ID: primitive.NewObjectID(), Role: models.RoleSupervisor},
	}
	f.svc = NewReportService(f.store, disk, f.dispatcher).WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) tick(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) exists(t *testing.T, p string) bool {
	t.Helper()
	ok, err := f.disk.Exists(context.Background(), p)
	require.NoError(t, err)
	return ok
}

func validInput() ReportInput {
	desc := "Corner crushed"
	return ReportInput{PackageID: "PKG-1001", Location: "Dock 4", Description: &desc, Photo: pngBytes}
}

func TestCreateDraft(t *testing.T) {
	f := newFixture(t)
	r, err := f.svc.CreateDraft(context.Background(), f.driver, validInput())
	require.NoError(t, err)

	assert.Equal(t, models.StatusDraft, r.Status)
	assert.Equal(t, f.driver.ID, r.UserID)
	assert.Nil(t, r.SubmittedAt)
	require.True(t, r.HasPhoto())
	assert.True(t, strings.HasPrefix(*r.PhotoPath, PhotoDir+"/"+f.driver.ID.Hex()+"/"))
	assert.Equal(t, ".png", path.Ext(*r.PhotoPath))
	assert.True(t, f.exists(t, *r.PhotoPath))
	assert.Zero(t, f.dispatcher.count())
}

func TestCreateDraftValidation(t *testing.T) {
	long := strings.Repeat("x", 1001)
	cases := []struct {
		name  string
		edit  func(*ReportInput)
		field string
	}{
		{"missing package", func(in *ReportInput) { in.PackageID = "  " }, "package_id"},
		{"missing location", func(in *ReportInput) { in.Location = "" }, "location"},
		{"long location", func(in *ReportInput) { in.Location = strings.Repeat("y", 256) }, "location"},
		{"long description", func(in *ReportInput) { in.Description = &long }, "description"},
		{"missing photo", func(in *ReportInput) { in.Photo = nil }, "photo"},
		{"not an image", func(in *ReportInput) { in.Photo = []byte("%PDF-1.4 not a photo") }, "photo"},
		{"too large", func(in *ReportInput) {
			in.Photo = append(append([]byte{}, pngBytes...), make([]byte, MaxPhotoBytes)...)
		}, "photo"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			in := validInput()
			tc.edit(&in)

			_, err := f.svc.CreateDraft(context.Background(), f.driver, in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tc.field)

			list, err := f.store.ListByOwner(context.Background(), f.driver.ID)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestCreateAcceptsJPEG(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Photo = jpegBytes
	_, err := f.svc.CreateDraft(context.Background(), f.driver, in)
	require.NoError(t, err)
}

func TestSupervisorCannotCreate(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateDraft(context.Background(), f.supervisor, validInput())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateAndSubmit(t *testing.T) {
	f := newFixture(t)
	r, err := f.svc.CreateAndSubmit(context.Background(), f.driver, validInput())
	require.NoError(t, err)

	stored, err := f.store.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, stored.Status)
	assert.Equal(t, f.now, *stored.SubmittedAt)
	assert.Equal(t, []primitive.ObjectID{r.ID}, f.dispatcher.ids)
}

func TestCreateAndSubmitSurvivesDispatchFailure(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.err = errors.New("redis down")

	r, err := f.svc.CreateAndSubmit(context.Background(), f.driver, validInput())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, r.Status)
}

func TestSubmitSetsTimestampOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.CreateDraft(ctx, f.driver, validInput())
	require.NoError(t, err)

	f.tick(time.Minute)
	submittedAt := f.now
	_, err = f.svc.Submit(ctx, f.driver, r.ID)
	require.NoError(t, err)

	f.tick(time.Minute)
	_, err = f.svc.Submit(ctx, f.driver, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := f.store.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, stored.Status)
	assert.Equal(t, submittedAt, *stored.SubmittedAt)
	assert.Equal(t, 1, f.dispatcher.count())
}

func TestConcurrentSubmitsDispatchOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.CreateDraft(ctx, f.driver, validInput())
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Submit(ctx, f.driver, r.ID); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, f.dispatcher.count())
}

func TestOtherDriverCannotTouchDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.CreateDraft(ctx, f.driver, validInput())
	require.NoError(t, err)
	before, err := f.store.FindByID(ctx, r.ID)
	require.NoError(t, err)

	edit := validInput()
	edit.PackageID = "HIJACKED"
	_, err = f.svc.UpdateDraft(ctx, f.other, r.ID, edit)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.UpdateAndSubmit(ctx, f.other, r.ID, edit)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Submit(ctx, f.other, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.other, r.ID), ErrNotFound)
	_, err = f.svc.Get(ctx, f.other, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.UpdateDraft(ctx, f.supervisor, r.ID, edit)
	assert.ErrorIs(t, err, ErrNotFound)

	after, err := f.store.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.True(t, f.exists(t, *after.PhotoPath))
	assert.Zero(t, f.dispatcher.count())
}

func TestMissingReportIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.FindMutable(ctx, primitive.NewObjectID(), f.driver.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Get(ctx, f.driver, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateWithNewPhotoReplacesOld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.CreateDraft(ctx, f.driver, validInput())
	require.NoError(t, err)
	oldPath := *r.PhotoPath

	edit := validInput()
	edit.Location = "Bay 9"
	edit.Photo = jpegBytes
	updated, err := f.svc.UpdateDraft(ctx, f.driver, r.ID, edit)
	require.NoError(t, err)

	assert.Equal(t, "Bay 9", updated.Location)
	assert.NotEqual(t, oldPath, *updated.PhotoPath)
	assert.False(t, f.exists(t, oldPath))
	assert.True(t, f.exists(t, *updated.PhotoPath))
	assert.Equal(t, models.StatusDraft, updated.Status)
}

func TestUpdateWithoutPhotoKeepsExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.CreateDraft(ctx, f.driver, validInput())
	require.NoError(t, err)

	edit := validInput()
	edit.Photo = nil
	edit.Description = nil
	updated, err := f.svc.UpdateDraft(ctx, f.driver, r.ID, edit)
	require.NoError(t, err)

	assert.Equal(t, *r.PhotoPath, *updated.PhotoPath)
	assert.Nil(t, updated.Description)
	assert.True(t, f.exists(t, *r.PhotoPath))
}

// losingStore lets FindMutable succeed and then reports a lost race on SaveDraft.
type losingStore struct {
	*repositories.MemoryReportRepository
}

func (losingStore) SaveDraft(context.Context, *models.DamageReport) error {
	return repositories.ErrNotFound
}

func TestUpdateLostRaceKeepsOldPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.CreateDraft(ctx, f.driver, validInput())
	require.NoError(t, err)
	oldPath := *r.PhotoPath

	svc := NewReportService(losingStore{f.store}, f.disk, f.dispatcher)
	edit := validInput()
	edit.Photo = jpegBytes
	_, err = svc.UpdateAndSubmit(ctx, f.driver, r.ID, edit)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.True(t, f.exists(t, oldPath))
	entries, err := os.ReadDir(filepath.Join(f.root, PhotoDir, f.driver.ID.Hex()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the photo written for the lost update must be removed")
	assert.Zero(t, f.dispatcher.count())
}

func TestUpdateAndSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.CreateDraft(ctx, f.driver, validInput())
	require.NoError(t, err)

	edit := validInput()
	edit.PackageID = "PKG-2002"
	edit.Photo = nil
	f.tick(time.Hour)
	updated, err := f.svc.UpdateAndSubmit(ctx, f.driver, r.ID, edit)
	require.NoError(t, err)

	stored, err := f.store.FindByID(ctx, updated.ID)
	require.NoError(t, err)
	assert.Equal(t, "PKG-2002", stored.PackageID)
	assert.Equal(t, models.StatusSubmitted, stored.Status)
	assert.Equal(t, f.now, *stored.SubmittedAt)
	assert.Equal(t, 1, f.dispatcher.count())

	_, err = f.svc.UpdateDraft(ctx, f.driver, r.ID, edit)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesReportAndPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.CreateDraft(ctx, f.driver, validInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.driver, r.ID))
	_, err = f.store.FindByID(ctx, r.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.False(t, f.exists(t, *r.PhotoPath))
}

func TestSubmittedReportCannotBeDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.CreateAndSubmit(ctx, f.driver, validInput())
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.driver, r.ID), ErrNotFound)
	assert.True(t, f.exists(t, *r.PhotoPath))

	got, err := f.svc.Get(ctx, f.driver, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, got.Status)
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft, err := f.svc.CreateDraft(ctx, f.driver, validInput())
	require.NoError(t, err)
	submitted, err := f.svc.CreateAndSubmit(ctx, f.driver, validInput())
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, f.driver, submitted.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Approve(ctx, f.supervisor, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	queue, err := f.svc.ListSubmitted(ctx, f.supervisor)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, submitted.ID, queue[0].ID)

	f.tick(time.Hour)
	approved, err := f.svc.Approve(ctx, f.supervisor, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.Equal(t, f.supervisor.ID, *approved.ApprovedBy)
	assert.Equal(t, f.now, *approved.ApprovedAt)

	_, err = f.svc.Approve(ctx, f.supervisor, submitted.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.ListSubmitted(ctx, f.driver)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListForDriverOnlyOwnReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.CreateDraft(ctx, f.driver, validInput())
	require.NoError(t, err)
	f.tick(time.Minute)
	second, err := f.svc.CreateAndSubmit(ctx, f.driver, validInput())
	require.NoError(t, err)
	_, err = f.svc.CreateDraft(ctx, f.other, validInput())
	require.NoError(t, err)

	list, err := f.svc.ListForDriver(ctx, f.driver)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"location": "location is required", "package_id": "package_id is required"}}
	assert.Equal(t, "validation failed: location: location is required; package_id: package_id is required", err.Error())
}
