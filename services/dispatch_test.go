package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"

	"damagereport-be/models"
	"damagereport-be/repositories"
	"damagereport-be/storage"
)

func newMockedService(t *testing.T) (*ReportService, *MockDispatcher, models.Actor) {
	t.Helper()
	ctrl := gomock.NewController(t)
	dispatcher := NewMockDispatcher(ctrl)
	disk, err := storage.NewLocalDisk(t.TempDir())
	require.NoError(t, err)
	svc := NewReportService(repositories.NewMemoryReportRepository(), disk, dispatcher)
	return svc, dispatcher, models.Actor{ID: primitive.NewObjectID(), Role: models.RoleDriver}
}

func TestDraftEditsNeverDispatch(t *testing.T) {
	svc, _, driver := newMockedService(t)
	ctx := context.Background()

	r, err := svc.CreateDraft(ctx, driver, validInput())
	require.NoError(t, err)
	_, err = svc.UpdateDraft(ctx, driver, r.ID, validInput())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, driver, r.ID))
}

func TestSubmitDispatchesTheSubmittedReport(t *testing.T) {
	svc, dispatcher, driver := newMockedService(t)
	ctx := context.Background()

	r, err := svc.CreateDraft(ctx, driver, validInput())
	require.NoError(t, err)

	dispatcher.EXPECT().DispatchAnalysis(gomock.Any(), r.ID).Return(nil).Times(1)
	_, err = svc.Submit(ctx, driver, r.ID)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, driver, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDispatchFailureDoesNotFailSubmit(t *testing.T) {
	svc, dispatcher, driver := newMockedService(t)
	ctx := context.Background()

	r, err := svc.CreateDraft(ctx, driver, validInput())
	require.NoError(t, err)

	dispatcher.EXPECT().DispatchAnalysis(gomock.Any(), r.ID).Return(errors.New("queue unavailable"))
	submitted, err := svc.UpdateAndSubmit(ctx, driver, r.ID, validInput())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, submitted.Status)
}
