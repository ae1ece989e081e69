package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"damagereport-be/models"
	"damagereport-be/repositories"
)

func TestSeedSupervisorIsIdempotent(t *testing.T) {
	ctx := context.Background()
	users := repositories.NewMemoryUserRepository()
	now := time.Date(2025, 12, 11, 10, 0, 0, 0, time.UTC)

	first, err := SeedSupervisor(ctx, users, "Supervisor", "Boss@Example.com", "password", now)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSupervisor, first.Role)
	assert.True(t, first.ComparePassword("password"))

	second, err := SeedSupervisor(ctx, users, "Supervisor", "boss@example.com", "other", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.ComparePassword("password"))
}

func TestSeedSupervisorRefusesDriverEmail(t *testing.T) {
	ctx := context.Background()
	users := repositories.NewMemoryUserRepository()
	driver := &models.User{Name: "D", Email: "d@example.com", Password: "x", Role: models.RoleDriver}
	require.NoError(t, users.Insert(ctx, driver))

	_, err := SeedSupervisor(ctx, users, "Supervisor", "d@example.com", "password", time.Now())
	require.ErrorIs(t, err, ErrEmailTaken)

	got, err := users.FindByEmail(ctx, "d@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDriver, got.Role)
}
