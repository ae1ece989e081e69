package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"damagereport-be/models"
)

func TestMemoryUserRepositoryEmails(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUserRepository()

	u := &models.User{Name: "Dana", Email: "  Dana@Example.com ", Role: models.RoleDriver}
	require.NoError(t, users.Insert(ctx, u))
	assert.False(t, u.ID.IsZero())
	assert.Equal(t, "dana@example.com", u.Email)

	found, err := users.FindByEmail(ctx, "DANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	err = users.Insert(ctx, &models.User{Email: "dana@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = users.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
