package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"damagereport-be/models"
	"damagereport-be/repositories"
)

// UserStore is the user persistence supervisor provisioning needs.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
}

// ErrEmailTaken is returned when the supervisor email already belongs to a driver.
var ErrEmailTaken = errors.New("email belongs to a non-supervisor account")

// SeedSupervisor creates the supervisor account unless one already exists under email.
// Registration only ever creates drivers, so this is the one way a supervisor comes to be.
func SeedSupervisor(ctx context.Context, users UserStore, name, email, password string, now time.Time) (*models.User, error) {
	existing, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !existing.Role.IsSupervisor() {
			return nil, fmt.Errorf("seed supervisor %s: %w", email, ErrEmailTaken)
		}
		return existing, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("seed supervisor %s: %w", email, err)
	}

	user := &models.User{
		Name:      name,
		Email:     email,
		Password:  password,
		Role:      models.RoleSupervisor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.HashPassword(); err != nil {
		return nil, fmt.Errorf("hash supervisor password: %w", err)
	}
	if err := users.Insert(ctx, user); err != nil {
		return nil, fmt.Errorf("seed supervisor %s: %w", email, err)
	}
	return user, nil
}
