package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Role is the capability a user acts with.
type Role string

const (
	RoleDriver     Role = "driver"
	RoleSupervisor Role = "supervisor"
)

// IsDriver reports whether the role files damage reports.
func (r Role) IsDriver() bool {
	switch r {
	case RoleDriver:
		return true
	case RoleSupervisor:
		return false
	}
	return false
}

// IsSupervisor reports whether the role reviews and approves reports.
func (r Role) IsSupervisor() bool {
	switch r {
	case RoleDriver:
		return false
	case RoleSupervisor:
		return true
	}
	return false
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password,omitempty" json:"-"`
	Role      Role               `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Actor is the authenticated caller passed explicitly into services and policies.
type Actor struct {
	ID   primitive.ObjectID
	Role Role
}

func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}
