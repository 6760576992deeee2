// Package dbschema holds the persistence entities and their converters to
// and from domain types.
package dbschema

import (
	"time"

	"velvet-server/internal/domain/user"
	"velvet-server/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(&User{})
}

// BaseModel carries the columns shared by every entity.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// User is the persistence shape of a registered account.
type User struct {
	BaseModel
	PublicID     string `gorm:"column:public_id;size:64;uniqueIndex;not null"`
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	Username     string `gorm:"size:100;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	IsActive     bool   `gorm:"not null;default:true"`
	IsDeleted    bool   `gorm:"not null;default:false;index"`
}

func (User) TableName() string { return "velvet.users" }

// EtoD converts the entity to its domain type.
func (u *User) EtoD() *user.User {
	return &user.User{
		ID:           u.ID,
		PublicID:     u.PublicID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		IsDeleted:    u.IsDeleted,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// NewSchemaUser converts a domain user to its entity.
func NewSchemaUser(d *user.User) *User {
	return &User{
		BaseModel: BaseModel{
			ID:        d.ID,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		PublicID:     d.PublicID,
		Email:        d.Email,
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		IsActive:     d.IsActive,
		IsDeleted:    d.IsDeleted,
	}
}
