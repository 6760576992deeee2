// Package userrepo implements user.Repository on PostgreSQL.
package userrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"velvet-server/internal/domain/user"
	"velvet-server/internal/infrastructure/database/dbschema"
	"velvet-server/internal/utils/platformerrors"
)

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ user.Repository = (*Repository)(nil)

// Create inserts the account. The unique index on email is the authoritative
// guard against duplicate registrations, the pre-check in the domain service
// can race with a concurrent insert.
func (r *Repository) Create(ctx context.Context, u *user.User) error {
	entity := dbschema.NewSchemaUser(u)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
				"email already registered", err, "")
		}
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to create user", err, "")
	}
	u.ID = entity.ID
	u.CreatedAt = entity.CreatedAt
	u.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var entity dbschema.User
	err := r.db.WithContext(ctx).
		Where("email = ? AND is_deleted = ?", email, false).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				"user not found", nil, "")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to find user", err, "")
	}
	return entity.EtoD(), nil
}

func (r *Repository) FindByPublicID(ctx context.Context, publicID string) (*user.User, error) {
	var entity dbschema.User
	err := r.db.WithContext(ctx).
		Where("public_id = ? AND is_deleted = ?", publicID, false).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				"user not found", nil, "")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to find user", err, "")
	}
	return entity.EtoD(), nil
}

func (r *Repository) Update(ctx context.Context, u *user.User) error {
	err := r.db.WithContext(ctx).
		Model(&dbschema.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"username":  u.Username,
			"is_active": u.IsActive,
		}).Error
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to update user", err, "")
	}
	return nil
}
