package repository

import (
	"context"

	"lms/backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Directory reads and maintains profiles and role assignments.
type Directory struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewDirectory(db *gorm.DB, log *zap.Logger) *Directory {
	return &Directory{db: db, log: log.With(zap.String("repo", "Directory"))}
}

func (d *Directory) Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := d.db.WithContext(ctx).First(&profile, "id = ?", userID).Error; err != nil {
		return nil, fetchErr("profile", err)
	}
	return &profile, nil
}

func (d *Directory) Roles(ctx context.Context, userID uuid.UUID) (models.RoleSet, error) {
	var rows []models.RoleAssignment
	if err := d.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return 0, fetchErr("roles", err)
	}
	var set models.RoleSet
	for _, row := range rows {
		set = set.Add(row.Role)
	}
	return set, nil
}

type ProfileUpdate struct {
	FullName   *string `json:"full_name"`
	AvatarURL  *string `json:"avatar_url"`
	RollNumber *string `json:"roll_number"`
}

func (d *Directory) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileUpdate) (*models.Profile, error) {
	profile, err := d.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		profile.FullName = *in.FullName
	}
	if in.AvatarURL != nil {
		profile.AvatarURL = *in.AvatarURL
	}
	if in.RollNumber != nil {
		profile.RollNumber = *in.RollNumber
	}
	if err := d.db.WithContext(ctx).Save(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// GrantRole adds a role assignment. Granting a role the user already has is a no-op.
func (d *Directory) GrantRole(ctx context.Context, userID uuid.UUID, role models.Role) error {
	var count int64
	if err := d.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return d.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.RoleAssignment{UserID: userID, Role: role}).Error
}
