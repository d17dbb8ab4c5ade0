package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nurpe/bonus-agreements/internal/model"
	"github.com/nurpe/bonus-agreements/internal/session"
)

type sessionRow struct {
	ID          uuid.UUID `gorm:"column:id;primaryKey"`
	AccessToken string    `gorm:"column:access_token"`
	UserID      uuid.UUID `gorm:"column:user_id"`
	Username    string    `gorm:"column:username"`
	Email       string    `gorm:"column:email"`
	IsActive    bool      `gorm:"column:is_active"`
	IsAdmin     bool      `gorm:"column:is_admin"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	VerifiedAt  time.Time `gorm:"column:verified_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (sessionRow) TableName() string {
	return "console_sessions"
}

// SessionRepository stores console sessions in postgres.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Save(ctx context.Context, s *model.Session) error {
	row := toRow(s)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}

func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	var row sessionRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrSessionNotFound
		}
		return nil, err
	}
	s := fromRow(row)
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&sessionRow{}).Error
}

func (r *SessionRepository) List(ctx context.Context) ([]model.Session, error) {
	var rows []sessionRow
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]model.Session, 0, len(rows))
	for _, row := range rows {
		result = append(result, fromRow(row))
	}
	return result, nil
}

// DeleteExpired removes sessions whose expiry is at or before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&sessionRow{})
	return res.RowsAffected, res.Error
}

func toRow(s *model.Session) sessionRow {
	return sessionRow{
		ID:          s.ID,
		AccessToken: s.AccessToken,
		UserID:      s.User.ID,
		Username:    s.User.Username,
		Email:       s.User.Email,
		IsActive:    s.User.IsActive,
		IsAdmin:     s.User.IsAdmin,
		CreatedAt:   s.CreatedAt.UTC(),
		VerifiedAt:  s.VerifiedAt.UTC(),
		ExpiresAt:   s.ExpiresAt.UTC(),
	}
}

func fromRow(row sessionRow) model.Session {
	return model.Session{
		ID:          row.ID,
		AccessToken: row.AccessToken,
		User: model.User{
			ID:       row.UserID,
			Username: row.Username,
			Email:    row.Email,
			IsActive: row.IsActive,
			IsAdmin:  row.IsAdmin,
		},
		CreatedAt:  row.CreatedAt,
		VerifiedAt: row.VerifiedAt,
		ExpiresAt:  row.ExpiresAt,
	}
}
