// Package sessions provides database operations for import session
// state. A session is the one shared mutable resource of an import run;
// each batch cycle reads it, mutates it, and writes it back before the
// next cycle starts.
package sessions

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/doctordir/importer/internal/entities"
)

// ErrNotFound indicates no session exists for the given token.
var ErrNotFound = errors.New("import session not found")

// ErrExpired indicates the session's expiry window has passed.
var ErrExpired = errors.New("import session expired")

// Repository handles all import session database operations.
type Repository struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewRepository creates a session repository with the given abandonment
// TTL.
func NewRepository(db *gorm.DB, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Repository{db: db, ttl: ttl}
}

// Create persists a new session and assigns it a caller-held token.
func (r *Repository) Create(session *entities.ImportSession) error {
	token, err := generateToken()
	if err != nil {
		return err
	}
	now := time.Now()
	session.Token = token
	session.StartedAt = now
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(r.ttl)
	if session.Status == "" {
		session.Status = entities.ImportStatusPending
	}
	return r.db.Create(session).Error
}

// GetByToken loads the session for a caller-held token. Expired
// sessions are deleted and reported as ErrExpired.
func (r *Repository) GetByToken(token string) (*entities.ImportSession, error) {
	var session entities.ImportSession
	err := r.db.Where("token = ?", token).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(session.ExpiresAt) {
		_ = r.db.Delete(&session).Error
		return nil, ErrExpired
	}
	return &session, nil
}

// Update writes the session back and pushes the expiry window forward.
func (r *Repository) Update(session *entities.ImportSession) error {
	now := time.Now()
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(r.ttl)
	return r.db.Save(session).Error
}

// PurgeExpired removes abandoned sessions. Returns the number deleted.
func (r *Repository) PurgeExpired() (int64, error) {
	result := r.db.Where("expires_at < ?", time.Now()).Delete(&entities.ImportSession{})
	return result.RowsAffected, result.Error
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
