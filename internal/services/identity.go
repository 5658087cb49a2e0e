package services

import (
	"strings"
	"time"

	"github.com/mihkeluutar/quiz-game/internal/apperrors"
	"github.com/mihkeluutar/quiz-game/internal/models"

	"gorm.io/gorm"
)

// IdentityService resolves callers into participants. It is the single entry
// point for joining, rejoining after a lost token, and deep-linking into an
// in-progress session.
type IdentityService struct {
	db *gorm.DB
}

func NewIdentityService(db *gorm.DB) *IdentityService {
	return &IdentityService{db: db}
}

// NormalizeName trims and case-folds a display name for identity comparison.
// The original casing is what gets stored and shown.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ResolveOrCreateParticipant resolves (deviceToken, displayName) into a
// participant of the session. Resolution order: device token first, then
// normalized display name. A name match with an unknown token reattaches the
// participant to the new token — name collision deliberately reclaims identity
// instead of creating a duplicate, so a player who lost local storage or
// switched devices can rejoin under the same name.
func (s *IdentityService) ResolveOrCreateParticipant(session *models.Session, deviceToken, displayName string) (*models.Participant, bool, error) {
	nameKey := NormalizeName(displayName)
	if nameKey == "" {
		return nil, false, apperrors.Validation("display name must not be empty")
	}
	if deviceToken == "" {
		return nil, false, apperrors.Validation("device token must not be empty")
	}

	var existing models.Participant
	if err := s.db.Where("session_id = ? AND device_token = ?", session.ID, deviceToken).
		First(&existing).Error; err == nil {
		if displayName != existing.Name {
			if err := s.rename(&existing, displayName, nameKey); err != nil {
				return nil, false, err
			}
		}
		return &existing, true, nil
	}

	if err := s.db.Where("session_id = ? AND name_key = ?", session.ID, nameKey).
		First(&existing).Error; err == nil {
		existing.DeviceToken = deviceToken
		existing.Name = strings.TrimSpace(displayName)
		if err := s.db.Save(&existing).Error; err != nil {
			return nil, false, err
		}
		return &existing, true, nil
	}

	if session.Status == models.SessionStatusFinished {
		return nil, false, apperrors.Precondition("session %d is finished and not accepting new participants", session.ID)
	}

	participant := models.Participant{
		SessionID:   session.ID,
		Name:        strings.TrimSpace(displayName),
		NameKey:     nameKey,
		DeviceToken: deviceToken,
		JoinedAt:    time.Now(),
	}
	if err := s.db.Create(&participant).Error; err != nil {
		return nil, false, err
	}
	return &participant, false, nil
}

// GetByToken looks a participant up by device token within a session.
func (s *IdentityService) GetByToken(sessionID uint, deviceToken string) (*models.Participant, error) {
	var participant models.Participant
	if err := s.db.Where("session_id = ? AND device_token = ?", sessionID, deviceToken).
		First(&participant).Error; err != nil {
		return nil, apperrors.NotFound("participant not found in session %d", sessionID)
	}
	return &participant, nil
}

func (s *IdentityService) rename(p *models.Participant, displayName, nameKey string) error {
	if nameKey != p.NameKey {
		var count int64
		s.db.Model(&models.Participant{}).
			Where("session_id = ? AND name_key = ? AND id != ?", p.SessionID, nameKey, p.ID).
			Count(&count)
		if count > 0 {
			return apperrors.Validation("name %q is already taken in this session", strings.TrimSpace(displayName))
		}
	}
	p.Name = strings.TrimSpace(displayName)
	p.NameKey = nameKey
	return s.db.Save(p).Error
}
