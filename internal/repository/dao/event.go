package dao

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrLinkTokenConflict = errors.New("link token already in use")
)

const (
	ChannelPresenceToken = "presence-token"
	ChannelJoinLink      = "join-link"
)

type Event struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title           string    `gorm:"not null"`
	OwnerID         string    `gorm:"not null;index"`
	StartsAt        time.Time `gorm:"not null;index"`
	DurationMinutes int       `gorm:"not null"`
	// EndsAt is StartsAt + DurationMinutes, filled in by BeforeCreate so the
	// scheduler can filter in SQL.
	EndsAt   time.Time `gorm:"not null;index"`
	IsActive bool      `gorm:"not null;default:false;index"`
	Channel  string    `gorm:"not null"`

	ProofToken    string `gorm:"not null;default:''"`
	ProofIssuedAt *time.Time
	Paused        bool    `gorm:"not null;default:false"`
	LinkToken     *string `gorm:"uniqueIndex:uq_events_link_token"`

	GeofenceLat     *float64
	GeofenceLng     *float64
	GeofenceRadiusM *float64

	Eligibility     string                `gorm:"not null;default:'open'"`
	AllowedSubjects []EventAllowedSubject `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type EventAllowedSubject struct {
	EventID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	SubjectID string    `gorm:"primaryKey"`
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.StartsAt = e.StartsAt.UTC()
	e.EndsAt = e.StartsAt.Add(time.Duration(e.DurationMinutes) * time.Minute)
	return nil
}

type EventDAO struct {
	db *gorm.DB
}

func NewEventDAO(db *gorm.DB) *EventDAO {
	return &EventDAO{
		db: db,
	}
}

func (d *EventDAO) Insert(ctx context.Context, event Event) (Event, error) {
	result := d.db.WithContext(ctx).Create(&event)
	if result.Error != nil {
		if isUniqueViolation(result.Error, "uq_events_link_token") {
			return Event{}, ErrLinkTokenConflict
		}

		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindByID(ctx context.Context, id uuid.UUID) (Event, error) {
	var event Event

	result := d.db.WithContext(ctx).Preload("AllowedSubjects").First(&event, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindByLinkToken(ctx context.Context, linkToken string) (Event, error) {
	var event Event

	result := d.db.WithContext(ctx).Preload("AllowedSubjects").First(&event, "link_token = ?", linkToken)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

// FindDormantDue returns events not yet flagged active whose window contains now.
func (d *EventDAO) FindDormantDue(ctx context.Context, now time.Time) ([]Event, error) {
	var events []Event

	result := d.db.WithContext(ctx).
		Where("is_active = ? AND starts_at <= ? AND ends_at > ?", false, now.UTC(), now.UTC()).
		Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}

	return events, nil
}

func (d *EventDAO) FindActive(ctx context.Context) ([]Event, error) {
	var events []Event

	result := d.db.WithContext(ctx).Where("is_active = ?", true).Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}

	return events, nil
}

// Activate flips the cached flag on and issues the proof channel only when
// none exists yet. Returns false when the event was already active.
func (d *EventDAO) Activate(ctx context.Context, id uuid.UUID, token, linkToken string, issuedAt time.Time) (bool, error) {
	var tokenArg, issuedArg, linkArg interface{}
	if token != "" {
		tokenArg = token
		issuedArg = issuedAt.UTC()
	} else {
		tokenArg = ""
	}
	if linkToken != "" {
		linkArg = linkToken
	}

	result := d.db.WithContext(ctx).Model(&Event{}).
		Where("id = ? AND is_active = ?", id, false).
		Updates(map[string]interface{}{
			"is_active":       true,
			"proof_token":     gorm.Expr("CASE WHEN proof_token = '' THEN ? ELSE proof_token END", tokenArg),
			"proof_issued_at": gorm.Expr("CASE WHEN proof_token = '' THEN ? ELSE proof_issued_at END", issuedArg),
			"link_token":      gorm.Expr("COALESCE(link_token, ?)", linkArg),
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error, "uq_events_link_token") {
			return false, ErrLinkTokenConflict
		}

		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// End clears the cached flag and every piece of proof state so nothing
// issued for the event can validate again.
func (d *EventDAO) End(ctx context.Context, id uuid.UUID) (bool, error) {
	result := d.db.WithContext(ctx).Model(&Event{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":       false,
			"proof_token":     "",
			"proof_issued_at": nil,
			"link_token":      nil,
			"paused":          false,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// FindRotatable returns token-channel events that hold a token and are not paused.
func (d *EventDAO) FindRotatable(ctx context.Context) ([]Event, error) {
	var events []Event

	result := d.db.WithContext(ctx).
		Where("channel = ? AND paused = ? AND proof_token <> ?", ChannelPresenceToken, false, "").
		Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}

	return events, nil
}

// RotateToken replaces the token in a single conditional update. It returns
// false when the event was paused or cleared in the meantime.
func (d *EventDAO) RotateToken(ctx context.Context, id uuid.UUID, token string, issuedAt time.Time) (bool, error) {
	result := d.db.WithContext(ctx).Model(&Event{}).
		Where("id = ? AND channel = ? AND paused = ? AND proof_token <> ?", id, ChannelPresenceToken, false, "").
		Updates(map[string]interface{}{
			"proof_token":     token,
			"proof_issued_at": issuedAt.UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (d *EventDAO) SetPaused(ctx context.Context, id uuid.UUID, paused bool) error {
	result := d.db.WithContext(ctx).Model(&Event{}).
		Where("id = ?", id).
		Update("paused", paused)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}

	return nil
}
