package request

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
)

type GeofenceRequest struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	RadiusMeters float64 `json:"radius_meters"`
}

func (req GeofenceRequest) Validate() error {
	return validation.ValidateStruct(
		&req,
		validation.Field(&req.Lat, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&req.Lng, validation.Min(-180.0), validation.Max(180.0)),
		validation.Field(&req.RadiusMeters, validation.Required, validation.Min(1.0), validation.Max(100000.0)),
	)
}

type CreateEventRequest struct {
	Title            string           `json:"title"`
	StartsAt         time.Time        `json:"starts_at" format:"date-time"`
	DurationMinutes  int              `json:"duration_minutes"`
	Channel          string           `json:"channel" enums:"presence-token,join-link"`
	Geofence         *GeofenceRequest `json:"geofence,omitempty"`
	Eligibility      string           `json:"eligibility" enums:"open,restricted"`
	AllowedSubjects  []string         `json:"allowed_subjects,omitempty"`
	PregenerateToken bool             `json:"pregenerate_token"`
}

func (req *CreateEventRequest) Validate() error {
	rules := []*validation.FieldRules{
		validation.Field(&req.Title, validation.Required, validation.Length(2, 120)),
		validation.Field(&req.StartsAt, validation.Required),
		validation.Field(&req.DurationMinutes, validation.Required, validation.Min(1), validation.Max(24*60)),
		validation.Field(&req.Channel, validation.Required, validation.In(string(domain.ChannelPresenceToken), string(domain.ChannelJoinLink))),
		validation.Field(&req.Geofence),
		validation.Field(&req.Eligibility, validation.In(string(domain.EligibilityOpen), string(domain.EligibilityRestricted))),
	}
	if req.Eligibility == string(domain.EligibilityRestricted) {
		rules = append(rules, validation.Field(&req.AllowedSubjects, validation.Required))
	}

	return validation.ValidateStruct(req, rules...)
}

func (req *CreateEventRequest) ToDomain(ownerID string) domain.Event {
	event := domain.Event{
		Title:   req.Title,
		OwnerID: ownerID,
		Schedule: domain.Schedule{
			StartsAt:        req.StartsAt,
			DurationMinutes: req.DurationMinutes,
		},
		Channel:         domain.Channel(req.Channel),
		Eligibility:     domain.Eligibility(req.Eligibility),
		AllowedSubjects: req.AllowedSubjects,
	}
	if event.Eligibility == "" {
		event.Eligibility = domain.EligibilityOpen
	}
	if req.Geofence != nil {
		event.Geofence = &domain.Geofence{
			Lat:          req.Geofence.Lat,
			Lng:          req.Geofence.Lng,
			RadiusMeters: req.Geofence.RadiusMeters,
		}
	}
	return event
}
