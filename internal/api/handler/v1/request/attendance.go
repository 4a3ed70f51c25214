package request

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
)

var (
	errProofXorLink   = errors.New("exactly one of proof and linkToken is required")
	errPartialLatLong = errors.New("lat and lng must be sent together")
)

type SubmitAttendanceRequest struct {
	Proof     string   `json:"proof,omitempty"`
	LinkToken string   `json:"linkToken,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

func (req *SubmitAttendanceRequest) Validate() error {
	if (req.Proof == "") == (req.LinkToken == "") {
		return errProofXorLink
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		return errPartialLatLong
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Proof, validation.Length(0, 1024)),
		validation.Field(&req.LinkToken, validation.Length(0, 256)),
		validation.Field(&req.Lat, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&req.Lng, validation.Min(-180.0), validation.Max(180.0)),
		validation.Field(&req.Accuracy, validation.Min(0.0)),
	)
}

func (req *SubmitAttendanceRequest) ToSubmission(subjectID string) domain.Submission {
	sub := domain.Submission{
		SubjectID: subjectID,
		RawProof:  req.Proof,
		LinkToken: req.LinkToken,
	}
	if req.Lat != nil && req.Lng != nil {
		sub.Location = &domain.Location{
			Lat:      *req.Lat,
			Lng:      *req.Lng,
			Accuracy: req.Accuracy,
		}
	}
	return sub
}
