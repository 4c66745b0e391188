package mission

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/medishift/mission-matcher/internal/model"
)

// CreateRequest is the mission creation payload.
type CreateRequest struct {
	ClientID         string     `json:"clientId" validate:"required"`
	JobTitle         string     `json:"jobTitle" validate:"required,max=200"`
	Title            string     `json:"title" validate:"max=200"`
	Description      string     `json:"description" validate:"max=5000"`
	HourlyRate       float64    `json:"hourlyRate" validate:"gt=0"`
	StartDate        time.Time  `json:"startDate" validate:"required"`
	EndDate          *time.Time `json:"endDate"`
	Address          string     `json:"address"`
	City             string     `json:"city" validate:"required"`
	PostalCode       string     `json:"postalCode" validate:"required"`
	Latitude         *float64   `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude        *float64   `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	RadiusKm         *int       `json:"radiusKm" validate:"omitempty,gte=1,lte=200"`
	IsNightShift     *bool      `json:"isNightShift"`
	UrgencyLevel     string     `json:"urgencyLevel" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	RequiredSkills   []string   `json:"requiredSkills" validate:"dive,required"`
	RequiredDiplomas []string   `json:"requiredDiplomas" validate:"dive,required"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the request. It returns a *model.ValidationError listing
// every invalid field.
func (r *CreateRequest) Validate(v *validator.Validate) error {
	var verr model.ValidationError

	if err := v.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate request: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), describe(fe))
		}
	}

	if r.EndDate != nil && !r.StartDate.IsZero() && !r.EndDate.After(r.StartDate) {
		verr.Add("endDate", "must be after startDate")
	}

	if (r.Latitude == nil) != (r.Longitude == nil) {
		verr.Add("latitude", "latitude and longitude must be provided together")
	}

	return verr.OrNil()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// geocodeQuery returns the free-form address used for the first lookup.
func (r *CreateRequest) geocodeQuery() string {
	return strings.Join(strings.Fields(strings.Join([]string{r.Address, r.PostalCode, r.City}, " ")), " ")
}

func trimAll(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
