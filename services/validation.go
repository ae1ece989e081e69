package services

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

const MaxPhotoBytes = 5 << 20

var allowedPhotoTypes = []string{"image/jpeg", "image/png", "image/webp"}

// ReportInput holds the editable fields of a report.
type ReportInput struct {
	PackageID   string  `json:"package_id" validate:"required,max=255"`
	Location    string  `json:"location" validate:"required,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Photo       []byte  `json:"photo"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput trims the text fields in place and checks them along with the photo.
func (s *ReportService) validateInput(in *ReportInput, photoRequired bool) error {
	in.PackageID = strings.TrimSpace(in.PackageID)
	in.Location = strings.TrimSpace(in.Location)
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if d == "" {
			in.Description = nil
		} else {
			in.Description = &d
		}
	}

	fields := map[string]string{}
	if err := s.validate.Struct(in); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("validate report: %w", err)
		}
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
	}

	switch {
	case len(in.Photo) == 0 && photoRequired:
		fields["photo"] = "photo is required"
	case len(in.Photo) > MaxPhotoBytes:
		fields["photo"] = "photo must not be larger than 5 MB"
	case len(in.Photo) > 0 && !mimetype.EqualsAny(mimetype.Detect(in.Photo).String(), allowedPhotoTypes...):
		fields["photo"] = "photo must be a jpeg, png or webp image"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must not be longer than %s characters", fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}
