package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

// timeNow is the clock used for every "now" decision in the service layer
var timeNow = func() time.Time {
	return time.Now().UTC()
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report field names the way clients send them
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return v
}

// validateStruct runs the struct's validate tags and converts failures into a ValidationError
func validateStruct(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), describeFieldError(fe))
	}
	return verr
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Enter a valid email address"
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value is at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s", fe.Param())
	case "url":
		return "Enter a valid URL"
	default:
		return fmt.Sprintf("Failed on the '%s' rule", fe.Tag())
	}
}

// checkNonNegative adds a field error when d is negative
func checkNonNegative(verr *ValidationError, field string, d *decimal.Decimal) {
	if d != nil && d.IsNegative() {
		verr.Add(field, "Ensure this value is greater than or equal to 0")
	}
}

// checkScheduledNotPast rejects scheduled dates before now
func checkScheduledNotPast(verr *ValidationError, scheduled, now time.Time) {
	if scheduled.Before(now) {
		verr.Add("scheduled_date", "Scheduled date cannot be in the past")
	}
}

// checkCompletedAfterScheduled rejects completion dates before the scheduled date
func checkCompletedAfterScheduled(verr *ValidationError, completed *time.Time, scheduled time.Time) {
	if completed != nil && completed.Before(scheduled) {
		verr.Add("completed_date", "Completion date cannot be before scheduled date")
	}
}

// errOrNil returns verr only when it carries field problems
func errOrNil(verr *ValidationError) error {
	if verr == nil || len(verr.Fields) == 0 {
		return nil
	}
	return verr
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
