package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"flight_search/internal/models"
	"flight_search/internal/search"
)

var (
	ErrInvalidInput = errors.New("invalid input")

	ErrSameSourceDestination = fmt.Errorf("%w: source and destination cannot be the same city", ErrInvalidInput)
	ErrSameSourceMiddle      = fmt.Errorf("%w: source and middle destination cannot be the same city", ErrInvalidInput)
	ErrSameMiddleDestination = fmt.Errorf("%w: middle destination and final destination cannot be the same city", ErrInvalidInput)
	ErrReturnAndMulticity    = fmt.Errorf("%w: trip cannot be return and multicity at the same time", ErrInvalidInput)
	ErrMissingMiddle         = fmt.Errorf("%w: multicity trip requires a middle destination", ErrInvalidInput)
	ErrUnknownAirport        = fmt.Errorf("%w: airport not found in dataset locations", ErrInvalidInput)
)

// Airport roles reported by AirportError.
const (
	RoleSource            = "source"
	RoleDestination       = "destination"
	RoleMiddleDestination = "middle destination"
)

// AirportError reports a requested airport without outgoing flights.
type AirportError struct {
	Role      string
	Code      string
	Available []string
}

func (e *AirportError) Error() string {
	return fmt.Sprintf(
		"incorrect %s provided, %s %q not found in dataset locations. Available locations: %s",
		e.Role, e.Role, e.Code, strings.Join(e.Available, ", "),
	)
}

func (e *AirportError) Unwrap() error { return ErrUnknownAirport }

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// airportSet is the part of the index used to check airport codes.
type airportSet interface {
	Has(code string) bool
	Airports() []string
}

// BuildConfig checks req against the timetable and converts it into search
// parameters. Checks run in a fixed order so the first reported error is
// deterministic.
func BuildConfig(req *models.SearchRequest, airports airportSet) (*search.Config, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is nil", ErrInvalidInput)
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, describeValidation(err))
	}

	switch {
	case req.Origin == req.Destination:
		return nil, ErrSameSourceDestination
	case req.MiddleDestination != "" && req.Origin == req.MiddleDestination:
		return nil, ErrSameSourceMiddle
	case req.MiddleDestination != "" && req.MiddleDestination == req.Destination:
		return nil, ErrSameMiddleDestination
	case req.Return && req.Multicity:
		return nil, ErrReturnAndMulticity
	case req.Multicity && req.MiddleDestination == "":
		return nil, ErrMissingMiddle
	}

	cfg := &search.Config{
		Source:          req.Origin,
		Destination:     req.Destination,
		Bags:            req.Bags,
		Trip:            search.OneWay,
		DaysOfStay:      req.DaysOfStay,
		MaxLayoverHours: models.DefaultMaxLayoverHours,
		MaxTravelHours:  req.MaxTravelHours,
		MaxNrChanges:    models.DefaultMaxNrChanges,
	}

	switch {
	case req.Return:
		cfg.Trip = search.Return
	case req.Multicity:
		cfg.Trip = search.Multicity
		cfg.MiddleDestination = req.MiddleDestination
	}

	// 0 is allowed and leaves no room for a connection inside a leg
	if req.MaxLayoverHours != nil {
		cfg.MaxLayoverHours = *req.MaxLayoverHours
	}
	if req.MaxNrChanges != nil {
		cfg.MaxNrChanges = *req.MaxNrChanges
	}
	if req.DayOfDeparture != "" {
		d, err := time.Parse(models.DateLayout, req.DayOfDeparture)
		if err != nil {
			return nil, fmt.Errorf("%w: day_of_departure: %v", ErrInvalidInput, err)
		}
		cfg.DepartureDate = d
	}

	if airports == nil {
		return cfg, nil
	}
	if !airports.Has(cfg.Source) {
		return nil, &AirportError{Role: RoleSource, Code: cfg.Source, Available: airports.Airports()}
	}
	if !airports.Has(cfg.Destination) {
		return nil, &AirportError{Role: RoleDestination, Code: cfg.Destination, Available: airports.Airports()}
	}
	if cfg.Trip == search.Multicity && !airports.Has(cfg.MiddleDestination) {
		return nil, &AirportError{Role: RoleMiddleDestination, Code: cfg.MiddleDestination, Available: airports.Airports()}
	}

	return cfg, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
