package validation

import (
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// register struct-level validation for QuoteSubmission to ensure the
	// itinerary does not start and end at the same airport.
	v.RegisterStructValidation(quoteSubmissionStructValidation, QuoteSubmission{})

	return v
}

// quoteSubmissionStructValidation rejects same-airport itineraries.
func quoteSubmissionStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(QuoteSubmission)

	if req.Departure != "" && strings.EqualFold(req.Departure, req.Arrival) {
		sl.ReportError(req.Arrival, "arrival", "Arrival", "distinct_airports", "departure and arrival must differ")
	}
}
