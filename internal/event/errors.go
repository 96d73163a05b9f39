package event

// ValidationError reports an event that failed schema checks. It is never
// retried automatically; the caller must fix the input.
type ValidationError struct {
	EventID string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.EventID == "" {
		return "event validation: " + e.Reason
	}
	return "event validation (" + e.EventID + "): " + e.Reason
}
