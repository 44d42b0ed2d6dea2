package warpcore

// FetchError is returned when the stream count could not be read from the
// activity API. The controller is not called for that cycle.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return "fetch activity: " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ForwardError is returned when a controller request failed with anything
// other than a connection reset. Remaining controller calls are skipped.
type ForwardError struct {
	// URL is the controller URL that failed.
	URL string
	Err error
}

func (e *ForwardError) Error() string {
	return "forward level: GET " + e.URL + ": " + e.Err.Error()
}

func (e *ForwardError) Unwrap() error {
	return e.Err
}
