package domain

import "fmt"

// ConfigurationError reports a malformed or out-of-range run parameter.
// Detected before any external query; the pipeline state is never touched.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NoDataError reports that a required signal source found zero observations
// for the requested region and date window. Fatal to the run.
type NoDataError struct {
	Source string
	Detail string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("%s: no observations: %s", e.Source, e.Detail)
}

// ExternalServiceError reports a failed call to a remote data source.
// Treated like NoDataError for the step in progress.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }
