package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common service errors
var (
	// ErrPermissionDenied is returned when the actor lacks the capability for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized is returned when credentials are missing or wrong
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict is returned when a write collides with existing state
	ErrConflict = errors.New("resource conflict")

	ErrStaffNotFound        = errors.New("staff not found")
	ErrDepartmentNotFound   = errors.New("department not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrRegionNotFound       = errors.New("region not found")
	ErrDistrictNotFound     = errors.New("district not found")

	// ErrOrganizationExists is returned when a non-privileged actor tries to create a second organization
	ErrOrganizationExists = errors.New("an organization already exists")

	// ErrInvalidTransition is returned when a task status change is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTaskTerminal is returned when a completed or rejected task is edited
	ErrTaskTerminal = errors.New("task is completed or rejected")

	// ErrTaskNotCompletable is returned when completing a task whose progress is below 100
	ErrTaskNotCompletable = errors.New("task progress must be 100 to complete")

	// ErrStaffInUse is returned when deleting staff that tasks or audit entries still reference
	ErrStaffInUse = errors.New("staff is referenced by tasks or audit entries")

	// ErrRegionInUse is returned when deleting a region whose districts tasks reference
	ErrRegionInUse = errors.New("region is referenced by tasks")

	// ErrNoStaffProfile is returned when an actor without a staff record mutates a task
	ErrNoStaffProfile = fmt.Errorf("%w: actor has no staff profile", ErrPermissionDenied)

	// ErrUnsupportedContentType is returned for logo uploads that are not images
	ErrUnsupportedContentType = errors.New("unsupported content type")
)

// ValidationError collects field-level validation failures
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a failure for field, keeping the first message
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// Err returns e when any field failed, else nil
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsNotFound reports whether err is any not-found error
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrStaffNotFound, ErrDepartmentNotFound, ErrTaskNotFound,
		ErrOrganizationNotFound, ErrRegionNotFound, ErrDistrictNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict reports whether err is a state conflict
func IsConflict(err error) bool {
	for _, target := range []error{
		ErrConflict, ErrInvalidTransition, ErrTaskTerminal, ErrTaskNotCompletable,
		ErrStaffInUse, ErrRegionInUse,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
