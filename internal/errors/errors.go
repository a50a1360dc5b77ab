// internal/errors/errors.go
package appErrors

import (
    "errors"
    "fmt"
    "net/http"
)

// ValidationError rejects a request before anything is written.
type ValidationError struct {
    Field   string
    Message string
}

func (e *ValidationError) Error() string {
    if e.Field == "" {
        return e.Message
    }
    return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidation(field, message string) error {
    return &ValidationError{Field: field, Message: message}
}

// NotFoundError is returned for unknown or soft-deleted resources.
type NotFoundError struct {
    Resource string
    ID       int64
}

func (e *NotFoundError) Error() string {
    return fmt.Sprintf("%s with ID %d not found", e.Resource, e.ID)
}

func NewNotFound(resource string, id int64) error {
    return &NotFoundError{Resource: resource, ID: id}
}

// Helper constructor
func NewCampaignNotFound(id int64) error {
    return NewNotFound("campaign", id)
}

func NewTemplateNotFound(id int64) error {
    return NewNotFound("email template", id)
}

// ConflictError means the resource is not in a state that allows the operation.
type ConflictError struct {
    Message string
}

func (e *ConflictError) Error() string { return e.Message }

func NewConflict(format string, args ...any) error {
    return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// RecipientResolutionError marks a recipient whose contact details cannot be
// determined. It is recorded on the recipient, never returned from start.
type RecipientResolutionError struct {
    RecordID int64
    Reason   string
}

func (e *RecipientResolutionError) Error() string {
    return fmt.Sprintf("recipient %d unsendable: %s", e.RecordID, e.Reason)
}

// DeliveryError wraps a failure reported by the email transport.
type DeliveryError struct {
    Address string
    Err     error
}

func (e *DeliveryError) Error() string {
    return fmt.Sprintf("delivery to %q failed: %v", e.Address, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// SinkError wraps an activity-log failure. Only ever logged.
type SinkError struct {
    Action string
    Err    error
}

func (e *SinkError) Error() string {
    return fmt.Sprintf("activity sink %s: %v", e.Action, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
    var target *ValidationError
    return errors.As(err, &target)
}

func IsNotFound(err error) bool {
    var target *NotFoundError
    return errors.As(err, &target)
}

func IsConflict(err error) bool {
    var target *ConflictError
    return errors.As(err, &target)
}

func IsDelivery(err error) bool {
    var target *DeliveryError
    return errors.As(err, &target)
}

// HTTPStatus maps an error to the response status a handler should use.
// Unknown errors are 500.
func HTTPStatus(err error) int {
    switch {
    case err == nil:
        return http.StatusOK
    case IsValidation(err):
        return http.StatusBadRequest
    case IsNotFound(err):
        return http.StatusNotFound
    case IsConflict(err):
        return http.StatusConflict
    case IsDelivery(err):
        return http.StatusBadGateway
    default:
        return http.StatusInternalServerError
    }
}
