package services

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrRadiologistNotFound = errors.New("radiologist not found")
	ErrScanNotFound        = errors.New("scan not found")
	ErrReportNotFound      = errors.New("report not found")
	ErrReportAlreadyExists = errors.New("scan already has a report")
	ErrScanHasNoImage      = errors.New("scan has no image attached")
)

// PermissionError carries who tried what on which resource. Handlers
// translate it to HTTP 403.
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d: %s",
		e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}
