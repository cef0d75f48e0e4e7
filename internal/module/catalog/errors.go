package catalog

import "errors"

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrServiceNotFound  = errors.New("service not found")
	ErrProfileNotFound  = errors.New("worker profile not found")
	ErrNotServiceOwner  = errors.New("user does not own this service")
)
