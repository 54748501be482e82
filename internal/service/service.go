// Package service implements the domain operations. Every method gates
// on the authorization engine before touching the store, and mutating
// methods route their side effects through the event pipeline.
package service

import (
	"errors"

	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/authz"
	"projecthub/internal/events"
	"projecthub/internal/repository"
)

// Deps are shared by every service.
type Deps struct {
	Store    repository.Store
	Authz    *authz.Engine
	Pipeline *events.Pipeline
	Logger   *zap.Logger
}

// notFound converts a repository miss into the API error for resource.
func notFound(err error, resource string, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(resource, id)
	}
	return err
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
