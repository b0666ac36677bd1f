package domain

import "errors"

var (
	// Business-rule outcomes, surfaced to callers as typed results.
	ErrInvalidCode  = errors.New("activation code invalid or already used")
	ErrAlreadyBound = errors.New("device already has a binding")
	ErrUnauthorized = errors.New("device is not activated")
	ErrExpired      = errors.New("entitlement has expired")
	ErrNotFound     = errors.New("entity not found")

	ErrInvalidArgument = errors.New("invalid argument")

	// Server faults. Logged with full context, never leaked verbatim.
	ErrUnknownPlan        = errors.New("code references a plan missing from configuration")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context for query")
)
