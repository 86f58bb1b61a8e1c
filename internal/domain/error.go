package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrSubjectNotFound    = errors.New("payment subject not found")
	ErrSubjectInactive    = errors.New("payment subject is not active")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context passed to repository")

	// Checkout / pricing errors
	ErrUnsupportedBillingCycle = errors.New("billing cycle not supported by subject")
	ErrCheckoutInProgress      = errors.New("a checkout for this subject is already in progress")

	// Gateway errors
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured for tenant")
	ErrGatewayRequest       = errors.New("payment gateway rejected the request")
	ErrGatewayUnavailable   = errors.New("payment gateway is unavailable")
	ErrInvalidSignature     = errors.New("callback signature verification failed")
	ErrUnknownGateway       = errors.New("unknown payment gateway")

	// Settlement errors
	ErrDuplicateSettlement = errors.New("settlement already recorded for transaction")
)
