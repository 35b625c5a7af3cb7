package billing

import "errors"

var (
	// ErrAuthenticationFailed rejects a webhook whose callback token does not
	// match the configured secret. Nothing is looked up or written before this
	// check passes.
	ErrAuthenticationFailed = errors.New("billing: callback authentication failed")

	// ErrInvalidPayload rejects a webhook body that does not parse.
	ErrInvalidPayload = errors.New("billing: invalid callback payload")

	// ErrTransactionNotFound means no transaction carries the referenced
	// gateway invoice id. The gateway retries deliveries, so this is logged
	// for manual reconciliation rather than treated as fatal.
	ErrTransactionNotFound = errors.New("billing: transaction not found for external reference")

	ErrUserNotFound    = errors.New("billing: user not found")
	ErrPackageNotFound = errors.New("billing: package not found")
	ErrPackageInactive = errors.New("billing: package is not active")

	ErrSubscriptionNotFound = errors.New("billing: subscription not found")
)
