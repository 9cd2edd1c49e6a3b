// Package auth owns the credential lifecycle: deciding whether the stored
// bearer credential is usable, refreshing it when it is not, and driving the
// device-code flow when refresh is impossible. It is the single source of
// truth for "is the current session usable" — handlers never inspect the
// token file themselves.
package auth

import "errors"

// Failure kinds, distinguishable with errors.Is. Callers must route
// ErrAuthRequired into the device flow rather than swallowing it.
var (
	// ErrAuthRequired means there is no usable credential and no refresh
	// path: the user has to complete the device flow before retrying.
	ErrAuthRequired = errors.New("auth: authentication required")

	// ErrFlowInProgress means a device flow for this user is already
	// pending. The second request must not start a duplicate flow.
	ErrFlowInProgress = errors.New("auth: authentication already in progress")

	// ErrDeniedOrExpired means the user declined consent or let the device
	// code lapse. Not retryable — the user must restart the flow.
	ErrDeniedOrExpired = errors.New("auth: authorization denied or code expired")

	// ErrProviderUnavailable is a transient identity-provider or network
	// fault. Safe to retry once.
	ErrProviderUnavailable = errors.New("auth: identity provider unavailable")
)
