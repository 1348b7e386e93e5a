package client

import "errors"

// ErrProviderUnavailable means no credential is configured for the
// provider. It is a configuration error and is never retried.
var ErrProviderUnavailable = errors.New("provider not configured")

// ErrProviderRejected means the remote call returned a non-success
// code. Callers surface it and continue with their remaining work.
var ErrProviderRejected = errors.New("provider rejected request")
