package voice

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies why a synthesis attempt failed. Failures below the turn
// boundary are never surfaced to the caller individually; the kind drives the
// fallback transition and observability labels.
type Kind string

const (
	KindUpstream     Kind = "upstream"
	KindTimeout      Kind = "timeout"
	KindAssetMissing Kind = "asset_missing"
)

// BackendError is a classified failure from one synthesis backend.
type BackendError struct {
	Backend Backend
	Kind    Kind
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend %s: %v", e.Backend, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func upstreamErr(backend Backend, err error) error {
	return &BackendError{Backend: backend, Kind: KindUpstream, Err: err}
}

func timeoutErr(backend Backend, err error) error {
	return &BackendError{Backend: backend, Kind: KindTimeout, Err: err}
}

func assetMissingErr(backend Backend, err error) error {
	return &BackendError{Backend: backend, Kind: KindAssetMissing, Err: err}
}

// classify wraps a raw transport error into a BackendError, deciding between
// timeout and upstream by the context state.
func classify(ctx context.Context, backend Backend, err error) error {
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return timeoutErr(backend, err)
	}
	return upstreamErr(backend, err)
}

// KindOf extracts the failure kind, defaulting to upstream for unclassified
// errors and timeout for context expiry.
func KindOf(err error) Kind {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindUpstream
}

// IsAssetMissing reports whether the custom backend said the referenced voice
// asset is not registered on its side.
func IsAssetMissing(err error) bool {
	return KindOf(err) == KindAssetMissing
}
