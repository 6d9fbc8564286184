// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// errors.go — sentinel error variables returned by the public anybox
// API, covering the type-name registry, envelope codec, and store
// tiers. Box misuse (empty access, exact-type mismatch) is a caller
// defect and panics instead; see Get and Ref.

package anybox

import "errors"

// Registry errors
var (
	ErrUnregisteredType  = errors.New("anybox: stored type has no registered name")
	ErrUnknownTypeName   = errors.New("anybox: unknown wire type name")
	ErrDuplicateTypeName = errors.New("anybox: type name already registered")
)

// Codec errors
var (
	ErrEmptyBox     = errors.New("anybox: cannot marshal an empty box")
	ErrEncodeFailed = errors.New("anybox: failed to encode value")
	ErrDecodeFailed = errors.New("anybox: failed to decode stored value")
)

// Data errors
var (
	ErrNotFound = errors.New("anybox: key not found")
)

// Infrastructure errors
var (
	ErrL2Unavailable = errors.New("anybox: L2 Redis unavailable")
	ErrL3Unavailable = errors.New("anybox: L3 Postgres unavailable")
	ErrUnavailable   = errors.New("anybox: store is closed")
)

// Config errors
var (
	ErrInvalidConfig = errors.New("anybox: invalid configuration")
)
