package ktype

import "errors"

var (
	// ErrBadSignature indicates a signature symbol outside the granule alphabet.
	ErrBadSignature = errors.New("ktype: bad signature")

	// ErrBadDescriptor indicates a descriptor with a missing name, size or signature.
	ErrBadDescriptor = errors.New("ktype: bad descriptor")

	// ErrBadManifest indicates a manifest that could not be decoded.
	ErrBadManifest = errors.New("ktype: bad manifest")
)
