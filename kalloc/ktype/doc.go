// Package ktype models the per-call-site type descriptors the kernel heap
// classifies at boot.
//
// # Signatures
//
// A Signature describes a type's layout as a sequence of granules, one per
// 8-byte unit:
//
//	p  pointer
//	a  pointer with authentication
//	d  opaque data
//	.  padding
//
// ParseSignature also accepts the compiler's numeric form ('1' pointer,
// '4' authenticated pointer, '2' data, '0' padding) and ignores whitespace,
// so "pp d", "ppd" and "112" are the same signature.
//
// # Descriptors
//
// Fixed describes a call site allocating one fixed-size type. Var describes
// a call site allocating a header followed by a runtime-sized array of a
// type. Both implement Descriptor, which is what the classification and
// zone-assignment pipeline is written against.
//
// # Images
//
// An Image enumerates descriptors the way the boot linker sections would.
// Static is an in-memory image; ParseManifest builds one from YAML.
package ktype
