// Package ir provides the literal value types and canonical encoding shared
// by every other package.
//
// All other internal packages may import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - Canonical JSON (RFC 8785) is the only encoding used for fingerprints
//   - Strings are NFC normalized at the serialization boundary
package ir
