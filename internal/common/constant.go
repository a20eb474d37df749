// Package common contains shared constants, sentinel errors and small helpers
// used by both the container tracker client and the development server.
package common

import "time"

// SessionTokenHeaderName is the gRPC metadata key that carries the staff
// session token on outbound requests.
const SessionTokenHeaderName = "session_token"

// UnableToRead is the answer OCR collaborators return when the image
// could not be read.
const UnableToRead = "UNABLE_TO_READ"

// DefaultSessionTTL is the lifetime of a staff session, both on the
// server and for the client-side expiry hint.
const DefaultSessionTTL = 24 * time.Hour
