// Package sentence validates and decodes GGA positioning sentences.
package sentence

import (
	"errors"
	"fmt"
)

// DefaultPrefix is the sentence tag recognized when no other prefix is configured.
const DefaultPrefix = "$GNGGA"

// TypeSuffix is the sentence type every accepted tag must end with.
const TypeSuffix = "GGA"

// Field layout and thresholds for GGA sentences.
const (
	// MinFields is the minimum number of comma-delimited fields in a valid sentence.
	MinFields = 15

	fieldTime    = 1
	fieldLat     = 2
	fieldLatHemi = 3
	fieldLon     = 4
	fieldLonHemi = 5
	fieldAlt     = 9

	// minParseFields is the count the decoder needs to reach the altitude field.
	minParseFields = fieldAlt + 1
)

// Raw-format bounds, checked before conversion. Coordinates are degrees*100 + minutes.
const (
	MaxRawLatitude  = 9000.0
	MaxRawLongitude = 18000.0
	MinAltitude     = -1000.0
	MaxAltitude     = 10000.0
)

// Fix is one decoded position sample. Values are signed decimal degrees and meters.
type Fix struct {
	// Time is the raw UTC time-of-day field (hhmmss prefixed).
	Time string `json:"time"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// Clock returns the hhmmss part of the time field.
func (f Fix) Clock() string {
	if len(f.Time) > 6 {
		return f.Time[:6]
	}
	return f.Time
}

// Reason classifies why a line was rejected.
type Reason string

const (
	ReasonPrefix         Reason = "wrong sentence prefix"
	ReasonFieldCount     Reason = "too few fields"
	ReasonEmptyField     Reason = "empty critical field"
	ReasonNotNumeric     Reason = "non-numeric field"
	ReasonZeroCoordinate Reason = "zero coordinate"
	ReasonRawRange       Reason = "raw value out of range"
	ReasonNMEA           Reason = "rejected by nmea decoder"
	ReasonType           Reason = "sentence type mismatch"
	ReasonRange          Reason = "converted value out of range"
)

// ErrInvalid is wrapped by every rejection returned from this package.
var ErrInvalid = errors.New("invalid sentence")

// ParseError describes a rejected line.
type ParseError struct {
	Line   string
	Reason Reason
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", ErrInvalid, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrInvalid, e.Reason, e.Detail)
}

func (e *ParseError) Unwrap() error {
	return ErrInvalid
}

func reject(line string, reason Reason, format string, args ...any) *ParseError {
	return &ParseError{
		Line:   line,
		Reason: reason,
		Detail: fmt.Sprintf(format, args...),
	}
}

// ReasonOf extracts the rejection reason from err, or "" if err is not a ParseError.
func ReasonOf(err error) Reason {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ""
}
