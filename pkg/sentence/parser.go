package sentence

import (
	"math"
	"strconv"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// Parser validates and decodes sentences carrying one configured tag.
// A Parser holds no mutable state and may be shared.
type Parser struct {
	prefix          string
	requireChecksum bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithPrefix sets the sentence tag lines must start with.
func WithPrefix(prefix string) Option {
	return func(p *Parser) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithChecksum additionally requires every line to pass NMEA checksum verification.
func WithChecksum(required bool) Option {
	return func(p *Parser) {
		p.requireChecksum = required
	}
}

// NewParser creates a Parser for DefaultPrefix unless overridden.
func NewParser(opts ...Option) *Parser {
	p := &Parser{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prefix returns the sentence tag this parser accepts.
func (p *Parser) Prefix() string {
	return p.prefix
}

var defaultParser = NewParser()

// Validate runs the default parser's validity gate.
func Validate(line string) error { return defaultParser.Validate(line) }

// IsValid reports whether line passes the default parser's validity gate.
func IsValid(line string) bool { return defaultParser.IsValid(line) }

// Parse decodes line with the default parser.
func Parse(line string) (Fix, error) { return defaultParser.Parse(line) }

// IsValid reports whether line passes the structural and raw plausibility checks.
func (p *Parser) IsValid(line string) bool {
	return p.Validate(line) == nil
}

// Validate checks structure and raw field plausibility without decoding.
// The returned error, if any, is a *ParseError.
func (p *Parser) Validate(line string) error {
	if !strings.HasPrefix(line, p.prefix) {
		return reject(line, ReasonPrefix, "want %s", p.prefix)
	}

	fields := strings.Split(line, ",")
	if len(fields) < MinFields {
		return reject(line, ReasonFieldCount, "%d < %d", len(fields), MinFields)
	}
	if err := checkCritical(line, fields); err != nil {
		return err
	}

	lat, err := parseNumber(line, "latitude", fields[fieldLat])
	if err != nil {
		return err
	}
	lon, err := parseNumber(line, "longitude", fields[fieldLon])
	if err != nil {
		return err
	}
	alt, err := parseNumber(line, "altitude", fields[fieldAlt])
	if err != nil {
		return err
	}

	// A zero magnitude is what receivers emit before they have a fix.
	if lat == 0 || lon == 0 {
		return reject(line, ReasonZeroCoordinate, "lat=%s lon=%s", fields[fieldLat], fields[fieldLon])
	}
	if !within(lat, 0, MaxRawLatitude) {
		return reject(line, ReasonRawRange, "latitude %s", fields[fieldLat])
	}
	if !within(lon, 0, MaxRawLongitude) {
		return reject(line, ReasonRawRange, "longitude %s", fields[fieldLon])
	}
	if !within(alt, MinAltitude, MaxAltitude) {
		return reject(line, ReasonRawRange, "altitude %s", fields[fieldAlt])
	}

	if p.requireChecksum {
		s, err := nmea.Parse(line)
		if err != nil {
			return reject(line, ReasonNMEA, "%v", err)
		}
		if s.DataType() != nmea.TypeGGA {
			return reject(line, ReasonType, "got %s", s.DataType())
		}
	}

	return nil
}

// Parse validates line and decodes it into a Fix. Converted values are
// bounds-checked again; a line that fails any step yields a *ParseError.
func (p *Parser) Parse(line string) (Fix, error) {
	if err := p.Validate(line); err != nil {
		return Fix{}, err
	}

	fields := strings.Split(line, ",")
	if len(fields) < minParseFields {
		return Fix{}, reject(line, ReasonFieldCount, "%d < %d", len(fields), minParseFields)
	}
	if !strings.HasSuffix(fields[0], TypeSuffix) {
		return Fix{}, reject(line, ReasonType, "tag %q", fields[0])
	}
	if err := checkCritical(line, fields); err != nil {
		return Fix{}, err
	}

	latRaw, err := parseNumber(line, "latitude", fields[fieldLat])
	if err != nil {
		return Fix{}, err
	}
	lonRaw, err := parseNumber(line, "longitude", fields[fieldLon])
	if err != nil {
		return Fix{}, err
	}
	alt, err := parseNumber(line, "altitude", fields[fieldAlt])
	if err != nil {
		return Fix{}, err
	}

	fix := Fix{
		Time:      fields[fieldTime],
		Latitude:  ToDecimalDegrees(latRaw, fields[fieldLatHemi]),
		Longitude: ToDecimalDegrees(lonRaw, fields[fieldLonHemi]),
		Altitude:  alt,
	}

	if !within(fix.Latitude, -90, 90) {
		return Fix{}, reject(line, ReasonRange, "latitude %.6f", fix.Latitude)
	}
	if !within(fix.Longitude, -180, 180) {
		return Fix{}, reject(line, ReasonRange, "longitude %.6f", fix.Longitude)
	}
	if !within(fix.Altitude, MinAltitude, MaxAltitude) {
		return Fix{}, reject(line, ReasonRange, "altitude %.3f", fix.Altitude)
	}

	return fix, nil
}

// ToDecimalDegrees converts a ddmm.mmmm / dddmm.mmmm magnitude to signed
// decimal degrees. Hemisphere "S" or "W" yields a negative result.
func ToDecimalDegrees(raw float64, hemisphere string) float64 {
	deg := math.Trunc(raw / 100)
	minutes := raw - deg*100
	decimal := deg + minutes/60
	if hemisphere == "S" || hemisphere == "W" {
		decimal = -decimal
	}
	return decimal
}

// ToRawMagnitude is the inverse of ToDecimalDegrees, ignoring sign.
func ToRawMagnitude(decimal float64) float64 {
	decimal = math.Abs(decimal)
	deg := math.Trunc(decimal)
	return deg*100 + (decimal-deg)*60
}

func checkCritical(line string, fields []string) error {
	critical := []struct {
		name  string
		index int
	}{
		{"latitude", fieldLat},
		{"latitude hemisphere", fieldLatHemi},
		{"longitude", fieldLon},
		{"longitude hemisphere", fieldLonHemi},
		{"altitude", fieldAlt},
	}
	for _, c := range critical {
		if c.index >= len(fields) || fields[c.index] == "" {
			return reject(line, ReasonEmptyField, "%s", c.name)
		}
	}
	return nil
}

func parseNumber(line, name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, reject(line, ReasonNotNumeric, "%s %q", name, s)
	}
	return v, nil
}

// within is false for NaN.
func within(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}
