package detector

import "regexp"

// tagPattern captures the talker and type of an NMEA 0183 sentence tag.
var tagPattern = regexp.MustCompile(`^\$([A-Z]{2})([A-Z]{3}),`)

// Talkers maps NMEA talker IDs to constellation names.
var Talkers = map[string]string{
	"GP": "GPS",
	"GL": "GLONASS",
	"GA": "Galileo",
	"GB": "BeiDou",
	"BD": "BeiDou",
	"GQ": "QZSS",
	"GI": "NavIC",
	"GN": "Multi-GNSS",
}

// SentenceType describes a known NMEA sentence type.
type SentenceType struct {
	Code string
	Name string

	// Positioning is true for types this tool can plot.
	Positioning bool
}

// DefaultTypes returns the sentence types recognized by name.
func DefaultTypes() map[string]SentenceType {
	types := []SentenceType{
		{Code: "GGA", Name: "Global positioning system fix data", Positioning: true},
		{Code: "RMC", Name: "Recommended minimum specific GNSS data"},
		{Code: "GLL", Name: "Geographic position, latitude/longitude"},
		{Code: "GSA", Name: "GNSS DOP and active satellites"},
		{Code: "GSV", Name: "GNSS satellites in view"},
		{Code: "VTG", Name: "Course over ground and ground speed"},
		{Code: "GST", Name: "GNSS pseudorange error statistics"},
		{Code: "ZDA", Name: "Time and date"},
		{Code: "TXT", Name: "Text transmission"},
	}
	out := make(map[string]SentenceType, len(types))
	for _, t := range types {
		out[t.Code] = t
	}
	return out
}
