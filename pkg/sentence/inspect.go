package sentence

import (
	"fmt"

	nmea "github.com/adrianmo/go-nmea"
)

// Quality holds the receiver-reported fix metadata of a GGA sentence.
type Quality struct {
	FixQuality string  `json:"fix_quality"`
	Satellites int64   `json:"satellites"`
	HDOP       float64 `json:"hdop"`
	Separation float64 `json:"geoid_separation"`
}

// Inspect decodes line with a full NMEA decoder, verifying its checksum, and
// returns the fix metadata that the flat decoder ignores.
func Inspect(line string) (Quality, error) {
	s, err := nmea.Parse(line)
	if err != nil {
		return Quality{}, fmt.Errorf("decoding nmea: %w", err)
	}
	gga, ok := s.(nmea.GGA)
	if !ok {
		return Quality{}, fmt.Errorf("decoding nmea: unexpected sentence type %s", s.DataType())
	}
	return Quality{
		FixQuality: gga.FixQuality,
		Satellites: gga.NumSatellites,
		HDOP:       gga.HDOP,
		Separation: gga.Separation,
	}, nil
}

// FixQualityName returns a readable label for a GGA fix quality indicator.
func FixQualityName(q string) string {
	switch q {
	case "0":
		return "invalid"
	case "1":
		return "gps"
	case "2":
		return "dgps"
	case "3":
		return "pps"
	case "4":
		return "rtk fixed"
	case "5":
		return "rtk float"
	case "6":
		return "estimated"
	case "7":
		return "manual"
	case "8":
		return "simulation"
	default:
		return "unknown (" + q + ")"
	}
}
