package sensor

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/pkg/errors"

	"compass-tape.klederson.com/internal/heading"
)

// ErrUnsupportedSentence is returned for NMEA sentences that carry no
// magnetic heading.
var ErrUnsupportedSentence = errors.New("sentence carries no magnetic heading")

// decodeBLEPayload reads a notification as three little-endian int16 values
// (raw counts, 6 bytes) or three little-endian float32 values (12 bytes).
func decodeBLEPayload(buf []byte) (heading.MagneticVector, error) {
	var v heading.MagneticVector
	switch len(buf) {
	case 6:
		v.X = float64(int16(binary.LittleEndian.Uint16(buf[0:2])))
		v.Y = float64(int16(binary.LittleEndian.Uint16(buf[2:4])))
		v.Z = float64(int16(binary.LittleEndian.Uint16(buf[4:6])))
	case 12:
		v.X = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4])))
		v.Y = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])))
		v.Z = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[8:12])))
	default:
		return v, errors.Errorf("unexpected notification length %d", len(buf))
	}
	return v, nil
}

// mqttPayload accepts both the mx/my/mz producer schema and plain x/y/z.
type mqttPayload struct {
	Mx *float64 `json:"mx"`
	My *float64 `json:"my"`
	Mz *float64 `json:"mz"`
	X  *float64 `json:"x"`
	Y  *float64 `json:"y"`
	Z  *float64 `json:"z"`
}

func decodeMQTTPayload(b []byte) (heading.MagneticVector, error) {
	var p mqttPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return heading.MagneticVector{}, errors.Wrap(err, "decode magnetometer payload")
	}
	switch {
	case p.Mx != nil && p.My != nil:
		return heading.MagneticVector{X: *p.Mx, Y: *p.My, Z: deref(p.Mz)}, nil
	case p.X != nil && p.Y != nil:
		return heading.MagneticVector{X: *p.X, Y: *p.Y, Z: deref(p.Z)}, nil
	}
	return heading.MagneticVector{}, errors.New("payload has no x/y or mx/my fields")
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// headingFromSentence extracts the heading from an HDG, HDM or HDT line.
// HDT is true rather than magnetic; the tape shows it unchanged.
func headingFromSentence(line string) (float64, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") && !strings.HasPrefix(line, "!") {
		return 0, ErrUnsupportedSentence
	}
	s, err := nmea.Parse(line)
	if err != nil {
		return 0, errors.Wrap(err, "parse nmea sentence")
	}
	switch s.DataType() {
	case nmea.TypeHDG:
		return s.(nmea.HDG).Heading, nil
	case nmea.TypeHDM:
		return s.(nmea.HDM).Heading, nil
	case nmea.TypeHDT:
		return s.(nmea.HDT).Heading, nil
	}
	return 0, ErrUnsupportedSentence
}
