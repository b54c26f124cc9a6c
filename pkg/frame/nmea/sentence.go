package nmea

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	gonmea "github.com/adrianmo/go-nmea"

	"github.com/robotalks/mowlink/pkg/checksum"
)

// ErrUnsupported indicates a valid sentence of a type the mower ignores.
var ErrUnsupported = errors.New("nmea: unsupported sentence type")

// knotsToMPS converts speed over ground to m/s.
const knotsToMPS = 0.514444

// GGA is the fix data sentence.
type GGA struct {
	TimeOfDay  time.Duration
	Lat, Lon   float64 // NaN without a fix
	Quality    int
	Satellites int
	HDOP       float64
	Altitude   float64 // m above mean sea level
}

// Fix qualities.
const (
	QualityInvalid = 0
	QualityGPS     = 1
	QualityDGPS    = 2
	QualityRTKFix  = 4
	QualityRTKFlt  = 5
)

// RMC is the recommended minimum sentence.
type RMC struct {
	Time   time.Time
	Valid  bool
	Lat    float64
	Lon    float64
	Speed  float64 // m/s
	Course float64 // degrees
}

// Parse validates the checksum of line ("$...*hh") and decodes it into a
// GGA or RMC. Other valid sentences return ErrUnsupported.
func Parse(line []byte) (interface{}, error) {
	s, err := gonmea.Parse(string(line))
	if err != nil {
		return nil, err
	}
	switch m := s.(type) {
	case gonmea.GGA:
		return ggaOf(m), nil
	case gonmea.RMC:
		return rmcOf(m), nil
	}
	return nil, ErrUnsupported
}

func ggaOf(m gonmea.GGA) GGA {
	g := GGA{
		Lat:        m.Latitude,
		Lon:        m.Longitude,
		Satellites: int(m.NumSatellites),
		HDOP:       m.HDOP,
		Altitude:   m.Altitude,
	}
	g.Quality, _ = strconv.Atoi(m.FixQuality)
	// Empty position fields parse as zero.
	if g.Quality == QualityInvalid || len(m.Fields) < 4 || m.Fields[1] == "" || m.Fields[3] == "" {
		g.Lat, g.Lon = math.NaN(), math.NaN()
	}
	if m.Time.Valid {
		g.TimeOfDay = clockOf(m.Time)
	}
	return g
}

func rmcOf(m gonmea.RMC) RMC {
	r := RMC{
		Valid:  m.Validity == gonmea.ValidRMC,
		Lat:    m.Latitude,
		Lon:    m.Longitude,
		Speed:  m.Speed * knotsToMPS,
		Course: m.Course,
	}
	if m.Date.Valid && m.Time.Valid {
		// Two-digit years pivot at 80: 80..99 are 1980..1999.
		year := 2000 + m.Date.YY
		if m.Date.YY >= 80 {
			year = 1900 + m.Date.YY
		}
		r.Time = time.Date(year, time.Month(m.Date.MM), m.Date.DD, 0, 0, 0, 0, time.UTC).Add(clockOf(m.Time))
	}
	return r
}

func clockOf(t gonmea.Time) time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second +
		time.Duration(t.Millisecond)*time.Millisecond
}

// AppendChecksum completes body (without "$") into a full sentence.
func AppendChecksum(dst []byte, body string) []byte {
	dst = append(dst, '$')
	dst = append(dst, body...)
	return append(dst, fmt.Sprintf("*%02X\r\n", checksum.XOR8([]byte(body)))...)
}
