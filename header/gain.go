package header

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

var ErrInvalidGainValue = errors.New("invalid gain value")

// Gain is a Q7.8 fixed-point decibel value, the representation shared by
// the Opus output-gain field and the R128_TRACK_GAIN/R128_ALBUM_GAIN
// comment tags. A raw value of 256 is +1 dB.
type Gain int16

func (g Gain) Decibels() float64 {
	return float64(g) / 256
}

func (g Gain) IsZero() bool {
	return g == 0
}

func (g Gain) String() string {
	return fmt.Sprintf("%.2f dB", g.Decibels())
}

// TagValue renders the raw value the way it is stored in an R128 tag.
func (g Gain) TagValue() string {
	return strconv.Itoa(int(g))
}

// GainFromDecibels converts a decibel value to Q7.8, rounding to the
// nearest representable value and saturating at the int16 bounds.
func GainFromDecibels(db float64) Gain {
	raw := math.Round(db * 256)
	switch {
	case raw > math.MaxInt16:
		return math.MaxInt16
	case raw < math.MinInt16:
		return math.MinInt16
	}
	return Gain(raw)
}

// ParseGain parses the decimal raw value of an R128 tag. Out-of-range
// values are clamped to the representable bounds per RFC 7845.
func ParseGain(s string) (Gain, error) {
	raw, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidGainValue, s)
	}
	switch {
	case raw > math.MaxInt16:
		return math.MaxInt16, nil
	case raw < math.MinInt16:
		return math.MinInt16, nil
	}
	return Gain(raw), nil
}
