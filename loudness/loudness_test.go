package loudness_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogain/oggain/loudness"
)

const rate = 48000

func sine(freq float64, amp float64, seconds float64) []float32 {
	n := int(seconds * rate)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	return out
}

func measureMono(t *testing.T, samples []float32) float64 {
	t.Helper()
	m := loudness.NewChannelMeter(rate)
	m.Push(samples)
	return loudness.Gated(loudness.Combine([][]float64{m.Windows()}))
}

func TestSineLoudness(t *testing.T) {
	t.Parallel()

	// A 997 Hz full-scale sine sits in the flat region of the
	// K-weighting curve. Mono doubling brings it near -0.7 LUFS.
	lufs := measureMono(t, sine(997, 1.0, 5))
	assert.InDelta(t, -0.7, lufs, 0.75)
}

func TestAmplitudeRatio(t *testing.T) {
	t.Parallel()

	// Halving amplitude must read almost exactly 6.02 LU lower.
	loud := measureMono(t, sine(997, 0.5, 5))
	quiet := measureMono(t, sine(997, 0.25, 5))
	assert.InDelta(t, 20*math.Log10(2), loud-quiet, 0.01)
}

func TestHighPassRejectsDC(t *testing.T) {
	t.Parallel()

	dc := make([]float32, 5*rate)
	for i := range dc {
		dc[i] = 0.5
	}
	lufs := measureMono(t, dc)
	// DC is removed by the 38 Hz high pass, leaving nothing above the
	// absolute gate.
	assert.True(t, math.IsNaN(lufs) || lufs < -40, "got %v", lufs)
}

func TestSilenceIsNaN(t *testing.T) {
	t.Parallel()

	assert.True(t, math.IsNaN(measureMono(t, make([]float32, 2*rate))))
	assert.True(t, math.IsNaN(loudness.Gated(nil)))
	assert.True(t, math.IsNaN(loudness.Gated([]float64{0.1, 0.1})))
}

func TestGatedConcatenationOfEqualInputs(t *testing.T) {
	t.Parallel()

	m := loudness.NewChannelMeter(rate)
	m.Push(sine(440, 0.5, 3))
	w := loudness.Combine([][]float64{m.Windows()})

	// The seam introduces a few new gating blocks, so allow a little
	// slack beyond exact equality.
	one := loudness.Gated(w)
	both := loudness.Gated(append(append([]float64{}, w...), w...))
	assert.InDelta(t, one, both, 0.05)
}

func TestCombine(t *testing.T) {
	t.Parallel()

	mono := loudness.Combine([][]float64{{0.1, 0.2}})
	assert.Equal(t, []float64{0.2, 0.4}, mono)

	stereo := loudness.Combine([][]float64{{0.1, 0.2, 0.3}, {0.3, 0.1}})
	require.Len(t, stereo, 2)
	assert.InDelta(t, 0.4, stereo[0], 1e-12)
	assert.InDelta(t, 0.3, stereo[1], 1e-12)

	assert.Nil(t, loudness.Combine(nil))
}

func TestMonoMatchesDualMono(t *testing.T) {
	t.Parallel()

	s := sine(997, 0.5, 4)
	mono := measureMono(t, s)

	l := loudness.NewChannelMeter(rate)
	r := loudness.NewChannelMeter(rate)
	l.Push(s)
	r.Push(s)
	stereo := loudness.Gated(loudness.Combine([][]float64{l.Windows(), r.Windows()}))

	assert.InDelta(t, mono, stereo, 1e-9)
}
