package loudness

import "math"

// ChannelMeter applies the K-weighting prefilter to one channel and
// accumulates 100 ms mean-square windows. A trailing partial window is
// discarded.
type ChannelMeter struct {
	shelf, highpass biquad

	windowLen int
	count     int
	sumsq     float64
	windows   []float64
}

func NewChannelMeter(sampleRate int) *ChannelMeter {
	return &ChannelMeter{
		shelf:     highShelf(float64(sampleRate)),
		highpass:  highPass(float64(sampleRate)),
		windowLen: sampleRate / WindowsPerSecond,
	}
}

func (m *ChannelMeter) Push(samples []float32) {
	for _, s := range samples {
		x := m.highpass.process(m.shelf.process(float64(s)))
		m.sumsq += x * x
		m.count++
		if m.count == m.windowLen {
			m.windows = append(m.windows, m.sumsq/float64(m.windowLen))
			m.sumsq, m.count = 0, 0
		}
	}
}

func (m *ChannelMeter) Windows() []float64 {
	return m.windows
}

type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x1, f.x2 = x, f.x1
	f.y1, f.y2 = y, f.y1
	return y
}

// Stage 1 of the K-weighting prefilter: the spherical-head high shelf.
// Constants are the exact values behind the BS.1770-4 48 kHz coefficient
// table, refitted to the actual sample rate.
func highShelf(rate float64) biquad {
	const (
		gainDB = 3.999843853973347
		q      = 0.7071752369554196
		center = 1681.974450955533
	)
	vh := math.Pow(10, gainDB/20)
	vb := math.Pow(vh, 0.4996667741545416)
	k := math.Tan(math.Pi * center / rate)
	a0 := 1 + k/q + k*k
	return biquad{
		b0: (vh + vb*k/q + k*k) / a0,
		b1: 2 * (k*k - vh) / a0,
		b2: (vh - vb*k/q + k*k) / a0,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/q + k*k) / a0,
	}
}

// Stage 2: the 38 Hz high pass.
func highPass(rate float64) biquad {
	const (
		q      = 0.5003270373238773
		center = 38.13547087602444
	)
	k := math.Tan(math.Pi * center / rate)
	a0 := 1 + k/q + k*k
	return biquad{
		b0: 1,
		b1: -2,
		b2: 1,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/q + k*k) / a0,
	}
}
