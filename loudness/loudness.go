// Package loudness implements ITU-R BS.1770-4 loudness measurement:
// K-weighting prefilters, 100 ms mean-square windows and the gated
// integration used for program loudness. Windows from several inputs can
// be concatenated before gating, which is how album loudness differs
// from averaging per-track results.
package loudness

import "math"

const (
	// WindowsPerSecond fixes the 100 ms analysis window.
	WindowsPerSecond = 10
	// Gating blocks are 400 ms with 75% overlap, one window of hop.
	blockWindows = 4

	absoluteGateLUFS = -70.0
	relativeGateLU   = 10.0
	lufsOffset       = -0.691
)

// Loudness converts a mean-square power to LUFS.
func Loudness(power float64) float64 {
	return lufsOffset + 10*math.Log10(power)
}

// Gated computes integrated loudness over combined 100 ms window powers.
// Returns NaN when no block passes the gates, which happens for silence
// or for inputs shorter than one gating block.
func Gated(windows []float64) float64 {
	if len(windows) < blockWindows {
		return math.NaN()
	}
	blocks := make([]float64, 0, len(windows)-blockWindows+1)
	var sum float64
	for i, w := range windows {
		sum += w
		if i >= blockWindows {
			sum -= windows[i-blockWindows]
		}
		if i >= blockWindows-1 {
			blocks = append(blocks, sum/blockWindows)
		}
	}

	absGated := blocks[:0:0]
	var absSum float64
	for _, b := range blocks {
		if Loudness(b) > absoluteGateLUFS {
			absGated = append(absGated, b)
			absSum += b
		}
	}
	if len(absGated) == 0 {
		return math.NaN()
	}

	threshold := Loudness(absSum/float64(len(absGated))) - relativeGateLU
	var relSum float64
	var relCount int
	for _, b := range absGated {
		if Loudness(b) > threshold {
			relSum += b
			relCount++
		}
	}
	if relCount == 0 {
		return math.NaN()
	}
	return Loudness(relSum / float64(relCount))
}

// Combine sums per-channel window powers into the combined gating
// windows. Mono power is doubled so a mono file measures the same as the
// equivalent dual-mono stereo file. Lengths are truncated to the shortest
// channel.
func Combine(channels [][]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	n := len(channels[0])
	for _, ch := range channels[1:] {
		n = min(n, len(ch))
	}
	scale := 1.0
	if len(channels) == 1 {
		scale = 2.0
	}
	out := make([]float64, n)
	for _, ch := range channels {
		for i := range out {
			out[i] += scale * ch[i]
		}
	}
	return out
}
