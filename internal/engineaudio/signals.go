package engineaudio

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"carinspect/internal/config"
	"carinspect/internal/vision"
)

type band struct{ lo, hi float64 }

func bandOf(edges []float64) band {
	if len(edges) != 2 {
		return band{}
	}
	return band{edges[0], edges[1]}
}

// term rescales value against offset and scale and weights the clamped result.
func term(value, offset, scale, weight float64) float64 {
	return vision.Clip01((value-offset)/scale) * weight
}

// AnalyzeSamples scores a mono waveform in [-1, 1]. Clips shorter than
// cfg.MinSeconds report an unknown risk instead of a score.
func AnalyzeSamples(samples []float64, sampleRate int, cfg config.Audio) Report {
	if sampleRate <= 0 {
		sampleRate = cfg.SampleRate
	}
	duration := float64(len(samples)) / float64(sampleRate)
	if duration < cfg.MinSeconds {
		return Report{
			OK:        true,
			Message:   "Audio is too short; risk analysis is limited.",
			RiskLevel: RiskUnknown,
			Signals:   Signals{DurationSeconds: duration},
			Hints:     []string{"Record 5-10 seconds steadily with the hood open so the engine sound is clear."},
		}
	}

	sig := Signals{DurationSeconds: duration}
	n := float64(len(samples))
	sig.RMS = math.Sqrt(floats.Dot(samples, samples) / n)
	var clipped int
	for _, v := range samples {
		a := math.Abs(v)
		sig.Peak = math.Max(sig.Peak, a)
		if a > cfg.ClipLevel {
			clipped++
		}
	}
	sig.ClippingRatio = float64(clipped) / n
	var diffSum float64
	for i := 1; i < len(samples); i++ {
		diffSum += math.Abs(samples[i] - samples[i-1])
	}
	sig.Roughness = diffSum / float64(len(samples)-1)

	energies := bandEnergies(samples, sampleRate, bandOf(cfg.LowBandHz), bandOf(cfg.MidBandHz), bandOf(cfg.HighBandHz))
	sig.BandLow, sig.BandMid, sig.BandHigh = energies[0], energies[1], energies[2]

	sig.RiskScore = vision.Clip01(
		term(sig.BandHigh, cfg.HighBandOffset, cfg.HighBandScale, cfg.HighBandWeight) +
			term(sig.Roughness, cfg.RoughnessOffset, cfg.RoughnessScale, cfg.RoughnessWeight) +
			term(sig.ClippingRatio, cfg.ClippingOffset, cfg.ClippingScale, cfg.ClippingWeight))

	report := Report{OK: true, Message: "Engine sound analysis complete.", Signals: sig, Hints: []string{}}
	switch {
	case sig.RiskScore >= cfg.High:
		report.RiskLevel = RiskHigh
	case sig.RiskScore >= cfg.Medium:
		report.RiskLevel = RiskMedium
	default:
		report.RiskLevel = RiskLow
	}
	if sig.ClippingRatio > cfg.ClipHint {
		report.Hints = append(report.Hints, "The recording is clipping; hold the phone a little further away and record again.")
	}
	if sig.BandHigh > cfg.HighBandHint {
		report.Hints = append(report.Hints, "High-frequency energy is elevated; belt, alternator, or resonance noise is possible (not a definitive diagnosis).")
	}
	if sig.Roughness > cfg.RoughnessHint {
		report.Hints = append(report.Hints, "The sound looks irregular or harsh; record 5-10 seconds steadily at idle.")
	}
	return report
}

// bandEnergies returns each band's share of the Hann-windowed spectrum
// energy, band edges inclusive. Clips under half a second report zeros. The
// transform length is trimmed to a 2-3-5 smooth size.
func bandEnergies(samples []float64, sampleRate int, bands ...band) []float64 {
	out := make([]float64, len(bands))
	if len(samples) < sampleRate/2 {
		return out
	}
	n := smoothLength(len(samples))
	windowed := make([]float64, n)
	for i := range windowed {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		windowed[i] = samples[i] * w
	}
	coeffs := fourier.NewFFT(n).Coefficients(nil, windowed)

	total := 1e-9
	power := make([]float64, len(coeffs))
	for k, c := range coeffs {
		power[k] = real(c)*real(c) + imag(c)*imag(c)
		total += power[k]
	}
	for k, p := range power {
		freq := float64(k) * float64(sampleRate) / float64(n)
		for i, b := range bands {
			if freq >= b.lo && freq <= b.hi {
				out[i] += p
			}
		}
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// smoothLength returns the largest m <= n whose only prime factors are 2, 3,
// and 5.
func smoothLength(n int) int {
	for m := n; m > 1; m-- {
		r := m
		for _, p := range []int{2, 3, 5} {
			for r%p == 0 {
				r /= p
			}
		}
		if r == 1 {
			return m
		}
	}
	return n
}
