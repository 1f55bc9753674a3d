package similarity

import (
	"crypto/md5"
	"encoding/hex"
	"math"
)

const (
	// FingerprintSize is the edge length of the grid hashed for exact matching.
	FingerprintSize = 64
	// FeatureSize is the edge length of the grid used for cosine comparison.
	FeatureSize = 128
)

// Signature is the comparable form of one frame.
type Signature struct {
	Fingerprint string
	Features    []float64
}

// Compute derives the fingerprint and the feature vector for a frame.
func Compute(frame Frame) Signature {
	gray := frame.luma()
	return Signature{
		Fingerprint: fingerprintOf(gray, frame.Width, frame.Height),
		Features:    featuresOf(gray, frame.Width, frame.Height),
	}
}

// Fingerprint hashes a 64x64 grayscale rendition of the frame.
func Fingerprint(frame Frame) string {
	return fingerprintOf(frame.luma(), frame.Width, frame.Height)
}

// Features returns the equalized, unit-range 128x128 intensity vector.
func Features(frame Frame) []float64 {
	return featuresOf(frame.luma(), frame.Width, frame.Height)
}

func fingerprintOf(gray []uint8, w, h int) string {
	small := resizeGray(gray, w, h, FingerprintSize, FingerprintSize)
	sum := md5.Sum(small)
	return hex.EncodeToString(sum[:])
}

func featuresOf(gray []uint8, w, h int) []float64 {
	small := resizeGray(gray, w, h, FeatureSize, FeatureSize)
	equalizeHistogram(small)
	out := make([]float64, len(small))
	for i, v := range small {
		out[i] = float64(v) / 255.0
	}
	return out
}

// Cosine returns the cosine similarity of two vectors clamped to [0, 1].
// Mismatched lengths and zero-norm vectors yield 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case sim < 0:
		return 0
	case sim > 1:
		return 1
	default:
		return sim
	}
}

// resizeGray downsamples by averaging the source box behind each target pixel.
// Upscaling degenerates to nearest-neighbour sampling.
func resizeGray(src []uint8, sw, sh, tw, th int) []uint8 {
	out := make([]uint8, tw*th)
	if sw <= 0 || sh <= 0 || len(src) < sw*sh {
		return out
	}
	for ty := 0; ty < th; ty++ {
		y0, y1 := span(ty, sh, th)
		for tx := 0; tx < tw; tx++ {
			x0, x1 := span(tx, sw, tw)
			var sum, count uint32
			for y := y0; y < y1; y++ {
				row := src[y*sw : y*sw+sw]
				for x := x0; x < x1; x++ {
					sum += uint32(row[x])
					count++
				}
			}
			out[ty*tw+tx] = uint8((sum + count/2) / count)
		}
	}
	return out
}

func span(i, source, target int) (int, int) {
	start := i * source / target
	end := (i + 1) * source / target
	if end <= start {
		end = start + 1
	}
	if end > source {
		end = source
		if start >= end {
			start = end - 1
		}
	}
	return start, end
}

// equalizeHistogram spreads intensities over the full 0..255 range in place.
// A plane holding a single intensity is left unchanged.
func equalizeHistogram(plane []uint8) {
	if len(plane) == 0 {
		return
	}
	var hist [256]int
	for _, v := range plane {
		hist[v]++
	}
	first := 0
	for first < 256 && hist[first] == 0 {
		first++
	}
	total := len(plane)
	if hist[first] == total {
		return
	}
	var lut [256]uint8
	scale := 255.0 / float64(total-hist[first])
	cdf := 0
	for i := first + 1; i < 256; i++ {
		cdf += hist[i]
		lut[i] = uint8(math.Round(float64(cdf) * scale))
	}
	for i, v := range plane {
		plane[i] = lut[v]
	}
}
