package similarity

import "fmt"

// DefaultThreshold is the similarity below which a frame counts as a new slide.
const DefaultThreshold = 0.95

// Decision is the outcome of inspecting one frame.
type Decision struct {
	Novel bool
	// Similarity is nil for the first inspected frame.
	Similarity *float64
}

// Tracker decides frame novelty relative to the previously inspected frame.
// It is not safe for concurrent use.
type Tracker struct {
	threshold float64
	ref       *Signature
}

// NewTracker builds a tracker for the given threshold in [0, 1].
func NewTracker(threshold float64) (*Tracker, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("similarity threshold %.3f outside [0, 1]", threshold)
	}
	return &Tracker{threshold: threshold}, nil
}

// Threshold returns the configured novelty threshold.
func (t *Tracker) Threshold() float64 {
	return t.threshold
}

// Reset forgets the reference frame so the next frame is novel again.
func (t *Tracker) Reset() {
	t.ref = nil
}

// Observe computes the frame signature and records the decision.
func (t *Tracker) Observe(frame Frame) Decision {
	return t.ObserveSignature(Compute(frame))
}

// ObserveSignature applies the novelty rule to a precomputed signature.
//
// An identical fingerprint short-circuits to similarity 1.0 without touching
// the reference. Every other frame becomes the new reference whether or not it
// is novel.
func (t *Tracker) ObserveSignature(sig Signature) Decision {
	if t.ref == nil {
		t.ref = &sig
		return Decision{Novel: true}
	}
	if sig.Fingerprint != "" && sig.Fingerprint == t.ref.Fingerprint {
		exact := 1.0
		return Decision{Novel: false, Similarity: &exact}
	}
	score := Cosine(sig.Features, t.ref.Features)
	t.ref = &sig
	return Decision{Novel: score < t.threshold, Similarity: &score}
}
