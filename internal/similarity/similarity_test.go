package similarity_test

import (
	"image"
	"math"
	"testing"

	"vidslides/internal/similarity"
)

func splitFrame(vertical bool) similarity.Frame {
	frame := similarity.NewFrame(320, 180)
	if vertical {
		frame.Fill(image.Rect(0, 0, 160, 180), 255, 255, 255)
	} else {
		frame.Fill(image.Rect(0, 0, 320, 90), 255, 255, 255)
	}
	return frame
}

func TestFirstFrameIsNovelWithoutScore(t *testing.T) {
	tracker, err := similarity.NewTracker(0.95)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	decision := tracker.Observe(splitFrame(true))
	if !decision.Novel {
		t.Fatal("expected first frame to be novel")
	}
	if decision.Similarity != nil {
		t.Fatalf("expected nil similarity for first frame, got %v", *decision.Similarity)
	}
}

func TestIdenticalFramesShortCircuit(t *testing.T) {
	tracker, _ := similarity.NewTracker(0.95)
	frame := splitFrame(true)
	tracker.Observe(frame)
	decision := tracker.Observe(frame.Clone())
	if decision.Novel {
		t.Fatal("identical frame must not be novel")
	}
	if decision.Similarity == nil || *decision.Similarity != 1.0 {
		t.Fatalf("expected similarity 1.0, got %v", decision.Similarity)
	}
}

func TestSceneChangeIsNovel(t *testing.T) {
	tracker, _ := similarity.NewTracker(0.95)
	tracker.Observe(splitFrame(true))
	decision := tracker.Observe(splitFrame(false))
	if !decision.Novel {
		t.Fatal("expected scene change to be novel")
	}
	if decision.Similarity == nil {
		t.Fatal("expected similarity score")
	}
	if got := *decision.Similarity; math.Abs(got-0.5) > 0.02 {
		t.Fatalf("expected similarity near 0.5 for quarter overlap, got %.4f", got)
	}
}

func TestThresholdIsStrict(t *testing.T) {
	a := similarity.Signature{Fingerprint: "a", Features: []float64{1, 0}}
	b := similarity.Signature{Fingerprint: "b", Features: []float64{1, 0}}

	tracker, _ := similarity.NewTracker(1.0)
	tracker.ObserveSignature(a)
	if decision := tracker.ObserveSignature(b); decision.Novel {
		t.Fatal("similarity equal to threshold must not be novel")
	}
}

// The reference follows every inspected frame, so gradual drift never yields
// a new slide even when the accumulated change is larger than the threshold.
func TestComparesAgainstLastInspectedFrame(t *testing.T) {
	step := 10 * math.Pi / 180
	signature := func(name string, angle float64) similarity.Signature {
		return similarity.Signature{Fingerprint: name, Features: []float64{math.Cos(angle), math.Sin(angle)}}
	}

	tracker, _ := similarity.NewTracker(0.95)
	tracker.ObserveSignature(signature("a", 0))
	for i, name := range []string{"b", "c", "d"} {
		decision := tracker.ObserveSignature(signature(name, float64(i+1)*step))
		if decision.Novel {
			t.Fatalf("frame %s: drift of one step must not be novel (similarity %.4f)", name, *decision.Similarity)
		}
	}

	// Against the first frame the last one differs by 30 degrees.
	if got := similarity.Cosine([]float64{1, 0}, []float64{math.Cos(3 * step), math.Sin(3 * step)}); got >= 0.95 {
		t.Fatalf("expected accumulated drift below threshold, got %.4f", got)
	}
}

func TestShortCircuitKeepsReference(t *testing.T) {
	tracker, _ := similarity.NewTracker(0.95)
	tracker.ObserveSignature(similarity.Signature{Fingerprint: "same", Features: []float64{1, 0}})
	tracker.ObserveSignature(similarity.Signature{Fingerprint: "same", Features: []float64{0, 1}})
	decision := tracker.ObserveSignature(similarity.Signature{Fingerprint: "other", Features: []float64{1, 0}})
	if decision.Novel || decision.Similarity == nil || *decision.Similarity != 1 {
		t.Fatalf("expected reference from first frame to survive fingerprint match, got %+v", decision)
	}
}

func TestCosineEdgeCases(t *testing.T) {
	cases := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "zero norm", a: []float64{0, 0}, b: []float64{1, 1}, want: 0},
		{name: "length mismatch", a: []float64{1}, b: []float64{1, 1}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
		{name: "opposite clamps", a: []float64{1, 0}, b: []float64{-1, 0}, want: 0},
		{name: "parallel", a: []float64{2, 2}, b: []float64{1, 1}, want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := similarity.Cosine(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Cosine = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBlackFramesCompareAsIdentical(t *testing.T) {
	tracker, _ := similarity.NewTracker(0.95)
	tracker.Observe(similarity.NewFrame(64, 64))
	decision := tracker.Observe(similarity.NewFrame(64, 64))
	if decision.Novel || decision.Similarity == nil || *decision.Similarity != 1 {
		t.Fatalf("expected identical black frames to short-circuit, got %+v", decision)
	}
}

func TestFeaturesShapeAndRange(t *testing.T) {
	features := similarity.Features(splitFrame(false))
	if len(features) != similarity.FeatureSize*similarity.FeatureSize {
		t.Fatalf("expected %d features, got %d", similarity.FeatureSize*similarity.FeatureSize, len(features))
	}
	for i, v := range features {
		if v < 0 || v > 1 {
			t.Fatalf("feature %d out of range: %v", i, v)
		}
	}
	if fp := similarity.Fingerprint(splitFrame(false)); len(fp) != 32 {
		t.Fatalf("expected md5 hex fingerprint, got %q", fp)
	}
}

func TestNewTrackerRejectsInvalidThreshold(t *testing.T) {
	for _, threshold := range []float64{-0.1, 1.1} {
		if _, err := similarity.NewTracker(threshold); err == nil {
			t.Fatalf("expected error for threshold %v", threshold)
		}
	}
}

func TestFrameValidate(t *testing.T) {
	if err := similarity.NewFrame(4, 4).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := similarity.Frame{Width: 4, Height: 4, Pix: make([]byte, 10)}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected size mismatch error")
	}
}
