// Package similarity turns decoded video frames into comparable signatures and
// decides whether a frame is visually new.
//
// A Signature pairs an exact-match fingerprint (MD5 of a 64x64 grayscale grid)
// with a feature vector (128x128 grayscale, histogram equalized, scaled to the
// unit range). Tracker keeps the reference signature of the previously
// inspected frame and reports novelty when cosine similarity drops below the
// configured threshold.
//
// The reference always follows the last inspected frame, not the last frame
// that was kept as a slide. Slow drift across many frames therefore never
// triggers a new slide on its own; only frame-to-frame change does.
package similarity
