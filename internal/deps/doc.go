// Package deps checks that the external binaries used by the downloaders and
// the frame decoder are installed.
package deps
