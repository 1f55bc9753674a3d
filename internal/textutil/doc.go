// Package textutil provides small text helpers shared by the pipeline and the
// CLI: filename sanitization for generated decks and title cleanup for
// downloader output.
package textutil
