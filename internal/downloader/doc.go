// Package downloader fetches source videos with external command line tools.
//
// Classify maps a URL onto a Source using host patterns. A Registry then picks
// the Downloader capability for that source: BBDown for Bilibili and unknown
// hosts, yt-dlp for YouTube. Both implementations share the same completion
// rule: a run fails only when the tool exits non-zero and no usable video file
// is left in the output directory.
package downloader
