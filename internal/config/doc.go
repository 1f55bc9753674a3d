// Package config loads, normalizes, and validates vidslides configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BBDOWN_EXECUTABLE, YTDLP_EXECUTABLE and VIDEO_TO_PPT_ROOT. The Config type
// centralizes every knob the daemon and CLI need: the deployment root that
// manifest paths are relative to, downloader executables, extraction defaults
// and notification settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
