package config

const (
	defaultBaseDir                = "~/.local/share/vidslides"
	defaultLogDirName             = "logs"
	defaultJobsDirName            = "jobs"
	defaultAPIBind                = "127.0.0.1:7490"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultMetadataTimeoutSeconds = 30
	defaultSimilarityThreshold    = 0.95
	defaultMinIntervalSeconds     = 2.0
	defaultImageFormat            = "jpg"
	defaultImageQuality           = 95
	defaultNotifyTimeout          = 10
	defaultNtfyServer             = "https://ntfy.sh"
	defaultBBDownExecutable       = "BBDown"
	defaultYtDlpExecutable        = "yt-dlp"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			BaseDir: defaultBaseDir,
			APIBind: defaultAPIBind,
		},
		Downloader: Downloader{
			MetadataTimeoutSeconds: defaultMetadataTimeoutSeconds,
			KeepDownloadVideo:      true,
		},
		Extraction: Extraction{
			SimilarityThreshold: defaultSimilarityThreshold,
			MinIntervalSeconds:  defaultMinIntervalSeconds,
			SkipFirstSeconds:    0,
			ImageFormat:         defaultImageFormat,
			ImageQuality:        defaultImageQuality,
			FillMode:            true,
			FFmpegBinary:        "ffmpeg",
			FFprobeBinary:       "ffprobe",
		},
		Notifications: Notifications{
			Server:         defaultNtfyServer,
			RequestTimeout: defaultNotifyTimeout,
			JobCompleted:   true,
			JobFailed:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
