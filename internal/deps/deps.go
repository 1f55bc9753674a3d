package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"vidslides/internal/config"
)

// Requirement names an external binary vidslides shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the binaries the configured pipeline needs. The
// downloaders are optional individually since a deployment may only ever
// see one platform.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Extraction.FFmpegBinary, Description: "Decodes video frames for slide extraction"},
		{Name: "FFprobe", Command: cfg.Extraction.FFprobeBinary, Description: "Reads video duration and frame rate"},
		{Name: "BBDown", Command: cfg.Downloader.BBDownExecutable, Description: "Downloads Bilibili videos", Optional: true},
		{Name: "yt-dlp", Command: cfg.Downloader.YtDlpExecutable, Description: "Downloads YouTube videos", Optional: true},
	}
}

// CheckBinaries resolves each requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(req))
	}
	return results
}

// Missing returns the required (non optional) dependencies that are absent.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}

func check(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Command = resolved
	status.Available = true
	return status
}
