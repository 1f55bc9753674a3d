package logging

import (
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// JobLog tees a base logger into a per-job JSON log file so a failed job can
// be diagnosed from its own directory.
type JobLog struct {
	Logger *slog.Logger
	Path   string
	file   *os.File
}

// OpenJobLog appends to path and returns a logger writing to both base and
// the file. Debug records always reach the file.
func OpenJobLog(base *slog.Logger, path string) (*JobLog, error) {
	if base == nil {
		base = NewNop()
	}
	file, err := openLogFile(path)
	if err != nil {
		return nil, err
	}
	fileHandler := newJSONHandler(file, slog.LevelDebug, false)
	logger := slog.New(slogmulti.Fanout(base.Handler(), fileHandler))
	return &JobLog{Logger: logger, Path: path, file: file}, nil
}

// Close releases the job log file.
func (j *JobLog) Close() error {
	if j == nil || j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
