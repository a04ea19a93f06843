package ioutils

import (
	"os"
	"time"
)

// FileTimes holds a file's access and modification times.
type FileTimes struct {
	Access time.Time
	Modify time.Time
}

// ReadFileTimes captures the access and modification times of path.
// Where the platform does not expose access time, the modification time
// is used for both.
func ReadFileTimes(path string) (FileTimes, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileTimes{}, err
	}
	return FileTimes{
		Access: accessTime(path, info),
		Modify: info.ModTime(),
	}, nil
}

// Apply restores the captured times on path.
func (t FileTimes) Apply(path string) error {
	return os.Chtimes(path, t.Access, t.Modify)
}
