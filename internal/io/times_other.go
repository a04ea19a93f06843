//go:build !linux

package ioutils

import (
	"os"
	"time"
)

func accessTime(_ string, info os.FileInfo) time.Time {
	return info.ModTime()
}
