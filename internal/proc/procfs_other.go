//go:build !linux

package proc

import (
	"github.com/pkg/errors"
)

// NewProcFS is only available on Linux
func NewProcFS(mount string) (Inspector, error) {
	return nil, errors.New("procfs backend is only supported on linux")
}
