//go:build !linux

package proc

import "github.com/pkg/errors"

func SetChildSubreaper() error {
	return errors.New("child subreaper is only supported on linux")
}
