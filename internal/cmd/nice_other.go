//go:build !linux

package cmd

import "errors"

func setNice(int) error {
	return errors.New("setting niceness is only supported on linux")
}
