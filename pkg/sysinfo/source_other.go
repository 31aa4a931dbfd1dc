//go:build !linux

package sysinfo

import "github.com/ja7ad/sysinfo/pkg/process"

func defaultSource(*options) (process.Source, int, error) {
	return nil, 0, ErrUnsupported
}
