//go:build linux

package sysinfo

import (
	"github.com/ja7ad/sysinfo/pkg/process"
	"github.com/ja7ad/sysinfo/pkg/system/proc"
)

func defaultSource(o *options) (process.Source, int, error) {
	src, err := proc.NewSource(&proc.Config{Root: o.procRoot, Logger: o.logger})
	if err != nil {
		return nil, 0, err
	}
	return src, src.ClockTicks(), nil
}
