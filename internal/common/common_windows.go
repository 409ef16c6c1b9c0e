// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build windows

package common

import (
	"syscall"
)

const (
	cERROR_TIMEOUT = syscall.Errno(1460)
)

// IsTimeoutErr returns true, if the given error is a timeout syscall error.
func IsTimeoutErr(err error) bool {
	return SyscallErrHasCode(err, cERROR_TIMEOUT)
}
