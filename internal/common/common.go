// Copyright 2016 Aleksandr Demakin. All rights reserved.

package common

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// OpenOrCreate performs open/create file operation according to the given mode.
//	creator is the function, which performs actual operation.
//		if its argument is true, it must create an object, otherwise it must open an existing one.
//	flag is the combination of flags from the 'os' package:
//		if flag == 0, the object must exist, and creator(false) is called once.
//		if flag == O_CREATE|O_EXCL, the object must not exist, and creator(true) is called once.
//		if flag == O_CREATE, both steps are retried several times,
//		as the object can be created or deleted by a concurrent process between the attempts.
// OpenOrCreate returns true, if the object was created by this call.
func OpenOrCreate(creator func(create bool) error, flag int) (bool, error) {
	switch flag & (os.O_CREATE | os.O_EXCL) {
	case 0:
		return false, creator(false)
	case os.O_CREATE | os.O_EXCL:
		if err := creator(true); err != nil {
			return false, err
		}
		return true, nil
	case os.O_CREATE:
		const attempts = 16
		var err error
		for attempt := 0; attempt < attempts; attempt++ {
			if err = creator(true); !os.IsExist(err) {
				return err == nil, err
			}
			if err = creator(false); !os.IsNotExist(err) {
				return false, err
			}
		}
		return false, err
	default:
		return false, errors.Errorf("invalid open flags 0x%x", flag)
	}
}

// SyscallErrHasCode returns true, if the given error is a syscall error
// with the given errno.
func SyscallErrHasCode(err error, code syscall.Errno) bool {
	if sysErr, ok := err.(*os.SyscallError); ok {
		if errno, ok := sysErr.Err.(syscall.Errno); ok {
			return errno == code
		}
	}
	return false
}
