// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux

package common

import (
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// SysV ipc flags and commands.
const (
	IpcCreate = 0x00000200 /* create if key is nonexistent */
	IpcExcl   = 0x00000400 /* fail if key exists */

	IpcRmid = 0 /* remove resource */
	IpcSet  = 1 /* set ipc_perm options */
	IpcStat = 2 /* get ipc_perm options */
)

// Key is a SysV ipc key.
type Key uint64

// KeyForName generates a SysV ipc key for the given name.
// It creates a temporary file, if it does not exist,
// and runs ftok over it.
func KeyForName(name string) (Key, error) {
	name = TmpFilename(name)
	file, err := os.Create(name)
	if err != nil {
		return 0, errors.New("invalid name for a key")
	}
	file.Close()
	k, err := Ftok(name)
	if err != nil {
		os.Remove(name)
		return 0, errors.New("invalid name for a key")
	}
	return k, nil
}

// TmpFilename returns a path for the temporary file associated
// with the given ipc name.
func TmpFilename(name string) string {
	return os.TempDir() + "/" + name
}

// Ftok generates a SysV ipc key from the file's stat data.
func Ftok(name string) (Key, error) {
	var st unix.Stat_t
	if err := unix.Stat(name, &st); err != nil {
		return Key(0), err
	}
	return Key(uint64(st.Ino)&0xFFFF | ((uint64(st.Dev) & 0xFF) << 16)), nil
}

// TimeoutToTimeSpec converts a timeout into a unix.Timespec pointer,
// or nil, if the timeout is negative, meaning 'wait forever'.
func TimeoutToTimeSpec(timeout time.Duration) *unix.Timespec {
	if timeout >= 0 {
		ts := unix.NsecToTimespec(timeout.Nanoseconds())
		return &ts
	}
	return nil
}

// IsInterruptedSyscallErr returns true, if the given error
// is an EINTR syscall error.
func IsInterruptedSyscallErr(err error) bool {
	return SyscallErrHasCode(err, syscall.EINTR)
}

// IsTimeoutErr returns true, if the given error is an EAGAIN syscall error,
// which is returned by timed sem operations on expiration.
func IsTimeoutErr(err error) bool {
	return SyscallErrHasCode(err, syscall.EAGAIN)
}

// UninterruptedSyscall runs a syscall, restarting it on EINTR.
func UninterruptedSyscall(f func() error) error {
	for {
		err := f()
		if !IsInterruptedSyscallErr(err) {
			return err
		}
	}
}

// UninterruptedSyscallTimeout runs a timed syscall, restarting it on EINTR
// with the elapsed time subtracted from the timeout. A negative timeout
// means 'wait forever'.
func UninterruptedSyscallTimeout(f func(time.Duration) error, timeout time.Duration) error {
	for {
		opStart := time.Now()
		err := f(timeout)
		if !IsInterruptedSyscallErr(err) {
			return err
		}
		if timeout >= 0 {
			elapsed := time.Since(opStart)
			if timeout > elapsed {
				timeout -= elapsed
			} else {
				timeout = 0
			}
		}
	}
}
