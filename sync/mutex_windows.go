// Copyright 2015 Aleksandr Demakin. All rights reserved.

//go:build windows

package sync

import (
	"os"
	"time"

	"github.com/nxgtw/go-shmobj/internal/common"
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// mutex is built on a named windows auto-reset event.
// It is not possible to use a native named windows mutex, because
// goroutines migrate between OS threads, and a windows mutex must
// be released by the same thread it was locked on.
// An event carries no abandonment information: if a holder dies,
// the event stays unsignaled until some process signals it again.
type mutex struct {
	handle windows.Handle
}

func newMutex(name string, flag int, perm os.FileMode) (*mutex, error) {
	var handle windows.Handle
	creator := func(create bool) error {
		var err error
		if create {
			// initial state 1 = unlocked.
			handle, err = sysCreateEvent(name, nil, 0, 1)
			if os.IsExist(err) {
				windows.CloseHandle(handle)
				return err
			}
		} else {
			handle, err = sysOpenEvent(name, windows.SYNCHRONIZE|cEVENT_MODIFY_STATE, 0)
		}
		if handle != windows.Handle(0) {
			return nil
		}
		return err
	}
	if _, err := common.OpenOrCreate(creator, flag); err != nil {
		return nil, errors.Wrap(err, "failed to open/create named event")
	}
	return &mutex{handle: handle}, nil
}

func (m *mutex) lock() {
	ev, err := windows.WaitForSingleObject(m.handle, windows.INFINITE)
	if ev != windows.WAIT_OBJECT_0 {
		if err != nil {
			panic(err)
		}
		panic(errors.Errorf("invalid wait state for a mutex: %d", ev))
	}
}

func (m *mutex) lockTimeout(timeout time.Duration) bool {
	waitMillis := uint32(windows.INFINITE)
	if timeout >= 0 {
		waitMillis = uint32(timeout.Nanoseconds() / 1e6)
	}
	ev, err := windows.WaitForSingleObject(m.handle, waitMillis)
	switch ev {
	case windows.WAIT_OBJECT_0:
		return true
	case uint32(windows.WAIT_TIMEOUT):
		return false
	default:
		if err != nil {
			panic(err)
		}
		panic(errors.Errorf("invalid wait state for a mutex: %d", ev))
	}
}

func (m *mutex) unlock() {
	if err := windows.SetEvent(m.handle); err != nil {
		panic("failed to unlock mutex: " + err.Error())
	}
}

func (m *mutex) close() error {
	if m.handle == windows.Handle(0) {
		return nil
	}
	err := windows.CloseHandle(m.handle)
	m.handle = windows.Handle(0)
	return err
}

// destroy closes the handle. A named event is removed by the system,
// when its last handle is closed.
func (m *mutex) destroy() error {
	return m.close()
}

// destroyMutex is a no-op on windows, as the event is destroyed,
// when its last handle is closed.
func destroyMutex(name string) error {
	return nil
}
