// Copyright 2015 Aleksandr Demakin. All rights reserved.

package sync

import (
	"os"
	"time"

	"github.com/pkg/errors"
)

// all implementations must satisfy the TimedIPCLocker interface.
var (
	_ TimedIPCLocker = (*Mutex)(nil)
)

// Mutex is a system-wide, named mutual exclusion lock. Any process,
// which knows the name, can acquire and release it. The wait is
// unbounded unless LockTimeout is used.
type Mutex struct {
	*mutex
}

// NewMutex opens or creates a new named mutex.
//	name - object name.
//	flag - combination of open flags from the 'os' package:
//		0 opens an existing mutex,
//		os.O_CREATE|os.O_EXCL creates a new one, failing if it exists,
//		os.O_CREATE opens an existing mutex or creates a new one.
//	perm - object's permission bits.
// A newly created mutex is not held by anyone.
func NewMutex(name string, flag int, perm os.FileMode) (*Mutex, error) {
	if !checkMutexFlags(flag) {
		return nil, errors.Errorf("invalid mutex open flags 0x%x", flag)
	}
	m, err := newMutex(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &Mutex{m}, nil
}

// Lock locks m. If the lock is already in use, the calling goroutine blocks
// until the mutex is available. Lock panics on any error.
func (m *Mutex) Lock() {
	m.mutex.lock()
}

// LockTimeout tries to lock m, waiting for not more, than timeout.
// It returns false, if the timeout expired. It panics on any other error.
func (m *Mutex) LockTimeout(timeout time.Duration) bool {
	return m.mutex.lockTimeout(timeout)
}

// Unlock unlocks m. Unlock panics on any error.
func (m *Mutex) Unlock() {
	m.mutex.unlock()
}

// Close closes the current instance, so that it cannot be used anymore.
// The mutex itself stays in the system while other processes hold it open.
func (m *Mutex) Close() error {
	return m.mutex.close()
}

// Destroy closes the mutex and removes it permanently.
func (m *Mutex) Destroy() error {
	return m.mutex.destroy()
}

// DestroyMutex permanently removes the mutex with the given name.
// It is not an error, if the mutex does not exist.
func DestroyMutex(name string) error {
	return destroyMutex(name)
}
