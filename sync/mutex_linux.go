// Copyright 2015 Aleksandr Demakin. All rights reserved.

//go:build linux && (amd64 || arm64)

package sync

import (
	"os"
	"time"

	"github.com/nxgtw/go-shmobj/internal/common"
	"github.com/pkg/errors"
)

// mutex is a named mutex built on a SysV semaphore.
// All operations run with SEM_UNDO, so that the kernel rolls back
// the hold of a process, which terminated without unlocking.
// The next waiter then acquires the mutex as usual, which makes
// an abandoned mutex a recoverable condition.
type mutex struct {
	name string
	id   int
}

func newMutex(name string, flag int, perm os.FileMode) (*mutex, error) {
	k, err := common.KeyForName(name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate a key for the name")
	}
	var id int
	creator := func(create bool) error {
		semFlags := int(perm)
		if create {
			semFlags |= common.IpcCreate | common.IpcExcl
		}
		var creatorErr error
		id, creatorErr = semget(k, 1, semFlags)
		return creatorErr
	}
	created, err := common.OpenOrCreate(creator, flag)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open/create sysv semaphore")
	}
	result := &mutex{name: name, id: id}
	if created {
		// a newly created mutex must be unlocked.
		if err = semAdd(id, 1, 0); err != nil {
			result.destroy()
			return nil, errors.Wrap(err, "failed to set the initial semaphore value")
		}
	}
	return result, nil
}

func (m *mutex) lock() {
	err := common.UninterruptedSyscall(func() error {
		return semAdd(m.id, -1, cSemUndo)
	})
	if err != nil {
		panic(err)
	}
}

func (m *mutex) lockTimeout(timeout time.Duration) bool {
	err := common.UninterruptedSyscallTimeout(func(curTimeout time.Duration) error {
		return semAddTimeout(m.id, -1, cSemUndo, curTimeout)
	}, timeout)
	if err == nil {
		return true
	}
	if common.IsTimeoutErr(err) {
		return false
	}
	panic(err)
}

func (m *mutex) unlock() {
	if err := semAdd(m.id, 1, cSemUndo); err != nil {
		panic(err)
	}
}

// close is a no-op for a sysv semaphore.
func (m *mutex) close() error {
	return nil
}

func (m *mutex) destroy() error {
	return removeSysVSemaByID(m.id, m.name)
}

func destroyMutex(name string) error {
	k, err := common.KeyForName(name)
	if err != nil {
		return errors.Wrap(err, "failed to generate a key for the name")
	}
	id, err := semget(k, 1, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "failed to get semaphore id")
	}
	return removeSysVSemaByID(id, name)
}

func removeSysVSemaByID(id int, name string) error {
	err := semctl(id, 0, common.IpcRmid)
	if err == nil && len(name) > 0 {
		if err = os.Remove(common.TmpFilename(name)); os.IsNotExist(err) {
			err = nil
		} else if err != nil {
			err = errors.Wrap(err, "failed to remove temporary file")
		}
	} else if err != nil && os.IsNotExist(err) {
		err = nil
	} else if err != nil {
		err = errors.Wrap(err, "semctl failed")
	}
	return err
}
