// Copyright 2015 Aleksandr Demakin. All rights reserved.

//go:build windows

package shm

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// Shared memory on windows is emulated via regular files
// like it is done in the boost c++ library.
type memoryObject struct {
	file *os.File
}

func newMemoryObject(name string, flag int, perm os.FileMode) (*memoryObject, error) {
	path, err := shmName(name)
	if err != nil {
		return nil, errors.Wrap(err, "shm name failed")
	}
	file, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}
	return &memoryObject{file: file}, nil
}

func (obj *memoryObject) Destroy() error {
	if int(obj.Fd()) >= 0 {
		if err := obj.Close(); err != nil {
			return errors.Wrap(err, "close file failed")
		}
	}
	return destroyMemoryObject(obj.Name())
}

func (obj *memoryObject) Name() string {
	return filepath.Base(obj.file.Name())
}

func (obj *memoryObject) Close() error {
	runtime.SetFinalizer(obj, nil)
	return obj.file.Close()
}

func (obj *memoryObject) Truncate(size int64) error {
	return obj.file.Truncate(size)
}

func (obj *memoryObject) Size() int64 {
	fileInfo, err := obj.file.Stat()
	if err != nil {
		return 0
	}
	return fileInfo.Size()
}

func (obj *memoryObject) Fd() uintptr {
	return obj.file.Fd()
}

func destroyMemoryObject(name string) error {
	path, err := shmName(name)
	if err != nil {
		return errors.Wrap(err, "shm name failed")
	}
	if err = os.Remove(path); os.IsNotExist(err) {
		return nil
	}
	return err
}

func shmName(name string) (string, error) {
	if len(name) == 0 || len(name) >= maxNameLen {
		return "", errors.New("invalid shm name")
	}
	path, err := sharedDirName()
	if err != nil {
		return "", errors.Wrap(err, "failed to get tmp directory name")
	}
	return path + "/" + name, nil
}

func sharedDirName() (string, error) {
	rootPath := os.TempDir() + "/go-shmobj"
	if err := os.Mkdir(rootPath, 0644); err != nil && !os.IsExist(err) {
		return "", err
	}
	return rootPath, nil
}
