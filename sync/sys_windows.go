// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build windows

package sync

import (
	"os"
	"syscall"
	"unsafe"

	"github.com/nxgtw/go-shmobj/internal/allocator"
	"golang.org/x/sys/windows"
)

const (
	cEVENT_MODIFY_STATE = 0x0002
)

var (
	modkernel32     = windows.NewLazySystemDLL("kernel32.dll")
	procOpenEvent   = modkernel32.NewProc("OpenEventW")
	procCreateEvent = modkernel32.NewProc("CreateEventW")
)

func sysOpenEvent(name string, desiredAccess uint32, inheritHandle uint32) (windows.Handle, error) {
	namep, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	h, _, err := procOpenEvent.Call(uintptr(desiredAccess), uintptr(inheritHandle), uintptr(unsafe.Pointer(namep)))
	allocator.Use(unsafe.Pointer(namep))
	if h == 0 {
		if err == windows.ERROR_FILE_NOT_FOUND {
			return 0, &os.PathError{Op: "OpenEvent", Path: name, Err: err}
		}
		return 0, os.NewSyscallError("OpenEvent", err)
	}
	return windows.Handle(h), nil
}

func sysCreateEvent(name string, eventAttrs *windows.SecurityAttributes, manualReset uint32, initialState uint32) (windows.Handle, error) {
	namep, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	h, _, err := procCreateEvent.Call(
		uintptr(unsafe.Pointer(eventAttrs)),
		uintptr(manualReset),
		uintptr(initialState),
		uintptr(unsafe.Pointer(namep)))
	allocator.Use(unsafe.Pointer(eventAttrs))
	allocator.Use(unsafe.Pointer(namep))
	if h == 0 {
		if err == windows.ERROR_FILE_EXISTS || err == windows.ERROR_ALREADY_EXISTS {
			return 0, &os.PathError{Op: "CreateEvent", Path: name, Err: err}
		}
		return 0, os.NewSyscallError("CreateEvent", err)
	}
	if err == windows.ERROR_ALREADY_EXISTS {
		// the event existed before the call; report 'already exists'
		// so that exclusive creation can fail properly.
		return windows.Handle(h), &os.PathError{Op: "CreateEvent", Path: name, Err: err}
	}
	if err == syscall.Errno(0) {
		err = nil
	}
	return windows.Handle(h), err
}
