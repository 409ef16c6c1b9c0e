// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmobj

import (
	"io"
	"os"
	"reflect"
	"strings"
	"time"
	"unsafe"

	"github.com/nxgtw/go-shmobj/internal/allocator"
	"github.com/nxgtw/go-shmobj/mmf"
	"github.com/nxgtw/go-shmobj/shm"
	"github.com/nxgtw/go-shmobj/sync"
	"github.com/pkg/errors"
)

// SharedObject is a single value of a plain, fixed-size type T, shared
// between processes via a named memory region of exactly the size of T.
// All access is serialized by a system-wide named lock, so concurrent
// readers and writers in cooperating processes never observe a torn value.
//
// An instance must be initialized exactly once with either Create or Open.
// After that Read, Write and Execute can be called repeatedly. Every
// failure is returned as an *Error and is also appended to the instance's
// diagnostic buffer, see ErrorMessage.
//
// T must be a plain record: its complete state must be its own bytes,
// with no pointers, slices, maps, strings, channels, funcs or interfaces
// anywhere inside. The region holds the raw in-memory layout of T at
// offset 0, so all processes sharing the name must agree on the exact
// layout of T.
type SharedObject[T any] struct {
	name        string
	lockName    string
	perm        os.FileMode
	lockTimeout time.Duration
	size        int
	state       Status
	obj         *shm.MemoryObject
	lock        *sync.Mutex
	diag        []string
}

// New returns a new, uninitialized SharedObject for the region with the
// given name. It fails, if T is not a plain fixed-size type, or if its
// size is zero. No os resources are touched until Create or Open.
func New[T any](name string, opts ...Option) (*SharedObject[T], error) {
	if len(name) == 0 {
		return nil, errors.New("empty region name")
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		return nil, errors.Errorf("type %s is a reference type, the shared value must be a plain record", t)
	}
	if err := allocator.CheckType(t); err != nil {
		return nil, errors.Wrapf(err, "type %s cannot be shared between processes", t)
	}
	if t.Size() == 0 {
		return nil, errors.Errorf("type %s has zero size", t)
	}
	c := defaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	if len(c.lockName) == 0 {
		c.lockName = name
	}
	return &SharedObject[T]{
		name:        name,
		lockName:    c.lockName,
		perm:        c.perm,
		lockTimeout: c.lockTimeout,
		size:        int(t.Size()),
	}, nil
}

// Name returns the name of the region.
func (so *SharedObject[T]) Name() string {
	return so.name
}

// LockName returns the name of the lock guarding the region.
func (so *SharedObject[T]) LockName() string {
	return so.lockName
}

// Size returns the region size in bytes, which is exactly the size of T.
func (so *SharedObject[T]) Size() int {
	return so.size
}

// Status returns the current lifecycle status.
func (so *SharedObject[T]) Status() Status {
	return so.state
}

// ErrorMessage returns the accumulated diagnostic lines of the most
// recent failing operations. It is cleared by a successful Create or
// Open, and by ClearErrorMessage.
func (so *SharedObject[T]) ErrorMessage() string {
	return strings.Join(so.diag, "\n")
}

// ClearErrorMessage discards the accumulated diagnostic lines.
func (so *SharedObject[T]) ClearErrorMessage() {
	so.diag = nil
}

// Create allocates a new named region of exactly the size of T and a new
// named lock, which is not initially held. Both must be brand-new: if the
// region or the lock name is already taken, Create fails and releases
// whatever it allocated. In particular, Create never attaches to a
// pre-existing lock, even though the region was freshly created - the
// lock name must be free. On success the status becomes Created.
//
// Create is permitted only while the status is NotCreated; otherwise it
// fails immediately without touching os resources.
func (so *SharedObject[T]) Create() error {
	if so.state != NotCreated {
		return so.fail(KindInvalidState, errors.Errorf("create is not permitted in status %q", so.state))
	}
	obj, err := shm.NewMemoryObject(so.name, os.O_CREATE|os.O_EXCL|os.O_RDWR, so.perm)
	if err != nil {
		return so.fail(KindRegionAllocation, errors.Wrapf(err, "failed to create region %q", so.name))
	}
	if err = obj.Truncate(int64(so.size)); err != nil {
		obj.Destroy()
		return so.fail(KindRegionAllocation, errors.Wrapf(err, "failed to resize region %q to %d bytes", so.name, so.size))
	}
	lock, err := sync.NewMutex(so.lockName, os.O_CREATE|os.O_EXCL, so.perm)
	if err != nil {
		obj.Destroy()
		return so.fail(KindLockCreation, errors.Wrapf(err, "failed to create lock %q", so.lockName))
	}
	so.obj, so.lock = obj, lock
	so.state = Created
	so.diag = nil
	return nil
}

// Open attaches to an existing region and an existing lock by name.
// It does not create either: if the region or the lock does not exist,
// Open fails and the status stays NotCreated. On success the status
// becomes Opened.
//
// Open is permitted only while the status is NotCreated.
func (so *SharedObject[T]) Open() error {
	if so.state != NotCreated {
		return so.fail(KindInvalidState, errors.Errorf("open is not permitted in status %q", so.state))
	}
	obj, err := shm.NewMemoryObject(so.name, os.O_RDWR, so.perm)
	if err != nil {
		return so.fail(KindNotFound, errors.Wrapf(err, "failed to open region %q", so.name))
	}
	if objSize := obj.Size(); objSize < int64(so.size) {
		obj.Close()
		return so.fail(KindNotFound, errors.Errorf("region %q is %d bytes long, need at least %d", so.name, objSize, so.size))
	}
	lock, err := sync.NewMutex(so.lockName, 0, so.perm)
	if err != nil {
		obj.Close()
		return so.fail(KindNotFound, errors.Wrapf(err, "failed to open lock %q", so.lockName))
	}
	so.obj, so.lock = obj, lock
	so.state = Opened
	so.diag = nil
	return nil
}

// CreateOrOpen attaches to the region and the lock by name, creating
// either one, if it does not exist yet. The region is sized to T on
// creation and size-checked on attach, like Open. The status reflects
// what happened to the region: Created, if this call created it, Opened
// otherwise. Unlike Create, a pre-existing lock name is not an error
// here, the lock is simply attached to.
//
// CreateOrOpen is permitted only while the status is NotCreated.
func (so *SharedObject[T]) CreateOrOpen() error {
	if so.state != NotCreated {
		return so.fail(KindInvalidState, errors.Errorf("create-or-open is not permitted in status %q", so.state))
	}
	obj, created, err := shm.NewMemoryObjectSize(so.name, os.O_CREATE, so.perm, int64(so.size))
	if err != nil {
		return so.fail(KindRegionAllocation, errors.Wrapf(err, "failed to create or open region %q", so.name))
	}
	lock, err := sync.NewMutex(so.lockName, os.O_CREATE, so.perm)
	if err != nil {
		if created {
			obj.Destroy()
		} else {
			obj.Close()
		}
		return so.fail(KindLockCreation, errors.Wrapf(err, "failed to create or open lock %q", so.lockName))
	}
	so.obj, so.lock = obj, lock
	if created {
		so.state = Created
	} else {
		so.state = Opened
	}
	so.diag = nil
	return nil
}

// Read returns a copy of the shared value. It waits for the lock, maps a
// read-only view over the region, copies the value out and releases the
// lock on every path. Read is permitted only after a successful Create
// or Open; otherwise it fails without touching os resources.
func (so *SharedObject[T]) Read() (T, error) {
	var result T
	if err := so.checkAccess("read"); err != nil {
		return result, err
	}
	if err := so.acquire(); err != nil {
		return result, so.fail(KindAccess, err)
	}
	defer so.release()
	region, err := mmf.NewMemoryRegion(so.obj, mmf.MEM_READ_ONLY, 0, so.size)
	if err != nil {
		return result, so.fail(KindAccess, errors.Wrap(err, "failed to map a read view"))
	}
	defer region.Close()
	data, err := allocator.ObjectData(&result)
	if err != nil {
		return result, so.fail(KindAccess, err)
	}
	if _, err = io.ReadFull(mmf.NewMemoryRegionReader(region), data); err != nil {
		return result, so.fail(KindAccess, errors.Wrap(err, "failed to copy the value out of the region"))
	}
	allocator.Use(unsafe.Pointer(&result))
	return result, nil
}

// Write copies the given value into the region at offset 0. It waits for
// the lock, maps a write view, copies the bytes in and releases the lock
// on every path. Write is permitted only after a successful Create or
// Open.
func (so *SharedObject[T]) Write(value T) error {
	if err := so.checkAccess("write"); err != nil {
		return err
	}
	if err := so.acquire(); err != nil {
		return so.fail(KindAccess, err)
	}
	defer so.release()
	region, err := mmf.NewMemoryRegion(so.obj, mmf.MEM_READWRITE, 0, so.size)
	if err != nil {
		return so.fail(KindAccess, errors.Wrap(err, "failed to map a write view"))
	}
	defer region.Close()
	data, err := allocator.ObjectData(&value)
	if err != nil {
		return so.fail(KindAccess, err)
	}
	if _, err = mmf.NewMemoryRegionWriter(region).WriteAt(data, 0); err != nil {
		return so.fail(KindAccess, errors.Wrap(err, "failed to copy the value into the region"))
	}
	allocator.Use(unsafe.Pointer(&value))
	return nil
}

// View maps and returns a writable view over the region for use with
// Execute. The caller owns the view and must Close it, when it is no
// longer needed. A single view can serve any number of Execute calls.
func (so *SharedObject[T]) View() (*mmf.MemoryRegion, error) {
	if err := so.checkAccess("view"); err != nil {
		return nil, err
	}
	region, err := mmf.NewMemoryRegion(so.obj, mmf.MEM_READWRITE, 0, so.size)
	if err != nil {
		return nil, so.fail(KindAccess, errors.Wrap(err, "failed to map a view"))
	}
	return region, nil
}

// Execute runs the caller-supplied mutation routine on the shared value
// in place, under the lock. The routine receives a pointer directly into
// the view's mapped bytes, so it can read and update any subset of the
// fields without a full-value copy. The pointer is valid only for the
// duration of the call and must not be retained.
//
// An error or a panic of the routine is caught, recorded and returned as
// a KindMutation failure; the lock is released on every path.
func (so *SharedObject[T]) Execute(view *mmf.MemoryRegion, fn func(*T) error) error {
	if err := so.checkAccess("execute"); err != nil {
		return err
	}
	if view == nil {
		return so.fail(KindAccess, errors.New("nil view"))
	}
	if view.Size() < so.size {
		return so.fail(KindAccess, errors.Errorf("the view is %d bytes long, need at least %d", view.Size(), so.size))
	}
	if fn == nil {
		return so.fail(KindMutation, errors.New("nil mutation routine"))
	}
	if err := so.acquire(); err != nil {
		return so.fail(KindAccess, err)
	}
	defer so.release()
	if err := mutate(view, fn); err != nil {
		return so.fail(KindMutation, err)
	}
	return nil
}

// mutate overlays a live T over the view's bytes and runs fn on it,
// converting a panic into an error. The view is pinned until fn returns.
func mutate[T any](view *mmf.MemoryRegion, fn func(*T) error) (err error) {
	defer mmf.UseMemoryRegion(view)
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("the mutation routine panicked: %v", r)
		}
	}()
	value := (*T)(allocator.ByteSliceData(view.Data()))
	return fn(value)
}

// Close releases the region and lock handles. The shared data stays in
// the system for other processes; use Destroy to remove it. Close is
// idempotent. The status does not revert: a closed object cannot be
// created or opened again.
func (so *SharedObject[T]) Close() error {
	var result error
	if so.lock != nil {
		if err := so.lock.Close(); err != nil {
			result = errors.Wrap(err, "failed to close the lock")
		}
		so.lock = nil
	}
	if so.obj != nil {
		if err := so.obj.Close(); err != nil && result == nil {
			result = errors.Wrap(err, "failed to close the region")
		}
		so.obj = nil
	}
	return result
}

// Destroy releases both handles and permanently removes the named region
// and the named lock from the system.
func (so *SharedObject[T]) Destroy() error {
	result := so.Close()
	if err := shm.DestroyMemoryObject(so.name); err != nil && result == nil {
		result = errors.Wrapf(err, "failed to destroy region %q", so.name)
	}
	if err := sync.DestroyMutex(so.lockName); err != nil && result == nil {
		result = errors.Wrapf(err, "failed to destroy lock %q", so.lockName)
	}
	return result
}

func (so *SharedObject[T]) checkAccess(op string) error {
	if so.state != Created && so.state != Opened {
		return so.fail(KindInvalidState, errors.Errorf("%s requires a created or opened object, status is %q", op, so.state))
	}
	if so.obj == nil || so.lock == nil {
		return so.fail(KindInvalidState, errors.Errorf("%s is not permitted on a closed object", op))
	}
	return nil
}

// acquire waits for the lock, converting a panic of the underlying
// primitive and an expired timeout into an error.
func (so *SharedObject[T]) acquire() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("lock wait failed: %v", r)
		}
	}()
	if so.lockTimeout >= 0 {
		if !so.lock.LockTimeout(so.lockTimeout) {
			err = errors.Errorf("lock wait timed out after %v", so.lockTimeout)
		}
		return
	}
	so.lock.Lock()
	return
}

// release unlocks after a successful acquire. An unlock failure cannot
// be returned to the caller, whose operation may have succeeded, so it
// is recorded in the diagnostic buffer.
func (so *SharedObject[T]) release() {
	defer func() {
		if r := recover(); r != nil {
			so.diag = append(so.diag, errors.Errorf("lock release failed: %v", r).Error())
		}
	}()
	so.lock.Unlock()
}

// fail records the failure in the diagnostic buffer and returns it.
func (so *SharedObject[T]) fail(kind ErrorKind, err error) error {
	e := newError(kind, err)
	so.diag = append(so.diag, e.Error())
	return e
}
