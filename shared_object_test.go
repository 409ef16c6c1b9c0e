// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmobj

import (
	"os"
	"testing"
	"time"

	"github.com/nxgtw/go-shmobj/shm"
	"github.com/nxgtw/go-shmobj/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type testRecord struct {
	Counter int32
	Flag    uint8
	Values  [4]int64
}

// destroyTestObject removes the region and the lock left over
// from a previous failed run.
func destroyTestObject(name, lockName string) {
	shm.DestroyMemoryObject(name)
	sync.DestroyMutex(lockName)
}

func newTestObject(t *testing.T, name string, opts ...Option) *SharedObject[testRecord] {
	so, err := New[testRecord](name, opts...)
	require.NoError(t, err)
	return so
}

func TestNewRejectsBadTypes(t *testing.T) {
	a := assert.New(t)
	_, err := New[string]("shmobj.test.bad")
	a.Error(err)
	_, err = New[*int32]("shmobj.test.bad")
	a.Error(err)
	_, err = New[struct{ Name string }]("shmobj.test.bad")
	a.Error(err)
	_, err = New[struct{ M map[int]int }]("shmobj.test.bad")
	a.Error(err)
	_, err = New[struct{ B []byte }]("shmobj.test.bad")
	a.Error(err)
	_, err = New[struct{}]("shmobj.test.bad")
	a.Error(err)
	_, err = New[testRecord]("")
	a.Error(err)
}

func TestNewAcceptsPlainTypes(t *testing.T) {
	a := assert.New(t)
	so, err := New[int32]("shmobj.test.plain")
	if a.NoError(err) {
		a.Equal(4, so.Size())
		a.Equal(NotCreated, so.Status())
	}
	_, err = New[[16]byte]("shmobj.test.plain")
	a.NoError(err)
	_, err = New[testRecord]("shmobj.test.plain")
	a.NoError(err)
}

func TestCreate(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.create"
	destroyTestObject(name, name)
	so := newTestObject(t, name)
	defer so.Destroy()
	if !a.NoError(so.Create()) {
		return
	}
	a.Equal(Created, so.Status())
	a.Equal("", so.ErrorMessage())
	a.Equal(name, so.Name())
	a.Equal(name, so.LockName())
}

func TestCreateTwice(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.create2"
	destroyTestObject(name, name)
	so := newTestObject(t, name)
	defer so.Destroy()
	if !a.NoError(so.Create()) {
		return
	}
	err := so.Create()
	a.Error(err)
	a.Equal(KindInvalidState, KindOf(err))
	a.Equal(Created, so.Status())
	a.NotEmpty(so.ErrorMessage())
}

func TestCreateRegionNameTaken(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.collision"
	destroyTestObject(name, name)
	first := newTestObject(t, name)
	defer first.Destroy()
	if !a.NoError(first.Create()) {
		return
	}
	second := newTestObject(t, name)
	err := second.Create()
	a.Error(err)
	a.Equal(KindRegionAllocation, KindOf(err))
	a.Equal(NotCreated, second.Status())
}

func TestCreateLockNameTaken(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.locktaken"
	const lockName = "shmobj.test.locktaken.lock"
	destroyTestObject(name, lockName)
	m, err := sync.NewMutex(lockName, os.O_CREATE|os.O_EXCL, 0666)
	if !a.NoError(err) {
		return
	}
	defer m.Destroy()
	so := newTestObject(t, name, WithLockName(lockName))
	err = so.Create()
	a.Error(err)
	a.Equal(KindLockCreation, KindOf(err))
	a.Equal(NotCreated, so.Status())
	a.NotEmpty(so.ErrorMessage())
	// the freshly created region must have been rolled back.
	other := newTestObject(t, name)
	err = other.Open()
	a.Error(err)
	a.Equal(KindNotFound, KindOf(err))
}

func TestOpenNonExistent(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.nonexistent"
	destroyTestObject(name, name)
	so := newTestObject(t, name)
	err := so.Open()
	a.Error(err)
	a.Equal(KindNotFound, KindOf(err))
	a.Equal(NotCreated, so.Status())
	a.NotEmpty(so.ErrorMessage())
}

func TestAccessBeforeCreateOrOpen(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.noinit"
	destroyTestObject(name, name)
	so := newTestObject(t, name)
	_, err := so.Read()
	a.Equal(KindInvalidState, KindOf(err))
	err = so.Write(testRecord{})
	a.Equal(KindInvalidState, KindOf(err))
	_, err = so.View()
	a.Equal(KindInvalidState, KindOf(err))
	err = so.Execute(nil, func(*testRecord) error { return nil })
	a.Equal(KindInvalidState, KindOf(err))
	a.NotEmpty(so.ErrorMessage())
	// no os resources must have been created.
	other := newTestObject(t, name)
	err = other.Open()
	a.Equal(KindNotFound, KindOf(err))
}

func TestWriteReadRoundTrip(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.roundtrip"
	destroyTestObject(name, name)
	creator := newTestObject(t, name)
	defer creator.Destroy()
	if !a.NoError(creator.Create()) {
		return
	}
	value := testRecord{Counter: 42, Flag: 1, Values: [4]int64{-1, 2, -3, 4}}
	if !a.NoError(creator.Write(value)) {
		return
	}
	got, err := creator.Read()
	a.NoError(err)
	a.Equal(value, got)

	opener := newTestObject(t, name)
	defer opener.Close()
	if !a.NoError(opener.Open()) {
		return
	}
	a.Equal(Opened, opener.Status())
	got, err = opener.Read()
	a.NoError(err)
	a.Equal(value, got)
}

func TestExecutePartialMutation(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.partial"
	destroyTestObject(name, name)
	so := newTestObject(t, name)
	defer so.Destroy()
	if !a.NoError(so.Create()) {
		return
	}
	value := testRecord{Counter: 7, Flag: 3, Values: [4]int64{10, 20, 30, 40}}
	if !a.NoError(so.Write(value)) {
		return
	}
	view, err := so.View()
	if !a.NoError(err) {
		return
	}
	defer view.Close()
	err = so.Execute(view, func(r *testRecord) error {
		r.Counter += 100
		return nil
	})
	a.NoError(err)
	got, err := so.Read()
	a.NoError(err)
	expected := value
	expected.Counter += 100
	a.Equal(expected, got)
}

func TestExecuteRoutineFailure(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.badroutine"
	destroyTestObject(name, name)
	so := newTestObject(t, name)
	defer so.Destroy()
	if !a.NoError(so.Create()) {
		return
	}
	view, err := so.View()
	if !a.NoError(err) {
		return
	}
	defer view.Close()
	err = so.Execute(view, func(r *testRecord) error {
		return assert.AnError
	})
	a.Equal(KindMutation, KindOf(err))
	err = so.Execute(view, func(r *testRecord) error {
		panic("boom")
	})
	a.Equal(KindMutation, KindOf(err))
	a.NotEmpty(so.ErrorMessage())
	// the lock must have been released on both failure paths.
	a.NoError(so.Write(testRecord{Counter: 1}))
}

func TestExecuteBadView(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.badview"
	destroyTestObject(name, name)
	so := newTestObject(t, name)
	defer so.Destroy()
	if !a.NoError(so.Create()) {
		return
	}
	err := so.Execute(nil, func(*testRecord) error { return nil })
	a.Equal(KindAccess, KindOf(err))
	view, err := so.View()
	if !a.NoError(err) {
		return
	}
	defer view.Close()
	err = so.Execute(view, nil)
	a.Equal(KindMutation, KindOf(err))
}

func TestCounterScenario(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.counter"
	destroyTestObject(name, name)
	creator, err := New[struct{ Counter int32 }](name)
	require.NoError(t, err)
	defer creator.Destroy()
	if !a.NoError(creator.Create()) {
		return
	}
	if !a.NoError(creator.Write(struct{ Counter int32 }{0})) {
		return
	}
	opener, err := New[struct{ Counter int32 }](name)
	require.NoError(t, err)
	defer opener.Close()
	if !a.NoError(opener.Open()) {
		return
	}
	view, err := opener.View()
	if !a.NoError(err) {
		return
	}
	defer view.Close()
	for i := 0; i < 100; i++ {
		err = opener.Execute(view, func(r *struct{ Counter int32 }) error {
			r.Counter++
			return nil
		})
		if !a.NoError(err) {
			return
		}
	}
	got, err := creator.Read()
	a.NoError(err)
	a.Equal(int32(100), got.Counter)
}

func TestConcurrentWriters(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.race"
	const iterations = 200
	destroyTestObject(name, name)
	creator := newTestObject(t, name)
	defer creator.Destroy()
	require.NoError(t, creator.Create())
	opener := newTestObject(t, name)
	defer opener.Close()
	require.NoError(t, opener.Open())

	first := testRecord{Counter: 1, Flag: 1, Values: [4]int64{1, 1, 1, 1}}
	second := testRecord{Counter: 2, Flag: 2, Values: [4]int64{2, 2, 2, 2}}
	var g errgroup.Group
	g.Go(func() error {
		for i := 0; i < iterations; i++ {
			if err := creator.Write(first); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		for i := 0; i < iterations; i++ {
			if err := opener.Write(second); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())
	got, err := creator.Read()
	a.NoError(err)
	// the lock serializes whole-value writes, so the result is exactly
	// one of the written values, never an interleaving of the two.
	if got != first && got != second {
		t.Errorf("torn value: %+v", got)
	}
}

func TestConcurrentExecute(t *testing.T) {
	const name = "shmobj.test.incr"
	const workers = 4
	const iterations = 50
	destroyTestObject(name, name)
	creator, err := New[struct{ Counter int32 }](name)
	require.NoError(t, err)
	defer creator.Destroy()
	require.NoError(t, creator.Create())
	require.NoError(t, creator.Write(struct{ Counter int32 }{0}))

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			so, err := New[struct{ Counter int32 }](name)
			if err != nil {
				return err
			}
			defer so.Close()
			if err = so.Open(); err != nil {
				return err
			}
			view, err := so.View()
			if err != nil {
				return err
			}
			defer view.Close()
			for j := 0; j < iterations; j++ {
				err = so.Execute(view, func(r *struct{ Counter int32 }) error {
					r.Counter++
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	got, err := creator.Read()
	require.NoError(t, err)
	assert.Equal(t, int32(workers*iterations), got.Counter)
}

func TestLockTimeout(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.timeout"
	destroyTestObject(name, name)
	so := newTestObject(t, name, WithLockTimeout(50*time.Millisecond))
	defer so.Destroy()
	require.NoError(t, so.Create())
	// hold the named lock directly, so that the operations time out.
	m, err := sync.NewMutex(name, 0, 0666)
	require.NoError(t, err)
	defer m.Close()
	m.Lock()
	_, err = so.Read()
	a.Equal(KindAccess, KindOf(err))
	err = so.Write(testRecord{})
	a.Equal(KindAccess, KindOf(err))
	m.Unlock()
	// with the lock released the operations succeed again.
	a.NoError(so.Write(testRecord{Counter: 5}))
	got, err := so.Read()
	a.NoError(err)
	a.Equal(int32(5), got.Counter)
}

func TestClearErrorMessage(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.clear"
	destroyTestObject(name, name)
	so := newTestObject(t, name)
	_, err := so.Read()
	a.Error(err)
	a.NotEmpty(so.ErrorMessage())
	so.ClearErrorMessage()
	a.Equal("", so.ErrorMessage())
}

func TestErrorMessageAccumulates(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.accum"
	destroyTestObject(name, name)
	so := newTestObject(t, name)
	_, err := so.Read()
	a.Error(err)
	firstLen := len(so.ErrorMessage())
	err = so.Write(testRecord{})
	a.Error(err)
	a.Greater(len(so.ErrorMessage()), firstLen)
}

func TestCloseForbidsAccess(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.close"
	destroyTestObject(name, name)
	so := newTestObject(t, name)
	require.NoError(t, so.Create())
	defer destroyTestObject(name, name)
	a.NoError(so.Close())
	a.NoError(so.Close())
	a.Equal(Created, so.Status())
	_, err := so.Read()
	a.Equal(KindInvalidState, KindOf(err))
	err = so.Create()
	a.Equal(KindInvalidState, KindOf(err))
}

func TestCreateOrOpen(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.createoropen"
	destroyTestObject(name, name)
	first := newTestObject(t, name)
	defer first.Destroy()
	if !a.NoError(first.CreateOrOpen()) {
		return
	}
	a.Equal(Created, first.Status())
	require.NoError(t, first.Write(testRecord{Counter: 42}))
	second := newTestObject(t, name)
	defer second.Close()
	if !a.NoError(second.CreateOrOpen()) {
		return
	}
	a.Equal(Opened, second.Status())
	value, err := second.Read()
	a.NoError(err)
	a.Equal(int32(42), value.Counter)
}

func TestCreateOrOpenTwice(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.createoropen2"
	destroyTestObject(name, name)
	so := newTestObject(t, name)
	defer so.Destroy()
	require.NoError(t, so.CreateOrOpen())
	err := so.CreateOrOpen()
	a.Error(err)
	a.Equal(KindInvalidState, KindOf(err))
	a.Equal(Created, so.Status())
}

func TestCreateOrOpenSizeMismatch(t *testing.T) {
	a := assert.New(t)
	const name = "shmobj.test.createoropen3"
	destroyTestObject(name, name)
	small, err := New[int32](name)
	require.NoError(t, err)
	defer small.Destroy()
	require.NoError(t, small.CreateOrOpen())
	// the existing region is smaller, than the attaching type needs.
	big := newTestObject(t, name)
	err = big.CreateOrOpen()
	a.Error(err)
	a.Equal(KindRegionAllocation, KindOf(err))
	a.Equal(NotCreated, big.Status())
}

func TestKindOf(t *testing.T) {
	a := assert.New(t)
	a.Equal(KindNone, KindOf(nil))
	a.Equal(KindNone, KindOf(assert.AnError))
	a.Equal(KindAccess, KindOf(newError(KindAccess, assert.AnError)))
}
