// Copyright 2015 Aleksandr Demakin. All rights reserved.

package mmf_test

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/nxgtw/go-shmobj/internal/helper"
	"github.com/nxgtw/go-shmobj/mmf"
	"github.com/nxgtw/go-shmobj/shm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRegionObjName = "go-shmobj.mmf.test"

func newTestObject(t *testing.T, size int64) *shm.MemoryObject {
	require.NoError(t, shm.DestroyMemoryObject(testRegionObjName))
	obj, err := shm.NewMemoryObject(testRegionObjName, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666)
	require.NoError(t, err)
	require.NoError(t, obj.Truncate(size))
	return obj
}

func TestRegionReadWrite(t *testing.T) {
	a := assert.New(t)
	obj := newTestObject(t, 1024)
	defer obj.Destroy()
	rwRegion, err := mmf.NewMemoryRegion(obj, mmf.MEM_READWRITE, 0, 1024)
	if !a.NoError(err) {
		return
	}
	defer rwRegion.Close()
	roRegion, err := mmf.NewMemoryRegion(obj, mmf.MEM_READ_ONLY, 0, 1024)
	if !a.NoError(err) {
		return
	}
	defer roRegion.Close()
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	copy(rwRegion.Data(), data)
	a.Equal(data, roRegion.Data()[:len(data)])
	a.Equal(1024, rwRegion.Size())
}

func TestRegionZeroSizeMapsEntireObject(t *testing.T) {
	a := assert.New(t)
	obj := newTestObject(t, 512)
	defer obj.Destroy()
	region, err := mmf.NewMemoryRegion(obj, mmf.MEM_READWRITE, 0, 0)
	if !a.NoError(err) {
		return
	}
	defer region.Close()
	a.Equal(512, region.Size())
}

func TestRegionInvalidLength(t *testing.T) {
	a := assert.New(t)
	obj := newTestObject(t, 128)
	defer obj.Destroy()
	_, err := mmf.NewMemoryRegion(obj, mmf.MEM_READWRITE, 0, 1024)
	a.Error(err)
}

func TestRegionInvalidMode(t *testing.T) {
	a := assert.New(t)
	obj := newTestObject(t, 128)
	defer obj.Destroy()
	_, err := mmf.NewMemoryRegion(obj, 0x1000, 0, 128)
	a.Error(err)
}

func TestRegionReaderWriter(t *testing.T) {
	a := assert.New(t)
	obj := newTestObject(t, 1024)
	defer obj.Destroy()
	region, err := mmf.NewMemoryRegion(obj, mmf.MEM_READWRITE, 0, 1024)
	if !a.NoError(err) {
		return
	}
	defer region.Close()
	payload := bytes.Repeat([]byte{0xAB, 0xCD}, 16)
	w := mmf.NewMemoryRegionWriter(region)
	n, err := w.Write(payload)
	a.NoError(err)
	a.Equal(len(payload), n)
	r := mmf.NewMemoryRegionReader(region)
	read := make([]byte, len(payload))
	n, err = io.ReadFull(r, read)
	a.NoError(err)
	a.Equal(len(payload), n)
	a.Equal(payload, read)
}

func TestRegionReaderAtEnd(t *testing.T) {
	a := assert.New(t)
	obj := newTestObject(t, 16)
	defer obj.Destroy()
	region, err := mmf.NewMemoryRegion(obj, mmf.MEM_READWRITE, 0, 16)
	if !a.NoError(err) {
		return
	}
	defer region.Close()
	r := mmf.NewMemoryRegionReader(region)
	n, err := r.ReadAt(make([]byte, 32), 0)
	a.Equal(16, n)
	a.Equal(io.EOF, err)
	n, err = r.ReadAt(make([]byte, 1), 16)
	a.Equal(0, n)
	a.Equal(io.EOF, err)
}

func TestRegionWriterAtEnd(t *testing.T) {
	a := assert.New(t)
	obj := newTestObject(t, 16)
	defer obj.Destroy()
	region, err := mmf.NewMemoryRegion(obj, mmf.MEM_READWRITE, 0, 16)
	if !a.NoError(err) {
		return
	}
	defer region.Close()
	w := mmf.NewMemoryRegionWriter(region)
	n, err := w.WriteAt(make([]byte, 32), 0)
	a.Equal(16, n)
	a.Equal(io.EOF, err)
}

func TestCreateWritableRegion(t *testing.T) {
	a := assert.New(t)
	require.NoError(t, shm.DestroyMemoryObject(testRegionObjName))
	region, created, err := helper.CreateWritableRegion(testRegionObjName, os.O_CREATE, 0666, 64)
	if !a.NoError(err) {
		return
	}
	defer shm.DestroyMemoryObject(testRegionObjName)
	defer region.Close()
	a.True(created)
	a.Equal(64, region.Size())
	copy(region.Data(), []byte("hello"))

	other, created, err := helper.CreateWritableRegion(testRegionObjName, os.O_CREATE, 0666, 64)
	if !a.NoError(err) {
		return
	}
	defer other.Close()
	a.False(created)
	a.Equal([]byte("hello"), other.Data()[:5])
}
