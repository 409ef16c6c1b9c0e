// Copyright 2016 Aleksandr Demakin. All rights reserved.

package mmf

import "io"

// MemoryRegionReader reads the mapped bytes of a region via io.Reader and
// io.ReaderAt. It holds a reference to the region, so the mapping stays
// alive while the reader is in use.
type MemoryRegionReader struct {
	region *MemoryRegion
	pos    int64
}

// NewMemoryRegionReader creates a new reader for the given region.
func NewMemoryRegionReader(region *MemoryRegion) *MemoryRegionReader {
	return &MemoryRegionReader{region: region}
}

// ReadAt copies up to len(p) bytes at the given offset of the region into p.
// It returns io.EOF, if the region ends before len(p) bytes were copied.
func (r *MemoryRegionReader) ReadAt(p []byte, off int64) (n int, err error) {
	data := r.region.Data()
	if off < int64(len(data)) {
		n = copy(p, data[off:])
	}
	if n < len(p) {
		err = io.EOF
	}
	return
}

// Read copies bytes from the current position, advancing it.
func (r *MemoryRegionReader) Read(p []byte) (n int, err error) {
	n, err = r.ReadAt(p, r.pos)
	r.pos += int64(n)
	return
}

// MemoryRegionWriter writes into the mapped bytes of a region via io.Writer
// and io.WriterAt. It holds a reference to the region, so the mapping stays
// alive while the writer is in use.
type MemoryRegionWriter struct {
	region *MemoryRegion
	pos    int64
}

// NewMemoryRegionWriter creates a new writer for the given region.
func NewMemoryRegionWriter(region *MemoryRegion) *MemoryRegionWriter {
	return &MemoryRegionWriter{region: region}
}

// WriteAt copies up to len(p) bytes of p into the region at the given offset.
// It returns io.EOF, if the region ends before all of p was copied.
func (w *MemoryRegionWriter) WriteAt(p []byte, off int64) (n int, err error) {
	data := w.region.Data()
	if off < int64(len(data)) {
		n = copy(data[off:], p)
	}
	if n < len(p) {
		err = io.EOF
	}
	return
}

// Write copies bytes at the current position, advancing it.
func (w *MemoryRegionWriter) Write(p []byte) (n int, err error) {
	n, err = w.WriteAt(p, w.pos)
	w.pos += int64(n)
	return
}
