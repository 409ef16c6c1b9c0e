// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package shmobj implements a cross-process shared object: a single
// value of a plain, fixed-size type, which cooperating processes
// create, open, read, write and mutate in place. The value lives in a
// named shared memory region sized exactly to the value's type, and
// every access is serialized by a system-wide named lock.
// It is built on OS-native primitives:
//	POSIX shared memory and SysV semaphores on linux
//	file mappings and named events on windows
// The typical flow is: one process calls Create, the others call Open
// with the same name, then all of them exchange the value via Read,
// Write and Execute. Which process creates and which open is decided
// outside of this package.
// The low-level primitives are available in the subpackages:
//	shm - named shared memory objects
//	mmf - memory regions
//	sync - named cross-process locks
package shmobj
