// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmobj

import (
	"os"
	"time"
)

type config struct {
	lockName    string
	perm        os.FileMode
	lockTimeout time.Duration
}

func defaultConfig() config {
	return config{
		perm:        0666,
		lockTimeout: -1,
	}
}

// Option customizes a SharedObject.
type Option func(*config)

// WithLockName sets the name of the lock guarding the region.
// By default the lock is named after the region.
func WithLockName(name string) Option {
	return func(c *config) {
		c.lockName = name
	}
}

// WithPermissions sets the permission bits for the created
// region and lock. The default is 0666.
func WithPermissions(perm os.FileMode) Option {
	return func(c *config) {
		c.perm = perm
	}
}

// WithLockTimeout limits the wait for the lock in Read, Write and
// Execute. An expired wait fails the operation with KindAccess.
// By default the wait is unbounded.
func WithLockTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.lockTimeout = timeout
	}
}
