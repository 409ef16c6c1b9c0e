// Copyright 2015 Aleksandr Demakin. All rights reserved.

package allocator

import (
	"fmt"
	"reflect"
	"runtime"
	"unsafe"
)

const maxObjectSize = 128 * 1024 * 1024

// valueObjectAddress returns an address of the object stored continuously
// in the memory. the object must not contain any references.
func valueObjectAddress(v interface{}) unsafe.Pointer {
	const (
		interfaceSize = unsafe.Sizeof(v)
		pointerSize   = unsafe.Sizeof(uintptr(0))
	)
	interfaceBytes := *((*[interfaceSize]byte)(unsafe.Pointer(&v)))
	objRawPointer := *(*unsafe.Pointer)(unsafe.Pointer(&(interfaceBytes[interfaceSize-pointerSize])))
	return objRawPointer
}

// ObjectAddress returns the address of the given object.
// if a slice or a pointer is passed, it returns a pointer to the actual data.
func ObjectAddress(object reflect.Value) unsafe.Pointer {
	kind := object.Kind()
	if kind == reflect.Slice || kind == reflect.Ptr {
		return unsafe.Pointer(object.Pointer())
	}
	return valueObjectAddress(object.Interface())
}

// ByteSliceData returns a pointer to the data of the given byte slice.
func ByteSliceData(slice []byte) unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(slice))
}

// ObjectSize returns the size of the object.
// If an object is a slice, it returns the size of the entire slice.
// If an object is a pointer, it dereferences the pointer and
// returns the size of the underlying object.
func ObjectSize(object reflect.Value) int {
	if object.Kind() == reflect.Slice {
		return object.Len() * int(object.Type().Elem().Size())
	}
	if object.Kind() == reflect.Ptr {
		return int(object.Elem().Type().Size())
	}
	return int(object.Type().Size())
}

// copyObjectData copies value's data into a byte slice.
// If a slice is passed, it will copy the data it references to.
func copyObjectData(value reflect.Value, memory []byte) {
	addr := ObjectAddress(value)
	size := ObjectSize(value)
	copy(memory, ByteSliceFromUnsafePointer(addr, size, size))
	Use(addr)
}

// Alloc copies value's data into a byte slice performing some sanity checks.
// The object either must be a slice, or should be a sort of an object,
// which does not contain any references inside, i.e. should be placed
// in the memory continuously.
// If the object is a pointer it will be dereferenced.
func Alloc(memory []byte, object interface{}) error {
	value := reflect.ValueOf(object)
	if !value.IsValid() {
		return fmt.Errorf("invalid object")
	}
	for value.Kind() == reflect.Ptr {
		value = value.Elem()
	}
	size := ObjectSize(value)
	if size > maxObjectSize {
		return fmt.Errorf("the object exceeds max object size of %d", maxObjectSize)
	}
	if size > len(memory) {
		return fmt.Errorf("the object is too large for the buffer")
	}
	if err := checkType(value.Type(), 0); err != nil {
		return err
	}
	copyObjectData(value, memory)
	return nil
}

// ByteSliceFromUnsafePointer returns a slice of bytes with the given
// length and capacity. Memory pointed to by the unsafe.Pointer is used
// for the slice.
func ByteSliceFromUnsafePointer(memory unsafe.Pointer, length, capacity int) []byte {
	return unsafe.Slice((*byte)(memory), capacity)[:length]
}

// ObjectData returns the object's underlying byte representation.
// The object must be stored continuously in the memory, ie must not
// contain any references. Slices of plain objects are allowed.
func ObjectData(object interface{}) ([]byte, error) {
	value := reflect.ValueOf(object)
	if err := checkType(value.Type(), 0); err != nil {
		return nil, err
	}
	objSize := ObjectSize(value)
	addr := ObjectAddress(value)
	if uintptr(addr) == 0 {
		return nil, fmt.Errorf("nil object")
	}
	return ByteSliceFromUnsafePointer(addr, objSize, objSize), nil
}

// IsReferenceType returns true, if the object is a pointer or a slice.
func IsReferenceType(object interface{}) bool {
	kind := reflect.ValueOf(object).Kind()
	return kind == reflect.Slice || kind == reflect.Ptr
}

// CheckObjectReferences checks if an object of the given type can be
// safely copied byte by byte. The object must not contain any reference
// types like maps, strings, channels, and so on.
// Slices or pointers can be at the top level only.
func CheckObjectReferences(object interface{}) error {
	return checkType(reflect.ValueOf(object).Type(), 0)
}

// CheckType does the same check as CheckObjectReferences for a
// reflect.Type obtained by the caller.
func CheckType(t reflect.Type) error {
	return checkType(t, 0)
}

func checkType(t reflect.Type, depth int) error {
	kind := t.Kind()
	if kind == reflect.Array {
		return checkType(t.Elem(), depth+1)
	}
	if kind == reflect.Slice {
		if depth != 0 {
			return fmt.Errorf("unexpected slice type")
		}
		return checkType(t.Elem(), depth+1)
	}
	if kind == reflect.Ptr {
		if depth != 0 {
			return fmt.Errorf("unexpected pointer type")
		}
		return checkType(t.Elem(), depth+1)
	}
	if kind == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if err := checkType(field.Type, depth+1); err != nil {
				return fmt.Errorf("field %s: %v", field.Name, err)
			}
		}
		return nil
	}
	return checkNumericType(kind)
}

func checkNumericType(kind reflect.Kind) error {
	if kind >= reflect.Bool && kind <= reflect.Complex128 {
		return nil
	}
	if kind == reflect.UnsafePointer {
		return nil
	}
	return fmt.Errorf("unsupported type %q", kind.String())
}

// Use ensures that the memory pointed to by p is alive at the point
// of the call, so that an object is not collected while a syscall or
// an overlay operation still works with its raw address.
func Use(p unsafe.Pointer) {
	runtime.KeepAlive(p)
}
