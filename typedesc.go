// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// typedesc.go — per-type descriptors for Box: one immutable record per
// concrete payload type holding the storage strategy and the destroy /
// copy / access functions the container dispatches through, created
// lazily on first use and shared for the life of the process.

package anybox

import (
	"reflect"
	"sync"
	"unsafe"
)

// Inline storage bounds. A payload is stored directly in the Box's
// word buffer only when it fits both bounds and contains no pointers;
// everything else goes to its own heap block. Tuning constants, not
// part of the API contract.
const (
	inlineWords = 3
	inlineBytes = inlineWords * unsafe.Sizeof(uintptr(0))
	inlineAlign = unsafe.Alignof(uintptr(0))
)

const (
	strategyInline = "inline"
	strategyHeap   = "heap"
)

// typeDesc is the per-type dispatch record. All Box operations that
// need type-specific behavior go through these functions, so the Box
// itself carries no generic state.
//
// A descriptor is created once per concrete type, never mutated
// afterwards, and never torn down: it holds only function values and
// the type token, no per-instance resources.
type typeDesc struct {
	// rtype is the identity token: process-unique, stable, comparable
	// for exact equality only.
	rtype reflect.Type

	// strategy is strategyInline or strategyHeap; it is implied by the
	// function set below and kept for diagnostics and metrics.
	strategy string

	// destroy releases the payload held by b. Nil for inline types:
	// pointer-free Go values need no release. For heap types it drops
	// the block reference so the GC can reclaim it.
	destroy func(b *Box)

	// copyInto constructs an independent copy of src's payload in dst.
	// dst must be empty storage; the caller sets dst.desc.
	copyInto func(dst, src *Box)

	// get returns the address of the payload inside b's storage.
	get func(b *Box) unsafe.Pointer

	// iface returns the payload boxed as any. Used by the envelope
	// codec and by String; not on any hot path.
	iface func(b *Box) any
}

// descRegistry maps reflect.Type to *typeDesc. LoadOrStore gives the
// race-free first-use initialization the registry needs: concurrent
// first calls for the same type all observe a single winning
// descriptor.
var descRegistry sync.Map

// descOf returns the process-wide descriptor for T, creating it on
// first use. Every call with the same T returns the same instance.
func descOf[T any]() *typeDesc {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if d, ok := descRegistry.Load(rt); ok {
		return d.(*typeDesc)
	}
	d, _ := descRegistry.LoadOrStore(rt, newDesc[T](rt))
	return d.(*typeDesc)
}

func newDesc[T any](rt reflect.Type) *typeDesc {
	d := &typeDesc{rtype: rt}
	if storesInline(rt) {
		d.strategy = strategyInline
		d.get = func(b *Box) unsafe.Pointer {
			return unsafe.Pointer(&b.buf[0])
		}
		d.copyInto = func(dst, src *Box) {
			dst.buf = src.buf
			boxMetrics().RecordStore(strategyInline)
		}
		d.iface = func(b *Box) any {
			return *(*T)(unsafe.Pointer(&b.buf[0]))
		}
		// destroy stays nil: clearing an inline payload needs no work,
		// matching the plain-data fast path.
		return d
	}
	d.strategy = strategyHeap
	d.get = func(b *Box) unsafe.Pointer {
		return b.ptr
	}
	d.copyInto = func(dst, src *Box) {
		p := new(T)
		*p = *(*T)(src.ptr)
		dst.ptr = unsafe.Pointer(p)
		boxMetrics().RecordStore(strategyHeap)
	}
	d.destroy = func(b *Box) {
		b.ptr = nil
		boxMetrics().RecordRelease(strategyHeap)
	}
	d.iface = func(b *Box) any {
		return *(*T)(b.ptr)
	}
	return d
}

// storesInline reports whether values of rt live directly in the Box
// buffer. Size and alignment must fit the buffer, and the type must be
// pointer-free: the buffer is non-pointer memory as far as the GC is
// concerned, and pointer-free values are the ones that tolerate the
// raw byte relocation Move and Swap perform.
func storesInline(rt reflect.Type) bool {
	return rt.Size() <= inlineBytes &&
		uintptr(rt.Align()) <= inlineAlign &&
		pointerFree(rt)
}

// pointerFree reports whether rt contains no pointer words anywhere in
// its representation.
func pointerFree(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return pointerFree(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if !pointerFree(rt.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		// Chan, Func, Interface, Map, Pointer, Slice, String,
		// UnsafePointer: all carry pointer words.
		return false
	}
}
