// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// box.go — the Box container: a type-erased holder for a single value
// of any type, with small values stored inline in a fixed word buffer
// and large or pointer-carrying values stored in their own heap block.

// Package anybox provides Box, a type-erased single-value container,
// together with an envelope codec and an optional tiered Store (memory,
// Redis, PostgreSQL) for boxed values.
package anybox

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Box holds a value of any type, or nothing. The zero Box is empty and
// ready to use.
//
// Storage is fixed-size: a three-word raw buffer for inline payloads
// plus one pointer slot for indirect (heap) payloads. Which of the two
// a given payload type uses is decided once, at descriptor creation,
// and baked into the descriptor's function set; desc == nil iff the
// box is empty, and when it is non-nil the slot the descriptor's
// strategy expects is the one that is populated.
//
// A Box is not synchronized; concurrent use of one instance without
// external locking is undefined. Plain struct assignment (b2 := b1)
// copies the Box the way copying a slice header copies a slice: an
// indirect payload ends up shared between the two. Use Clone for an
// independent copy.
type Box struct {
	desc *typeDesc
	ptr  unsafe.Pointer
	buf  [inlineWords]uintptr
}

// New returns a Box holding a copy of v. If v is itself a Box, the
// result is a clone of it rather than a box-in-a-box.
func New[T any](v T) Box {
	if src, ok := any(v).(Box); ok {
		return src.Clone()
	}
	var b Box
	b.desc = descOf[T]()
	place(&b, v)
	return b
}

// place writes v into b's storage per T's strategy. b.desc must
// already be T's descriptor and b's storage must be empty.
func place[T any](b *Box, v T) {
	if b.desc.strategy == strategyInline {
		*(*T)(unsafe.Pointer(&b.buf[0])) = v
		boxMetrics().RecordStore(strategyInline)
		return
	}
	p := new(T)
	*p = v
	b.ptr = unsafe.Pointer(p)
	boxMetrics().RecordStore(strategyHeap)
}

// Set replaces b's payload with v. The previous payload, if any, is
// released exactly once; if v is a Box the payload becomes a clone of
// it, mirroring New.
func Set[T any](b *Box, v T) {
	tmp := New(v)
	b.Swap(&tmp)
	tmp.Clear()
}

// Clone returns an independent copy of b. An empty box clones to an
// empty box. Indirect payloads get their own heap block; the copy is
// shallow with respect to pointers inside the payload itself (as any
// Go assignment is).
func (b *Box) Clone() Box {
	var out Box
	if b.desc == nil {
		return out
	}
	out.desc = b.desc
	b.desc.copyInto(&out, b)
	return out
}

// Move transfers b's contents into the returned Box and leaves b
// empty. It relocates the descriptor reference and raw storage only,
// never invoking type-specific code: inline payloads are pointer-free
// and tolerate byte relocation, and relocating the heap pointer is
// always safe.
func (b *Box) Move() Box {
	out := Box{desc: b.desc, ptr: b.ptr, buf: b.buf}
	b.desc = nil
	b.ptr = nil
	return out
}

// SetBox replaces b's payload with an independent copy of src's.
// Implemented as clone-then-swap so the old payload is released
// exactly once and b is untouched if cloning were to fail.
// b.SetBox(b) leaves the value unchanged.
func (b *Box) SetBox(src *Box) {
	tmp := src.Clone()
	b.Swap(&tmp)
	tmp.Clear()
}

// TakeFrom moves src's payload into b, releasing b's previous payload
// and leaving src empty. b.TakeFrom(b) is a no-op.
func (b *Box) TakeFrom(src *Box) {
	tmp := src.Move()
	b.Swap(&tmp)
	tmp.Clear()
}

// Swap exchanges the contents of b and other in constant time. No
// type-specific code runs.
func (b *Box) Swap(other *Box) {
	b.desc, other.desc = other.desc, b.desc
	b.ptr, other.ptr = other.ptr, b.ptr
	b.buf, other.buf = other.buf, b.buf
}

// Clear releases the payload, if any, and leaves b empty. Idempotent.
func (b *Box) Clear() {
	if b.desc == nil {
		return
	}
	if b.desc.destroy != nil {
		b.desc.destroy(b)
	}
	b.desc = nil
}

// Empty reports whether b holds no value.
func (b *Box) Empty() bool {
	return b.desc == nil
}

// Type returns the reflect.Type of the stored value, or nil when b is
// empty. Tokens compare by exact equality only; a stored *T never
// matches a requested interface it implements.
func (b *Box) Type() reflect.Type {
	if b.desc == nil {
		return nil
	}
	return b.desc.rtype
}

// Get returns a copy of the stored value. It panics if b is empty or
// if the stored type is not exactly T; both indicate a caller defect,
// not a recoverable condition.
func Get[T any](b *Box) T {
	checkType[T](b)
	return *(*T)(b.desc.get(b))
}

// Ref returns a pointer to the stored value inside b's storage.
// Mutations through it are visible to later Gets. The pointer aliases
// the box and is invalidated by any subsequent mutating operation
// (Set, SetBox, TakeFrom, Clear, Move, Swap). Panics under the same
// conditions as Get.
func Ref[T any](b *Box) *T {
	checkType[T](b)
	return (*T)(b.desc.get(b))
}

func checkType[T any](b *Box) {
	if b.desc == nil {
		panic("anybox: box is empty")
	}
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if b.desc.rtype != rt {
		panic(fmt.Sprintf("anybox: stored type mismatch: stored %v, requested %v",
			b.desc.rtype, rt))
	}
}

// value returns the payload boxed as any. Codec-path helper; callers
// wanting the typed value use Get.
func (b *Box) value() any {
	return b.desc.iface(b)
}

// String renders the box for diagnostics, e.g. "Box(int: 42)".
func (b Box) String() string {
	if b.desc == nil {
		return "Box(empty)"
	}
	return fmt.Sprintf("Box(%v: %v)", b.desc.rtype, b.desc.iface(&b))
}
