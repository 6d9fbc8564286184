package anybox_test

import (
	"reflect"
	"testing"

	"github.com/AndrewDonelson/anybox"
	"github.com/AndrewDonelson/anybox/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Payload fixtures ─────────────────────────────────────────────────────────

// smallPOD fits the three-word inline buffer and carries no pointers.
type smallPOD struct {
	A int64
	B int64
	C int64
}

// bigPOD is pointer-free but exceeds the inline buffer.
type bigPOD struct {
	A, B, C, D int64
}

// withPtr fits the size bound but carries a pointer word, so it is
// stored indirectly.
type withPtr struct {
	Name string
}

// ── Construct / get ──────────────────────────────────────────────────────────

func TestBox_ZeroValueIsEmpty(t *testing.T) {
	var b anybox.Box
	assert.True(t, b.Empty())
	assert.Nil(t, b.Type())
}

func TestBox_NewGet_Int(t *testing.T) {
	b := anybox.New(42)
	assert.False(t, b.Empty())
	assert.Equal(t, reflect.TypeOf(0), b.Type())
	assert.Equal(t, 42, anybox.Get[int](&b))
}

func TestBox_NewGet_String(t *testing.T) {
	b := anybox.New("mydear")
	assert.Equal(t, "mydear", anybox.Get[string](&b))
	assert.Equal(t, reflect.TypeOf(""), b.Type())
}

func TestBox_NewGet_Structs(t *testing.T) {
	small := smallPOD{A: 1, B: 2, C: 3}
	big := bigPOD{A: 1, B: 2, C: 3, D: 4}

	bs := anybox.New(small)
	bb := anybox.New(big)

	assert.Equal(t, small, anybox.Get[smallPOD](&bs))
	assert.Equal(t, big, anybox.Get[bigPOD](&bb))
}

func TestBox_NewFromBoxDoesNotNest(t *testing.T) {
	inner := anybox.New(7)
	outer := anybox.New(inner)

	// The result holds an int, not a Box holding a Box.
	assert.Equal(t, reflect.TypeOf(0), outer.Type())
	assert.Equal(t, 7, anybox.Get[int](&outer))
}

func TestBox_RefMutatesInPlace(t *testing.T) {
	b := anybox.New(10)
	*anybox.Ref[int](&b) += 1
	assert.Equal(t, 11, anybox.Get[int](&b))

	// Same through a heap-stored payload.
	h := anybox.New(withPtr{Name: "a"})
	anybox.Ref[withPtr](&h).Name = "b"
	assert.Equal(t, "b", anybox.Get[withPtr](&h).Name)
}

// ── Clone / move ─────────────────────────────────────────────────────────────

func TestBox_CloneIsIndependent_Heap(t *testing.T) {
	orig := anybox.New(bigPOD{A: 1, B: 2, C: 3, D: 4})
	cp := orig.Clone()

	anybox.Ref[bigPOD](&cp).A = 99
	assert.Equal(t, int64(1), anybox.Get[bigPOD](&orig).A)

	anybox.Ref[bigPOD](&orig).D = 77
	assert.Equal(t, int64(4), anybox.Get[bigPOD](&cp).D)
}

func TestBox_CloneIsIndependent_Inline(t *testing.T) {
	orig := anybox.New(5)
	cp := orig.Clone()
	*anybox.Ref[int](&cp) = 6
	assert.Equal(t, 5, anybox.Get[int](&orig))
}

func TestBox_CloneEmpty(t *testing.T) {
	var b anybox.Box
	cp := b.Clone()
	assert.True(t, cp.Empty())
}

func TestBox_MoveLeavesSourceEmpty(t *testing.T) {
	a := anybox.New("payload")
	b := a.Move()

	assert.True(t, a.Empty())
	assert.False(t, b.Empty())
	assert.Equal(t, "payload", anybox.Get[string](&b))
}

func TestBox_TakeFrom(t *testing.T) {
	dst := anybox.New(1)
	src := anybox.New("moved")

	dst.TakeFrom(&src)

	assert.True(t, src.Empty())
	assert.Equal(t, "moved", anybox.Get[string](&dst))
}

// ── Assignment / swap / clear ────────────────────────────────────────────────

func TestBox_SetReplacesPayload(t *testing.T) {
	b := anybox.New("first")
	anybox.Set(&b, 2)

	assert.Equal(t, reflect.TypeOf(0), b.Type())
	assert.Equal(t, 2, anybox.Get[int](&b))
}

// Set must coexist with the Store type: the replacement form releases
// the old heap payload exactly once and the store API stays reachable.
func TestBox_SetReleasesOldHeapPayloadOnce(t *testing.T) {
	b := anybox.New(bigPOD{A: 1})

	rec := &metrics.Counting{}
	anybox.SetMetrics(rec)
	t.Cleanup(func() { anybox.SetMetrics(nil) })

	anybox.Set(&b, bigPOD{A: 2})
	assert.Equal(t, int64(1), rec.HeapReleases.Load())
	assert.Equal(t, int64(2), anybox.Get[bigPOD](&b).A)
}

func TestBox_SetBoxCopies(t *testing.T) {
	src := anybox.New(bigPOD{A: 8})
	var dst anybox.Box
	dst.SetBox(&src)

	anybox.Ref[bigPOD](&src).A = 9
	assert.Equal(t, int64(8), anybox.Get[bigPOD](&dst).A)
}

func TestBox_SelfAssignIsHarmless(t *testing.T) {
	b := anybox.New(bigPOD{A: 5})
	b.SetBox(&b)
	assert.Equal(t, int64(5), anybox.Get[bigPOD](&b).A)

	b.TakeFrom(&b)
	assert.Equal(t, int64(5), anybox.Get[bigPOD](&b).A)
}

func TestBox_SwapExchangesBothWays(t *testing.T) {
	a := anybox.New(1)
	b := anybox.New("two")

	a.Swap(&b)

	assert.Equal(t, "two", anybox.Get[string](&a))
	assert.Equal(t, 1, anybox.Get[int](&b))

	// Swap with an empty box empties the other side.
	var empty anybox.Box
	a.Swap(&empty)
	assert.True(t, a.Empty())
	assert.Equal(t, "two", anybox.Get[string](&empty))
}

func TestBox_ClearIsIdempotent(t *testing.T) {
	b := anybox.New(withPtr{Name: "x"})
	b.Clear()
	assert.True(t, b.Empty())
	b.Clear()
	assert.True(t, b.Empty())
	assert.Nil(t, b.Type())
}

// ── Fatal paths ──────────────────────────────────────────────────────────────

func TestBox_GetEmptyPanics(t *testing.T) {
	var b anybox.Box
	assert.PanicsWithValue(t, "anybox: box is empty", func() {
		anybox.Get[int](&b)
	})
	assert.PanicsWithValue(t, "anybox: box is empty", func() {
		anybox.Ref[int](&b)
	})
}

func TestBox_GetWrongTypePanics(t *testing.T) {
	b := anybox.New(42)
	defer func() {
		r := recover()
		require.NotNil(t, r, "Get with wrong type must panic")
		msg, ok := r.(string)
		require.True(t, ok)
		// The diagnostic names both sides of the mismatch.
		assert.Contains(t, msg, "int")
		assert.Contains(t, msg, "string")
	}()
	anybox.Get[string](&b)
}

func TestBox_ExactTypeMatchOnly(t *testing.T) {
	type myInt int
	b := anybox.New(myInt(3))
	assert.Panics(t, func() { anybox.Get[int](&b) })
	assert.Equal(t, myInt(3), anybox.Get[myInt](&b))
}

// ── Storage strategy boundary ────────────────────────────────────────────────

func TestBox_StrategyBoundary(t *testing.T) {
	rec := &metrics.Counting{}
	anybox.SetMetrics(rec)
	t.Cleanup(func() { anybox.SetMetrics(nil) })

	// Exactly at the inline bound: no heap placement.
	b := anybox.New(smallPOD{A: 1, B: 2, C: 3})
	assert.Equal(t, int64(1), rec.InlineStores.Load())
	assert.Equal(t, int64(0), rec.HeapStores.Load())
	b.Clear()
	assert.Equal(t, int64(0), rec.HeapReleases.Load())

	// One word past the bound: heap placement, released exactly once
	// even when cleared twice.
	h := anybox.New(bigPOD{A: 1})
	assert.Equal(t, int64(1), rec.HeapStores.Load())
	h.Clear()
	h.Clear()
	assert.Equal(t, int64(1), rec.HeapReleases.Load())

	// Pointer-carrying payloads go to the heap regardless of size.
	p := anybox.New("tiny")
	assert.Equal(t, int64(2), rec.HeapStores.Load())
	p.Clear()
}

func TestBox_SwapCountsNoConstructions(t *testing.T) {
	a := anybox.New(bigPOD{A: 1})
	b := anybox.New(bigPOD{A: 2})

	rec := &metrics.Counting{}
	anybox.SetMetrics(rec)
	t.Cleanup(func() { anybox.SetMetrics(nil) })

	a.Swap(&b)

	assert.Equal(t, int64(0), rec.HeapStores.Load())
	assert.Equal(t, int64(0), rec.HeapReleases.Load())
	assert.Equal(t, int64(2), anybox.Get[bigPOD](&a).A)
	assert.Equal(t, int64(1), anybox.Get[bigPOD](&b).A)
}

// ── Diagnostics ──────────────────────────────────────────────────────────────

func TestBox_String(t *testing.T) {
	var e anybox.Box
	assert.Equal(t, "Box(empty)", e.String())

	b := anybox.New(42)
	assert.Equal(t, "Box(int: 42)", b.String())
}
