// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// encode.go — the wire-name registry and envelope codec for boxes. A
// box leaves the process as an Envelope: the registered name of its
// payload type plus the codec-encoded payload. Decoding goes back
// through the registry, so both sides must register the same names.

package anybox

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/AndrewDonelson/anybox/internal/codec"
)

// Codec and Envelope re-exported so callers only import this package.
type Codec = codec.Codec
type Envelope = codec.Envelope

// JSONCodec and MsgPackCodec are the ready-made codec instances.
var (
	JSONCodec    Codec = codec.JSON{}
	MsgPackCodec Codec = codec.MsgPack{}
)

// typeEntry binds a wire name to a concrete payload type.
type typeEntry struct {
	name   string
	rtype  reflect.Type
	decode func(data []byte, c Codec) (Box, error)
}

var (
	typeRegMu  sync.RWMutex
	typeByName = make(map[string]*typeEntry)
	typeByType = make(map[reflect.Type]*typeEntry)
)

// RegisterType binds name to T for envelope encoding and decoding.
// Names and types are one-to-one; registering either side twice
// returns ErrDuplicateTypeName. Registration is process-wide and
// usually done from package init or main before any store traffic.
func RegisterType[T any](name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidConfig)
	}
	rt := reflect.TypeOf((*T)(nil)).Elem()
	entry := &typeEntry{
		name:  name,
		rtype: rt,
		decode: func(data []byte, c Codec) (Box, error) {
			var v T
			if err := c.Unmarshal(data, &v); err != nil {
				return Box{}, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, name, err)
			}
			return New(v), nil
		},
	}

	typeRegMu.Lock()
	defer typeRegMu.Unlock()
	if _, exists := typeByName[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTypeName, name)
	}
	if prev, exists := typeByType[rt]; exists {
		return fmt.Errorf("%w: %v already bound to %q", ErrDuplicateTypeName, rt, prev.name)
	}
	typeByName[name] = entry
	typeByType[rt] = entry
	return nil
}

// TypeNameOf returns the registered wire name for b's payload type,
// or "" when the box is empty or its type is unregistered.
func TypeNameOf(b *Box) string {
	if b.Empty() {
		return ""
	}
	typeRegMu.RLock()
	defer typeRegMu.RUnlock()
	if e, ok := typeByType[b.Type()]; ok {
		return e.name
	}
	return ""
}

// MarshalBox encodes b into an Envelope using c. The payload type must
// have been registered with RegisterType.
func MarshalBox(b *Box, c Codec) (Envelope, error) {
	if c == nil {
		c = codec.Default
	}
	if b.Empty() {
		return Envelope{}, ErrEmptyBox
	}
	typeRegMu.RLock()
	entry, ok := typeByType[b.Type()]
	typeRegMu.RUnlock()
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %v", ErrUnregisteredType, b.Type())
	}
	data, err := c.Marshal(b.value())
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %s: %v", ErrEncodeFailed, entry.name, err)
	}
	return Envelope{Type: entry.name, Data: data}, nil
}

// UnmarshalBox decodes env back into a Box using c. The envelope's
// type name must have been registered with RegisterType.
func UnmarshalBox(env Envelope, c Codec) (Box, error) {
	if c == nil {
		c = codec.Default
	}
	typeRegMu.RLock()
	entry, ok := typeByName[env.Type]
	typeRegMu.RUnlock()
	if !ok {
		return Box{}, fmt.Errorf("%w: %q", ErrUnknownTypeName, env.Type)
	}
	return entry.decode(env.Data, c)
}
