// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// sync.go — cross-process L1 invalidation over Redis pub/sub. Every
// Put/Delete/Invalidate publishes a message tagged with this process's
// origin id; subscribers drop the named key from their local L1 unless
// the message is their own.

package anybox

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

const defaultInvalidationChannel = "anybox:invalidate"

const (
	opSet    = "set"
	opDelete = "delete"
	opPurge  = "purge"
)

// invalidationMsg is the Redis pub/sub payload for L1 invalidation.
type invalidationMsg struct {
	Key    string `json:"key"`
	Op     string `json:"op"` // "set" | "delete" | "purge"
	Origin string `json:"origin"`
}

// syncEngine subscribes to the invalidation channel and applies peer
// messages to the local L1. It is a no-op when the store has no L2.
type syncEngine struct {
	st     *Store
	origin string
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newSyncEngine(st *Store) *syncEngine {
	return &syncEngine{
		st:     st,
		origin: newOriginID(),
		stopCh: make(chan struct{}),
	}
}

// newOriginID returns a random id distinguishing this process's own
// publishes from its peers'.
func newOriginID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// rand.Read on the platforms we support does not fail; fall
		// back to a fixed id rather than refusing to start.
		return "anybox-local"
	}
	return hex.EncodeToString(b[:])
}

func (se *syncEngine) start() {
	if se.st.l2 == nil {
		return
	}
	se.wg.Add(1)
	go se.subscribeLoop()
}

func (se *syncEngine) stop() {
	close(se.stopCh)
	se.wg.Wait()
}

func (se *syncEngine) publish(ctx context.Context, key, op string) {
	if se.st.l2 == nil {
		return
	}
	b, _ := json.Marshal(invalidationMsg{Key: key, Op: op, Origin: se.origin})
	if err := se.st.l2.Publish(ctx, se.st.cfg.InvalidationChannel, b); err != nil {
		se.st.logger.Warn("anybox: invalidation publish failed", "key", key, "err", err)
	}
}

func (se *syncEngine) subscribeLoop() {
	defer se.wg.Done()
	channel := se.st.cfg.InvalidationChannel
	for {
		select {
		case <-se.stopCh:
			return
		default:
		}
		ctx, cancel := context.WithCancel(context.Background())
		sub := se.st.l2.Subscribe(ctx, channel)
		func() {
			defer cancel()
			msgCh := sub.Channel()
			for {
				select {
				case <-se.stopCh:
					_ = sub.Close()
					return
				case msg, ok := <-msgCh:
					if !ok {
						return
					}
					se.handle(msg.Payload)
				}
			}
		}()
		// Subscription dropped; back off before reconnecting.
		select {
		case <-se.stopCh:
			return
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (se *syncEngine) handle(payload string) {
	var msg invalidationMsg
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		se.st.logger.Warn("anybox: malformed invalidation message", "payload", payload, "err", err)
		return
	}
	if msg.Origin == se.origin {
		return
	}
	switch msg.Op {
	case opSet, opDelete:
		se.st.l1.Delete(msg.Key)
	case opPurge:
		se.st.l1.Purge()
	}
}
