// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package keystore implements the Server-Key Store: the
// address-to-device-key mapping shared between the Configuration
// Client's outstanding-request bookkeeping and the crypto layer's
// device-key lookup for remote-device-key traffic. It is the one piece
// of cross-context state in the subsystem, so every operation is
// guarded by a single mutex, the Go equivalent of the source's
// WsfTaskLock/WsfTaskUnlock critical section.
package keystore

import (
	"errors"
	"sync"

	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshlog"
)

// DeviceKey is the 128-bit per-node key used for Configuration-model
// traffic.
type DeviceKey [16]byte

// Errors returned by Store operations.
var (
	ErrStoreFull    = errors.New("keystore: no free slot for new server")
	ErrKeyMismatch  = errors.New("keystore: device key does not match stored value")
	ErrNotPresent   = errors.New("keystore: no entry for address")
	ErrRefcountZero = errors.New("keystore: release called on a free entry")
)

type entry struct {
	addr     meshaddr.Address
	key      DeviceKey
	refcount int
	used     bool
}

// Store is the fixed-capacity Server-Key Store. The zero value is not
// usable; construct with New.
type Store struct {
	mu      sync.Mutex
	entries []entry
	log     meshlog.Clog
}

// New creates a Store sized to track at most capacity distinct remote
// servers concurrently, per the Configuration parameter of the same
// name.
func New(capacity int, log meshlog.Clog) *Store {
	return &Store{entries: make([]entry, capacity), log: log}
}

// Acquire registers interest in server's device key, incrementing the
// entry's refcount. If an entry already exists for addr, devKey must
// match the stored value. A mismatch is a caller contract violation
// (fatal in debug builds, ErrKeyMismatch in release builds). If no
// entry exists, one is allocated with refcount 1, or ErrStoreFull if
// every slot is in use.
func (s *Store) Acquire(addr meshaddr.Address, devKey DeviceKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		e := &s.entries[i]
		if e.used && e.addr == addr {
			if e.key != devKey {
				s.log.Assert(false, "keystore: device key mismatch on acquire", "addr", addr)
				return ErrKeyMismatch
			}
			e.refcount++
			return nil
		}
	}
	for i := range s.entries {
		e := &s.entries[i]
		if !e.used {
			*e = entry{addr: addr, key: devKey, refcount: 1, used: true}
			return nil
		}
	}
	return ErrStoreFull
}

// Release decrements the refcount for addr; when it reaches zero the
// slot is freed. Releasing an address with no entry, or one already at
// refcount zero, is a caller contract violation.
func (s *Store) Release(addr meshaddr.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		e := &s.entries[i]
		if e.used && e.addr == addr {
			if e.refcount <= 0 {
				s.log.Assert(false, "keystore: refcount underflow on release", "addr", addr)
				return ErrRefcountZero
			}
			e.refcount--
			if e.refcount == 0 {
				*e = entry{}
			}
			return nil
		}
	}
	return ErrNotPresent
}

// ReadDeviceKey returns the device key stored for addr, used by the
// crypto layer to obtain the key for remote-device-key decryption and
// encryption. Returns false for addresses not present with refcount >
// 0, matching the external Crypto device-key reader hook's contract.
func (s *Store) ReadDeviceKey(addr meshaddr.Address) (DeviceKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		e := &s.entries[i]
		if e.used && e.addr == addr && e.refcount > 0 {
			return e.key, true
		}
	}
	return DeviceKey{}, false
}

// Refcount reports the current refcount for addr, or 0 if no entry
// exists; exposed chiefly for tests asserting the store's invariants.
func (s *Store) Refcount(addr meshaddr.Address) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		e := &s.entries[i]
		if e.used && e.addr == addr {
			return e.refcount
		}
	}
	return 0
}
