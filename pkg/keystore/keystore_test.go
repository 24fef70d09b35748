// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package keystore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshlog"
)

func TestAcquireReleaseBalancesToFree(t *testing.T) {
	s := New(2, meshlog.New("test", nil))
	addr := meshaddr.Address(0x0100)
	key := DeviceKey{0x01}

	require.NoError(t, s.Acquire(addr, key))
	require.NoError(t, s.Acquire(addr, key))
	require.NoError(t, s.Acquire(addr, key))
	require.Equal(t, 3, s.Refcount(addr))

	require.NoError(t, s.Release(addr))
	require.NoError(t, s.Release(addr))
	require.Equal(t, 1, s.Refcount(addr))

	require.NoError(t, s.Release(addr))
	require.Equal(t, 0, s.Refcount(addr))

	_, ok := s.ReadDeviceKey(addr)
	require.False(t, ok)
}

func TestAcquireKeyMismatch(t *testing.T) {
	s := New(1, meshlog.New("test", nil))
	addr := meshaddr.Address(0x0200)
	require.NoError(t, s.Acquire(addr, DeviceKey{0x01}))

	err := s.Acquire(addr, DeviceKey{0x02})
	require.ErrorIs(t, err, ErrKeyMismatch)
}

func TestAcquireStoreFull(t *testing.T) {
	s := New(1, meshlog.New("test", nil))
	require.NoError(t, s.Acquire(meshaddr.Address(0x0300), DeviceKey{0x01}))

	err := s.Acquire(meshaddr.Address(0x0301), DeviceKey{0x02})
	require.ErrorIs(t, err, ErrStoreFull)
}

func TestReleaseUnknownAddr(t *testing.T) {
	s := New(1, meshlog.New("test", nil))
	err := s.Release(meshaddr.Address(0x0400))
	require.ErrorIs(t, err, ErrNotPresent)
}

func TestReadDeviceKeyForPresentEntry(t *testing.T) {
	s := New(1, meshlog.New("test", nil))
	addr := meshaddr.Address(0x0500)
	key := DeviceKey{0xAA, 0xBB}
	require.NoError(t, s.Acquire(addr, key))

	got, ok := s.ReadDeviceKey(addr)
	require.True(t, ok)
	require.Equal(t, key, got)
}
