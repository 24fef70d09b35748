// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package friend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
)

func TestEstablishmentHappyPath(t *testing.T) {
	m := New(meshaddr.NetKeyIndex(0))
	require.Equal(t, StateIdle, m.State())

	require.Equal(t, StateWaitReq, m.Handle(EvtFriendReqRecv))
	require.Equal(t, StateStartKeyDeriv, m.Handle(EvtPollRecv))
	require.Equal(t, StateWaitRecvTimeout, m.Handle(EvtKeyDerivSuccess))
	require.Equal(t, StateEstab, m.Handle(EvtPollRecv))

	m.SetFriendOf(meshaddr.Address(0x0010))
	addr, ok := m.FriendAddrForSubnet(meshaddr.NetKeyIndex(0))
	require.True(t, ok)
	require.Equal(t, meshaddr.Address(0x0010), addr)
}

func TestStateDisabledAlwaysTerminates(t *testing.T) {
	m := New(meshaddr.NetKeyIndex(0))
	m.Handle(EvtFriendReqRecv)
	m.Handle(EvtPollRecv)
	require.Equal(t, StateStartKeyDeriv, m.State())

	require.Equal(t, StateIdle, m.Handle(EvtStateDisabled))
}

func TestUnhandledEventIgnored(t *testing.T) {
	m := New(meshaddr.NetKeyIndex(0))
	require.Equal(t, StateIdle, m.Handle(EvtClearCnfRecv))
}

func TestFriendAddrForSubnetNotEstablished(t *testing.T) {
	m := New(meshaddr.NetKeyIndex(2))
	_, ok := m.FriendAddrForSubnet(meshaddr.NetKeyIndex(2))
	require.False(t, ok)
}

func TestRegistryNetKeyDeletedTearsDownMachine(t *testing.T) {
	r := NewRegistry()
	m := r.MachineFor(meshaddr.NetKeyIndex(1))
	m.Handle(EvtFriendReqRecv)
	m.Handle(EvtPollRecv)
	m.Handle(EvtKeyDerivSuccess)
	m.Handle(EvtPollRecv)
	m.SetFriendOf(meshaddr.Address(0x0020))
	require.Equal(t, StateEstab, m.State())

	addr, ok := r.FriendAddrForSubnet(meshaddr.NetKeyIndex(1))
	require.True(t, ok)
	require.Equal(t, meshaddr.Address(0x0020), addr)

	r.NetKeyDeleted(meshaddr.NetKeyIndex(1))
	_, ok = r.FriendAddrForSubnet(meshaddr.NetKeyIndex(1))
	require.False(t, ok)
}
