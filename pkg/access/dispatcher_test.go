// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package access

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshlog"
	"github.com/packetcraft-inc/stacks-sub009/pkg/registry"
	"github.com/packetcraft-inc/stacks-sub009/pkg/wire"
)

type recordingHandler struct {
	recvd []wire.Opcode
}

func (h *recordingHandler) Recv(info registry.MessageInfo, op wire.Opcode, params []byte) {
	h.recvd = append(h.recvd, op)
}

func newTestRegistry(t *testing.T) (*registry.Registry, *registry.ModelInstance, *recordingHandler) {
	t.Helper()
	h := &recordingHandler{}
	opcodes := []wire.Opcode{0x8009}
	model := registry.NewModelInstance(meshaddr.SIGModel(0x1000), opcodes, h)
	model.Bind(meshaddr.AppKeyIndex(5))

	elem := &registry.Element{Addr: meshaddr.Address(0x0003), SIG: []*registry.ModelInstance{model}}
	reg := registry.New([]*registry.Element{elem}, meshaddr.Features{})
	return reg, model, h
}

func TestDispatchUnicastBoundOpcodeDelivers(t *testing.T) {
	reg, _, h := newTestRegistry(t)
	d := New(reg, meshlog.New("test", nil))

	pdu := wire.AppendOpcode(nil, 0x8009)
	d.HandlePDU(InboundPDU{
		Src: 0x0001, Dst: 0x0003, AppKeyIndex: 5, PDU: pdu,
	})

	require.Equal(t, []wire.Opcode{0x8009}, h.recvd)
}

func TestDispatchUnboundAppKeyDrops(t *testing.T) {
	reg, _, h := newTestRegistry(t)
	d := New(reg, meshlog.New("test", nil))

	pdu := wire.AppendOpcode(nil, 0x8009)
	d.HandlePDU(InboundPDU{
		Src: 0x0001, Dst: 0x0003, AppKeyIndex: 6, PDU: pdu,
	})

	require.Empty(t, h.recvd)
}

func TestDispatchUnknownOpcodeDrops(t *testing.T) {
	reg, _, h := newTestRegistry(t)
	d := New(reg, meshlog.New("test", nil))

	pdu := wire.AppendOpcode(nil, 0x8099)
	d.HandlePDU(InboundPDU{
		Src: 0x0001, Dst: 0x0003, AppKeyIndex: 5, PDU: pdu,
	})

	require.Empty(t, h.recvd)
}

func TestDispatchGroupSubscriptionMatch(t *testing.T) {
	reg, model, h := newTestRegistry(t)
	model.Subscribe(meshaddr.Address(0xC001))
	d := New(reg, meshlog.New("test", nil))

	pdu := wire.AppendOpcode(nil, 0x8009)
	d.HandlePDU(InboundPDU{
		Src: 0x0001, Dst: 0xC001, AppKeyIndex: 5, PDU: pdu,
	})

	require.Equal(t, []wire.Opcode{0x8009}, h.recvd)
}

func TestDispatchIngressOrderPreserved(t *testing.T) {
	reg, _, h := newTestRegistry(t)
	d := New(reg, meshlog.New("test", nil))

	for i := 0; i < 3; i++ {
		pdu := wire.AppendOpcode(nil, 0x8009)
		d.HandlePDU(InboundPDU{Src: 0x0001, Dst: 0x0003, AppKeyIndex: 5, PDU: pdu})
	}

	require.Equal(t, []wire.Opcode{0x8009, 0x8009, 0x8009}, h.recvd)
}

func TestDispatchFixedGroupCollapse(t *testing.T) {
	h := &recordingHandler{}
	model := registry.NewModelInstance(meshaddr.SIGModel(0x1000), []wire.Opcode{0x8009}, h)
	model.Bind(meshaddr.AppKeyIndex(5))
	elem := &registry.Element{Addr: meshaddr.Address(0x0003), SIG: []*registry.ModelInstance{model}}
	reg := registry.New([]*registry.Element{elem}, meshaddr.Features{Relay: true})
	d := New(reg, meshlog.New("test", nil))

	pdu := wire.AppendOpcode(nil, 0x8009)
	d.HandlePDU(InboundPDU{Src: 0x0001, Dst: meshaddr.AllRelays, AppKeyIndex: 5, PDU: pdu})

	require.Equal(t, []wire.Opcode{0x8009}, h.recvd)
}

func TestDispatchFixedGroupFeatureDisabledDrops(t *testing.T) {
	reg, _, h := newTestRegistry(t)
	d := New(reg, meshlog.New("test", nil))

	pdu := wire.AppendOpcode(nil, 0x8009)
	d.HandlePDU(InboundPDU{Src: 0x0001, Dst: meshaddr.AllRelays, AppKeyIndex: 5, PDU: pdu})

	require.Empty(t, h.recvd)
}
