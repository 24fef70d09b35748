// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package pub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/packetcraft-inc/stacks-sub009/internal/testsupport"
	"github.com/packetcraft-inc/stacks-sub009/pkg/access"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshlog"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshrt"
	"github.com/packetcraft-inc/stacks-sub009/pkg/registry"
	"github.com/packetcraft-inc/stacks-sub009/pkg/wire"
)

func newTestSetup(t *testing.T) (*Engine, *testsupport.FakeSender, *testsupport.FakeRuntime, *registry.ModelInstance) {
	t.Helper()
	sender := &testsupport.FakeSender{}
	model := registry.NewModelInstance(meshaddr.SIGModel(0x1000), nil, nil)

	var eng *Engine
	rt := testsupport.NewFakeRuntime(func(id meshrt.TimerID) { eng.OnTimerFired(id) })
	eng = New(rt, sender, nil, nil, meshlog.New("test", nil))
	return eng, sender, rt, model
}

func TestErrata10578SupersessionCancelsStaleRetransmit(t *testing.T) {
	eng, sender, rt, model := newTestSetup(t)

	model.Bind(meshaddr.AppKeyIndex(0))
	model.Publication = registry.PublicationState{
		Address:    meshaddr.Address(0x0050),
		Retransmit: wire.PublicationRetransmit{Count: 3, IntervalSteps: 2},
	}

	// Publish A at t0 with count=3: one initial send, then a
	// retransmit timer armed but never allowed to fire before B
	// supersedes it.
	require.NoError(t, eng.PublishState(0, meshaddr.Address(0x0003), model, 0x8019, nil))
	require.Len(t, sender.Sent, 1)

	// Publish B from the same (element, opcode) pair before A's
	// first retransmit tick: Errata-10578 cancels A's pending
	// retransmit before B's record is installed.
	model.Publication.Retransmit = wire.PublicationRetransmit{Count: 1, IntervalSteps: 2}
	require.NoError(t, eng.PublishState(0, meshaddr.Address(0x0003), model, 0x8019, nil))
	require.Len(t, sender.Sent, 2)

	// Advance well past any retransmit deadline: A must not have
	// contributed a retransmit (it was canceled), so exactly one
	// retransmit fires for B, not two.
	rt.Advance(10 * time.Second)

	require.Len(t, sender.Sent, 3)
}

func TestPublishStateUnassignedIsNoop(t *testing.T) {
	eng, sender, _, model := newTestSetup(t)
	// Publication.Address left at its zero value (Unassigned).
	require.NoError(t, eng.PublishState(0, meshaddr.Address(0x0003), model, 0x8019, nil))
	require.Empty(t, sender.Sent)
}

func TestPublishStateRejectsUnboundAppKey(t *testing.T) {
	eng, sender, _, model := newTestSetup(t)
	// No Bind call: the model has no AppKeyIndex 0 in its binding set.
	model.Publication = registry.PublicationState{
		Address:     meshaddr.Address(0x0050),
		AppKeyIndex: meshaddr.AppKeyIndex(0),
		Retransmit:  wire.PublicationRetransmit{Count: 1, IntervalSteps: 2},
	}
	require.ErrorIs(t, eng.PublishState(0, meshaddr.Address(0x0003), model, 0x8019, nil), ErrInvalidPublication)
	require.Empty(t, sender.Sent)
}

func TestPublishStateLocalUnicastForcesZeroRetransmit(t *testing.T) {
	eng, sender, rt, model := newTestSetup(t)
	model.Bind(meshaddr.AppKeyIndex(0))

	primary := meshaddr.Address(0x0003)
	model.Publication = registry.PublicationState{
		Address:    primary,
		Retransmit: wire.PublicationRetransmit{Count: 5, IntervalSteps: 2},
	}

	require.NoError(t, eng.PublishState(0, primary, model, 0x8019, nil))
	require.Len(t, sender.Sent, 1)

	// No retransmit record should have been armed for the loopback
	// destination: advancing well past any retransmit deadline must
	// not produce a second send.
	rt.Advance(10 * time.Second)
	require.Len(t, sender.Sent, 1)
}

func TestSendWithDelayZeroRangeSendsImmediately(t *testing.T) {
	eng, sender, _, _ := newTestSetup(t)
	dst := meshaddr.Address(0x0050)
	require.NoError(t, eng.SendWithDelay(meshaddr.Address(0x0003), dst, nil, meshaddr.AppKeyIndex(0), meshaddr.NetKeyIndex(0), 0x7F, 0x8019, nil, 0, 0))
	require.Len(t, sender.Sent, 1)
}

func TestSendWithDelayDefersUntilTimerFires(t *testing.T) {
	eng, sender, rt, _ := newTestSetup(t)
	rt.SetRandSeq([]uint32{250})

	dst := meshaddr.Address(0x0050)
	require.NoError(t, eng.SendWithDelay(meshaddr.Address(0x0003), dst, nil, meshaddr.AppKeyIndex(0), meshaddr.NetKeyIndex(0), 0x7F, 0x8019, nil, 100, 500))
	require.Empty(t, sender.Sent)

	rt.Advance(350 * time.Millisecond)
	require.Len(t, sender.Sent, 1)
}

func TestSendWithDelayRejectsInvertedRange(t *testing.T) {
	eng, sender, _, _ := newTestSetup(t)
	dst := meshaddr.Address(0x0050)
	err := eng.SendWithDelay(meshaddr.Address(0x0003), dst, nil, meshaddr.AppKeyIndex(0), meshaddr.NetKeyIndex(0), 0x7F, 0x8019, nil, 500, 100)
	require.ErrorIs(t, err, ErrInvalidDelayRange)
	require.Empty(t, sender.Sent)
}

type recordingHandler struct {
	info []registry.MessageInfo
}

func (h *recordingHandler) Recv(info registry.MessageInfo, op wire.Opcode, params []byte) {
	h.info = append(h.info, info)
}

// TestVirtualGroupLoopback is the Virtual-group loopback scenario: the
// publication destination is a Virtual address with a Label UUID the
// primary element's own SIG model is subscribed to, no peer is
// reachable, and the subscribed local model receives the delivery via
// the Access Dispatcher with recv_on_unicast=false, src set to the
// publishing element's own address, dst the virtual address, and the
// matching label.
func TestVirtualGroupLoopback(t *testing.T) {
	label, err := meshaddr.ParseLabelUUID("01234567-89ab-cdef-0123-456789abcdef")
	require.NoError(t, err)
	virt := meshaddr.VirtualAddr{Addr: meshaddr.Address(0x9000), Label: label}

	h := &recordingHandler{}
	sub := registry.NewModelInstance(meshaddr.SIGModel(0x1000), []wire.Opcode{0x8019}, h)
	sub.Bind(meshaddr.AppKeyIndex(0))
	sub.SubscribeVirtual(virt)

	primary := meshaddr.Address(0x0003)
	elem := &registry.Element{Addr: primary, SIG: []*registry.ModelInstance{sub}}
	reg := registry.New([]*registry.Element{elem}, meshaddr.Features{})
	log := meshlog.New("test", nil)
	disp := access.New(reg, log)

	sender := &testsupport.FakeSender{}
	pubModel := registry.NewModelInstance(meshaddr.SIGModel(0x1001), nil, nil)
	pubModel.Bind(meshaddr.AppKeyIndex(0))
	pubModel.Publication = registry.PublicationState{
		Address: virt.Addr,
		Label:   &label,
	}

	var eng *Engine
	rt := testsupport.NewFakeRuntime(func(id meshrt.TimerID) { eng.OnTimerFired(id) })
	eng = New(rt, sender, nil, disp, log)

	require.NoError(t, eng.PublishState(0, primary, pubModel, 0x8019, nil))

	require.Len(t, sender.Sent, 1)
	require.Len(t, h.info, 1)
	require.False(t, h.info[0].RecvOnUnicast)
	require.Equal(t, primary, h.info[0].Src)
	require.Equal(t, virt.Addr, h.info[0].Dst)
	require.NotNil(t, h.info[0].Label)
	require.True(t, h.info[0].Label.Equal(label))
}
