// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package cfgclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/packetcraft-inc/stacks-sub009/internal/testsupport"
	"github.com/packetcraft-inc/stacks-sub009/pkg/keystore"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshlog"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshrt"
	"github.com/packetcraft-inc/stacks-sub009/pkg/pub"
	"github.com/packetcraft-inc/stacks-sub009/pkg/registry"
	"github.com/packetcraft-inc/stacks-sub009/pkg/wire"
)

// harness wires a Client to a FakeSender/FakeRuntime and a single
// Primary Element, for the Client-side end-to-end scenarios; the two
// Publication Engine scenarios are tested in pkg/pub.
type harness struct {
	client *Client
	sender *testsupport.FakeSender
	rt     *testsupport.FakeRuntime
	keys   *keystore.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := meshlog.New("test", nil)
	elem := &registry.Element{Addr: meshaddr.Address(0x0003)}
	reg := registry.New([]*registry.Element{elem}, meshaddr.Features{})
	keys := keystore.New(4, log)
	sender := &testsupport.FakeSender{}

	h := &harness{sender: sender, keys: keys}
	var eng *pub.Engine
	rt := testsupport.NewFakeRuntime(func(id meshrt.TimerID) {
		h.client.OnTimerFired(id)
		eng.OnTimerFired(id)
	})
	eng = pub.New(rt, sender, nil, nil, log)
	h.client = New(keys, eng, reg, rt, log, 10*time.Second)
	h.client.Register(reg)
	h.rt = rt
	return h
}

func devKey(b byte) *keystore.DeviceKey {
	k := keystore.DeviceKey{b}
	return &k
}

func TestScenarioBeaconGetStatusRoundTrip(t *testing.T) {
	h := newHarness(t)
	var got Event
	_, err := h.client.BeaconGet(meshaddr.Address(0x0100), devKey(0xAA), meshaddr.NetKeyIndex(0), func(e Event) { got = e })
	require.NoError(t, err)

	require.Len(t, h.sender.Sent, 1)
	require.Equal(t, wire.AppendOpcode(nil, 0x8009), h.sender.Sent[0].PDU)

	h.client.Recv(registry.MessageInfo{Src: meshaddr.Address(0x0100), NetKeyIndex: 0}, wire.ResponseOpcode(wire.EvtBeaconGet), []byte{0x01})

	require.Equal(t, StatusSuccess, got.Status)
	require.Equal(t, byte(0x01), got.Decoder().GetByte())
	require.Equal(t, 0, h.keys.Refcount(meshaddr.Address(0x0100)))
}

func TestScenarioModelAppBindSIG(t *testing.T) {
	h := newHarness(t)
	var got Event
	_, err := h.client.ModelAppBind(meshaddr.Address(0x0200), devKey(0xBB), meshaddr.NetKeyIndex(0),
		meshaddr.Address(0x0003), meshaddr.AppKeyIndex(0x005), meshaddr.SIGModel(0x1000),
		func(e Event) { got = e })
	require.NoError(t, err)

	wantParams := wire.NewEncoder(6)
	wantParams.PutAddress(0x0003)
	wantParams.PutUint16(0x0005)
	wantParams.PutModelID(meshaddr.SIGModel(0x1000))
	wantPDU := wire.AppendOpcode(nil, wire.RequestOpcode(wire.EvtModelAppBind))
	wantPDU = append(wantPDU, wantParams.Bytes()...)
	require.Equal(t, wantPDU, h.sender.Sent[0].PDU)

	respParams := wire.NewEncoder(7)
	respParams.PutByte(0x00)
	respParams.PutAddress(0x0003)
	respParams.PutUint16(0x0005)
	respParams.PutModelID(meshaddr.SIGModel(0x1000))
	h.client.Recv(registry.MessageInfo{Src: meshaddr.Address(0x0200), NetKeyIndex: 0}, wire.ResponseOpcode(wire.EvtModelAppBind), respParams.Bytes())

	require.Equal(t, StatusSuccess, got.Status)
	require.Equal(t, wire.EvtModelAppBind, got.APIEvent)
}

func TestScenarioSubscriptionDeleteAll(t *testing.T) {
	h := newHarness(t)
	var got Event
	_, err := h.client.ModelSubscriptionDeleteAll(meshaddr.Address(0x0300), devKey(0xCC), meshaddr.NetKeyIndex(0),
		meshaddr.Address(0x0002), meshaddr.SIGModel(0x1001), func(e Event) { got = e })
	require.NoError(t, err)

	wantParams := wire.NewEncoder(4)
	wantParams.PutAddress(0x0002)
	wantParams.PutModelID(meshaddr.SIGModel(0x1001))
	require.Equal(t, wantParams.Bytes(), h.sender.Sent[0].PDU[wire.RequestOpcode(wire.EvtModelSubscriptionDeleteAll).Size():])

	resp := wire.NewEncoder(5)
	resp.PutByte(0x00)
	resp.PutAddress(meshaddr.Address(0x0003))
	resp.PutModelID(meshaddr.SIGModel(0x1001))
	h.client.Recv(registry.MessageInfo{Src: meshaddr.Address(0x0300), NetKeyIndex: 0}, wire.ResponseOpcode(wire.EvtModelSubscriptionDeleteAll), resp.Bytes())

	require.Equal(t, StatusSuccess, got.Status)
	require.Equal(t, wire.EvtModelSubscriptionDeleteAll, got.APIEvent)
}

func TestScenarioTimeout(t *testing.T) {
	h := newHarness(t)
	var got Event
	_, err := h.client.DefaultTTLGet(meshaddr.Address(0x0400), devKey(0xDD), meshaddr.NetKeyIndex(0), func(e Event) { got = e })
	require.NoError(t, err)
	require.Equal(t, 1, h.keys.Refcount(meshaddr.Address(0x0400)))

	h.rt.Advance(11 * time.Second)

	require.Equal(t, StatusTimeout, got.Status)
	require.Equal(t, meshaddr.Address(0x0400), got.ServerAddr)
	require.Equal(t, 0, h.keys.Refcount(meshaddr.Address(0x0400)))
}

// TestScenarioLocalTargetSkipsKeystore covers the request pipeline's
// local-target short-circuit: address equals the primary element and
// no device key is supplied, so the call loops back through the
// primary element itself and never touches the Server-Key Store. The
// Virtual-group loopback scenario belongs to the Publication Engine,
// not the Client, and is covered by TestVirtualGroupLoopback in
// pkg/pub.
func TestScenarioLocalTargetSkipsKeystore(t *testing.T) {
	h := newHarness(t)
	var got Event
	_, err := h.client.BeaconGet(meshaddr.Address(0x0003), nil, meshaddr.NetKeyIndex(0), func(e Event) { got = e })
	require.NoError(t, err)
	require.Equal(t, 0, h.keys.Refcount(meshaddr.Address(0x0003)))

	h.client.Recv(registry.MessageInfo{Src: meshaddr.Address(0x0003), NetKeyIndex: 0}, wire.ResponseOpcode(wire.EvtBeaconGet), []byte{0x00})

	require.Equal(t, StatusSuccess, got.Status)
}

func TestInvalidParamsNeverAllocates(t *testing.T) {
	h := newHarness(t)
	_, err := h.client.DefaultTTLSet(meshaddr.Address(0x0500), devKey(0xEE), meshaddr.NetKeyIndex(0), 0xFF, func(Event) {})
	require.ErrorIs(t, err, ErrInvalidParams)
	require.Empty(t, h.sender.Sent)
}

// TestMalformedResponseContinuesScan covers the documented "scan
// continues on handler failure" behavior: a first response too short
// for its handler to accept must not consume the pending request, so
// a later, well-formed response for the same opcode still completes
// it.
func TestMalformedResponseContinuesScan(t *testing.T) {
	h := newHarness(t)
	var got Event
	_, err := h.client.DefaultTTLGet(meshaddr.Address(0x0700), devKey(0x11), meshaddr.NetKeyIndex(0), func(e Event) { got = e })
	require.NoError(t, err)

	// Too short: decodeTTLState requires exactly one byte.
	h.client.Recv(registry.MessageInfo{Src: meshaddr.Address(0x0700), NetKeyIndex: 0}, wire.ResponseOpcode(wire.EvtDefaultTTLGet), nil)
	require.Equal(t, Event{}, got)
	require.Equal(t, 1, h.keys.Refcount(meshaddr.Address(0x0700)))

	h.client.Recv(registry.MessageInfo{Src: meshaddr.Address(0x0700), NetKeyIndex: 0}, wire.ResponseOpcode(wire.EvtDefaultTTLGet), []byte{0x05})
	require.Equal(t, StatusSuccess, got.Status)
	require.Equal(t, uint8(0x05), got.U8)
	require.Equal(t, 0, h.keys.Refcount(meshaddr.Address(0x0700)))
}

// TestModelSubscriptionListOutOfResources covers the allocate-failure
// convention list-bearing responses follow: a list longer than the
// cap is reported as StatusOutOfResources with an empty list, rather
// than handed to the caller partially filled.
func TestModelSubscriptionListOutOfResources(t *testing.T) {
	h := newHarness(t)
	var got Event
	_, err := h.client.ModelSubscriptionGet(meshaddr.Address(0x0800), devKey(0x22), meshaddr.NetKeyIndex(0),
		meshaddr.Address(0x0003), meshaddr.SIGModel(0x1000), func(e Event) { got = e })
	require.NoError(t, err)

	enc := wire.NewEncoder(4 + 2*40)
	enc.PutAddress(meshaddr.Address(0x0003))
	enc.PutModelID(meshaddr.SIGModel(0x1000))
	for i := 0; i < 40; i++ {
		enc.PutAddress(meshaddr.Address(0xC000 + i))
	}
	h.client.Recv(registry.MessageInfo{Src: meshaddr.Address(0x0800), NetKeyIndex: 0}, wire.ResponseOpcode(wire.EvtModelSubscriptionGet), enc.Bytes())

	require.Equal(t, StatusOutOfResources, got.Status)
	require.Empty(t, got.Addresses)
}

// TestHeartbeatSubscriptionSetRoundTrip exercises the Set/Status
// symmetry restored between HeartbeatSubscription and its wire
// composite.
func TestHeartbeatSubscriptionSetRoundTrip(t *testing.T) {
	h := newHarness(t)
	var got Event
	hb := wire.HeartbeatSubscription{Source: meshaddr.Address(0x0003), Destination: meshaddr.Address(0xC000), PeriodLog: 0x05}
	_, err := h.client.HeartbeatSubscriptionSet(meshaddr.Address(0x0900), devKey(0x33), meshaddr.NetKeyIndex(0), hb, func(e Event) { got = e })
	require.NoError(t, err)

	resp := wire.HeartbeatSubscription{Source: hb.Source, Destination: hb.Destination, PeriodLog: hb.PeriodLog, CountLog: 0x02, MinHops: 0x01, MaxHops: 0x04}
	h.client.Recv(registry.MessageInfo{Src: meshaddr.Address(0x0900), NetKeyIndex: 0}, wire.ResponseOpcode(wire.EvtHeartbeatSubscriptionSet), resp.Pack())

	require.Equal(t, StatusSuccess, got.Status)
	require.Equal(t, resp, got.HeartbeatSub)
}

func TestKeyRefreshPhaseGetValidatesBeforeAllocating(t *testing.T) {
	h := newHarness(t)
	_, err := h.client.KeyRefreshPhaseGet(meshaddr.Address(0x0600), devKey(0xFF), meshaddr.NetKeyIndex(0), meshaddr.NetKeyIndex(0x1000), func(Event) {})
	require.ErrorIs(t, err, ErrInvalidParams)
	require.Empty(t, h.sender.Sent)
}
