// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package cfgclient implements the Configuration Client Core: the
// request/response pipeline that drives remote Configuration Servers
// (validate, remap-local, allocate, acquire, pack, post-send), its
// response demultiplexing and timeout handling, and the full
// Configuration Model API surface. The request lifecycle follows
// mesh_cfg_mdl_cl_main.c's client event model, adapted to a
// request/callback pipeline with no forced synchronous wait.
package cfgclient

import (
	"errors"
	"time"

	"github.com/packetcraft-inc/stacks-sub009/pkg/keystore"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshlog"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshrt"
	"github.com/packetcraft-inc/stacks-sub009/pkg/pub"
	"github.com/packetcraft-inc/stacks-sub009/pkg/registry"
	"github.com/packetcraft-inc/stacks-sub009/pkg/wire"
)

// ErrInvalidParams is returned synchronously from a request
// constructor when argument validation fails; the call never reaches
// the Pending Request Queue.
var ErrInvalidParams = errors.New("cfgclient: invalid parameters")

// Callback is invoked exactly once per successfully allocated request,
// either on a matching response or on timeout.
type Callback func(Event)

// pendingRequest is the Client Request Record tracked while a request
// awaits a matching response or timeout.
type pendingRequest struct {
	handle     RequestHandle
	evt        wire.APIEvent
	reqOp      wire.Opcode
	rspOp      wire.Opcode
	serverAddr meshaddr.Address
	netKeyIdx  meshaddr.NetKeyIndex
	local      bool
	timerID    meshrt.TimerID
	cb         Callback

	// reqModel is the model identifier the request named, if any. A
	// handful of response handlers (Model Subscription/App List) need
	// it to tell a SIG model's 2-byte packed form from a vendor
	// model's 4-byte form apart from the trailing address/key-index
	// array that follows it on the wire.
	reqModel meshaddr.ModelID
}

// Client owns the Pending Request Queue (held as a slice, not a
// linked list), the Server-Key Store, the Publication Engine send
// path, and the static Registry used to resolve the local primary
// element address.
type Client struct {
	keys    *keystore.Store
	engine  *pub.Engine
	reg     *registry.Registry
	rt      meshrt.Runtime
	log     meshlog.Clog
	timeout time.Duration

	ids     meshrt.IDAllocator
	nextHdl RequestHandle
	pending []*pendingRequest
	byTimer map[meshrt.TimerID]*pendingRequest
}

// New constructs a Client. timeout is the per-client response timeout
// (default 10s).
func New(keys *keystore.Store, engine *pub.Engine, reg *registry.Registry, rt meshrt.Runtime, log meshlog.Clog, timeout time.Duration) *Client {
	return &Client{
		keys: keys, engine: engine, reg: reg, rt: rt, log: log, timeout: timeout,
		byTimer: make(map[meshrt.TimerID]*pendingRequest),
	}
}

// localTarget reports whether addr/devKey denote a request to the
// local node: address equal to the primary element's own address and
// no device key pointer supplied.
func (c *Client) localTarget(addr meshaddr.Address, devKey *keystore.DeviceKey) bool {
	return addr == c.reg.PrimaryAddress() && devKey == nil
}

// validateTarget applies the common validation every request shares: a
// non-local target must be Unicast with a non-nil device key, and the
// NetKey index must be in range.
func (c *Client) validateTarget(addr meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex) error {
	if !netKeyIdx.Valid() {
		return ErrInvalidParams
	}
	if c.localTarget(addr, devKey) {
		return nil
	}
	if !addr.IsUnicast() || devKey == nil {
		return ErrInvalidParams
	}
	return nil
}

// request runs the full pipeline (validate, remap-local, allocate,
// acquire, pack, send) for one API call and returns the allocated
// handle. params is the already-packed request body; reqOp/rspOp/evt
// come from the static opcode table.
func (c *Client) request(evt wire.APIEvent, addr meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, params []byte, cb Callback) (RequestHandle, error) {
	return c.requestModel(evt, addr, devKey, netKeyIdx, meshaddr.ModelID{}, params, cb)
}

// requestModel is request's superset, additionally recording the model
// identifier the caller addressed so a list-response handler can later
// tell its SIG-vs-vendor wire length apart from the trailing array.
func (c *Client) requestModel(evt wire.APIEvent, addr meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, reqModel meshaddr.ModelID, params []byte, cb Callback) (RequestHandle, error) {
	if err := c.validateTarget(addr, devKey, netKeyIdx); err != nil {
		return 0, err
	}

	local := c.localTarget(addr, devKey)
	reqOp := wire.RequestOpcode(evt)
	rspOp := wire.ResponseOpcode(evt)

	if !local {
		if err := c.keys.Acquire(addr, keystore.DeviceKey(*devKey)); err != nil {
			// Store full or key mismatch: the call silently
			// returns, on the allocation-failure rule. The
			// caller observes absence of completion.
			c.log.Debug("cfgclient: server-key acquire failed", "err", err)
			return 0, nil
		}
	}

	// Local request records store Unassigned as the matching address,
	// since Recv rewrites a loopback response's source from the
	// primary element's own address to Unassigned before scanning the
	// Pending Request Queue.
	recordAddr := addr
	if local {
		recordAddr = meshaddr.Unassigned
	}

	c.nextHdl++
	rec := &pendingRequest{
		handle: c.nextHdl, evt: evt, reqOp: reqOp, rspOp: rspOp,
		serverAddr: recordAddr, netKeyIdx: netKeyIdx, local: local, cb: cb,
		reqModel: reqModel,
	}

	timerID := c.ids.Alloc()
	rec.timerID = timerID
	c.byTimer[timerID] = rec
	c.pending = append(c.pending, rec)
	c.rt.ArmTimer(c.timeout, timerID)

	dst := addr
	appKeyIdx := meshaddr.RemoteDevKeyMarker
	if local {
		dst = c.reg.PrimaryAddress()
		appKeyIdx = meshaddr.LocalDevKeyMarker
	}
	if err := c.engine.SendImmediate(c.reg.PrimaryAddress(), dst, nil, appKeyIdx, netKeyIdx, defaultTTL, reqOp, params); err != nil {
		c.log.Debug("cfgclient: send failed", "err", err)
	}
	return rec.handle, nil
}

// defaultTTL is the Configuration Client's default outbound TTL,
// matching the source's MESH_USE_DEFAULT_TTL convention for
// configuration traffic.
const defaultTTL = 0xFF

// Register binds the Client as a core-model entry on the primary
// element for every distinct response opcode in the static table, so
// the Access Dispatcher routes Configuration Server responses to
// Recv.
func (c *Client) Register(reg *registry.Registry) {
	reg.RegisterCoreModel(registry.CoreModelEntry{
		ElementID: meshaddr.PrimaryElementID,
		Opcodes:   wire.AllResponseOpcodes(),
		Handler:   c,
	})
}

// Recv implements registry.Handler, registered against every response
// opcode in the static opcode table as a core-model entry.
func (c *Client) Recv(info registry.MessageInfo, op wire.Opcode, params []byte) {
	src := info.Src
	if src == c.reg.PrimaryAddress() {
		// Rewrite to Unassigned so loopback responses match local
		// request records, which were sent with dst == primary
		// address but recorded by request with serverAddr set to
		// Unassigned.
		src = meshaddr.Unassigned
	}

	for i, rec := range c.pending {
		if rec.rspOp != op || rec.serverAddr != src || rec.netKeyIdx != info.NetKeyIndex {
			continue
		}
		if !c.dispatchResponse(rec, params) {
			// Handler rejected this response; the scan
			// continues in case a later pending request of the
			// same opcode matches instead.
			continue
		}
		c.removePending(i)
		return
	}
}

// dispatchResponse decodes params per rec.evt and invokes rec.cb,
// returning whether the response was accepted. A response is accepted
// only if it parses and passes the per-opcode handler's semantic
// validation; on rejection the timer, Pending Request Queue entry, and
// Server-Key Store refcount are left untouched, so Recv's scan can
// still match a later pending request of the same response opcode
// against this same wire message.
func (c *Client) dispatchResponse(rec *pendingRequest, params []byte) bool {
	statusBearing := !noStatusByteEvents[rec.evt]
	if statusBearing && len(params) == 0 {
		return false
	}

	status, remoteCode := StatusSuccess, uint8(0)
	trailing := params
	if statusBearing {
		status, remoteCode = remapRemoteStatus(params[0])
		trailing = params[1:]
	}

	evt := Event{
		APIEvent: rec.evt, Status: status, RemoteCode: remoteCode,
		ServerAddr: rec.serverAddr, NetKeyIdx: rec.netKeyIdx, raw: params,
	}
	if handler := responseHandlers[rec.evt]; handler != nil {
		if !handler(&evt, trailing, rec.reqModel) {
			return false
		}
	}

	c.rt.CancelTimer(rec.timerID)
	delete(c.byTimer, rec.timerID)
	if !rec.local {
		_ = c.keys.Release(rec.serverAddr)
	}
	rec.cb(evt)
	return true
}

// OnTimerFired must be invoked by the owner when a timer armed
// through Runtime fires; unmatched ids (already handled, or armed by
// a different owner) are ignored.
func (c *Client) OnTimerFired(id meshrt.TimerID) {
	rec, ok := c.byTimer[id]
	if !ok {
		return
	}
	delete(c.byTimer, id)
	idx := c.indexOf(rec)
	if idx < 0 {
		return
	}
	c.removePending(idx)

	if !rec.local {
		_ = c.keys.Release(rec.serverAddr)
	}
	rec.cb(Event{APIEvent: rec.evt, Status: StatusTimeout, ServerAddr: rec.serverAddr, NetKeyIdx: rec.netKeyIdx})
}

func (c *Client) indexOf(rec *pendingRequest) int {
	for i, r := range c.pending {
		if r == rec {
			return i
		}
	}
	return -1
}

func (c *Client) removePending(i int) {
	c.pending = append(c.pending[:i], c.pending[i+1:]...)
}

// noStatusByteEvents are API events whose response message reports
// its state directly, with no leading status byte to remap, either
// because the message can't fail (a pure state readback: Beacon,
// GATT Proxy, Relay, Default TTL, Friend, Network Transmit, Node
// Identity, Heartbeat Publication/Subscription state, Node Reset) or
// because it's a list Get with its own empty-list failure convention
// (Composition Data, NetKey/AppKey/Model App/Model Subscription Get).
var noStatusByteEvents = map[wire.APIEvent]bool{
	wire.EvtBeaconGet: true, wire.EvtBeaconSet: true,
	wire.EvtGATTProxyGet: true, wire.EvtGATTProxySet: true,
	wire.EvtRelayGet: true, wire.EvtRelaySet: true,
	wire.EvtDefaultTTLGet: true, wire.EvtDefaultTTLSet: true,
	wire.EvtFriendGet: true, wire.EvtFriendSet: true,
	wire.EvtNetworkTransmitGet: true, wire.EvtNetworkTransmitSet: true,
	wire.EvtNodeIdentityGet: true, wire.EvtNodeIdentitySet: true,
	wire.EvtHeartbeatPublicationGet: true, wire.EvtHeartbeatPublicationSet: true,
	wire.EvtHeartbeatSubscriptionGet: true, wire.EvtHeartbeatSubscriptionSet: true,
	wire.EvtCompositionDataGet: true, wire.EvtNetKeyGet: true, wire.EvtAppKeyGet: true,
	wire.EvtModelSubscriptionGet: true, wire.EvtModelAppGet: true, wire.EvtLPNPollTimeoutGet: true,
	wire.EvtNodeReset: true,
}
