// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package pub implements the Publication Engine: outbound message
// scheduling against a model's Publication Record, including the
// randomized pre-send delay, retransmit timer arming, and the
// Errata-10578 rule that cancels any record already pending for the
// same (source element, opcode) pair before a new one is enqueued.
// Its per-publish retransmit record follows the send-state/ack-timer
// bookkeeping style used throughout the Packetcraft reference stack,
// adapted to mesh_access_main.c's meshAccPpSendPublication /
// MeshAccSendMessage retransmit logic.
package pub

import (
	"errors"
	"time"

	"github.com/packetcraft-inc/stacks-sub009/pkg/access"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshlog"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshrt"
	"github.com/packetcraft-inc/stacks-sub009/pkg/registry"
	"github.com/packetcraft-inc/stacks-sub009/pkg/wire"
)

// ErrInvalidDelayRange is returned by SendWithDelay when the caller's
// delay bounds are inverted.
var ErrInvalidDelayRange = errors.New("pub: invalid delay range")

// ErrInvalidPublication is returned by PublishState when a model's
// Publication Record fails the AppKey binding, TTL, or retransmit
// range checks required before a publish is sent.
var ErrInvalidPublication = errors.New("pub: invalid publication state")

// retransStep is the fixed retransmit interval unit: interval =
// (steps+1)*50ms, so an encoded step value of 0 is a 50 ms interval,
// not a zero-length one.
const retransStep = 50 * time.Millisecond

// UpperTransportSender is the external send hook: it encrypts and
// hands the PDU to the Network layer. The Engine never retains PDUs
// beyond a single send call; retransmission re-encodes from the
// retained retransmit record instead of caching ciphertext.
type UpperTransportSender interface {
	Send(src, dst meshaddr.Address, label *meshaddr.LabelUUID, appKeyIndex meshaddr.AppKeyIndex, netKeyIndex meshaddr.NetKeyIndex, ttl uint8, pdu []byte) error
}

// FriendAddrResolver consults the Friend-state handoff for the
// Friend's unicast address serving the given subnet. New stores the
// resolver, but no send, publish or loopback path of the Engine calls
// it, and the friendship-credential flag does not change how a
// message is addressed.
type FriendAddrResolver interface {
	FriendAddrForSubnet(netKeyIndex meshaddr.NetKeyIndex) (meshaddr.Address, bool)
}

// retransKey uniquely identifies one retransmit record: no two
// records share a (source element, opcode) pair.
type retransKey struct {
	elem meshaddr.ElementID
	op   wire.Opcode
}

// pendingSend is a Pending-Send record: one application-triggered send
// waiting out its randomized pre-send delay before hand-off to
// SendImmediate.
type pendingSend struct {
	srcElem   meshaddr.Address
	dst       meshaddr.Address
	label     *meshaddr.LabelUUID
	appKeyIdx meshaddr.AppKeyIndex
	netKeyIdx meshaddr.NetKeyIndex
	ttl       uint8
	opcode    wire.Opcode
	params    []byte
}

type retransRecord struct {
	key       retransKey
	model     *registry.ModelInstance
	src       meshaddr.Address
	dst       meshaddr.Address
	label     *meshaddr.LabelUUID
	appKeyIdx meshaddr.AppKeyIndex
	netKeyIdx meshaddr.NetKeyIndex
	ttl       uint8
	opcode    wire.Opcode
	params    []byte
	count     uint8 // remaining retransmits
	timerID   meshrt.TimerID
}

// Engine schedules and retransmits publications and immediate
// application-triggered sends. It holds no goroutine of its own: all
// suspension runs through the injected Runtime.
type Engine struct {
	rt     meshrt.Runtime
	sender UpperTransportSender
	friend FriendAddrResolver
	disp   *access.Dispatcher
	log    meshlog.Clog

	ids          meshrt.IDAllocator
	records      map[retransKey]*retransRecord
	byTimer      map[meshrt.TimerID]*retransRecord
	pendingSends map[meshrt.TimerID]*pendingSend
}

// New constructs an Engine. disp is consulted only for the local
// loopback pass after a Multicast or Virtual destination hand-off.
// This is the one place pub imports access, never the reverse.
func New(rt meshrt.Runtime, sender UpperTransportSender, friend FriendAddrResolver, disp *access.Dispatcher, log meshlog.Clog) *Engine {
	return &Engine{
		rt:           rt,
		sender:       sender,
		friend:       friend,
		disp:         disp,
		log:          log,
		records:      make(map[retransKey]*retransRecord),
		byTimer:      make(map[meshrt.TimerID]*retransRecord),
		pendingSends: make(map[meshrt.TimerID]*pendingSend),
	}
}

// SendImmediate transmits opcode/params once from srcElem with no
// retransmit record, used for response messages and other one-shot
// sends that bypass the Publication Record entirely. Local unicast and
// the post-hand-off loopback pass for Multicast/Virtual destinations
// both go through this path.
func (e *Engine) SendImmediate(srcElem meshaddr.Address, dst meshaddr.Address, label *meshaddr.LabelUUID, appKeyIdx meshaddr.AppKeyIndex, netKeyIdx meshaddr.NetKeyIndex, ttl uint8, opcode wire.Opcode, params []byte) error {
	pdu := encodePDU(opcode, params)

	if dst == srcElem {
		e.loopback(srcElem, dst, label, appKeyIdx, netKeyIdx, ttl, pdu)
		return nil
	}

	err := e.sender.Send(srcElem, dst, label, appKeyIdx, netKeyIdx, ttl, pdu)
	if err != nil {
		return err
	}
	if dst.IsFixedGroup() || dst.IsDynamicGroup() || dst.IsVirtual() {
		e.loopback(srcElem, dst, label, appKeyIdx, netKeyIdx, ttl, pdu)
	}
	return nil
}

// SendWithDelay behaves like SendImmediate, except that when delayMinMs
// and delayMaxMs are not both zero, the send is deferred by a duration
// drawn uniformly at random from [delayMinMs, delayMaxMs] instead of
// going out immediately. This is the randomized pre-send delay used to
// desynchronize replies several nodes would otherwise send at once
// (e.g. group-addressed status responses); delayMinMs == delayMaxMs ==
// 0 is the common case and hands off to SendImmediate with no Pending-
// Send record involved.
func (e *Engine) SendWithDelay(srcElem, dst meshaddr.Address, label *meshaddr.LabelUUID, appKeyIdx meshaddr.AppKeyIndex, netKeyIdx meshaddr.NetKeyIndex, ttl uint8, opcode wire.Opcode, params []byte, delayMinMs, delayMaxMs uint32) error {
	if delayMinMs == 0 && delayMaxMs == 0 {
		return e.SendImmediate(srcElem, dst, label, appKeyIdx, netKeyIdx, ttl, opcode, params)
	}
	if delayMaxMs < delayMinMs {
		return ErrInvalidDelayRange
	}

	span := delayMaxMs - delayMinMs + 1
	delay := delayMinMs + e.rt.Rand32()%span

	ps := &pendingSend{
		srcElem: srcElem, dst: dst, label: label,
		appKeyIdx: appKeyIdx, netKeyIdx: netKeyIdx, ttl: ttl,
		opcode: opcode, params: append([]byte(nil), params...),
	}
	id := e.ids.Alloc()
	e.pendingSends[id] = ps
	e.rt.ArmTimer(time.Duration(delay)*time.Millisecond, id)
	return nil
}

// PublishState (re)establishes a model's outbound retransmit record
// and sends the first copy immediately; callers invoke this whenever
// a model's state changes and its Publication Record is not
// Unassigned. The Engine has no periodic-publish timer of its own.
func (e *Engine) PublishState(srcElem meshaddr.ElementID, srcAddr meshaddr.Address, model *registry.ModelInstance, opcode wire.Opcode, params []byte) error {
	pub := model.Publication
	if pub.Unassigned() {
		return nil
	}
	if err := validatePublication(pub, model); err != nil {
		return err
	}

	key := retransKey{elem: srcElem, op: opcode}

	// Errata-10578: cancel any record already pending for this
	// (source element, opcode) pair before the new one is enqueued,
	// not after. A stale retransmit must never outlive the state
	// change that superseded it.
	e.cancelRecord(key)

	pdu := encodePDU(opcode, params)
	err := e.sender.Send(srcAddr, pub.Address, pub.Label, pub.AppKeyIndex, pub.NetKeyIndex, pub.TTL, pdu)
	if err != nil {
		return err
	}

	local := pub.Address == srcAddr
	if pub.Address.IsFixedGroup() || pub.Address.IsDynamicGroup() || pub.Address.IsVirtual() || local {
		e.loopback(srcAddr, pub.Address, pub.Label, pub.AppKeyIndex, pub.NetKeyIndex, pub.TTL, pdu)
	}

	count := pub.Retransmit.Count
	if local {
		// Loopback already delivered the only copy this destination
		// will ever see; there is no wire retransmission to arm.
		count = 0
	}
	if count == 0 {
		return nil
	}

	rec := &retransRecord{
		key: key, model: model, src: srcAddr, dst: pub.Address, label: pub.Label,
		appKeyIdx: pub.AppKeyIndex, netKeyIdx: pub.NetKeyIndex, ttl: pub.TTL,
		opcode: opcode, params: append([]byte(nil), params...), count: count,
	}
	e.armRetransmit(rec, pub.Retransmit.IntervalSteps)
	e.records[key] = rec
	return nil
}

// validatePublication applies the checks a Publication Record must
// pass before it can be sent: both key indices in range, the model
// actually bound to the configured AppKey index, TTL either a valid
// hop count or the use-default-TTL sentinel, and the retransmit
// composite within its 3-bit count / 5-bit interval-step fields. The
// composite codec itself never rejects an out-of-range field (see
// composites.go); this is the caller-side check that file's comment
// promises.
func validatePublication(pub registry.PublicationState, model *registry.ModelInstance) error {
	if !pub.NetKeyIndex.Valid() || !pub.AppKeyIndex.Valid() {
		return ErrInvalidPublication
	}
	if !model.BindingContains(pub.AppKeyIndex) {
		return ErrInvalidPublication
	}
	if pub.TTL > 0x7F && pub.TTL != 0xFF {
		return ErrInvalidPublication
	}
	if pub.Retransmit.Count > 0x07 || pub.Retransmit.IntervalSteps > 0x1F {
		return ErrInvalidPublication
	}
	return nil
}

// armRetransmit schedules rec's next retransmit (steps+1)*50ms from now,
// per the Configuration Model's publish retransmit interval encoding.
func (e *Engine) armRetransmit(rec *retransRecord, steps uint8) {
	id := e.ids.Alloc()
	rec.timerID = id
	e.byTimer[id] = rec
	e.rt.ArmTimer(retransStep*time.Duration(steps+1), id)
}

// OnTimerFired must be invoked by the owner when a timer armed through
// Runtime fires; it looks the id up by equality, tolerating TimerID
// wraparound, never by ordering.
func (e *Engine) OnTimerFired(id meshrt.TimerID) {
	if ps, ok := e.pendingSends[id]; ok {
		delete(e.pendingSends, id)
		if err := e.SendImmediate(ps.srcElem, ps.dst, ps.label, ps.appKeyIdx, ps.netKeyIdx, ps.ttl, ps.opcode, ps.params); err != nil {
			e.log.Debug("pub: delayed send failed", "err", err)
		}
		return
	}

	rec, ok := e.byTimer[id]
	if !ok {
		return
	}
	delete(e.byTimer, id)

	pdu := encodePDU(rec.opcode, rec.params)
	if err := e.sender.Send(rec.src, rec.dst, rec.label, rec.appKeyIdx, rec.netKeyIdx, rec.ttl, pdu); err != nil {
		e.log.Debug("pub: retransmit send failed", "err", err)
	}

	rec.count--
	if rec.count == 0 {
		delete(e.records, rec.key)
		return
	}
	e.armRetransmit(rec, rec.model.Publication.Retransmit.IntervalSteps)
}

// cancelRecord cancels and removes any retransmit record for key, if
// one exists.
func (e *Engine) cancelRecord(key retransKey) {
	rec, ok := e.records[key]
	if !ok {
		return
	}
	e.rt.CancelTimer(rec.timerID)
	delete(e.byTimer, rec.timerID)
	delete(e.records, key)
}

// loopback delivers a locally-originated PDU back into the Access
// Dispatcher when its destination is the sending element itself, or a
// group/virtual address the sender also subscribes to.
func (e *Engine) loopback(src, dst meshaddr.Address, label *meshaddr.LabelUUID, appKeyIdx meshaddr.AppKeyIndex, netKeyIdx meshaddr.NetKeyIndex, ttl uint8, pdu []byte) {
	if e.disp == nil {
		return
	}
	e.disp.HandlePDU(access.InboundPDU{
		Src: src, Dst: dst, TTL: ttl,
		AppKeyIndex: appKeyIdx, NetKeyIndex: netKeyIdx, Label: label,
		PDU: pdu, RecvOnUnicast: dst.IsUnicast(),
	})
}

func encodePDU(op wire.Opcode, params []byte) []byte {
	enc := wire.NewEncoder(op.Size() + len(params))
	enc.PutOpcode(op)
	enc.PutBytes(params...)
	return enc.Bytes()
}
