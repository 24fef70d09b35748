// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package access implements the Access Dispatcher: ingress routing of
// decrypted application PDUs to model instances by element address and
// opcode, including fixed-group collapse, virtual-address subscription
// matching, and loopback of locally-originated traffic. Routing follows
// meshAccPpFilterAndDispatchMsg's filter chain in the Packetcraft
// reference stack.
package access

import (
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshlog"
	"github.com/packetcraft-inc/stacks-sub009/pkg/registry"
	"github.com/packetcraft-inc/stacks-sub009/pkg/wire"
)

// InboundPDU is a decrypted application PDU delivered by the
// Upper Transport ingress callback.
type InboundPDU struct {
	Src           meshaddr.Address
	Dst           meshaddr.Address
	TTL           uint8
	AppKeyIndex   meshaddr.AppKeyIndex
	NetKeyIndex   meshaddr.NetKeyIndex
	Label         *meshaddr.LabelUUID
	PDU           []byte
	RecvOnUnicast bool
}

// Dispatcher routes inbound PDUs to model instances. Ingress is
// best-effort: malformed frames, unresolved destinations, unbound app
// keys, and allocation failures drop silently and are never surfaced
// as an error. The absence of a completion event is the client's only
// signal.
type Dispatcher struct {
	reg *registry.Registry
	log meshlog.Clog
}

// New constructs a Dispatcher over the given static registry.
func New(reg *registry.Registry, log meshlog.Clog) *Dispatcher {
	return &Dispatcher{reg: reg, log: log}
}

// HandlePDU routes a single inbound PDU. It never returns an error;
// every failure path is a silent drop, logged at Debug for
// observability only.
func (d *Dispatcher) HandlePDU(p InboundPDU) {
	op, size, err := wire.ReadOpcode(p.PDU)
	if err != nil {
		d.log.Debug("access: PDU shorter than opcode size", "err", err)
		return
	}
	params := p.PDU[size:]

	switch {
	case p.Dst.IsUnicast() || p.Dst.IsFixedGroup():
		d.dispatchUnicastOrFixedGroup(p, op, params)
	case p.Dst.IsDynamicGroup() || p.Dst.IsVirtual():
		d.dispatchSubscribed(p, op, params)
	default:
		d.log.Debug("access: unroutable destination address", "dst", p.Dst)
	}
}

func (d *Dispatcher) dispatchUnicastOrFixedGroup(p InboundPDU, op wire.Opcode, params []byte) {
	dst := p.Dst
	recvOnUnicast := p.RecvOnUnicast
	if p.Dst.IsFixedGroup() {
		resolved, ok := d.reg.ElementFromFixedGroup(p.Dst)
		if !ok {
			d.log.Debug("access: fixed group did not collapse", "dst", p.Dst)
			return
		}
		dst = resolved
		// Fixed-group traffic delivered to local feature-bearing
		// models is treated as multicast.
		recvOnUnicast = false
	}

	elemID, ok := d.reg.ElementOf(dst)
	if !ok {
		d.log.Debug("access: no local element for destination", "dst", dst)
		return
	}

	info := registry.MessageInfo{
		Src: p.Src, Dst: p.Dst, Label: p.Label, TTL: p.TTL,
		AppKeyIndex: p.AppKeyIndex, NetKeyIndex: p.NetKeyIndex,
		RecvOnUnicast: recvOnUnicast,
	}

	if p.AppKeyIndex.IsDeviceKey() {
		// Device-key messages MUST NOT loopback to application
		// models; they route only to the core-model registry, and
		// only when received on a unicast destination.
		if !recvOnUnicast {
			d.log.Debug("access: device-key message not received on unicast, dropped")
			return
		}
		for _, c := range d.reg.CoreModelsForOpcode(elemID, op) {
			c.Handler.Recv(info, op, params)
		}
		return
	}

	elem := d.reg.Element(elemID)
	if elem == nil {
		return
	}
	d.dispatchToModels(elem.SIG, info, op, params)
	d.dispatchToModels(elem.Vendor, info, op, params)
}

func (d *Dispatcher) dispatchSubscribed(p InboundPDU, op wire.Opcode, params []byte) {
	info := registry.MessageInfo{
		Src: p.Src, Dst: p.Dst, Label: p.Label, TTL: p.TTL,
		AppKeyIndex: p.AppKeyIndex, NetKeyIndex: p.NetKeyIndex,
		RecvOnUnicast: false,
	}
	hit := false
	for _, elem := range d.reg.Elements {
		hit = d.dispatchSubscribedModels(elem.SIG, p, info, op, params) || hit
		hit = d.dispatchSubscribedModels(elem.Vendor, p, info, op, params) || hit
	}
	if !hit {
		d.log.Debug("access: no subscriber for group/virtual destination", "dst", p.Dst)
	}
}

func (d *Dispatcher) dispatchSubscribedModels(models []*registry.ModelInstance, p InboundPDU, info registry.MessageInfo, op wire.Opcode, params []byte) bool {
	hit := false
	for _, m := range models {
		if !m.SubscriptionsContain(p.Dst, p.Label) {
			continue
		}
		hit = true
		if !m.AcceptsOpcode(op) || !m.BindingContains(p.AppKeyIndex) {
			continue
		}
		m.Handler.Recv(info, op, params)
	}
	return hit
}

func (d *Dispatcher) dispatchToModels(models []*registry.ModelInstance, info registry.MessageInfo, op wire.Opcode, params []byte) {
	for _, m := range models {
		if !m.AcceptsOpcode(op) || !m.BindingContains(info.AppKeyIndex) {
			continue
		}
		m.Handler.Recv(info, op, params)
	}
}
