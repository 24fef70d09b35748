// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package registry implements the Model Registry: static per-element
// enumeration of SIG and vendor model instances, their received-opcode
// arrays, subscription lists, AppKey bindings, and publication state,
// plus the Core Model Registry consumed by device-key traffic (the
// Configuration Client/Server, Health, etc). It answers the queries the
// Access Dispatcher and Publication Engine need without exposing
// mutation outside an explicit initialization phase, favoring
// long-lived, explicitly constructed state over runtime reallocation.
package registry

import (
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
	"github.com/packetcraft-inc/stacks-sub009/pkg/wire"
)

// Handler receives application messages routed to a model instance by
// the Access Dispatcher.
type Handler interface {
	Recv(info MessageInfo, opcode wire.Opcode, params []byte)
}

// MessageInfo carries the message's envelope fields, forwarded to the
// handler verbatim per the ingress dispatch rules.
type MessageInfo struct {
	Src           meshaddr.Address
	Dst           meshaddr.Address
	Label         *meshaddr.LabelUUID
	TTL           uint8
	AppKeyIndex   meshaddr.AppKeyIndex
	NetKeyIndex   meshaddr.NetKeyIndex
	RecvOnUnicast bool
}

// SubscriptionEntry is either a group address or a (virtual address,
// label UUID) pair.
type SubscriptionEntry struct {
	Group   meshaddr.Address // valid iff !IsVirtual
	Virtual meshaddr.VirtualAddr
	IsVirtual bool
}

// PublicationState is a model's configured outbound-message
// destination and retransmit policy (data model, Publication Record).
type PublicationState struct {
	Address              meshaddr.Address
	Label                *meshaddr.LabelUUID
	AppKeyIndex          meshaddr.AppKeyIndex
	NetKeyIndex          meshaddr.NetKeyIndex
	TTL                  uint8
	Period               wire.PublicationPeriod
	Retransmit           wire.PublicationRetransmit
	FriendshipCredential bool
}

// Unassigned reports whether publication is disabled (address is
// Unassigned).
func (p PublicationState) Unassigned() bool { return p.Address.IsUnassigned() }

// ModelInstance owns a model's identifier, accepted opcodes, bindings,
// subscriptions, publication state, and message handler.
type ModelInstance struct {
	ID             meshaddr.ModelID
	Opcodes        []wire.Opcode
	Handler        Handler
	bindings       map[meshaddr.AppKeyIndex]struct{}
	subscriptions  []SubscriptionEntry
	Publication    PublicationState
}

// NewModelInstance constructs an instance ready for binding and
// subscription management.
func NewModelInstance(id meshaddr.ModelID, opcodes []wire.Opcode, h Handler) *ModelInstance {
	return &ModelInstance{
		ID:      id,
		Opcodes: opcodes,
		Handler: h,
		bindings: make(map[meshaddr.AppKeyIndex]struct{}),
	}
}

// AcceptsOpcode reports whether op is in this instance's received-
// opcode array. A given opcode appears at most once per model.
func (m *ModelInstance) AcceptsOpcode(op wire.Opcode) bool {
	for _, o := range m.Opcodes {
		if o == op {
			return true
		}
	}
	return false
}

// Bind adds an AppKey index to this instance's binding set.
func (m *ModelInstance) Bind(idx meshaddr.AppKeyIndex) { m.bindings[idx] = struct{}{} }

// Unbind removes an AppKey index from this instance's binding set.
func (m *ModelInstance) Unbind(idx meshaddr.AppKeyIndex) { delete(m.bindings, idx) }

// BindingContains reports whether idx is in this instance's binding
// set. An instance accepts an application message only if the
// message's AppKey index is bound.
func (m *ModelInstance) BindingContains(idx meshaddr.AppKeyIndex) bool {
	_, ok := m.bindings[idx]
	return ok
}

// Subscribe adds a group address to this instance's subscription list.
func (m *ModelInstance) Subscribe(g meshaddr.Address) {
	m.subscriptions = append(m.subscriptions, SubscriptionEntry{Group: g})
}

// SubscribeVirtual adds a virtual address to this instance's
// subscription list.
func (m *ModelInstance) SubscribeVirtual(v meshaddr.VirtualAddr) {
	m.subscriptions = append(m.subscriptions, SubscriptionEntry{Virtual: v, IsVirtual: true})
}

// Unsubscribe removes every subscription entry matching addr (and, for
// virtual addresses, the given label).
func (m *ModelInstance) Unsubscribe(addr meshaddr.Address, label *meshaddr.LabelUUID) {
	out := m.subscriptions[:0]
	for _, e := range m.subscriptions {
		if m.subscriptionMatches(e, addr, label) {
			continue
		}
		out = append(out, e)
	}
	m.subscriptions = out
}

// UnsubscribeAll clears every subscription entry for this instance.
func (m *ModelInstance) UnsubscribeAll() { m.subscriptions = nil }

func (m *ModelInstance) subscriptionMatches(e SubscriptionEntry, addr meshaddr.Address, label *meshaddr.LabelUUID) bool {
	if e.IsVirtual {
		if label == nil || e.Virtual.Addr != addr {
			return false
		}
		return e.Virtual.Label.Equal(*label)
	}
	return e.Group == addr
}

// SubscriptionsContain reports whether this instance's subscription
// list matches addr. For virtual addresses the Label UUID must be
// present and equal; for group addresses the 16-bit value must match.
func (m *ModelInstance) SubscriptionsContain(addr meshaddr.Address, label *meshaddr.LabelUUID) bool {
	for _, e := range m.subscriptions {
		if m.subscriptionMatches(e, addr, label) {
			return true
		}
	}
	return false
}

// Element indexed 0..N-1; element 0 is the Primary Element and anchors
// device-key-addressed traffic and fixed-group resolution.
type Element struct {
	Addr    meshaddr.Address
	SIG     []*ModelInstance
	Vendor  []*ModelInstance
}

// CoreModelEntry binds (element, model) to an internal callback invoked
// only for device-key messages, bypassing AppKey binding.
type CoreModelEntry struct {
	ElementID meshaddr.ElementID
	ModelID   meshaddr.ModelID
	Opcodes   []wire.Opcode
	Handler   Handler
}

// Registry is the static element/model configuration plus the core
// model registry, built once at initialization and read thereafter.
type Registry struct {
	Elements   []*Element
	coreModels []CoreModelEntry
	features   meshaddr.Features
}

// New constructs a Registry over the given elements (element 0 must be
// the Primary Element) and local feature set.
func New(elements []*Element, features meshaddr.Features) *Registry {
	return &Registry{Elements: elements, features: features}
}

// RegisterCoreModel adds a core-model entry. Core models are consumed
// by the stack itself (Configuration Client/Server, Health, ...) and
// are only reachable via device-key traffic.
func (r *Registry) RegisterCoreModel(e CoreModelEntry) { r.coreModels = append(r.coreModels, e) }

// PrimaryAddress returns element 0's anchor address.
func (r *Registry) PrimaryAddress() meshaddr.Address {
	if len(r.Elements) == 0 {
		return meshaddr.Unassigned
	}
	return r.Elements[0].Addr
}

// ElementOf returns the element ID whose anchor address exactly
// matches addr, for unicast destinations.
func (r *Registry) ElementOf(addr meshaddr.Address) (meshaddr.ElementID, bool) {
	for i, e := range r.Elements {
		if e.Addr == addr {
			return meshaddr.ElementID(i), true
		}
	}
	return 0, false
}

// ElementFromFixedGroup resolves a fixed-group address to the primary
// element's address iff the corresponding local feature is enabled (or
// unconditionally for All-Nodes).
func (r *Registry) ElementFromFixedGroup(g meshaddr.Address) (meshaddr.Address, bool) {
	return meshaddr.ElementFromFixedGroup(g, r.PrimaryAddress(), r.features)
}

// Element returns the element at id, or nil if out of range.
func (r *Registry) Element(id meshaddr.ElementID) *Element {
	if int(id) < 0 || int(id) >= len(r.Elements) {
		return nil
	}
	return r.Elements[id]
}

// CoreModelsForOpcode returns every core-model entry on elemId whose
// opcode array contains op. Core dispatch is only invoked for
// device-key messages and bypasses AppKey binding entirely.
func (r *Registry) CoreModelsForOpcode(elemId meshaddr.ElementID, op wire.Opcode) []CoreModelEntry {
	var out []CoreModelEntry
	for _, c := range r.coreModels {
		if c.ElementID != elemId {
			continue
		}
		for _, o := range c.Opcodes {
			if o == op {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
