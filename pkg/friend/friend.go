// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package friend implements the Friend-state handoff auxiliary state
// machine: a small explicit FSM governing the Friendship role, existing
// so the Access and Publication paths can consult "the Friend address
// for a given subnet" without coupling to Friendship's internals. Two
// transitions apply before any per-state lookup, and a miss falls
// through to a default rather than erroring, following mesh_friend_sm.c
// in the Packetcraft reference stack.
package friend

import "github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"

// State is one of the Friendship role's FSM states.
type State uint8

const (
	StateIdle State = iota
	StateWaitReq
	StateStartKeyDeriv
	StateKeyDerivLate
	StateWaitRecvTimeout
	StateWaitPoll
	StateEstab
)

// Event drives a Friendship FSM transition.
type Event uint8

const (
	EvtStateEnabled Event = iota
	EvtStateDisabled
	EvtFriendReqRecv
	EvtPollRecv
	EvtClearRecv
	EvtClearCnfRecv
	EvtKeyDerivSuccess
	EvtKeyDerivFailed
	EvtRecvDelayTmr
	EvtSubscrCnfTmr
	EvtClearSendTmr
	EvtTimeout
	EvtSubscrListAdd
	EvtSubscrListRem
	EvtNetKeyDel
)

// transition maps (state, event) to the next state; omitted entries
// fall through to the unhandled-event default (stay in place).
type transition struct {
	from  State
	event Event
	to    State
}

var table = []transition{
	{StateIdle, EvtFriendReqRecv, StateWaitReq},
	{StateWaitReq, EvtPollRecv, StateStartKeyDeriv},
	{StateWaitReq, EvtTimeout, StateIdle},
	{StateStartKeyDeriv, EvtKeyDerivSuccess, StateWaitRecvTimeout},
	{StateStartKeyDeriv, EvtKeyDerivFailed, StateKeyDerivLate},
	{StateKeyDerivLate, EvtKeyDerivSuccess, StateWaitRecvTimeout},
	{StateWaitRecvTimeout, EvtPollRecv, StateEstab},
	{StateWaitRecvTimeout, EvtTimeout, StateIdle},
	{StateEstab, EvtPollRecv, StateWaitPoll},
	{StateEstab, EvtClearRecv, StateIdle},
	{StateWaitPoll, EvtSubscrCnfTmr, StateEstab},
	{StateWaitPoll, EvtTimeout, StateIdle},
}

// Machine is one Friendship role instance, one per local subnet the
// node serves as Friend for.
type Machine struct {
	state     State
	netKeyIdx meshaddr.NetKeyIndex
	friendOf  meshaddr.Address // the Low Power Node this instance serves, once established
}

// New constructs a Machine for the given subnet, starting Idle.
func New(netKeyIdx meshaddr.NetKeyIndex) *Machine {
	return &Machine{state: StateIdle, netKeyIdx: netKeyIdx}
}

// State returns the machine's current state.
func (m *Machine) State() State { return m.state }

// Handle applies evt to the machine and returns the resulting state.
// Two transitions are common to every state: StateDisabled always
// terminates to Idle, and an event with no matching table entry is
// ignored (the state is unchanged).
func (m *Machine) Handle(evt Event) State {
	if evt == EvtStateDisabled {
		m.state = StateIdle
		return m.state
	}
	for _, t := range table {
		if t.from == m.state && t.event == evt {
			m.state = t.to
			return m.state
		}
	}
	return m.state
}

// SetFriendOf records the Low Power Node address this instance serves
// once Friendship reaches Estab; consulted by FriendAddrForSubnet.
func (m *Machine) SetFriendOf(addr meshaddr.Address) { m.friendOf = addr }

// FriendAddrForSubnet returns the Friend anchor for friendship-
// credential publications on this machine's subnet, or (Unassigned,
// false) when Friendship is not established. This is the external hook
// consumed by pkg/pub.
func (m *Machine) FriendAddrForSubnet(netKeyIdx meshaddr.NetKeyIndex) (meshaddr.Address, bool) {
	if netKeyIdx != m.netKeyIdx || m.state != StateEstab {
		return meshaddr.Unassigned, false
	}
	return m.friendOf, true
}

// Registry tracks one Machine per subnet the node serves, since a node
// may establish Friendship independently on more than one subnet.
type Registry struct {
	machines map[meshaddr.NetKeyIndex]*Machine
}

// NewRegistry constructs an empty Friendship machine registry.
func NewRegistry() *Registry {
	return &Registry{machines: make(map[meshaddr.NetKeyIndex]*Machine)}
}

// MachineFor returns the Machine for netKeyIdx, creating one in the
// Idle state if none exists yet.
func (r *Registry) MachineFor(netKeyIdx meshaddr.NetKeyIndex) *Machine {
	m, ok := r.machines[netKeyIdx]
	if !ok {
		m = New(netKeyIdx)
		r.machines[netKeyIdx] = m
	}
	return m
}

// FriendAddrForSubnet implements pub.FriendAddrResolver by consulting
// whichever machine (if any) is tracking netKeyIdx.
func (r *Registry) FriendAddrForSubnet(netKeyIdx meshaddr.NetKeyIndex) (meshaddr.Address, bool) {
	m, ok := r.machines[netKeyIdx]
	if !ok {
		return meshaddr.Unassigned, false
	}
	return m.FriendAddrForSubnet(netKeyIdx)
}

// NetKeyDeleted tears down any Friendship machine tracking netKeyIdx.
// Only the machine is removed; no Publication Record or retransmit
// record bound to this subnet is touched.
func (r *Registry) NetKeyDeleted(netKeyIdx meshaddr.NetKeyIndex) {
	delete(r.machines, netKeyIdx)
}
