// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package cfgclient

import (
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
	"github.com/packetcraft-inc/stacks-sub009/pkg/wire"
)

// Event is delivered to a request's registered callback exactly once,
// either on a matching response or on timeout, never both, and never
// zero times for a request that was successfully allocated. Only the
// fields the response's own per-opcode handler populated are
// meaningful; the rest carry their zero value.
type Event struct {
	APIEvent   wire.APIEvent
	Status     Status
	RemoteCode uint8 // valid iff Status == StatusRemoteError
	ServerAddr meshaddr.Address
	NetKeyIdx  meshaddr.NetKeyIndex

	Bool            bool
	U8              uint8
	U32             uint32
	Elem            meshaddr.Address
	Address         meshaddr.Address // publication/subscription/LPN address, by event
	Model           meshaddr.ModelID
	AppKeyIdx       meshaddr.AppKeyIndex
	BoundNetKeyIdx  meshaddr.NetKeyIndex // NetKey index embedded in the response body, distinct from NetKeyIdx
	Period          wire.PublicationPeriod
	Retransmit      wire.PublicationRetransmit
	RelayRetransmit wire.RelayRetransmit
	NetworkTransmit wire.NetworkTransmit
	HeartbeatPub    wire.HeartbeatPublication
	HeartbeatSub    wire.HeartbeatSubscription
	Addresses       []meshaddr.Address
	KeyIndices      []uint16
	CompositionData []byte

	// raw holds the full response parameters (opcode already stripped,
	// status byte included for status-bearing events). Decoder exposes
	// it for callers needing a shape no typed field above covers.
	raw []byte
}

// Decoder returns a fresh Decoder over the event's raw response
// parameters.
func (e Event) Decoder() *wire.Decoder { return wire.NewDecoder(e.raw) }

// EventSize reports the byte length of e's trailing variable-length
// array, the way a caller relaying the event across a size-typed
// message boundary needs to know before allocating that message.
func EventSize(e Event) int {
	switch {
	case e.CompositionData != nil:
		return len(e.CompositionData)
	case e.Addresses != nil:
		return len(e.Addresses) * 2
	case e.KeyIndices != nil:
		return len(e.KeyIndices) * 2
	default:
		return 0
	}
}

// CloneEvent returns a deep copy of e whose trailing variable-length
// array and raw buffer are relocated into freshly allocated backing
// storage, sharing nothing with e. A callback that retains an Event
// past its own return must clone it first: the buffer it was decoded
// from belongs to the dispatcher and is not guaranteed to survive.
func CloneEvent(e Event) Event {
	out := e
	if e.CompositionData != nil {
		out.CompositionData = append([]byte(nil), e.CompositionData...)
	}
	if e.Addresses != nil {
		out.Addresses = append([]meshaddr.Address(nil), e.Addresses...)
	}
	if e.KeyIndices != nil {
		out.KeyIndices = append([]uint16(nil), e.KeyIndices...)
	}
	if e.raw != nil {
		out.raw = append([]byte(nil), e.raw...)
	}
	return out
}

// RequestHandle identifies one outstanding request, returned to the
// caller at allocation time so it can be referenced in logs; it
// carries no cancellation capability, matching the source's
// fire-and-forget WSF event model (a request in flight completes via
// its callback, never by caller-initiated cancel).
type RequestHandle uint32
