// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package wire

import "github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"

// This file packs the Configuration Model's byte-level composite
// fields: each carries a documented shift and mask, following the
// shift-and-mask Value()/Parse() pairs used for packed information
// fields in the Packetcraft reference stack. The codec itself never
// rejects an out-of-range field; callers validate ranges before
// packing.

// RelayRetransmit is the relay retransmit composite: count in bits
// [0..2], interval steps (10 ms units) in bits [3..7].
type RelayRetransmit struct {
	Count         uint8 // 0..7
	IntervalSteps uint8 // 0..31, 10 ms units
}

// Value packs the composite into its single wire byte.
func (r RelayRetransmit) Value() byte {
	return (r.Count & 0x07) | (r.IntervalSteps&0x1F)<<3
}

// ParseRelayRetransmit unpacks the composite from its wire byte.
func ParseRelayRetransmit(b byte) RelayRetransmit {
	return RelayRetransmit{
		Count:         b & 0x07,
		IntervalSteps: (b >> 3) & 0x1F,
	}
}

// NetworkTransmit is the network transmit composite: count in bits
// [0..2], interval steps (10 ms units) in bits [3..7]. Same bit layout
// as RelayRetransmit but kept distinct since the two are independently
// addressable Configuration states.
type NetworkTransmit struct {
	Count         uint8
	IntervalSteps uint8
}

func (n NetworkTransmit) Value() byte {
	return (n.Count & 0x07) | (n.IntervalSteps&0x1F)<<3
}

func ParseNetworkTransmit(b byte) NetworkTransmit {
	return NetworkTransmit{
		Count:         b & 0x07,
		IntervalSteps: (b >> 3) & 0x1F,
	}
}

// PublicationRetransmit is the model publication retransmit composite:
// count in bits [0..2], interval steps (50 ms units) in bits [3..7].
type PublicationRetransmit struct {
	Count         uint8 // 0..7
	IntervalSteps uint8 // 0..31, 50 ms units
}

func (p PublicationRetransmit) Value() byte {
	return (p.Count & 0x07) | (p.IntervalSteps&0x1F)<<3
}

func ParsePublicationRetransmit(b byte) PublicationRetransmit {
	return PublicationRetransmit{
		Count:         b & 0x07,
		IntervalSteps: (b >> 3) & 0x1F,
	}
}

// StepResolution is the unit a publish-period step count is measured
// in: 100 ms, 1 s, 10 s, or 10 min, per the Configuration Model's
// publish period encoding.
type StepResolution uint8

const (
	Res100ms StepResolution = 0
	Res1s    StepResolution = 1
	Res10s   StepResolution = 2
	Res10min StepResolution = 3
)

// PublicationPeriod is the model publication period composite: the
// step count in bits [0..5] and the resolution in bits [6..7].
type PublicationPeriod struct {
	NumberOfSteps uint8 // 0..63
	Resolution    StepResolution
}

func (p PublicationPeriod) Value() byte {
	return (p.NumberOfSteps & 0x3F) | byte(p.Resolution&0x03)<<6
}

func ParsePublicationPeriod(b byte) PublicationPeriod {
	return PublicationPeriod{
		NumberOfSteps: b & 0x3F,
		Resolution:    StepResolution((b >> 6) & 0x03),
	}
}

// HeartbeatCount special sentinel values, per mesh_cfg_mdl_cl_api.h:
// 0x00 disables heartbeat publishing/processing, 0xFF means
// "indefinite" (publish/process heartbeats forever).
const (
	HeartbeatCountDisabled   uint8 = 0x00
	HeartbeatCountIndefinite uint8 = 0xFF
)

// HeartbeatPublication is the heartbeat publication composite:
// destination address, count, period, TTL, feature trigger bitmask,
// and NetKey index. Count and period are each a log2-style byte
// exponent on the wire (0 = disabled/off, 0xFF = indefinite count);
// CountLog and PeriodLog hold those encoded bytes unchanged, and this
// package performs no exponent<->count conversion.
type HeartbeatPublication struct {
	Destination meshaddr.Address
	CountLog    uint8 // 0x00..0x11 or 0xFF (indefinite)
	PeriodLog   uint8 // 0x00..0x10 or 0x11 (just over 18 h)
	TTL         uint8
	Features    uint16 // Relay/Proxy/Friend/LowPower trigger bitmask
	NetKeyIndex meshaddr.NetKeyIndex
}

// HeartbeatSubscription is the heartbeat subscription composite: source
// and destination addresses being monitored, the remaining period and
// count (log-encoded, same convention as publication), and the minimum
// and maximum observed hop counts.
type HeartbeatSubscription struct {
	Source      meshaddr.Address
	Destination meshaddr.Address
	PeriodLog   uint8
	CountLog    uint8
	MinHops     uint8
	MaxHops     uint8
}

// Pack encodes the heartbeat publication composite into its 9-byte
// wire form: destination, count, period, TTL, features, NetKey index.
func (h HeartbeatPublication) Pack() []byte {
	enc := NewEncoder(9)
	enc.PutAddress(h.Destination)
	enc.PutByte(h.CountLog)
	enc.PutByte(h.PeriodLog)
	enc.PutByte(h.TTL)
	enc.PutUint16(h.Features)
	enc.PutUint16(uint16(h.NetKeyIndex))
	return enc.Bytes()
}

// ParseHeartbeatPublication decodes the 9-byte heartbeat publication
// composite; ok is false if b is short.
func ParseHeartbeatPublication(b []byte) (h HeartbeatPublication, ok bool) {
	dec := NewDecoder(b)
	h = HeartbeatPublication{
		Destination: dec.GetAddress(),
		CountLog:    dec.GetByte(),
		PeriodLog:   dec.GetByte(),
		TTL:         dec.GetByte(),
		Features:    dec.GetUint16(),
		NetKeyIndex: meshaddr.NetKeyIndex(dec.GetUint16()),
	}
	return h, dec.Err() == nil
}

// Pack encodes the heartbeat subscription composite into its 8-byte
// wire form: source, destination, period, count, min hops, max hops.
func (h HeartbeatSubscription) Pack() []byte {
	enc := NewEncoder(8)
	enc.PutAddress(h.Source)
	enc.PutAddress(h.Destination)
	enc.PutByte(h.PeriodLog)
	enc.PutByte(h.CountLog)
	enc.PutByte(h.MinHops)
	enc.PutByte(h.MaxHops)
	return enc.Bytes()
}

// ParseHeartbeatSubscription decodes the 8-byte heartbeat subscription
// composite; ok is false if b is short.
func ParseHeartbeatSubscription(b []byte) (h HeartbeatSubscription, ok bool) {
	dec := NewDecoder(b)
	h = HeartbeatSubscription{
		Source:      dec.GetAddress(),
		Destination: dec.GetAddress(),
		PeriodLog:   dec.GetByte(),
		CountLog:    dec.GetByte(),
		MinHops:     dec.GetByte(),
		MaxHops:     dec.GetByte(),
	}
	return h, dec.Err() == nil
}

// PackTwoKeyIndex packs two 12-bit key indices into 3 bytes: the low
// byte of idx1, then (high nibble of idx1 | low nibble of idx2 << 4),
// then the upper 8 bits of the 12-bit idx2. This is the Configuration Model's
// standard two-key-index encoding used for NetKey+AppKey and
// AppKey+AppKey pairs alike.
func PackTwoKeyIndex(idx1, idx2 uint16) [3]byte {
	return [3]byte{
		byte(idx1),
		byte(idx1>>8) | byte(idx2<<4),
		byte(idx2 >> 4),
	}
}

// ParseTwoKeyIndex unpacks a 3-byte two-key-index field into its two
// 12-bit indices.
func ParseTwoKeyIndex(b [3]byte) (idx1, idx2 uint16) {
	idx1 = uint16(b[0]) | (uint16(b[1]&0x0F) << 8)
	idx2 = uint16(b[1]>>4) | (uint16(b[2]) << 4)
	return idx1, idx2
}

// PutTwoKeyIndex appends a packed two-key-index field to the encoder.
func (e *Encoder) PutTwoKeyIndex(idx1, idx2 uint16) {
	b := PackTwoKeyIndex(idx1, idx2)
	e.buf = append(e.buf, b[:]...)
}

// GetTwoKeyIndex reads a packed two-key-index field.
func (d *Decoder) GetTwoKeyIndex() (idx1, idx2 uint16) {
	b := d.take(3)
	if b == nil {
		return 0, 0
	}
	return ParseTwoKeyIndex([3]byte{b[0], b[1], b[2]})
}
