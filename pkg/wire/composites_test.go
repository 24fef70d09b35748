// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompositeRoundTrip(t *testing.T) {
	t.Run("RelayRetransmit", func(t *testing.T) {
		for count := uint8(0); count < 8; count++ {
			for steps := uint8(0); steps < 32; steps += 7 {
				in := RelayRetransmit{Count: count, IntervalSteps: steps}
				require.Equal(t, in, ParseRelayRetransmit(in.Value()))
			}
		}
	})

	t.Run("NetworkTransmit", func(t *testing.T) {
		in := NetworkTransmit{Count: 5, IntervalSteps: 17}
		require.Equal(t, in, ParseNetworkTransmit(in.Value()))
	})

	t.Run("PublicationRetransmit", func(t *testing.T) {
		in := PublicationRetransmit{Count: 3, IntervalSteps: 9}
		require.Equal(t, in, ParsePublicationRetransmit(in.Value()))
	})

	t.Run("PublicationPeriod", func(t *testing.T) {
		for _, res := range []StepResolution{Res100ms, Res1s, Res10s, Res10min} {
			in := PublicationPeriod{NumberOfSteps: 42, Resolution: res}
			require.Equal(t, in, ParsePublicationPeriod(in.Value()))
		}
	})

	t.Run("TwoKeyIndex", func(t *testing.T) {
		idx1, idx2 := uint16(0x0ABC), uint16(0x0123)
		packed := PackTwoKeyIndex(idx1, idx2)
		gotIdx1, gotIdx2 := ParseTwoKeyIndex(packed)
		require.Equal(t, idx1, gotIdx1)
		require.Equal(t, idx2, gotIdx2)
	})

	t.Run("HeartbeatPublication", func(t *testing.T) {
		in := HeartbeatPublication{
			Destination: 0xC001,
			CountLog:    0x05,
			PeriodLog:   0x08,
			TTL:         0x0A,
			Features:    0x0003,
			NetKeyIndex: 0x0042,
		}
		got, ok := ParseHeartbeatPublication(in.Pack())
		require.True(t, ok)
		require.Equal(t, in, got)
	})

	t.Run("HeartbeatSubscription", func(t *testing.T) {
		in := HeartbeatSubscription{
			Source:      0x0001,
			Destination: 0xC002,
			PeriodLog:   0x07,
			CountLog:    0x06,
			MinHops:     0x01,
			MaxHops:     0x05,
		}
		got, ok := ParseHeartbeatSubscription(in.Pack())
		require.True(t, ok)
		require.Equal(t, in, got)
	})

	t.Run("TwoKeyIndexViaEncoder", func(t *testing.T) {
		enc := NewEncoder(3)
		enc.PutTwoKeyIndex(0x0005, 0x0FFF)
		dec := NewDecoder(enc.Bytes())
		idx1, idx2 := dec.GetTwoKeyIndex()
		require.NoError(t, dec.Err())
		require.Equal(t, uint16(0x0005), idx1)
		require.Equal(t, uint16(0x0FFF), idx2)
	})
}

func TestOpcodeSizeRoundTrip(t *testing.T) {
	cases := []Opcode{0x00, 0x7F, 0x8009, 0xC00102}
	for _, op := range cases {
		b := AppendOpcode(nil, op)
		require.Equal(t, op.Size(), len(b))
		got, size, err := ReadOpcode(b)
		require.NoError(t, err)
		require.Equal(t, op, got)
		require.Equal(t, len(b), size)
	}
}

func TestReadOpcodeShortBuffer(t *testing.T) {
	_, _, err := ReadOpcode(nil)
	require.ErrorIs(t, err, ErrOpcodeTooShort)

	_, _, err = ReadOpcode([]byte{0xC0})
	require.ErrorIs(t, err, ErrOpcodeTooShort)
}

func TestOpcodeTableLockstep(t *testing.T) {
	// Invariant: pack(opcodes[i]) decodes back to i.
	for i := APIEvent(0); i < numAPIEvents; i++ {
		req := RequestOpcode(i)
		b := AppendOpcode(nil, req)
		got, _, err := ReadOpcode(b)
		require.NoError(t, err)
		require.Equal(t, req, got)
	}
}

func TestEventsForResponseOpcodeSharesOneOpcode(t *testing.T) {
	evts := EventsForResponseOpcode(ResponseOpcode(EvtModelSubscriptionAdd))
	require.Contains(t, evts, EvtModelSubscriptionAdd)
	require.Contains(t, evts, EvtModelSubscriptionDelete)
}
