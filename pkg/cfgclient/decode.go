// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package cfgclient

import (
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
	"github.com/packetcraft-inc/stacks-sub009/pkg/wire"
)

// maxListItems bounds the number of entries a list-bearing response
// (NetKey/AppKey/Model App/Model Subscription list) may deliver to the
// caller. A response carrying more is treated the way the source
// treats a failed transient-array allocation: status is forced to
// StatusOutOfResources and the list is reported empty, rather than
// handed to the caller partially filled.
const maxListItems = 32

// responseHandler validates and unpacks a response's trailing bytes
// (the status byte, if any, already stripped) into evt, returning
// whether the response was well-formed. reqModel is the model
// identifier the originating request named, if any, needed only by the
// two list handlers that must tell a SIG model's 2-byte wire form from
// a vendor model's 4-byte form apart from the address/key-index array
// that follows it.
type responseHandler func(evt *Event, trailing []byte, reqModel meshaddr.ModelID) bool

var responseHandlers = map[wire.APIEvent]responseHandler{
	wire.EvtBeaconGet:    decodeBoolState,
	wire.EvtBeaconSet:    decodeBoolState,
	wire.EvtGATTProxyGet: decodeBoolState,
	wire.EvtGATTProxySet: decodeBoolState,
	wire.EvtFriendGet:    decodeBoolState,
	wire.EvtFriendSet:    decodeBoolState,

	wire.EvtDefaultTTLGet: decodeTTLState,
	wire.EvtDefaultTTLSet: decodeTTLState,

	wire.EvtRelayGet: decodeRelayState,
	wire.EvtRelaySet: decodeRelayState,

	wire.EvtNetworkTransmitGet: decodeNetworkTransmitState,
	wire.EvtNetworkTransmitSet: decodeNetworkTransmitState,

	wire.EvtCompositionDataGet: decodeCompositionData,

	wire.EvtModelPublicationGet:            decodeModelPublicationStatus,
	wire.EvtModelPublicationSet:            decodeModelPublicationStatus,
	wire.EvtModelPublicationVirtualAddrSet: decodeModelPublicationStatus,

	wire.EvtModelSubscriptionAdd:                  decodeModelSubscriptionStatus,
	wire.EvtModelSubscriptionVirtualAddrAdd:       decodeModelSubscriptionStatus,
	wire.EvtModelSubscriptionDelete:               decodeModelSubscriptionStatus,
	wire.EvtModelSubscriptionVirtualAddrDelete:    decodeModelSubscriptionStatus,
	wire.EvtModelSubscriptionOverwrite:            decodeModelSubscriptionStatus,
	wire.EvtModelSubscriptionVirtualAddrOverwrite: decodeModelSubscriptionStatus,
	wire.EvtModelSubscriptionDeleteAll:            decodeModelSubscriptionDeleteAllStatus,
	wire.EvtModelSubscriptionGet:                  decodeModelSubscriptionList,

	wire.EvtNetKeyAdd:    decodeNetKeyStatus,
	wire.EvtNetKeyUpdate: decodeNetKeyStatus,
	wire.EvtNetKeyDelete: decodeNetKeyStatus,
	wire.EvtNetKeyGet:    decodeNetKeyList,

	wire.EvtAppKeyAdd:    decodeAppKeyStatus,
	wire.EvtAppKeyUpdate: decodeAppKeyStatus,
	wire.EvtAppKeyDelete: decodeAppKeyStatus,
	wire.EvtAppKeyGet:    decodeAppKeyList,

	wire.EvtNodeIdentityGet: decodeNodeIdentityStatus,
	wire.EvtNodeIdentitySet: decodeNodeIdentityStatus,

	wire.EvtModelAppBind:   decodeModelAppStatus,
	wire.EvtModelAppUnbind: decodeModelAppStatus,
	wire.EvtModelAppGet:    decodeModelAppList,

	wire.EvtNodeReset: decodeEmptyStatus,

	wire.EvtKeyRefreshPhaseGet: decodeKeyRefreshStatus,
	wire.EvtKeyRefreshPhaseSet: decodeKeyRefreshStatus,

	wire.EvtHeartbeatPublicationGet: decodeHeartbeatPubState,
	wire.EvtHeartbeatPublicationSet: decodeHeartbeatPubState,
	wire.EvtHeartbeatSubscriptionGet: decodeHeartbeatSubState,
	wire.EvtHeartbeatSubscriptionSet: decodeHeartbeatSubState,

	wire.EvtLPNPollTimeoutGet: decodePollTimeout,
}

func decodeBoolState(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	if len(trailing) != 1 || trailing[0] > 1 {
		return false
	}
	evt.Bool = trailing[0] != 0
	return true
}

func decodeTTLState(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	if len(trailing) != 1 || trailing[0] > 0x7F {
		return false
	}
	evt.U8 = trailing[0]
	return true
}

func decodeRelayState(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	if len(trailing) != 2 {
		return false
	}
	evt.Bool = trailing[0] != 0
	evt.RelayRetransmit = wire.ParseRelayRetransmit(trailing[1])
	return true
}

func decodeNetworkTransmitState(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	if len(trailing) != 1 {
		return false
	}
	evt.NetworkTransmit = wire.ParseNetworkTransmit(trailing[0])
	return true
}

func decodeCompositionData(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	if len(trailing) < 1 {
		return false
	}
	evt.U8 = trailing[0]
	evt.CompositionData = append([]byte(nil), trailing[1:]...)
	return true
}

func decodeEmptyStatus(_ *Event, trailing []byte, _ meshaddr.ModelID) bool {
	return len(trailing) == 0
}

func decodeModelPublicationStatus(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	if len(trailing) < 9 {
		return false
	}
	dec := wire.NewDecoder(trailing)
	elem := dec.GetAddress()
	pubAddr := dec.GetAddress()
	appKeyCred := dec.GetUint16()
	ttl := dec.GetByte()
	period := dec.GetByte()
	retrans := dec.GetByte()
	model, ok := decodeModelID(dec.GetRest())
	if dec.Err() != nil || !ok || !elem.IsUnicast() || ttl > 0x7F {
		return false
	}
	evt.Elem = elem
	evt.Address = pubAddr
	evt.AppKeyIdx = meshaddr.AppKeyIndex(appKeyCred & 0x0FFF)
	evt.Bool = appKeyCred&0x1000 != 0
	evt.U8 = ttl
	evt.Period = wire.ParsePublicationPeriod(period)
	evt.Retransmit = wire.ParsePublicationRetransmit(retrans)
	evt.Model = model
	return true
}

func decodeModelSubscriptionStatus(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	if len(trailing) < 4 {
		return false
	}
	dec := wire.NewDecoder(trailing)
	elem := dec.GetAddress()
	addr := dec.GetAddress()
	model, ok := decodeModelID(dec.GetRest())
	if dec.Err() != nil || !ok || !elem.IsUnicast() {
		return false
	}
	evt.Elem = elem
	evt.Address = addr
	evt.Model = model
	return true
}

func decodeModelSubscriptionDeleteAllStatus(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	if len(trailing) < 2 {
		return false
	}
	dec := wire.NewDecoder(trailing)
	elem := dec.GetAddress()
	model, ok := decodeModelID(dec.GetRest())
	if dec.Err() != nil || !ok || !elem.IsUnicast() {
		return false
	}
	evt.Elem = elem
	evt.Model = model
	return true
}

func decodeModelSubscriptionList(evt *Event, trailing []byte, reqModel meshaddr.ModelID) bool {
	modelLen := 2
	if reqModel.IsVendor {
		modelLen = 4
	}
	if len(trailing) < 2+modelLen {
		return false
	}
	dec := wire.NewDecoder(trailing)
	elem := dec.GetAddress()
	var model meshaddr.ModelID
	if modelLen == 4 {
		model = dec.GetVendorModel()
	} else {
		model = dec.GetSIGModel()
	}
	addrs, ok := decodeAddressList(dec)
	if dec.Err() != nil || !ok || !elem.IsUnicast() {
		return false
	}
	evt.Elem = elem
	evt.Model = model
	if len(addrs) > maxListItems {
		evt.Status = StatusOutOfResources
		evt.Addresses = nil
	} else {
		evt.Addresses = addrs
	}
	return true
}

func decodeNetKeyStatus(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	if len(trailing) != 2 {
		return false
	}
	idx := wire.NewDecoder(trailing).GetUint16()
	if !meshaddr.NetKeyIndex(idx).Valid() {
		return false
	}
	evt.BoundNetKeyIdx = meshaddr.NetKeyIndex(idx)
	return true
}

func decodeNetKeyList(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	idx, ok := decodeKeyIndexList(trailing)
	if !ok {
		return false
	}
	if len(idx) > maxListItems {
		evt.Status = StatusOutOfResources
		evt.KeyIndices = nil
	} else {
		evt.KeyIndices = idx
	}
	return true
}

func decodeAppKeyStatus(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	if len(trailing) != 3 {
		return false
	}
	netIdx, appIdx := wire.ParseTwoKeyIndex([3]byte{trailing[0], trailing[1], trailing[2]})
	if !meshaddr.NetKeyIndex(netIdx).Valid() || !meshaddr.AppKeyIndex(appIdx).Valid() {
		return false
	}
	evt.BoundNetKeyIdx = meshaddr.NetKeyIndex(netIdx)
	evt.AppKeyIdx = meshaddr.AppKeyIndex(appIdx)
	return true
}

func decodeAppKeyList(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	if len(trailing) < 2 {
		return false
	}
	dec := wire.NewDecoder(trailing)
	netIdx := dec.GetUint16()
	if dec.Err() != nil || !meshaddr.NetKeyIndex(netIdx).Valid() {
		return false
	}
	idx, ok := decodeKeyIndexList(dec.GetRest())
	if !ok {
		return false
	}
	evt.BoundNetKeyIdx = meshaddr.NetKeyIndex(netIdx)
	if len(idx) > maxListItems {
		evt.Status = StatusOutOfResources
		evt.KeyIndices = nil
	} else {
		evt.KeyIndices = idx
	}
	return true
}

func decodeNodeIdentityStatus(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	if len(trailing) != 3 {
		return false
	}
	dec := wire.NewDecoder(trailing)
	netIdx := dec.GetUint16()
	state := dec.GetByte()
	if dec.Err() != nil || !meshaddr.NetKeyIndex(netIdx).Valid() || state > 2 {
		return false
	}
	evt.BoundNetKeyIdx = meshaddr.NetKeyIndex(netIdx)
	evt.U8 = state
	return true
}

func decodeModelAppStatus(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	if len(trailing) < 4 {
		return false
	}
	dec := wire.NewDecoder(trailing)
	elem := dec.GetAddress()
	appIdx := dec.GetUint16()
	model, ok := decodeModelID(dec.GetRest())
	if dec.Err() != nil || !ok || !elem.IsUnicast() || !meshaddr.AppKeyIndex(appIdx).Valid() {
		return false
	}
	evt.Elem = elem
	evt.AppKeyIdx = meshaddr.AppKeyIndex(appIdx)
	evt.Model = model
	return true
}

func decodeModelAppList(evt *Event, trailing []byte, reqModel meshaddr.ModelID) bool {
	modelLen := 2
	if reqModel.IsVendor {
		modelLen = 4
	}
	if len(trailing) < 2+modelLen {
		return false
	}
	dec := wire.NewDecoder(trailing)
	elem := dec.GetAddress()
	var model meshaddr.ModelID
	if modelLen == 4 {
		model = dec.GetVendorModel()
	} else {
		model = dec.GetSIGModel()
	}
	if dec.Err() != nil || !elem.IsUnicast() {
		return false
	}
	idx, ok := decodeKeyIndexList(dec.GetRest())
	if !ok {
		return false
	}
	evt.Elem = elem
	evt.Model = model
	if len(idx) > maxListItems {
		evt.Status = StatusOutOfResources
		evt.KeyIndices = nil
	} else {
		evt.KeyIndices = idx
	}
	return true
}

func decodeKeyRefreshStatus(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	if len(trailing) != 3 {
		return false
	}
	dec := wire.NewDecoder(trailing)
	netIdx := dec.GetUint16()
	phase := dec.GetByte()
	if dec.Err() != nil || !meshaddr.NetKeyIndex(netIdx).Valid() || phase > 2 {
		return false
	}
	evt.BoundNetKeyIdx = meshaddr.NetKeyIndex(netIdx)
	evt.U8 = phase
	return true
}

func decodeHeartbeatPubState(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	hb, ok := wire.ParseHeartbeatPublication(trailing)
	if !ok {
		return false
	}
	evt.HeartbeatPub = hb
	return true
}

func decodeHeartbeatSubState(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	hb, ok := wire.ParseHeartbeatSubscription(trailing)
	if !ok {
		return false
	}
	evt.HeartbeatSub = hb
	return true
}

func decodePollTimeout(evt *Event, trailing []byte, _ meshaddr.ModelID) bool {
	if len(trailing) != 5 {
		return false
	}
	dec := wire.NewDecoder(trailing)
	addr := dec.GetAddress()
	rest := dec.GetRest()
	if dec.Err() != nil || !addr.IsUnicast() || len(rest) != 3 {
		return false
	}
	evt.Address = addr
	evt.U32 = uint32(rest[0]) | uint32(rest[1])<<8 | uint32(rest[2])<<16
	return true
}

// decodeModelID reads a SIG (2-byte) or vendor (4-byte) model
// identifier from the exact remaining span b, rejecting any other
// length as malformed.
func decodeModelID(b []byte) (meshaddr.ModelID, bool) {
	switch len(b) {
	case 2:
		return meshaddr.ParseSIGModel(b), true
	case 4:
		return meshaddr.ParseVendorModel(b), true
	default:
		return meshaddr.ModelID{}, false
	}
}

// decodeAddressList reads the remainder of dec as a packed array of
// 16-bit addresses.
func decodeAddressList(dec *wire.Decoder) ([]meshaddr.Address, bool) {
	if dec.Remaining()%2 != 0 {
		return nil, false
	}
	var out []meshaddr.Address
	for dec.Remaining() > 0 {
		out = append(out, dec.GetAddress())
	}
	return out, dec.Err() == nil
}

// decodeKeyIndexList unpacks b as a list of 12-bit key indices, using
// the same pairwise 3-byte packing as PackTwoKeyIndex/ParseTwoKeyIndex,
// with a 2-byte trailing group (high nibble RFU) for an odd count.
func decodeKeyIndexList(b []byte) ([]uint16, bool) {
	var out []uint16
	for len(b) >= 3 {
		i1, i2 := wire.ParseTwoKeyIndex([3]byte{b[0], b[1], b[2]})
		out = append(out, i1, i2)
		b = b[3:]
	}
	switch len(b) {
	case 0:
		return out, true
	case 2:
		out = append(out, uint16(b[0])|(uint16(b[1]&0x0F)<<8))
		return out, true
	default:
		return nil, false
	}
}
