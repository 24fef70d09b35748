// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package cfgclient

import (
	"github.com/packetcraft-inc/stacks-sub009/pkg/keystore"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
	"github.com/packetcraft-inc/stacks-sub009/pkg/wire"
)

// Each public API call below follows the shared pipeline in
// request(): validate, remap-local, allocate, acquire, pack, and
// post-send. Per-call validation beyond the common target check
// (element-address type, enum range, composite range) is applied
// before request() is invoked; a failure returns ErrInvalidParams
// synchronously and never touches the Pending Request Queue.

// BeaconGet reads a remote node's Secure Network Beacon state.
func (c *Client) BeaconGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, cb Callback) (RequestHandle, error) {
	return c.request(wire.EvtBeaconGet, server, devKey, netKeyIdx, nil, cb)
}

// BeaconSet enables or disables Secure Network Beacon broadcast.
func (c *Client) BeaconSet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, enable bool, cb Callback) (RequestHandle, error) {
	enc := wire.NewEncoder(1)
	enc.PutByte(boolByte(enable))
	return c.request(wire.EvtBeaconSet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

// CompositionDataGet reads a page of a remote node's Composition Data.
func (c *Client) CompositionDataGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, page uint8, cb Callback) (RequestHandle, error) {
	enc := wire.NewEncoder(1)
	enc.PutByte(page)
	return c.request(wire.EvtCompositionDataGet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

// DefaultTTLGet/Set manage the remote node's default TTL.
func (c *Client) DefaultTTLGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, cb Callback) (RequestHandle, error) {
	return c.request(wire.EvtDefaultTTLGet, server, devKey, netKeyIdx, nil, cb)
}

func (c *Client) DefaultTTLSet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, ttl uint8, cb Callback) (RequestHandle, error) {
	if ttl > 0x7F {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(1)
	enc.PutByte(ttl)
	return c.request(wire.EvtDefaultTTLSet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

// GATTProxyGet/Set manage the remote node's GATT Proxy state.
func (c *Client) GATTProxyGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, cb Callback) (RequestHandle, error) {
	return c.request(wire.EvtGATTProxyGet, server, devKey, netKeyIdx, nil, cb)
}

func (c *Client) GATTProxySet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, enable bool, cb Callback) (RequestHandle, error) {
	enc := wire.NewEncoder(1)
	enc.PutByte(boolByte(enable))
	return c.request(wire.EvtGATTProxySet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

// RelayGet/Set manage the remote node's relay feature and retransmit
// composite.
func (c *Client) RelayGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, cb Callback) (RequestHandle, error) {
	return c.request(wire.EvtRelayGet, server, devKey, netKeyIdx, nil, cb)
}

func (c *Client) RelaySet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, enable bool, retransmit wire.RelayRetransmit, cb Callback) (RequestHandle, error) {
	enc := wire.NewEncoder(2)
	enc.PutByte(boolByte(enable))
	enc.PutByte(retransmit.Value())
	return c.request(wire.EvtRelaySet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

// ModelPublicationGet reads a model instance's Publication Record.
func (c *Client) ModelPublicationGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, elem meshaddr.Address, model meshaddr.ModelID, cb Callback) (RequestHandle, error) {
	if !elem.IsUnicast() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(4)
	enc.PutAddress(elem)
	enc.PutModelID(model)
	return c.request(wire.EvtModelPublicationGet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

// PublicationParams collects a model's Publication Record fields
// shared by Set and VirtualAddrSet.
type PublicationParams struct {
	Elem                meshaddr.Address
	AppKeyIndex         meshaddr.AppKeyIndex
	CredentialFlag      bool
	TTL                 uint8
	Period              wire.PublicationPeriod
	Retransmit          wire.PublicationRetransmit
	Model               meshaddr.ModelID
}

func (c *Client) ModelPublicationSet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, pubAddr meshaddr.Address, p PublicationParams, cb Callback) (RequestHandle, error) {
	if !p.Elem.IsUnicast() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(11)
	enc.PutAddress(p.Elem)
	enc.PutAddress(pubAddr)
	enc.PutUint16(uint16(p.AppKeyIndex)&0x0FFF | credentialNibble(p.CredentialFlag)<<12)
	enc.PutByte(p.TTL)
	enc.PutByte(p.Period.Value())
	enc.PutByte(p.Retransmit.Value())
	enc.PutModelID(p.Model)
	return c.request(wire.EvtModelPublicationSet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

func (c *Client) ModelPublicationVirtualAddrSet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, label meshaddr.LabelUUID, p PublicationParams, cb Callback) (RequestHandle, error) {
	if !p.Elem.IsUnicast() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(25)
	enc.PutAddress(p.Elem)
	enc.PutLabelUUID(label)
	enc.PutUint16(uint16(p.AppKeyIndex)&0x0FFF | credentialNibble(p.CredentialFlag)<<12)
	enc.PutByte(p.TTL)
	enc.PutByte(p.Period.Value())
	enc.PutByte(p.Retransmit.Value())
	enc.PutModelID(p.Model)
	return c.request(wire.EvtModelPublicationVirtualAddrSet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

// SubOpType is the Model Subscription operation selector, mirroring
// the Configuration Model's single Subscription Set message family.
type SubOpType uint8

const (
	SubAdd SubOpType = iota
	SubDelete
	SubOverwrite
)

func (c *Client) modelSubscriptionChange(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, evt wire.APIEvent, elem, group meshaddr.Address, model meshaddr.ModelID, cb Callback) (RequestHandle, error) {
	if !elem.IsUnicast() || group.IsVirtual() || group.IsUnassigned() || group == meshaddr.AllNodes {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(8)
	enc.PutAddress(elem)
	enc.PutAddress(group)
	enc.PutModelID(model)
	return c.request(evt, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

func (c *Client) ModelSubscriptionAdd(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, elem, group meshaddr.Address, model meshaddr.ModelID, cb Callback) (RequestHandle, error) {
	return c.modelSubscriptionChange(server, devKey, netKeyIdx, wire.EvtModelSubscriptionAdd, elem, group, model, cb)
}

func (c *Client) ModelSubscriptionDelete(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, elem, group meshaddr.Address, model meshaddr.ModelID, cb Callback) (RequestHandle, error) {
	return c.modelSubscriptionChange(server, devKey, netKeyIdx, wire.EvtModelSubscriptionDelete, elem, group, model, cb)
}

func (c *Client) ModelSubscriptionOverwrite(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, elem, group meshaddr.Address, model meshaddr.ModelID, cb Callback) (RequestHandle, error) {
	return c.modelSubscriptionChange(server, devKey, netKeyIdx, wire.EvtModelSubscriptionOverwrite, elem, group, model, cb)
}

func (c *Client) modelSubscriptionVirtualChange(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, evt wire.APIEvent, elem meshaddr.Address, label meshaddr.LabelUUID, model meshaddr.ModelID, cb Callback) (RequestHandle, error) {
	if !elem.IsUnicast() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(22)
	enc.PutAddress(elem)
	enc.PutLabelUUID(label)
	enc.PutModelID(model)
	return c.request(evt, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

func (c *Client) ModelSubscriptionVirtualAddrAdd(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, elem meshaddr.Address, label meshaddr.LabelUUID, model meshaddr.ModelID, cb Callback) (RequestHandle, error) {
	return c.modelSubscriptionVirtualChange(server, devKey, netKeyIdx, wire.EvtModelSubscriptionVirtualAddrAdd, elem, label, model, cb)
}

func (c *Client) ModelSubscriptionVirtualAddrDelete(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, elem meshaddr.Address, label meshaddr.LabelUUID, model meshaddr.ModelID, cb Callback) (RequestHandle, error) {
	return c.modelSubscriptionVirtualChange(server, devKey, netKeyIdx, wire.EvtModelSubscriptionVirtualAddrDelete, elem, label, model, cb)
}

func (c *Client) ModelSubscriptionVirtualAddrOverwrite(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, elem meshaddr.Address, label meshaddr.LabelUUID, model meshaddr.ModelID, cb Callback) (RequestHandle, error) {
	return c.modelSubscriptionVirtualChange(server, devKey, netKeyIdx, wire.EvtModelSubscriptionVirtualAddrOverwrite, elem, label, model, cb)
}

// ModelSubscriptionDeleteAll clears a model instance's entire
// subscription list; no subscription address or Label UUID is
// serialized.
func (c *Client) ModelSubscriptionDeleteAll(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, elem meshaddr.Address, model meshaddr.ModelID, cb Callback) (RequestHandle, error) {
	if !elem.IsUnicast() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(6)
	enc.PutAddress(elem)
	enc.PutModelID(model)
	return c.request(wire.EvtModelSubscriptionDeleteAll, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

func (c *Client) ModelSubscriptionGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, elem meshaddr.Address, model meshaddr.ModelID, cb Callback) (RequestHandle, error) {
	if !elem.IsUnicast() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(6)
	enc.PutAddress(elem)
	enc.PutModelID(model)
	return c.requestModel(wire.EvtModelSubscriptionGet, server, devKey, netKeyIdx, model, enc.Bytes(), cb)
}

// NetKeyAdd/Update/Delete/Get manage a remote node's NetKey list.
func (c *Client) NetKeyAdd(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, newIdx meshaddr.NetKeyIndex, key [16]byte, cb Callback) (RequestHandle, error) {
	return c.netKeyChange(wire.EvtNetKeyAdd, server, devKey, netKeyIdx, newIdx, key, cb)
}

func (c *Client) NetKeyUpdate(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, target meshaddr.NetKeyIndex, key [16]byte, cb Callback) (RequestHandle, error) {
	return c.netKeyChange(wire.EvtNetKeyUpdate, server, devKey, netKeyIdx, target, key, cb)
}

func (c *Client) netKeyChange(evt wire.APIEvent, server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx, target meshaddr.NetKeyIndex, key [16]byte, cb Callback) (RequestHandle, error) {
	if !target.Valid() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(18)
	enc.PutUint16(uint16(target))
	enc.PutBytes(key[:]...)
	return c.request(evt, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

func (c *Client) NetKeyDelete(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, target meshaddr.NetKeyIndex, cb Callback) (RequestHandle, error) {
	if !target.Valid() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(2)
	enc.PutUint16(uint16(target))
	return c.request(wire.EvtNetKeyDelete, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

func (c *Client) NetKeyGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, cb Callback) (RequestHandle, error) {
	return c.request(wire.EvtNetKeyGet, server, devKey, netKeyIdx, nil, cb)
}

// AppKeyAdd/Update/Delete/Get manage a remote node's AppKey list.
func (c *Client) AppKeyAdd(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, boundNetKeyIdx meshaddr.NetKeyIndex, appKeyIdx meshaddr.AppKeyIndex, key [16]byte, cb Callback) (RequestHandle, error) {
	return c.appKeyChange(wire.EvtAppKeyAdd, server, devKey, netKeyIdx, boundNetKeyIdx, appKeyIdx, key, cb)
}

func (c *Client) AppKeyUpdate(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, boundNetKeyIdx meshaddr.NetKeyIndex, appKeyIdx meshaddr.AppKeyIndex, key [16]byte, cb Callback) (RequestHandle, error) {
	return c.appKeyChange(wire.EvtAppKeyUpdate, server, devKey, netKeyIdx, boundNetKeyIdx, appKeyIdx, key, cb)
}

func (c *Client) appKeyChange(evt wire.APIEvent, server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx, boundNetKeyIdx meshaddr.NetKeyIndex, appKeyIdx meshaddr.AppKeyIndex, key [16]byte, cb Callback) (RequestHandle, error) {
	if !boundNetKeyIdx.Valid() || !appKeyIdx.Valid() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(19)
	enc.PutTwoKeyIndex(uint16(boundNetKeyIdx), uint16(appKeyIdx))
	enc.PutBytes(key[:]...)
	return c.request(evt, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

func (c *Client) AppKeyDelete(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, boundNetKeyIdx meshaddr.NetKeyIndex, appKeyIdx meshaddr.AppKeyIndex, cb Callback) (RequestHandle, error) {
	if !boundNetKeyIdx.Valid() || !appKeyIdx.Valid() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(3)
	enc.PutTwoKeyIndex(uint16(boundNetKeyIdx), uint16(appKeyIdx))
	return c.request(wire.EvtAppKeyDelete, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

func (c *Client) AppKeyGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, boundNetKeyIdx meshaddr.NetKeyIndex, cb Callback) (RequestHandle, error) {
	if !boundNetKeyIdx.Valid() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(2)
	enc.PutUint16(uint16(boundNetKeyIdx))
	return c.request(wire.EvtAppKeyGet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

// NodeIdentityGet/Set manage a remote node's advertised identity state
// for a given subnet.
func (c *Client) NodeIdentityGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, target meshaddr.NetKeyIndex, cb Callback) (RequestHandle, error) {
	if !target.Valid() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(2)
	enc.PutUint16(uint16(target))
	return c.request(wire.EvtNodeIdentityGet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

func (c *Client) NodeIdentitySet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, target meshaddr.NetKeyIndex, state uint8, cb Callback) (RequestHandle, error) {
	if !target.Valid() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(3)
	enc.PutUint16(uint16(target))
	enc.PutByte(state)
	return c.request(wire.EvtNodeIdentitySet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

// ModelAppBind/Unbind manage a model instance's AppKey binding set;
// ModelAppGet reads it back.
func (c *Client) ModelAppBind(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, elem meshaddr.Address, appKeyIdx meshaddr.AppKeyIndex, model meshaddr.ModelID, cb Callback) (RequestHandle, error) {
	return c.modelAppChange(wire.EvtModelAppBind, server, devKey, netKeyIdx, elem, appKeyIdx, model, cb)
}

func (c *Client) ModelAppUnbind(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, elem meshaddr.Address, appKeyIdx meshaddr.AppKeyIndex, model meshaddr.ModelID, cb Callback) (RequestHandle, error) {
	return c.modelAppChange(wire.EvtModelAppUnbind, server, devKey, netKeyIdx, elem, appKeyIdx, model, cb)
}

func (c *Client) modelAppChange(evt wire.APIEvent, server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, elem meshaddr.Address, appKeyIdx meshaddr.AppKeyIndex, model meshaddr.ModelID, cb Callback) (RequestHandle, error) {
	if !elem.IsUnicast() || !appKeyIdx.Valid() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(8)
	enc.PutAddress(elem)
	enc.PutUint16(uint16(appKeyIdx))
	enc.PutModelID(model)
	return c.request(evt, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

func (c *Client) ModelAppGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, elem meshaddr.Address, model meshaddr.ModelID, cb Callback) (RequestHandle, error) {
	if !elem.IsUnicast() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(6)
	enc.PutAddress(elem)
	enc.PutModelID(model)
	return c.requestModel(wire.EvtModelAppGet, server, devKey, netKeyIdx, model, enc.Bytes(), cb)
}

// NodeReset instructs a remote node to reset to an unprovisioned
// state; its response carries no status byte beyond the opcode echo.
func (c *Client) NodeReset(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, cb Callback) (RequestHandle, error) {
	return c.request(wire.EvtNodeReset, server, devKey, netKeyIdx, nil, cb)
}

// FriendGet/Set manage the remote node's Friend feature state.
func (c *Client) FriendGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, cb Callback) (RequestHandle, error) {
	return c.request(wire.EvtFriendGet, server, devKey, netKeyIdx, nil, cb)
}

func (c *Client) FriendSet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, enable bool, cb Callback) (RequestHandle, error) {
	enc := wire.NewEncoder(1)
	enc.PutByte(boolByte(enable))
	return c.request(wire.EvtFriendSet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

// KeyRefreshPhaseGet reads the Key Refresh Phase of a subnet. The
// target NetKey index is validated before any allocation: an invalid
// index returns ErrInvalidParams immediately and the call never
// reaches the Pending Request Queue.
func (c *Client) KeyRefreshPhaseGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, target meshaddr.NetKeyIndex, cb Callback) (RequestHandle, error) {
	if !target.Valid() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(2)
	enc.PutUint16(uint16(target))
	return c.request(wire.EvtKeyRefreshPhaseGet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

// KeyRefreshPhaseSet requests a Key Refresh Phase transition; the
// requested phase must itself be a valid phase value (0-2) per the
// Key Refresh state machine.
func (c *Client) KeyRefreshPhaseSet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, target meshaddr.NetKeyIndex, phase uint8, cb Callback) (RequestHandle, error) {
	if !target.Valid() || phase > 2 {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(3)
	enc.PutUint16(uint16(target))
	enc.PutByte(phase)
	return c.request(wire.EvtKeyRefreshPhaseSet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

// HeartbeatPublicationGet/Set manage Heartbeat message publication.
func (c *Client) HeartbeatPublicationGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, cb Callback) (RequestHandle, error) {
	return c.request(wire.EvtHeartbeatPublicationGet, server, devKey, netKeyIdx, nil, cb)
}

func (c *Client) HeartbeatPublicationSet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, hb wire.HeartbeatPublication, cb Callback) (RequestHandle, error) {
	return c.request(wire.EvtHeartbeatPublicationSet, server, devKey, netKeyIdx, hb.Pack(), cb)
}

// HeartbeatSubscriptionGet/Set manage Heartbeat message monitoring.
func (c *Client) HeartbeatSubscriptionGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, cb Callback) (RequestHandle, error) {
	return c.request(wire.EvtHeartbeatSubscriptionGet, server, devKey, netKeyIdx, nil, cb)
}

// HeartbeatSubscriptionSet takes a HeartbeatSubscription for API
// symmetry with HeartbeatPublicationSet, but only its Source,
// Destination, and PeriodLog fields are request parameters; CountLog,
// MinHops, and MaxHops are server-reported state the Set message never
// carries and are ignored here.
func (c *Client) HeartbeatSubscriptionSet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, hb wire.HeartbeatSubscription, cb Callback) (RequestHandle, error) {
	if !hb.Source.IsUnicast() || hb.Destination.IsVirtual() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(5)
	enc.PutAddress(hb.Source)
	enc.PutAddress(hb.Destination)
	enc.PutByte(hb.PeriodLog)
	return c.request(wire.EvtHeartbeatSubscriptionSet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

// LPNPollTimeoutGet reads a Friend's tracked Poll Timeout for a given
// Low Power Node.
func (c *Client) LPNPollTimeoutGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, lpnAddr meshaddr.Address, cb Callback) (RequestHandle, error) {
	if !lpnAddr.IsUnicast() {
		return 0, ErrInvalidParams
	}
	enc := wire.NewEncoder(2)
	enc.PutAddress(lpnAddr)
	return c.request(wire.EvtLPNPollTimeoutGet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

// NetworkTransmitGet/Set manage the remote node's network-layer
// retransmit composite.
func (c *Client) NetworkTransmitGet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, cb Callback) (RequestHandle, error) {
	return c.request(wire.EvtNetworkTransmitGet, server, devKey, netKeyIdx, nil, cb)
}

func (c *Client) NetworkTransmitSet(server meshaddr.Address, devKey *keystore.DeviceKey, netKeyIdx meshaddr.NetKeyIndex, nt wire.NetworkTransmit, cb Callback) (RequestHandle, error) {
	enc := wire.NewEncoder(1)
	enc.PutByte(nt.Value())
	return c.request(wire.EvtNetworkTransmitSet, server, devKey, netKeyIdx, enc.Bytes(), cb)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// credentialNibble returns the friendship-credential flag as 0 or 1;
// the Model Publication Set builders shift it to bit 12 of the 16-bit
// field whose low 12 bits carry the AppKeyIndex.
func credentialNibble(credential bool) uint16 {
	if credential {
		return 1
	}
	return 0
}
