// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package wire

// APIEvent identifies a Configuration Client API call for completion
// labeling (timeout and success events share the same tag), mirroring
// the Packetcraft reference stack's meshCfgMdlCl event enumeration.
type APIEvent uint8

const (
	EvtBeaconGet APIEvent = iota
	EvtBeaconSet
	EvtCompositionDataGet
	EvtDefaultTTLGet
	EvtDefaultTTLSet
	EvtGATTProxyGet
	EvtGATTProxySet
	EvtRelayGet
	EvtRelaySet
	EvtModelPublicationGet
	EvtModelPublicationSet
	EvtModelPublicationVirtualAddrSet
	EvtModelSubscriptionAdd
	EvtModelSubscriptionVirtualAddrAdd
	EvtModelSubscriptionDelete
	EvtModelSubscriptionVirtualAddrDelete
	EvtModelSubscriptionDeleteAll
	EvtModelSubscriptionOverwrite
	EvtModelSubscriptionVirtualAddrOverwrite
	EvtModelSubscriptionGet
	EvtNetKeyAdd
	EvtNetKeyUpdate
	EvtNetKeyDelete
	EvtNetKeyGet
	EvtAppKeyAdd
	EvtAppKeyUpdate
	EvtAppKeyDelete
	EvtAppKeyGet
	EvtNodeIdentityGet
	EvtNodeIdentitySet
	EvtModelAppBind
	EvtModelAppUnbind
	EvtModelAppGet
	EvtNodeReset
	EvtFriendGet
	EvtFriendSet
	EvtKeyRefreshPhaseGet
	EvtKeyRefreshPhaseSet
	EvtHeartbeatPublicationGet
	EvtHeartbeatPublicationSet
	EvtHeartbeatSubscriptionGet
	EvtHeartbeatSubscriptionSet
	EvtLPNPollTimeoutGet
	EvtNetworkTransmitGet
	EvtNetworkTransmitSet

	numAPIEvents
)

// OpcodeEntry binds an API event to its request and expected response
// opcode, the Go analogue of the source's parallel opcode tables
// (index -> opcode bytes for packing, received opcode -> index for
// dispatch).
type OpcodeEntry struct {
	Event  APIEvent
	ReqOp  Opcode
	RspOp  Opcode
}

// opcodeTable is ordered by APIEvent value; the invariant that
// pack(opcodes[i]) decodes back to i is exercised in composites_test.go by
// walking this table, not by construction, since the table itself is
// hand-authored from the Configuration Model opcode assignments.
var opcodeTable = [numAPIEvents]OpcodeEntry{
	EvtBeaconGet:                      {EvtBeaconGet, 0x8009, 0x800B},
	EvtBeaconSet:                      {EvtBeaconSet, 0x800A, 0x800B},
	EvtCompositionDataGet:             {EvtCompositionDataGet, 0x8008, 0x02},
	EvtDefaultTTLGet:                  {EvtDefaultTTLGet, 0x800C, 0x800E},
	EvtDefaultTTLSet:                  {EvtDefaultTTLSet, 0x800D, 0x800E},
	EvtGATTProxyGet:                   {EvtGATTProxyGet, 0x8012, 0x8014},
	EvtGATTProxySet:                   {EvtGATTProxySet, 0x8013, 0x8014},
	EvtRelayGet:                       {EvtRelayGet, 0x8026, 0x8028},
	EvtRelaySet:                       {EvtRelaySet, 0x8027, 0x8028},
	EvtModelPublicationGet:            {EvtModelPublicationGet, 0x8018, 0x8019},
	EvtModelPublicationSet:            {EvtModelPublicationSet, 0x03, 0x8019},
	EvtModelPublicationVirtualAddrSet: {EvtModelPublicationVirtualAddrSet, 0x801A, 0x8019},
	EvtModelSubscriptionAdd:           {EvtModelSubscriptionAdd, 0x801B, 0x801F},
	EvtModelSubscriptionVirtualAddrAdd: {EvtModelSubscriptionVirtualAddrAdd, 0x8020, 0x801F},
	EvtModelSubscriptionDelete:        {EvtModelSubscriptionDelete, 0x801C, 0x801F},
	EvtModelSubscriptionVirtualAddrDelete: {EvtModelSubscriptionVirtualAddrDelete, 0x8021, 0x801F},
	EvtModelSubscriptionDeleteAll:     {EvtModelSubscriptionDeleteAll, 0x801D, 0x801F},
	EvtModelSubscriptionOverwrite:     {EvtModelSubscriptionOverwrite, 0x801E, 0x801F},
	EvtModelSubscriptionVirtualAddrOverwrite: {EvtModelSubscriptionVirtualAddrOverwrite, 0x8022, 0x801F},
	EvtModelSubscriptionGet:           {EvtModelSubscriptionGet, 0x8029, 0x802A},
	EvtNetKeyAdd:                      {EvtNetKeyAdd, 0x8040, 0x8044},
	EvtNetKeyUpdate:                   {EvtNetKeyUpdate, 0x8045, 0x8044},
	EvtNetKeyDelete:                   {EvtNetKeyDelete, 0x8041, 0x8044},
	EvtNetKeyGet:                      {EvtNetKeyGet, 0x8042, 0x8043},
	EvtAppKeyAdd:                      {EvtAppKeyAdd, 0x00, 0x8003},
	EvtAppKeyUpdate:                   {EvtAppKeyUpdate, 0x01, 0x8003},
	EvtAppKeyDelete:                   {EvtAppKeyDelete, 0x8000, 0x8003},
	EvtAppKeyGet:                      {EvtAppKeyGet, 0x8001, 0x8002},
	EvtNodeIdentityGet:                {EvtNodeIdentityGet, 0x8046, 0x8048},
	EvtNodeIdentitySet:                {EvtNodeIdentitySet, 0x8047, 0x8048},
	EvtModelAppBind:                   {EvtModelAppBind, 0x803D, 0x803E},
	EvtModelAppUnbind:                 {EvtModelAppUnbind, 0x803F, 0x803E},
	EvtModelAppGet:                    {EvtModelAppGet, 0x804B, 0x804C},
	EvtNodeReset:                      {EvtNodeReset, 0x8049, 0x804A},
	EvtFriendGet:                      {EvtFriendGet, 0x800F, 0x8011},
	EvtFriendSet:                      {EvtFriendSet, 0x8010, 0x8011},
	EvtKeyRefreshPhaseGet:             {EvtKeyRefreshPhaseGet, 0x8015, 0x8017},
	EvtKeyRefreshPhaseSet:             {EvtKeyRefreshPhaseSet, 0x8016, 0x8017},
	EvtHeartbeatPublicationGet:        {EvtHeartbeatPublicationGet, 0x8038, 0x06},
	EvtHeartbeatPublicationSet:        {EvtHeartbeatPublicationSet, 0x8039, 0x06},
	EvtHeartbeatSubscriptionGet:       {EvtHeartbeatSubscriptionGet, 0x803A, 0x803C},
	EvtHeartbeatSubscriptionSet:       {EvtHeartbeatSubscriptionSet, 0x803B, 0x803C},
	EvtLPNPollTimeoutGet:              {EvtLPNPollTimeoutGet, 0x802D, 0x802E},
	EvtNetworkTransmitGet:             {EvtNetworkTransmitGet, 0x8023, 0x8025},
	EvtNetworkTransmitSet:             {EvtNetworkTransmitSet, 0x8024, 0x8025},
}

// RequestOpcode returns the wire opcode used to issue evt's request.
func RequestOpcode(evt APIEvent) Opcode { return opcodeTable[evt].ReqOp }

// ResponseOpcode returns the wire opcode expected in evt's response.
func ResponseOpcode(evt APIEvent) Opcode { return opcodeTable[evt].RspOp }

// AllResponseOpcodes returns every distinct response opcode the
// Configuration Client core model must register with the Access
// Dispatcher to receive responses.
func AllResponseOpcodes() []Opcode {
	seen := make(map[Opcode]bool)
	var out []Opcode
	for _, e := range opcodeTable {
		if seen[e.RspOp] {
			continue
		}
		seen[e.RspOp] = true
		out = append(out, e.RspOp)
	}
	return out
}

// EventsForResponseOpcode returns every API event whose response
// opcode matches op, since several requests (e.g. ModelSubscriptionAdd
// and ...Delete) share one Status response opcode; response
// demultiplexing further disambiguates by matching server address,
// NetKey index, and destination element (see cfgclient).
func EventsForResponseOpcode(op Opcode) []APIEvent {
	var evts []APIEvent
	for i, e := range opcodeTable {
		if e.RspOp == op {
			evts = append(evts, APIEvent(i))
		}
	}
	return evts
}
