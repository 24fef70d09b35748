// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package meshaddr defines the Bluetooth Mesh address space, model
// identifiers, and virtual/label-UUID addressing used throughout the
// configuration subsystem.
package meshaddr

import "fmt"

// Address is a 16-bit Bluetooth Mesh address.
type Address uint16

// Reserved and fixed-group addresses.
const (
	Unassigned Address = 0x0000

	unicastMin Address = 0x0001
	unicastMax Address = 0x7FFF

	dynGroupMin Address = 0xC000
	dynGroupMax Address = 0xFEFF

	AllProxies Address = 0xFFFC
	AllFriends Address = 0xFFFD
	AllRelays  Address = 0xFFFE
	AllNodes   Address = 0xFFFF
)

// IsUnassigned reports whether the address is the reserved zero value.
func (a Address) IsUnassigned() bool { return a == Unassigned }

// IsUnicast reports whether the address identifies a single element.
func (a Address) IsUnicast() bool { return a >= unicastMin && a <= unicastMax }

// IsVirtual reports whether the address falls in the virtual range.
func (a Address) IsVirtual() bool { return a >= 0x8000 && a <= 0xBFFF }

// IsDynamicGroup reports whether the address is an assignable group
// address (as opposed to one of the four fixed groups).
func (a Address) IsDynamicGroup() bool { return a >= dynGroupMin && a <= dynGroupMax }

// IsFixedGroup reports whether the address is one of the four reserved
// multicast groups (proxy, friend, relay, all-nodes).
func (a Address) IsFixedGroup() bool {
	switch a {
	case AllProxies, AllFriends, AllRelays, AllNodes:
		return true
	default:
		return false
	}
}

// IsGroup reports whether the address is any group address, fixed or
// dynamic.
func (a Address) IsGroup() bool { return a.IsDynamicGroup() || a.IsFixedGroup() }

func (a Address) String() string {
	switch {
	case a.IsUnassigned():
		return "Addr<unassigned>"
	case a.IsUnicast():
		return fmt.Sprintf("Addr<unicast:%#04x>", uint16(a))
	case a.IsVirtual():
		return fmt.Sprintf("Addr<virtual:%#04x>", uint16(a))
	case a == AllProxies:
		return "Addr<all-proxies>"
	case a == AllFriends:
		return "Addr<all-friends>"
	case a == AllRelays:
		return "Addr<all-relays>"
	case a == AllNodes:
		return "Addr<all-nodes>"
	case a.IsDynamicGroup():
		return fmt.Sprintf("Addr<group:%#04x>", uint16(a))
	default:
		return fmt.Sprintf("Addr<reserved:%#04x>", uint16(a))
	}
}

// Feature identifies a locally enabled fixed-group feature consulted by
// ElementFromFixedGroup (Proxy, Friend, Relay each gate their matching
// fixed group; All-Nodes is unconditional).
type Features struct {
	Proxy  bool
	Friend bool
	Relay  bool
}

// ElementFromFixedGroup resolves a fixed-group address to the primary
// element's address, iff the corresponding local feature is enabled (or
// unconditionally for All-Nodes). Returns (Unassigned, false) when the
// group does not collapse; the caller drops the PDU in that case.
func ElementFromFixedGroup(g Address, primary Address, feat Features) (Address, bool) {
	switch g {
	case AllNodes:
		return primary, true
	case AllProxies:
		if feat.Proxy {
			return primary, true
		}
	case AllFriends:
		if feat.Friend {
			return primary, true
		}
	case AllRelays:
		if feat.Relay {
			return primary, true
		}
	}
	return Unassigned, false
}

// AppKeyIndex and NetKeyIndex are 12-bit key indices, stored widened to
// simplify arithmetic; Valid reports whether the value fits in 12 bits.
type AppKeyIndex uint16
type NetKeyIndex uint16

const KeyIndexMax = 0x0FFF

// Valid reports whether the index fits the protocol's 12-bit range.
func (i AppKeyIndex) Valid() bool { return i <= KeyIndexMax }

// Valid reports whether the index fits the protocol's 12-bit range.
func (i NetKeyIndex) Valid() bool { return i <= KeyIndexMax }

// DevKeyMarker is the reserved AppKeyIndex sentinel meaning "use the
// device key" rather than an application key, per the access dispatch
// rules (local-device-key / remote-device-key routing).
const (
	LocalDevKeyMarker  AppKeyIndex = 0xFFFF
	RemoteDevKeyMarker AppKeyIndex = 0xFFFE
)

// IsDeviceKey reports whether the index marks device-key traffic.
func (i AppKeyIndex) IsDeviceKey() bool {
	return i == LocalDevKeyMarker || i == RemoteDevKeyMarker
}
