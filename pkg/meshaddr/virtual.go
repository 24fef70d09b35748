// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package meshaddr

import "github.com/google/uuid"

// LabelUUID is the 128-bit label accompanying a virtual address. It
// wraps google/uuid's array type so callers get standard parsing and
// string formatting for free while the mesh-specific equality rule
// (both the 16-bit hash and the label must match) lives on VirtualAddr.
type LabelUUID uuid.UUID

// ParseLabelUUID parses a canonical UUID string into a LabelUUID.
func ParseLabelUUID(s string) (LabelUUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return LabelUUID{}, err
	}
	return LabelUUID(u), nil
}

func (l LabelUUID) String() string { return uuid.UUID(l).String() }

// Equal reports whether two label UUIDs hold the same 128 bits.
func (l LabelUUID) Equal(other LabelUUID) bool {
	return uuid.UUID(l) == uuid.UUID(other)
}

// VirtualAddr pairs the 16-bit virtual address form with its Label
// UUID. Equality of virtual addresses requires both forms to match,
// per the data model's Virtual Address invariant.
type VirtualAddr struct {
	Addr  Address
	Label LabelUUID
}

// Equal implements the data model's virtual-address equality rule.
func (v VirtualAddr) Equal(other VirtualAddr) bool {
	return v.Addr == other.Addr && v.Label.Equal(other.Label)
}
