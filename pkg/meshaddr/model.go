// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package meshaddr

import (
	"encoding/binary"
	"fmt"
)

// ModelID is a tagged union identifying a SIG (16-bit) or vendor
// (company ID + model ID, 32-bit total) model, mirroring the data
// model's Model Identifier type.
type ModelID struct {
	IsVendor bool
	SIG      uint16 // valid iff !IsVendor
	Company  uint16 // valid iff IsVendor
	Vendor   uint16 // valid iff IsVendor
}

// SIGModel constructs a SIG model identifier.
func SIGModel(id uint16) ModelID { return ModelID{SIG: id} }

// VendorModel constructs a vendor model identifier from a company ID
// and a vendor-assigned model ID.
func VendorModel(company, model uint16) ModelID {
	return ModelID{IsVendor: true, Company: company, Vendor: model}
}

// Pack encodes the model identifier in its wire form: 2 bytes
// little-endian for a SIG model, or company ID followed by model ID
// (4 bytes little-endian) for a vendor model.
func (m ModelID) Pack() []byte {
	if !m.IsVendor {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, m.SIG)
		return b
	}
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b[0:2], m.Company)
	binary.LittleEndian.PutUint16(b[2:4], m.Vendor)
	return b
}

// ParseSIGModel decodes a 2-byte SIG model identifier.
func ParseSIGModel(b []byte) ModelID {
	return SIGModel(binary.LittleEndian.Uint16(b))
}

// ParseVendorModel decodes a 4-byte vendor model identifier (company ID
// then model ID).
func ParseVendorModel(b []byte) ModelID {
	return VendorModel(binary.LittleEndian.Uint16(b[0:2]), binary.LittleEndian.Uint16(b[2:4]))
}

func (m ModelID) String() string {
	if m.IsVendor {
		return fmt.Sprintf("Model<vendor:%#04x:%#04x>", m.Company, m.Vendor)
	}
	return fmt.Sprintf("Model<sig:%#04x>", m.SIG)
}

// ElementID indexes an element within the node's element array; element
// 0 is always the Primary Element.
type ElementID int

const PrimaryElementID ElementID = 0
