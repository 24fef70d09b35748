// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"errors"

	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
)

// ErrShortBuffer is returned by Decoder methods when fewer bytes remain
// than the field being decoded requires.
var ErrShortBuffer = errors.New("wire: short buffer")

// Encoder accumulates packed message parameter bytes: a standalone,
// single-purpose growable buffer. Configuration messages have no
// header/body split, so there is no identifier to carry alongside it.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with capacity hinted by size.
func NewEncoder(sizeHint int) *Encoder {
	return &Encoder{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the accumulated parameter bytes.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int { return len(e.buf) }

func (e *Encoder) PutByte(b byte) { e.buf = append(e.buf, b) }

func (e *Encoder) PutBytes(b ...byte) { e.buf = append(e.buf, b...) }

func (e *Encoder) PutUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// PutAddress writes a 16-bit mesh address, little-endian.
func (e *Encoder) PutAddress(a meshaddr.Address) { e.PutUint16(uint16(a)) }

// PutLabelUUID writes the 16 raw bytes of a Label UUID, big-endian per
// the UUID's own canonical byte order (transmitted verbatim, not
// address-field little-endian).
func (e *Encoder) PutLabelUUID(l meshaddr.LabelUUID) { e.buf = append(e.buf, l[:]...) }

// PutModelID writes a SIG (2-byte) or vendor (4-byte) model identifier.
func (e *Encoder) PutModelID(m meshaddr.ModelID) { e.buf = append(e.buf, m.Pack()...) }

// PutOpcode writes an opcode's wire-sized bytes.
func (e *Encoder) PutOpcode(op Opcode) { e.buf = AppendOpcode(e.buf, op) }

// Decoder walks a received parameter buffer left to right: each Get
// method slices off the bytes it consumes so sequential calls read the
// wire layout in order.
type Decoder struct {
	buf []byte
	err error
}

// NewDecoder wraps b for sequential decoding.
func NewDecoder(b []byte) *Decoder { return &Decoder{buf: b} }

// Err returns the first error encountered, if any; once set, all
// subsequent Get calls are no-ops returning zero values.
func (d *Decoder) Err() error { return d.err }

// Remaining returns the number of unconsumed bytes.
func (d *Decoder) Remaining() int { return len(d.buf) }

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.buf) < n {
		d.err = ErrShortBuffer
		return nil
	}
	b := d.buf[:n]
	d.buf = d.buf[n:]
	return b
}

func (d *Decoder) GetByte() byte {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) GetUint16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *Decoder) GetUint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// GetAddress reads a 16-bit mesh address.
func (d *Decoder) GetAddress() meshaddr.Address { return meshaddr.Address(d.GetUint16()) }

// GetLabelUUID reads the 16 raw bytes of a Label UUID.
func (d *Decoder) GetLabelUUID() meshaddr.LabelUUID {
	b := d.take(16)
	var l meshaddr.LabelUUID
	if b == nil {
		return l
	}
	copy(l[:], b)
	return l
}

// GetSIGModel reads a 2-byte SIG model identifier.
func (d *Decoder) GetSIGModel() meshaddr.ModelID {
	b := d.take(2)
	if b == nil {
		return meshaddr.ModelID{}
	}
	return meshaddr.ParseSIGModel(b)
}

// GetVendorModel reads a 4-byte vendor model identifier.
func (d *Decoder) GetVendorModel() meshaddr.ModelID {
	b := d.take(4)
	if b == nil {
		return meshaddr.ModelID{}
	}
	return meshaddr.ParseVendorModel(b)
}

// GetRest returns all remaining unconsumed bytes without advancing past
// end; used by handlers that decode a trailing variable-length array.
func (d *Decoder) GetRest() []byte {
	if d.err != nil {
		return nil
	}
	return d.buf
}
