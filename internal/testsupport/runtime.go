// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package testsupport holds fakes shared by this module's test suites:
// a manually-advanced Runtime (no wall-clock dependence) and a
// PDU-capturing Upper Transport sender, following the mock-free,
// hand-built fake style used throughout the Packetcraft reference
// stack's own test suites rather than reaching for a mocking
// framework.
package testsupport

import (
	"time"

	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
	"github.com/packetcraft-inc/stacks-sub009/pkg/meshrt"
)

// FakeRuntime is a meshrt.Runtime whose timers fire only when the test
// explicitly calls Fire or Advance, and whose Rand32 returns a
// caller-seeded deterministic sequence instead of drawing from
// crypto/rand.
type FakeRuntime struct {
	now     time.Time
	armed   map[meshrt.TimerID]time.Time
	randSeq []uint32
	randPos int
	fire    func(meshrt.TimerID)
}

// NewFakeRuntime constructs a FakeRuntime starting at an arbitrary
// fixed instant; fire is invoked synchronously whenever Advance or
// Fire crosses an armed timer's deadline.
func NewFakeRuntime(fire func(meshrt.TimerID)) *FakeRuntime {
	return &FakeRuntime{
		now:   time.Unix(0, 0),
		armed: make(map[meshrt.TimerID]time.Time),
		fire:  fire,
	}
}

func (f *FakeRuntime) ArmTimer(d time.Duration, id meshrt.TimerID) {
	f.armed[id] = f.now.Add(d)
}

func (f *FakeRuntime) CancelTimer(id meshrt.TimerID) {
	delete(f.armed, id)
}

func (f *FakeRuntime) Now() time.Time { return f.now }

// SetRandSeq installs a deterministic sequence consumed in order by
// Rand32; once exhausted, Rand32 returns 0.
func (f *FakeRuntime) SetRandSeq(seq []uint32) {
	f.randSeq = seq
	f.randPos = 0
}

func (f *FakeRuntime) Rand32() uint32 {
	if f.randPos >= len(f.randSeq) {
		return 0
	}
	v := f.randSeq[f.randPos]
	f.randPos++
	return v
}

// Advance moves the fake clock forward by d, firing (in deadline
// order) every armed timer whose deadline falls at or before the new
// time. A fired timer is removed before its callback runs, matching
// the real one-shot Runtime's contract.
func (f *FakeRuntime) Advance(d time.Duration) {
	target := f.now.Add(d)
	for {
		var dueID meshrt.TimerID
		var dueAt time.Time
		found := false
		for id, at := range f.armed {
			if at.After(target) {
				continue
			}
			if !found || at.Before(dueAt) {
				dueID, dueAt, found = id, at, true
			}
		}
		if !found {
			break
		}
		delete(f.armed, dueID)
		f.now = dueAt
		if f.fire != nil {
			f.fire(dueID)
		}
	}
	f.now = target
}

// Fire force-expires a specific timer regardless of its deadline,
// useful for tests that don't care about exact timing, only ordering.
func (f *FakeRuntime) Fire(id meshrt.TimerID) {
	if _, ok := f.armed[id]; !ok {
		return
	}
	delete(f.armed, id)
	if f.fire != nil {
		f.fire(id)
	}
}

// SentPDU captures one call to FakeSender.Send.
type SentPDU struct {
	Src, Dst    meshaddr.Address
	Label       *meshaddr.LabelUUID
	AppKeyIndex meshaddr.AppKeyIndex
	NetKeyIndex meshaddr.NetKeyIndex
	TTL         uint8
	PDU         []byte
}

// FakeSender is an UpperTransportSender that records every send
// instead of handing PDUs to a real Network layer.
type FakeSender struct {
	Sent []SentPDU
	Err  error
}

func (s *FakeSender) Send(src, dst meshaddr.Address, label *meshaddr.LabelUUID, appKeyIndex meshaddr.AppKeyIndex, netKeyIndex meshaddr.NetKeyIndex, ttl uint8, pdu []byte) error {
	if s.Err != nil {
		return s.Err
	}
	cp := append([]byte(nil), pdu...)
	s.Sent = append(s.Sent, SentPDU{Src: src, Dst: dst, Label: label, AppKeyIndex: appKeyIndex, NetKeyIndex: netKeyIndex, TTL: ttl, PDU: cp})
	return nil
}
