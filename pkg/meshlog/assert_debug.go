// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

//go:build meshdebug

package meshlog

import "fmt"

// Assert panics on a caller-contract violation in debug builds, matching
// the source's WSF_ASSERT behavior for key mismatches and refcount
// underflow.
func (c Clog) Assert(cond bool, msg string, kv ...interface{}) bool {
	if cond {
		return true
	}
	c.Critical(msg, kv...)
	panic(fmt.Sprintf("meshassert: %s", msg))
}
