// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package meshcfgfile loads the subsystem's runtime parameters:
// maximum tracked remote servers, the per-client response timeout, and
// the application's element/model array, over a YAML source file using
// the read-whole-file-then-yaml.Unmarshal idiom common across the
// corpus's config loaders.
package meshcfgfile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/packetcraft-inc/stacks-sub009/pkg/meshaddr"
)

// DatasetID identifies a persisted-state table; bit-level layout is
// out of scope for this subsystem, so these remain opaque tags
// consumed through a LocalConfigStore.
type DatasetID uint16

const (
	DatasetLocalConfig DatasetID = iota + 1
	DatasetNetKeys
	DatasetAppKeys
	DatasetBindings
	DatasetAddresses
	DatasetSubscriptions
	DatasetSeqNumbers
	DatasetHeartbeatState
	DatasetRemoteProvList
)

// LocalConfigStore is the persisted-state hook the subsystem expects
// its host application to provide; its bit-level layout is out of
// scope here, so the interface only exposes opaque byte blobs keyed
// by DatasetID.
type LocalConfigStore interface {
	Load(id DatasetID) ([]byte, bool)
	Save(id DatasetID, data []byte) error
}

// ModelConfig describes one model instance to install on an element
// at load time: its identifier only; the file format carries no
// opcode list.
type ModelConfig struct {
	SIG     *uint16 `yaml:"sig,omitempty"`
	Company *uint16 `yaml:"company,omitempty"`
	Vendor  *uint16 `yaml:"vendor,omitempty"`
}

// ModelID converts the YAML-friendly ModelConfig into a meshaddr.ModelID.
func (m ModelConfig) ModelID() meshaddr.ModelID {
	if m.SIG != nil {
		return meshaddr.SIGModel(*m.SIG)
	}
	return meshaddr.VendorModel(*m.Company, *m.Vendor)
}

// ElementConfig describes one application-provided element.
type ElementConfig struct {
	Address uint16        `yaml:"address"`
	SIG     []ModelConfig `yaml:"sig_models"`
	Vendor  []ModelConfig `yaml:"vendor_models"`
}

// Config is the subsystem's three runtime parameters, plus the local
// feature set consumed by fixed-group resolution.
type Config struct {
	MaxServers        int             `yaml:"max_servers"`
	RequestTimeoutSec int             `yaml:"request_timeout_sec"`
	Elements          []ElementConfig `yaml:"elements"`
	Features          struct {
		Proxy  bool `yaml:"proxy"`
		Friend bool `yaml:"friend"`
		Relay  bool `yaml:"relay"`
	} `yaml:"features"`
}

// defaultMaxServers and defaultRequestTimeoutSec are the documented
// fallback values applied when a YAML source omits them.
const (
	defaultMaxServers        = 4
	defaultRequestTimeoutSec = 10
)

// Valid fills unset fields with their documented defaults and
// validates the element array.
func (c *Config) Valid() error {
	if c.MaxServers <= 0 {
		c.MaxServers = defaultMaxServers
	}
	if c.RequestTimeoutSec <= 0 {
		c.RequestTimeoutSec = defaultRequestTimeoutSec
	}
	if len(c.Elements) == 0 {
		return fmt.Errorf("meshcfgfile: at least one element (the Primary Element) is required")
	}
	for i, e := range c.Elements {
		if !meshaddr.Address(e.Address).IsUnicast() {
			return fmt.Errorf("meshcfgfile: element %d address %#04x is not Unicast", i, e.Address)
		}
	}
	return nil
}

// RequestTimeout returns the configured per-client timeout as a
// time.Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// Load reads and parses a YAML configuration file at path, applying
// Valid()'s defaults and validation before returning.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("meshcfgfile: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("meshcfgfile: parse %s: %w", path, err)
	}
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
