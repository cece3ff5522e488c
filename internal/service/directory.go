// internal/service/directory.go
package service

import (
	"sort"

	"printer-service/internal/config"
	"printer-service/internal/model"
)

// Directory resolves printer identities to their configuration
type Directory interface {
	Lookup(identity string, class model.PrinterClass) (model.PrinterConfig, bool)
	Entries() []PrinterEntry
}

// PrinterEntry is one configured printer
type PrinterEntry struct {
	Identity string              `json:"identity"`
	Class    model.PrinterClass  `json:"class"`
	Config   model.PrinterConfig `json:"config"`
}

// ConfigDirectory is a Directory backed by the printers section of the configuration
type ConfigDirectory struct {
	printers map[string]config.PrinterSet
}

// NewConfigDirectory creates a directory over the configured printers
func NewConfigDirectory(printers map[string]config.PrinterSet) *ConfigDirectory {
	if printers == nil {
		printers = make(map[string]config.PrinterSet)
	}
	return &ConfigDirectory{printers: printers}
}

// Lookup returns the printer of the given class configured for identity
func (d *ConfigDirectory) Lookup(identity string, class model.PrinterClass) (model.PrinterConfig, bool) {
	set, exists := d.printers[identity]
	if !exists {
		return model.PrinterConfig{}, false
	}
	return set.Get(class)
}

// Entries lists every configured printer, ordered by identity then class
func (d *ConfigDirectory) Entries() []PrinterEntry {
	entries := make([]PrinterEntry, 0, len(d.printers)*2)
	for identity, set := range d.printers {
		for _, class := range []model.PrinterClass{model.ClassFiscal, model.ClassNonFiscal} {
			if cfg, ok := set.Get(class); ok {
				entries = append(entries, PrinterEntry{Identity: identity, Class: class, Config: cfg})
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Identity != entries[j].Identity {
			return entries[i].Identity < entries[j].Identity
		}
		return entries[i].Class < entries[j].Class
	})
	return entries
}
