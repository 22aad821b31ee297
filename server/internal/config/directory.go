package config

import "fmt"

// MachineInfo is one entry in the static machine directory: the display
// metadata looked up from a machine ID at ingest time.
type MachineInfo struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Location string `yaml:"location"`
}

// builtinDirectory is the factory floor as shipped. Config entries override
// these; IDs outside the directory get generated fallback metadata.
var builtinDirectory = []MachineInfo{
	{ID: "M001", Name: "CNC Mill Alpha", Type: "CNC", Location: "Floor A - Zone 1"},
	{ID: "M002", Name: "Assembly Line Beta", Type: "Assembly", Location: "Floor A - Zone 2"},
	{ID: "M003", Name: "Quality Scanner Gamma", Type: "Quality Check", Location: "Floor B - Zone 1"},
	{ID: "M004", Name: "Packaging Unit Delta", Type: "Packaging", Location: "Floor B - Zone 2"},
	{ID: "M005", Name: "3D Printer Epsilon", Type: "3D Printer", Location: "Floor C - Zone 1"},
	{ID: "M006", Name: "CNC Lathe Zeta", Type: "CNC", Location: "Floor A - Zone 3"},
}

// Directory resolves machine IDs to display metadata. Lookups never fail:
// unknown IDs get fallback values so forward-compatibility with new machines
// costs nothing.
type Directory struct {
	byID map[string]MachineInfo
}

// NewDirectory builds a Directory from the built-in entries overlaid with
// overrides (typically ServerConfig.Machines).
func NewDirectory(overrides []MachineInfo) *Directory {
	d := &Directory{byID: make(map[string]MachineInfo, len(builtinDirectory)+len(overrides))}
	for _, m := range builtinDirectory {
		d.byID[m.ID] = m
	}
	for _, m := range overrides {
		base := d.byID[m.ID]
		if m.Name == "" {
			m.Name = base.Name
		}
		if m.Type == "" {
			m.Type = base.Type
		}
		if m.Location == "" {
			m.Location = base.Location
		}
		d.byID[m.ID] = m
	}
	return d
}

// Lookup returns the directory entry for id, synthesizing fallback metadata
// for IDs the directory does not know.
func (d *Directory) Lookup(id string) MachineInfo {
	if m, ok := d.byID[id]; ok {
		if m.Name == "" {
			m.Name = fmt.Sprintf("Machine %s", id)
		}
		if m.Type == "" {
			m.Type = "Unknown"
		}
		if m.Location == "" {
			m.Location = "Unknown Location"
		}
		return m
	}
	return MachineInfo{
		ID:       id,
		Name:     fmt.Sprintf("Machine %s", id),
		Type:     "Unknown",
		Location: "Unknown Location",
	}
}

// Size returns the number of explicit directory entries.
func (d *Directory) Size() int { return len(d.byID) }

// Known reports whether id has an explicit directory entry.
func (d *Directory) Known(id string) bool {
	_, ok := d.byID[id]
	return ok
}
