package vm

import (
	"github.com/jbweber/virtbuilder/internal/config"
	"github.com/jbweber/virtbuilder/internal/disk"
	"github.com/jbweber/virtbuilder/internal/executor"
	"github.com/jbweber/virtbuilder/internal/naming"
	"github.com/jbweber/virtbuilder/internal/virtinstall"
)

// Disk modes reported in a plan.
const (
	DiskModeBlank   = "blank"
	DiskModeConvert = "convert"
)

// Plan is the resolved view of a configuration: what a build would create
// and the commands it would run, in order.
type Plan struct {
	Name           string            `json:"name" yaml:"name"`
	UUID           string            `json:"uuid" yaml:"uuid"`
	Type           config.VMType     `json:"type" yaml:"type"`
	VCPUs          int               `json:"vcpus" yaml:"vcpus"`
	MemoryMiB      int               `json:"memoryMiB" yaml:"memoryMiB"`
	Firmware       config.Firmware   `json:"firmware" yaml:"firmware"`
	Graphics       config.Graphics   `json:"graphics" yaml:"graphics"`
	Network        PlannedNetwork    `json:"network" yaml:"network"`
	Ramdisk        string            `json:"ramdisk" yaml:"ramdisk"`
	Disks          []PlannedDisk     `json:"disks" yaml:"disks"`
	Media          virtinstall.Media `json:"media,omitempty" yaml:"media,omitempty"`
	DefinitionPath string            `json:"definitionPath" yaml:"definitionPath"`
	VirtInstall    []string          `json:"virtInstall" yaml:"virtInstall"`
	Commands       []string          `json:"commands" yaml:"commands"`
}

// PlannedDisk describes one disk in a plan.
type PlannedDisk struct {
	Key       string `json:"key" yaml:"key"`
	URI       string `json:"uri" yaml:"uri"`
	Format    string `json:"format" yaml:"format"`
	Size      string `json:"size,omitempty" yaml:"size,omitempty"`
	Bus       string `json:"bus" yaml:"bus"`
	Mode      string `json:"mode" yaml:"mode"`
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
	ReadOnly  bool   `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
	Removable bool   `json:"removable,omitempty" yaml:"removable,omitempty"`
}

// PlannedNetwork describes the guest NIC in a plan.
type PlannedNetwork struct {
	Type   config.NetworkType `json:"type" yaml:"type"`
	MAC    string             `json:"mac" yaml:"mac"`
	Parent string             `json:"parent,omitempty" yaml:"parent,omitempty"`
	Model  string             `json:"model" yaml:"model"`
}

// BuildPlan resolves cfg without touching the host. Ramdisk probes and
// ipvtap link commands depend on host state and are not listed.
func BuildPlan(cfg *config.VMConfig, connectURI string, viewer bool) (*Plan, error) {
	disks := cfg.OrderedDisks()
	media := MediaPaths(cfg)

	virtInstall, err := virtinstall.Args(connectURI, cfg.VM, disks, cfg.Network, media)
	if err != nil {
		return nil, err
	}

	p := &Plan{
		Name:      cfg.VM.Name,
		UUID:      naming.DomainUUID(cfg.VM.Name),
		Type:      cfg.VM.Type,
		VCPUs:     cfg.VM.VCPUs,
		MemoryMiB: cfg.VM.Memory,
		Firmware:  cfg.VM.Firmware,
		Graphics:  cfg.VM.Graphics,
		Network: PlannedNetwork{
			Type:   cfg.Network.Type,
			MAC:    cfg.Network.MAC,
			Parent: cfg.Network.ParentInterface,
			Model:  cfg.Network.Model,
		},
		Ramdisk:        cfg.Ramdisk.Path,
		Media:          media,
		DefinitionPath: naming.DefinitionPath(cfg.Path),
		VirtInstall:    virtInstall,
	}

	var commands [][]string
	commands = append(commands, destroyArgs(connectURI, p.Name), undefineArgs(connectURI, p.Name))
	for _, d := range disks {
		commands = append(commands, removeArgs(d.URI))
	}
	for _, path := range mediaFiles(media) {
		commands = append(commands, removeArgs(path))
	}

	for _, key := range cfg.DiskKeys() {
		d := cfg.Disks[key]
		pd := PlannedDisk{
			Key:       key,
			URI:       d.URI,
			Format:    d.Format,
			Bus:       string(d.Bus),
			Mode:      DiskModeBlank,
			ReadOnly:  d.ReadOnly,
			Removable: d.Removable,
		}
		if d.Size > 0 {
			pd.Size = d.Size.String()
		}

		if d.Converted() {
			pd.Mode = DiskModeConvert
			pd.Source = d.ImageFile
			commands = append(commands, disk.ConvertArgs(d))
			if d.Size > 0 {
				commands = append(commands, disk.ResizeArgs(d))
			}
		} else {
			commands = append(commands, disk.CreateArgs(d))
		}
		p.Disks = append(p.Disks, pd)
	}

	commands = append(commands,
		virtInstall,
		defineArgs(connectURI, p.DefinitionPath),
		startArgs(connectURI, p.Name),
	)
	if viewer || cfg.VM.Viewer {
		commands = append(commands, viewerArgs(connectURI, p.Name))
	}

	p.Commands = make([]string, len(commands))
	for i, argv := range commands {
		p.Commands[i] = executor.CommandLine(argv)
	}

	return p, nil
}
