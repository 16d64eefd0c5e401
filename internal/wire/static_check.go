package wire

import (
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"github.com/bnema/nodetel/internal/domain"
)

// Check bounds-checks every subfield of the static block. The first failing
// field rejects the whole block.
func (s Static) Check() error {
	if err := checkInt("physical cores", s.PhysicalCores, MinCores, MaxCores); err != nil {
		return err
	}
	if err := checkInt("logical cores", s.LogicalCores, MinCores, MaxCores); err != nil {
		return err
	}
	if s.SpeedMHz != 0 {
		if err := checkInt("cpu speed", s.SpeedMHz, MinSpeedMHz, MaxSpeedMHz); err != nil {
			return err
		}
	}
	if err := checkInt("memory size", s.MemoryGB, MinMemoryGB, MaxMemoryGB); err != nil {
		return err
	}
	if err := checkInt("storage size", s.StorageGB, MinStorageGB, MaxStorageGB); err != nil {
		return err
	}
	if err := checkInt("storage devices", s.StorageDevices, MinStorageDevices, MaxStorageDevices); err != nil {
		return err
	}

	if !KnownPlatform(s.Platform) {
		return fmt.Errorf("%w: unknown platform %q", domain.ErrOutOfRange, s.Platform)
	}
	if !KnownArch(s.Arch) {
		return fmt.Errorf("%w: unknown architecture %q", domain.ErrOutOfRange, s.Arch)
	}

	labels := []struct {
		name  string
		value *string
		limit FieldLimit
	}{
		{name: "cpu model", value: s.CPUModel, limit: CPUModelLimit},
		{name: "memory type", value: s.MemoryType, limit: MemoryTypeLimit},
		{name: "gpu model", value: s.GPUModel, limit: GPUModelLimit},
		{name: "distro", value: s.Distro, limit: DistroLimit},
		{name: "network adapter", value: s.Adapter, limit: AdapterLimit},
		{name: "address", value: s.Address, limit: AddressLimit},
		{name: "hostname", value: s.Hostname, limit: HostnameLimit},
	}
	for _, label := range labels {
		if err := checkLabel(label.name, label.value, label.limit.Max); err != nil {
			return err
		}
	}

	if s.Address != nil && *s.Address != Unknown && net.ParseIP(*s.Address) == nil {
		return fmt.Errorf("%w: address %q is not an IP", domain.ErrOutOfRange, *s.Address)
	}

	return nil
}

func checkInt(name string, value, lo, hi int) error {
	if value < lo || value > hi {
		return fmt.Errorf("%w: %s %d outside [%d, %d]", domain.ErrOutOfRange, name, value, lo, hi)
	}
	return nil
}

func checkLabel(name string, value *string, max int) error {
	if value == nil {
		return nil
	}
	if strings.TrimSpace(*value) == "" {
		return fmt.Errorf("%w: %s is empty", domain.ErrOutOfRange, name)
	}
	if n := utf8.RuneCountInString(*value); n > max {
		return fmt.Errorf("%w: %s is %d characters, limit %d", domain.ErrOutOfRange, name, n, max)
	}
	return nil
}
