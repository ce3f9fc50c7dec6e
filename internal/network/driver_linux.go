//go:build linux

package network

import (
	"fmt"

	"github.com/safchain/ethtool"
)

// EthtoolDriverLookup resolves driver names through the ethtool ioctl.
type EthtoolDriverLookup struct {
	handle *ethtool.Ethtool
}

// NewDriverLookup opens an ethtool handle.
func NewDriverLookup() (*EthtoolDriverLookup, error) {
	h, err := ethtool.NewEthtool()
	if err != nil {
		return nil, fmt.Errorf("failed to open ethtool handle: %w", err)
	}
	return &EthtoolDriverLookup{handle: h}, nil
}

// DriverName returns the kernel driver of iface (e.g. "tun", "vrf").
func (e *EthtoolDriverLookup) DriverName(iface string) (string, error) {
	return e.handle.DriverName(iface)
}

// Close closes the ethtool handle.
func (e *EthtoolDriverLookup) Close() {
	e.handle.Close()
}
