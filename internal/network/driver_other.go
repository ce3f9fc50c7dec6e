//go:build !linux

package network

// EthtoolDriverLookup is unavailable off Linux.
type EthtoolDriverLookup struct{}

// NewDriverLookup always fails off Linux.
func NewDriverLookup() (*EthtoolDriverLookup, error) {
	return nil, ErrNotSupported
}

func (e *EthtoolDriverLookup) DriverName(iface string) (string, error) {
	return "", ErrNotSupported
}

func (e *EthtoolDriverLookup) Close() {}
