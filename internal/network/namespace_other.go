//go:build !linux

package network

// InNamespace runs fn directly; named namespaces need Linux.
func InNamespace(name string, fn func() error) error {
	if name != "" {
		return ErrNotSupported
	}
	return fn()
}
