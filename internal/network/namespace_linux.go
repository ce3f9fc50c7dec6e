//go:build linux

package network

import (
	"fmt"
	"runtime"

	"github.com/vishvananda/netns"
)

// InNamespace runs fn with the calling OS thread switched into the named
// network namespace. Sockets opened inside fn stay in that namespace after
// the thread switches back. An empty name runs fn directly.
func InNamespace(name string, fn func() error) error {
	if name == "" {
		return fn()
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origns, err := netns.Get()
	if err != nil {
		return fmt.Errorf("failed to get original netns: %w", err)
	}
	defer origns.Close()

	target, err := netns.GetFromName(name)
	if err != nil {
		return fmt.Errorf("failed to open netns %s: %w", name, err)
	}
	defer target.Close()

	if err := netns.Set(target); err != nil {
		return fmt.Errorf("failed to enter netns %s: %w", name, err)
	}
	defer netns.Set(origns)

	return fn()
}
