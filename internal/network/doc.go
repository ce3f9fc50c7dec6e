// Package network is the kernel access layer for uectl.
//
// # Overview
//
// Everything uectl does to the kernel goes through the [Netlinker]
// capability set: list, add, remove and flush of links, addresses, routes
// and policy rules. No shell commands are executed and no `ip` output is
// parsed.
//
// # Implementations
//
//   - [RealNetlinker]: netlink handle, optionally bound to a named netns
//   - [MockNetlinker]: testify mock for call-level assertions
//   - [MemoryNetlinker]: in-memory kernel model for scenario tests
//
// # Dependencies
//
// Uses github.com/vishvananda/netlink for all netlink operations and
// github.com/vishvananda/netns for namespace handles.
//
// # Example
//
//	nl, err := network.NewNetlinker("")
//	if err != nil {
//	    return err
//	}
//	defer nl.Close()
//
//	links, err := nl.LinkList()
package network
