package capture

import (
	"fmt"
	"strings"
)

// Mode selects the line format.
type Mode int

const (
	// Simple shows source and destination addresses.
	Simple Mode = iota
	// FiveTuple adds transport ports.
	FiveTuple
)

func (m Mode) String() string {
	if m == FiveTuple {
		return "5-tuple (IP:Port -> IP:Port, Protocol)"
	}
	return "Simple (IP -> IP)"
}

// Width is the banner width for the mode.
func (m Mode) Width() int {
	if m == FiveTuple {
		return 100
	}
	return 80
}

func (m Mode) column() int {
	if m == FiveTuple {
		return 22
	}
	return 15
}

// FormatLine renders packet number n.
func FormatLine(m Mode, n int, f Flow) string {
	src, dst := f.Endpoints(m == FiveTuple)
	col := m.column()
	return fmt.Sprintf("%6d  %-*s ---> %-*s  [%s]", n, col, src, col, dst, ProtocolName(f.Proto))
}

// Banner returns the header printed before capture starts.
func Banner(m Mode, srcIP, iface string) string {
	var b strings.Builder
	rule := strings.Repeat("=", m.Width())
	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintf(&b, "Monitoring packets from: %s\n", srcIP)
	fmt.Fprintf(&b, "Display mode: %s\n", m)
	fmt.Fprintf(&b, "Interface: %s\n", iface)
	fmt.Fprintf(&b, "Press Ctrl-C to stop\n")
	fmt.Fprintf(&b, "%s\n", rule)
	col := m.column()
	srcTitle, dstTitle := "Source IP", "Destination IP"
	if m == FiveTuple {
		srcTitle, dstTitle = "Source", "Destination"
	}
	fmt.Fprintf(&b, "%6s  %-*s      %-*s  %s\n", "#", col, srcTitle, col, dstTitle, "Protocol")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", m.Width()))
	return b.String()
}
