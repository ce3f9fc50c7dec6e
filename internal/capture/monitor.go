// Package capture shows the packets a UE sends, one line per packet.
//
// A Monitor reads L3 frames from a packet socket bound to the UE's
// interface, keeps those whose source address is the UE's and prints a
// source ---> destination summary for each.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/inventory"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/logging"
)

const readTimeout = time.Second

// Monitor prints packets from one source address.
type Monitor struct {
	Source Source
	SrcIP  net.IP
	Iface  string
	Mode   Mode
	Limit  int

	out io.Writer
	log *logging.Logger
}

// NewMonitor creates a Monitor writing to out.
func NewMonitor(src Source, srcIP net.IP, iface string, mode Mode, limit int, out io.Writer) *Monitor {
	return &Monitor{
		Source: src,
		SrcIP:  srcIP,
		Iface:  iface,
		Mode:   mode,
		Limit:  limit,
		out:    out,
		log: logging.WithComponent("capture").WithFields(map[string]any{
			"iface": iface,
			"src":   srcIP.String(),
		}),
	}
}

// Run captures until ctx is done or Limit packets were shown (0 means no
// limit). It returns the number of packets shown.
func (m *Monitor) Run(ctx context.Context) (int, error) {
	fmt.Fprint(m.out, Banner(m.Mode, m.SrcIP.String(), m.Iface))

	buf := make([]byte, 65536)
	count := 0
	for m.Limit == 0 || count < m.Limit {
		if ctx.Err() != nil {
			m.footer(fmt.Sprintf("Stopped by user. Total packets captured: %d", count), count)
			return count, nil
		}

		if err := m.Source.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return count, fmt.Errorf("failed to set read deadline on %s: %w", m.Iface, err)
		}
		n, _, err := m.Source.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			return count, fmt.Errorf("capture read failed: %w", err)
		}

		flow, ok := Decode(buf[:n])
		if !ok {
			m.log.Debug("skipping non-IP frame", "len", n)
			continue
		}
		if !flow.Src.Equal(m.SrcIP) {
			continue
		}
		count++
		m.log.Debug("packet decoded",
			"src", flow.Src.String(),
			"dst", flow.Dst.String(),
			"proto", flow.Proto,
			"len", n)
		fmt.Fprintln(m.out, FormatLine(m.Mode, count, flow))
	}

	if drops, ok := Drops(m.Source); ok && drops > 0 {
		m.log.Warn("kernel dropped packets", "drops", drops)
	}
	if count == 0 {
		m.footer("", 0)
	}
	return count, nil
}

func (m *Monitor) footer(msg string, count int) {
	rule := strings.Repeat("=", m.Mode.Width())
	fmt.Fprintf(m.out, "\n%s\n", rule)
	if count == 0 {
		fmt.Fprintln(m.out, "⚠ No packets were captured")
	}
	if msg != "" {
		fmt.Fprintln(m.out, msg)
	}
	fmt.Fprintln(m.out, rule)
}

// InterfaceFor returns the UE interface holding ip.
func InterfaceFor(ues []inventory.UE, ip string) (string, bool) {
	for _, ue := range ues {
		for _, a := range ue.IPv4 {
			if a == ip {
				return ue.Name, true
			}
		}
		for _, a := range ue.IPv6 {
			if a == ip {
				return ue.Name, true
			}
		}
	}
	return "", false
}
