package stats

import (
	"io"

	"github.com/dustin/go-humanize"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/tui"

	"golang.org/x/text/message"
)

const tableWidth = 128

// Render prints a sample as a table.
func Render(w io.Writer, p *message.Printer, s Sample) {
	p.Fprintf(w, "\n%s\n", tui.Rule("=", tableWidth))
	p.Fprintf(w, "Time: %s   Sample: %d\n", s.Time.Format("2006-01-02 15:04:05"), s.Seq)
	p.Fprintf(w, "%s\n", tui.Rule("-", tableWidth))
	p.Fprintf(w, "%s\n", tui.StyleTableHeader.Render(p.Sprintf("%-20s%10s%10s%12s%12s%12s%10s%10s%12s%12s%12s",
		"Interface", "RX pkts", "r/s", "RX Δ", "rb/s", "RX B", "TX pkts", "t/s", "TX Δ", "tb/s", "TX B")))
	p.Fprintf(w, "%s\n", tui.Rule("-", tableWidth))
	for _, r := range s.Rows {
		if !r.OK {
			p.Fprintf(w, "%-20s%10s%10s%12s%12s%12s%10s%10s%12s%12s%12s\n",
				r.Interface, "N/A", "N/A", "N/A", "N/A", "N/A", "N/A", "N/A", "N/A", "N/A", "N/A")
			continue
		}
		p.Fprintf(w, "%-20s%10d%10s%12s%12s%12s%10d%10s%12s%12s%12s\n",
			r.Interface,
			r.Current.RxPackets, Rate(p, r.RxPPS), humanize.IBytes(r.Delta.RxBytes), ByteRate(r.RxBPS), humanize.IBytes(r.Current.RxBytes),
			r.Current.TxPackets, Rate(p, r.TxPPS), humanize.IBytes(r.Delta.TxBytes), ByteRate(r.TxBPS), humanize.IBytes(r.Current.TxBytes))
	}
	p.Fprintf(w, "%s\n", tui.Rule("=", tableWidth))
}

// Rate formats a per-second rate with one decimal and digit grouping.
func Rate(p *message.Printer, perSec float64) string {
	return p.Sprintf("%.1f/s", perSec)
}

// ByteRate formats a byte rate with binary units.
func ByteRate(perSec float64) string {
	return humanize.IBytes(uint64(perSec)) + "/s"
}
