package capture

import (
	"net"
	"strconv"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Flow is the summary of one IP packet.
type Flow struct {
	Src      net.IP
	Dst      net.IP
	SrcPort  uint16
	DstPort  uint16
	Proto    int
	HasPorts bool
}

// Decode parses an L3 frame (IPv4 or IPv6, no link header).
func Decode(data []byte) (Flow, bool) {
	if len(data) == 0 {
		return Flow{}, false
	}
	var pkt gopacket.Packet
	switch data[0] & 0xF0 {
	case 0x40:
		pkt = gopacket.NewPacket(data, layers.LayerTypeIPv4, gopacket.Default)
	case 0x60:
		pkt = gopacket.NewPacket(data, layers.LayerTypeIPv6, gopacket.Default)
	default:
		return Flow{}, false
	}

	var f Flow
	switch ip := pkt.NetworkLayer().(type) {
	case *layers.IPv4:
		f.Src, f.Dst, f.Proto = ip.SrcIP, ip.DstIP, int(ip.Protocol)
	case *layers.IPv6:
		f.Src, f.Dst, f.Proto = ip.SrcIP, ip.DstIP, int(ip.NextHeader)
	default:
		return Flow{}, false
	}

	if tcp, ok := pkt.Layer(layers.LayerTypeTCP).(*layers.TCP); ok {
		f.SrcPort, f.DstPort, f.HasPorts = uint16(tcp.SrcPort), uint16(tcp.DstPort), true
	} else if udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP); ok {
		f.SrcPort, f.DstPort, f.HasPorts = uint16(udp.SrcPort), uint16(udp.DstPort), true
	}
	return f, true
}

var protocolNames = map[int]string{
	1:  "ICMP",
	6:  "TCP",
	17: "UDP",
	58: "ICMPv6",
}

// ProtocolName maps an IP protocol number to its display name. Unknown
// numbers are shown as-is; a negative number means no protocol was seen.
func ProtocolName(proto int) string {
	if proto < 0 {
		return "IP"
	}
	if name, ok := protocolNames[proto]; ok {
		return name
	}
	return strconv.Itoa(proto)
}

// Endpoints renders the source and destination, with ports when asked
// and present.
func (f Flow) Endpoints(withPorts bool) (string, string) {
	src, dst := f.Src.String(), f.Dst.String()
	if withPorts && f.HasPorts {
		src = src + ":" + strconv.Itoa(int(f.SrcPort))
		dst = dst + ":" + strconv.Itoa(int(f.DstPort))
	}
	return src, dst
}
