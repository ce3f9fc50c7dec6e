package capture

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func udp4(t *testing.T, src, dst string, sport, dport uint16) []byte {
	t.Helper()
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.ParseIP(src).To4(),
		DstIP:    net.ParseIP(dst).To4(),
	}
	udp := &layers.UDP{SrcPort: layers.UDPPort(sport), DstPort: layers.UDPPort(dport)}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return serialize(t, ip, udp, gopacket.Payload([]byte("hello")))
}

func icmp4(t *testing.T, src, dst string) []byte {
	t.Helper()
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    net.ParseIP(src).To4(),
		DstIP:    net.ParseIP(dst).To4(),
	}
	icmp := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)}
	return serialize(t, ip, icmp)
}

func tcp6(t *testing.T, src, dst string, sport, dport uint16) []byte {
	t.Helper()
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolTCP,
		SrcIP:      net.ParseIP(src),
		DstIP:      net.ParseIP(dst),
	}
	tcp := &layers.TCP{SrcPort: layers.TCPPort(sport), DstPort: layers.TCPPort(dport), SYN: true, Window: 1024}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	return serialize(t, ip, tcp)
}

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

// fakeSource replays frames, then times out. onDrain runs once when the
// frames are exhausted.
type fakeSource struct {
	frames      [][]byte
	onDrain     func()
	deadlineErr error
}

func (f *fakeSource) ReadFrom(b []byte) (int, net.Addr, error) {
	if len(f.frames) == 0 {
		if f.onDrain != nil {
			f.onDrain()
			f.onDrain = nil
		}
		return 0, nil, &net.OpError{Op: "read", Net: "packet", Err: os.ErrDeadlineExceeded}
	}
	n := copy(b, f.frames[0])
	f.frames = f.frames[1:]
	return n, nil, nil
}

func (f *fakeSource) SetReadDeadline(time.Time) error { return f.deadlineErr }
func (f *fakeSource) Close() error                    { return nil }

func TestDecode(t *testing.T) {
	f, ok := Decode(udp4(t, "10.60.0.1", "8.8.8.8", 40000, 53))
	require.True(t, ok)
	assert.Equal(t, "10.60.0.1", f.Src.String())
	assert.Equal(t, "8.8.8.8", f.Dst.String())
	assert.Equal(t, 17, f.Proto)
	assert.True(t, f.HasPorts)
	assert.Equal(t, uint16(53), f.DstPort)

	f, ok = Decode(tcp6(t, "fd00::1", "2001:db8::2", 1234, 443))
	require.True(t, ok)
	assert.Equal(t, 6, f.Proto)
	assert.Equal(t, uint16(1234), f.SrcPort)

	_, ok = Decode([]byte{0xCE, 0x36, 0x2E})
	assert.False(t, ok)
	_, ok = Decode(nil)
	assert.False(t, ok)
}

func TestProtocolName(t *testing.T) {
	assert.Equal(t, "ICMP", ProtocolName(1))
	assert.Equal(t, "TCP", ProtocolName(6))
	assert.Equal(t, "UDP", ProtocolName(17))
	assert.Equal(t, "ICMPv6", ProtocolName(58))
	assert.Equal(t, "132", ProtocolName(132))
	assert.Equal(t, "IP", ProtocolName(-1))
}

func TestFormatLine(t *testing.T) {
	f, _ := Decode(udp4(t, "10.60.0.1", "8.8.8.8", 40000, 53))

	assert.Equal(t,
		"     1  10.60.0.1       ---> 8.8.8.8          [UDP]",
		FormatLine(Simple, 1, f))
	assert.Equal(t,
		"    12  10.60.0.1:40000        ---> 8.8.8.8:53              [UDP]",
		FormatLine(FiveTuple, 12, f))

	icmp, _ := Decode(icmp4(t, "10.60.0.1", "1.1.1.1"))
	assert.Equal(t,
		"     2  10.60.0.1              ---> 1.1.1.1                 [ICMP]",
		FormatLine(FiveTuple, 2, icmp))
}

func TestMonitor_FiltersBySourceAndStopsAtLimit(t *testing.T) {
	src := &fakeSource{frames: [][]byte{
		udp4(t, "10.60.0.2", "8.8.8.8", 1, 53),
		udp4(t, "10.60.0.1", "8.8.8.8", 40000, 53),
		{0x00, 0x01},
		icmp4(t, "10.60.0.1", "1.1.1.1"),
		icmp4(t, "10.60.0.1", "1.1.1.2"),
	}}
	var out bytes.Buffer
	m := NewMonitor(src, net.ParseIP("10.60.0.1"), "val1", Simple, 2, &out)

	n, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	text := out.String()
	assert.Contains(t, text, "Monitoring packets from: 10.60.0.1")
	assert.Contains(t, text, "Interface: val1")
	assert.Contains(t, text, "---> 8.8.8.8          [UDP]")
	assert.Contains(t, text, "---> 1.1.1.1          [ICMP]")
	assert.NotContains(t, text, "1.1.1.2")
	assert.NotContains(t, text, "No packets were captured")
	assert.Len(t, src.frames, 1)
}

func TestMonitor_InterruptPrintsTotal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{
		frames:  [][]byte{udp4(t, "10.60.0.1", "8.8.8.8", 40000, 53)},
		onDrain: cancel,
	}
	var out bytes.Buffer
	m := NewMonitor(src, net.ParseIP("10.60.0.1"), "val1", FiveTuple, 0, &out)

	n, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, out.String(), "Stopped by user. Total packets captured: 1")
}

func TestMonitor_NoPackets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{onDrain: cancel}
	var out bytes.Buffer

	n, err := NewMonitor(src, net.ParseIP("10.60.0.1"), "val1", Simple, 0, &out).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, out.String(), "⚠ No packets were captured")
	assert.Contains(t, out.String(), "Total packets captured: 0")
}

func TestMonitor_DeadlineError(t *testing.T) {
	src := &fakeSource{
		frames:      [][]byte{udp4(t, "10.60.0.1", "8.8.8.8", 1000, 53)},
		deadlineErr: errors.New("bad file descriptor"),
	}
	var out bytes.Buffer

	n, err := NewMonitor(src, net.ParseIP("10.60.0.1"), "val1", Simple, 0, &out).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad file descriptor")
	assert.Zero(t, n)
	assert.Len(t, src.frames, 1)
}

func TestOpen_AnyInterfaceName(t *testing.T) {
	ifi, err := captureInterface(AnyInterface)
	require.NoError(t, err)
	assert.Zero(t, ifi.Index)
	assert.Equal(t, AnyInterface, ifi.Name)

	_, err = captureInterface("val-does-not-exist")
	assert.Error(t, err)
}

func TestInterfaceFor(t *testing.T) {
	ues := []inventory.UE{
		{Name: "val1", IPv4: []string{"10.60.0.1"}},
		{Name: "val2", IPv4: []string{"10.60.0.2"}, IPv6: []string{"fd00::2"}},
	}
	name, ok := InterfaceFor(ues, "10.60.0.2")
	assert.True(t, ok)
	assert.Equal(t, "val2", name)

	name, ok = InterfaceFor(ues, "fd00::2")
	assert.True(t, ok)
	assert.Equal(t, "val2", name)

	_, ok = InterfaceFor(ues, "10.61.0.1")
	assert.False(t, ok)
}
