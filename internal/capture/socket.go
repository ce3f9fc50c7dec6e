package capture

import (
	"fmt"
	"net"
	"time"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/network"
	"github.com/mdlayher/packet"
)

// Source is a packet socket. *packet.Conn implements it.
type Source interface {
	ReadFrom(b []byte) (int, net.Addr, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// AnyInterface captures on every interface of the namespace.
const AnyInterface = "any"

// captureInterface resolves iface. AnyInterface maps to ifindex 0, which
// the kernel binds to all interfaces.
func captureInterface(iface string) (*net.Interface, error) {
	if iface == AnyInterface {
		return &net.Interface{Index: 0, Name: AnyInterface}, nil
	}
	return net.InterfaceByName(iface)
}

// Open binds an AF_PACKET datagram socket receiving every protocol on
// iface, inside namespace when one is named. Datagram sockets strip the
// link header so reads start at the IP header.
func Open(iface, namespace string) (*packet.Conn, error) {
	var conn *packet.Conn
	err := network.InNamespace(namespace, func() error {
		ifi, err := captureInterface(iface)
		if err != nil {
			return err
		}
		conn, err = packet.Listen(ifi, packet.Datagram, ethPAll, nil)
		if err != nil {
			return fmt.Errorf("failed to open socket on %s: %w", iface, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Drops reports packets the kernel dropped since the last call, when
// the source can tell.
func Drops(src Source) (uint32, bool) {
	conn, ok := src.(*packet.Conn)
	if !ok {
		return 0, false
	}
	st, err := conn.Stats()
	if err != nil {
		return 0, false
	}
	return st.Drops, true
}
