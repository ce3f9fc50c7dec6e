//go:build linux

package capture

import "golang.org/x/sys/unix"

const ethPAll = unix.ETH_P_ALL
