//go:build !linux

package capture

// ETH_P_ALL; packet sockets fail to open off Linux anyway.
const ethPAll = 0x0003
