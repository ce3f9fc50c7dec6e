package network

import (
	"github.com/stretchr/testify/mock"
	"github.com/vishvananda/netlink"
)

// MockNetlinker records calls with testify/mock. Prefer MemoryNetlinker
// when a test cares about resulting kernel state rather than call order.
type MockNetlinker struct {
	mock.Mock
}

var _ Netlinker = (*MockNetlinker)(nil)

// returned extracts result i, tolerating a nil expectation for any type.
func returned[T any](args mock.Arguments, i int) T {
	v, _ := args.Get(i).(T)
	return v
}

func (m *MockNetlinker) LinkByName(name string) (netlink.Link, error) {
	args := m.Called(name)
	return returned[netlink.Link](args, 0), args.Error(1)
}

func (m *MockNetlinker) LinkList() ([]netlink.Link, error) {
	args := m.Called()
	return returned[[]netlink.Link](args, 0), args.Error(1)
}

func (m *MockNetlinker) LinkSetDown(link netlink.Link) error {
	return m.Called(link).Error(0)
}

func (m *MockNetlinker) LinkDel(link netlink.Link) error {
	return m.Called(link).Error(0)
}

func (m *MockNetlinker) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	args := m.Called(link, family)
	return returned[[]netlink.Addr](args, 0), args.Error(1)
}

func (m *MockNetlinker) AddrAdd(link netlink.Link, addr *netlink.Addr) error {
	return m.Called(link, addr).Error(0)
}

func (m *MockNetlinker) AddrDel(link netlink.Link, addr *netlink.Addr) error {
	return m.Called(link, addr).Error(0)
}

func (m *MockNetlinker) RouteListFiltered(family int, filter *netlink.Route, filterMask uint64) ([]netlink.Route, error) {
	args := m.Called(family, filter, filterMask)
	return returned[[]netlink.Route](args, 0), args.Error(1)
}

func (m *MockNetlinker) RouteDel(route *netlink.Route) error {
	return m.Called(route).Error(0)
}

func (m *MockNetlinker) RuleList(family int) ([]netlink.Rule, error) {
	args := m.Called(family)
	return returned[[]netlink.Rule](args, 0), args.Error(1)
}

func (m *MockNetlinker) RuleDel(rule *netlink.Rule) error {
	return m.Called(rule).Error(0)
}

// MockDriverLookup returns canned driver names.
type MockDriverLookup struct {
	mock.Mock
}

func (m *MockDriverLookup) DriverName(iface string) (string, error) {
	args := m.Called(iface)
	return args.String(0), args.Error(1)
}
