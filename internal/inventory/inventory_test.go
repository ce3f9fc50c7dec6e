package inventory

import (
	"errors"
	"testing"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/config"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
)

func TestMatcher(t *testing.T) {
	m := Matcher{Prefix: "val"}

	tests := []struct {
		name string
		want bool
	}{
		{"val1", true},
		{"val0001", true},
		{"val", false},
		{"valx1", false},
		{"val1a", false},
		{"vrf1", false},
		{"eth0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.name))
		})
	}

	msin, ok := m.MSIN("val0042")
	require.True(t, ok)
	assert.Equal(t, "0042", msin)
	assert.Equal(t, "vrf0042", Matcher{Prefix: "vrf"}.Name(msin))
}

// seed builds a kernel with two UEs: val1 fully wired, val2 bare.
func seed(t *testing.T) *network.MemoryNetlinker {
	t.Helper()
	m := network.NewMemoryNetlinker()
	m.AddLink(&netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: "eth0"}})
	m.AddLink(network.NewUELink("val1", true))
	m.AddLink(network.NewUELink("val2", false))
	m.AddLink(network.NewUELink("valve", true))
	m.AddLink(network.NewVRFLink("vrf1", 3))

	require.NoError(t, m.AddAddr("val1", "10.60.0.1/32"))
	require.NoError(t, m.AddAddr("val1", "fd00::1/128"))
	require.NoError(t, m.AddRule("10.60.0.1/32", 3, 100))
	require.NoError(t, m.AddRule("192.168.0.0/24", 4, 101))
	require.NoError(t, m.AddRoute(3, "0.0.0.0/0", "vrf1"))
	require.NoError(t, m.AddRoute(3, "10.60.0.0/16", "vrf1"))
	require.NoError(t, m.AddRoute(250, "0.0.0.0/0", ""))
	return m
}

func newReader(nl network.Netlinker) *Reader {
	return NewReader(nl, OptionsFromConfig(config.Default()))
}

func TestReader_Snapshot(t *testing.T) {
	r := newReader(seed(t))

	counts := r.Snapshot()
	assert.Equal(t, Counts{Interfaces: 2, VRFs: 1, Rules: 1, Tables: 1}, counts)
	assert.False(t, counts.Zero())
	assert.True(t, Counts{}.Zero())

	tables := r.Tables()
	require.Len(t, tables, 1)
	assert.Equal(t, Table{ID: 3, Routes: 2}, tables[0])
}

func TestReader_UEs(t *testing.T) {
	r := newReader(seed(t))

	ues := r.UEs()
	require.Len(t, ues, 2)

	val1 := ues[0]
	assert.Equal(t, "val1", val1.Name)
	assert.Equal(t, "1", val1.MSIN)
	assert.Equal(t, "UP", val1.State)
	assert.Equal(t, "10.60.0.1", val1.IP())
	assert.Equal(t, []string{"fd00::1"}, val1.IPv6)
	assert.True(t, val1.HasVRF)
	assert.Equal(t, uint32(3), val1.VRFTable)
	assert.True(t, val1.HasRule)
	assert.Equal(t, 3, val1.RuleTable)
	assert.Equal(t, 2, val1.Routes)

	val2 := ues[1]
	assert.Equal(t, "DOWN", val2.State)
	assert.Empty(t, val2.IP())
	assert.False(t, val2.HasVRF)
	assert.False(t, val2.HasRule)

	one, err := r.UE("val1")
	require.NoError(t, err)
	assert.Equal(t, val1, one)

	_, err = r.UE("val9")
	assert.True(t, network.IsNotFound(err))
}

func TestReader_QueryFailuresYieldEmpty(t *testing.T) {
	nl := new(network.MockNetlinker)
	boom := errors.New("netlink socket closed")
	nl.On("LinkList").Return([]netlink.Link(nil), boom)
	nl.On("RuleList", network.FamilyV4).Return([]netlink.Rule(nil), boom)
	nl.On("RouteListFiltered", network.FamilyV4, mock.Anything, mock.Anything).Return([]netlink.Route(nil), boom)

	r := newReader(nl)
	assert.True(t, r.Snapshot().Zero())
	assert.Empty(t, r.UEs())
	nl.AssertExpectations(t)
}
