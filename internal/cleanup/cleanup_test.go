package cleanup

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/addrpool"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/config"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/inventory"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
)

// simulate builds a kernel holding n fully wired UEs.
func simulate(t *testing.T, n int) *network.MemoryNetlinker {
	t.Helper()
	m := network.NewMemoryNetlinker()
	m.AddLink(&netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: "eth0"}})
	for i := 1; i <= n; i++ {
		table := i + 2
		m.AddLink(network.NewUELink(fmt.Sprintf("val%d", i), true))
		m.AddLink(network.NewVRFLink(fmt.Sprintf("vrf%d", i), uint32(table)))
		require.NoError(t, m.AddAddr(fmt.Sprintf("val%d", i), fmt.Sprintf("10.60.0.%d/32", i)))
		require.NoError(t, m.AddRule(fmt.Sprintf("10.60.0.%d/32", i), table, 100+i))
		require.NoError(t, m.AddRoute(table, "0.0.0.0/0", fmt.Sprintf("val%d", i)))
		require.NoError(t, m.AddRoute(table, "10.0.0.0/8", ""))
	}
	return m
}

func newReader(nl network.Netlinker) *inventory.Reader {
	return inventory.NewReader(nl, inventory.OptionsFromConfig(config.Default()))
}

func TestSequencer_ZeroResidue(t *testing.T) {
	nl := simulate(t, 4)
	reader := newReader(nl)

	report := NewSequencer(nl, reader, 0).Run(context.Background())

	assert.Equal(t, inventory.Counts{Interfaces: 4, VRFs: 4, Rules: 4, Tables: 4}, report.Before)
	assert.True(t, report.Clean())
	assert.True(t, reader.Snapshot().Zero())
	assert.Empty(t, report.Failures())
	assert.False(t, report.Capped)
	assert.Equal(t, 4, report.RuleIterations)

	assert.Len(t, report.Step(StepRules).Removed, 4)
	assert.Len(t, report.Step(StepTables).Removed, 4)
	assert.Len(t, report.Step(StepVRFs).Removed, 4)
	assert.Len(t, report.Step(StepInterfaces).Removed, 4)
	assert.Nil(t, report.Step(StepAddresses))

	_, err := nl.LinkByName("eth0")
	assert.NoError(t, err, "unrelated links survive")
}

func TestSequencer_RuleCap(t *testing.T) {
	nl := simulate(t, 1)
	nl.StickyRules = true

	report := NewSequencer(nl, newReader(nl), DefaultRuleCap).Run(context.Background())

	assert.Equal(t, DefaultRuleCap, report.RuleIterations)
	assert.Equal(t, DefaultRuleCap, nl.Calls("RuleDel"))
	assert.True(t, report.Capped)
	assert.False(t, report.Clean())
	assert.Equal(t, 1, report.Remaining.Rules)
	assert.Equal(t, 0, report.Remaining.Interfaces, "later steps still run")
}

func TestSequencer_FailedRuleIsSkipped(t *testing.T) {
	nl := simulate(t, 3)
	nl.Fail("RuleDel", "4", errors.New("operation not permitted"))

	report := NewSequencer(nl, newReader(nl), 0).Run(context.Background())

	assert.Equal(t, 3, report.RuleIterations)
	assert.False(t, report.Capped)
	require.Len(t, report.Step(StepRules).Failed, 1)
	assert.Equal(t, 1, report.Remaining.Rules)
	assert.False(t, report.Clean())
}

func TestSequencer_StepsAreIndependent(t *testing.T) {
	nl := simulate(t, 2)
	boom := errors.New("device or resource busy")
	nl.Fail("LinkDel", "vrf1", boom)
	nl.Fail("RouteDel", "3", boom)

	report := NewSequencer(nl, newReader(nl), 0).Run(context.Background())

	failures := report.Failures()
	require.Len(t, failures, 2)
	assert.Equal(t, "table 3", failures[0].Name)
	assert.Equal(t, "vrf1", failures[1].Name)
	assert.ErrorIs(t, failures[1].Err, boom)

	assert.Equal(t, inventory.Counts{VRFs: 1, Tables: 1}, report.Remaining)
	assert.Len(t, report.Step(StepInterfaces).Removed, 2)
}

func TestSequencer_ReleasesPool(t *testing.T) {
	nl := simulate(t, 1)
	pool, err := addrpool.New(nl, config.Default().Pool)
	require.NoError(t, err)
	_, err = pool.Add(3)
	require.NoError(t, err)

	seq := NewSequencer(nl, newReader(nl), 0)
	seq.Pool = pool
	report := seq.Run(context.Background())

	assert.True(t, report.Clean())
	assert.Len(t, report.Step(StepAddresses).Removed, 3)
	left, err := pool.List()
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestSequencer_Cancelled(t *testing.T) {
	nl := simulate(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := NewSequencer(nl, newReader(nl), 0).Run(ctx)

	assert.True(t, report.Interrupted)
	assert.Equal(t, 0, nl.Calls("LinkDel"))
	assert.Equal(t, report.Before, report.Remaining)
}

func TestSequencer_MockOrder(t *testing.T) {
	nl := new(network.MockNetlinker)
	ue := network.NewUELink("val1", true)
	vrf := network.NewVRFLink("vrf1", 3)

	var order []string
	record := func(op string) func(mock.Arguments) {
		return func(mock.Arguments) { order = append(order, op) }
	}

	nl.On("LinkList").Return([]netlink.Link{ue, vrf}, nil)
	nl.On("RuleList", network.FamilyV4).Return([]netlink.Rule(nil), nil)
	nl.On("RouteListFiltered", network.FamilyV4, &netlink.Route{Table: 0}, netlink.RT_FILTER_TABLE).
		Return([]netlink.Route(nil), nil)
	nl.On("LinkSetDown", vrf).Return(nil).Run(record("down vrf1"))
	nl.On("LinkDel", vrf).Return(nil).Run(record("del vrf1"))
	nl.On("LinkSetDown", ue).Return(nil).Run(record("down val1"))
	nl.On("LinkDel", ue).Return(nil).Run(record("del val1"))

	NewSequencer(nl, newReader(nl), 0).Run(context.Background())

	assert.Equal(t, []string{"down vrf1", "del vrf1", "down val1", "del val1"}, order)
}

func TestFixer_RemovesOnlyOrphans(t *testing.T) {
	nl := simulate(t, 2)

	// val2's routes vanished with a crash; its rule now points at nothing.
	require.NoError(t, nl.AddRule("10.60.0.9/32", 9, 200))
	// vrf3 lost its UE.
	nl.AddLink(network.NewVRFLink("vrf3", 5))
	// val4 is down and bare.
	nl.AddLink(network.NewUELink("val4", false))

	reader := newReader(nl)
	report := NewFixer(nl, reader).Run(context.Background())

	assert.Empty(t, report.Failures())
	assert.Equal(t, []string{"from 10.60.0.9/32 table 9 pref 200"}, report.Step(StepRules).Removed)
	assert.Equal(t, []string{"vrf3"}, report.Step(StepVRFs).Removed)
	assert.Equal(t, []string{"val4"}, report.Step(StepInterfaces).Removed)

	assert.Equal(t, inventory.Counts{Interfaces: 2, VRFs: 2, Rules: 2, Tables: 2}, report.Remaining)
}
