package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/capture"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/clock"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/config"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/network"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/probe"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/prompt"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
)

// simulate builds a kernel with n wired UEs and the pool interface.
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
	}
	return m
}

type fakePinger struct {
	calls []probe.Request
}

func (f *fakePinger) Ping(_ context.Context, req probe.Request) probe.Result {
	f.calls = append(f.calls, req)
	st := probe.Stats{Sent: req.Count, Loss: 100}
	return probe.Result{Request: req, Stats: st, Class: probe.Classify(st, nil)}
}

func newEnv(nl network.Netlinker, input string) (*Env, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Env{
		Config: config.Default(),
		NL:     nl,
		Out:    out,
		Prompt: &prompt.Prompter{In: strings.NewReader(input), Out: out},
		Pinger: &fakePinger{},
	}, out
}

func asRoot(t *testing.T, root bool) {
	t.Helper()
	orig := Geteuid
	Geteuid = func() int {
		if root {
			return 0
		}
		return 1000
	}
	t.Cleanup(func() { Geteuid = orig })
}

func TestRunStatus(t *testing.T) {
	env, out := newEnv(simulate(t, 3), "")
	textfile := filepath.Join(t.TempDir(), "uectl.prom")

	require.NoError(t, RunStatus(context.Background(), env, []string{"--textfile", textfile}))
	assert.Contains(t, out.String(), "UE interfaces:   3")
	assert.Contains(t, out.String(), "Routing tables:  3")

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `uectl_resources{kind="interfaces"} 3`)
}

func TestRunVerify(t *testing.T) {
	t.Run("unknown flag", func(t *testing.T) {
		env, _ := newEnv(simulate(t, 1), "")
		err := RunVerify(context.Background(), env, []string{"--bogus"})
		assert.ErrorIs(t, err, ErrUsage)
	})

	t.Run("help", func(t *testing.T) {
		env, out := newEnv(simulate(t, 1), "")
		assert.NoError(t, RunVerify(context.Background(), env, []string{"-h"}))
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("zero UEs", func(t *testing.T) {
		env, out := newEnv(network.NewMemoryNetlinker(), "")
		require.NoError(t, RunVerify(context.Background(), env, nil))
		assert.Contains(t, out.String(), "No UE interfaces found.")
	})

	t.Run("ping through VRF", func(t *testing.T) {
		env, out := newEnv(simulate(t, 2), "")
		pinger := env.Pinger.(*fakePinger)

		require.NoError(t, RunVerify(context.Background(), env, []string{"-p", "-t", "192.0.2.1", "-c", "2"}))
		require.Len(t, pinger.calls, 2)
		assert.Equal(t, "vrf1", pinger.calls[0].Interface)
		assert.Equal(t, "192.0.2.1", pinger.calls[0].Target)
		assert.Equal(t, 2, pinger.calls[0].Count)
		assert.Contains(t, out.String(), "FAIL")
	})

	t.Run("zero count", func(t *testing.T) {
		env, _ := newEnv(simulate(t, 1), "")
		err := RunVerify(context.Background(), env, []string{"--count", "0"})
		assert.ErrorIs(t, err, ErrUsage)
	})
}

func TestRunCleanup(t *testing.T) {
	t.Run("requires root", func(t *testing.T) {
		asRoot(t, false)
		nl := simulate(t, 1)
		env, _ := newEnv(nl, "yes\n")
		assert.ErrorIs(t, RunCleanup(context.Background(), env, nil), ErrNotRoot)
		assert.Zero(t, nl.Calls("LinkDel"))
	})

	t.Run("declined", func(t *testing.T) {
		asRoot(t, true)
		nl := simulate(t, 2)
		env, out := newEnv(nl, "no\n")
		require.NoError(t, RunCleanup(context.Background(), env, nil))
		assert.Contains(t, out.String(), "nothing was changed")
		assert.Zero(t, nl.Calls("RuleDel"))
		assert.Zero(t, nl.Calls("LinkDel"))
	})

	t.Run("confirmed", func(t *testing.T) {
		asRoot(t, true)
		nl := simulate(t, 3)
		env, out := newEnv(nl, "yes\n")
		require.NoError(t, RunCleanup(context.Background(), env, nil))
		assert.Contains(t, out.String(), "resources removed")
		assert.True(t, env.Reader().Snapshot().Zero())
	})

	t.Run("nothing to do", func(t *testing.T) {
		asRoot(t, true)
		env, out := newEnv(network.NewMemoryNetlinker(), "")
		require.NoError(t, RunCleanup(context.Background(), env, nil))
		assert.Contains(t, out.String(), "Nothing to clean up.")
	})

	t.Run("residue", func(t *testing.T) {
		asRoot(t, true)
		nl := simulate(t, 2)
		nl.Fail("LinkDel", "val2", errors.New("device busy"))
		env, out := newEnv(nl, "yes\n")

		err := RunCleanup(context.Background(), env, nil)
		assert.ErrorIs(t, err, ErrResidue)
		assert.Contains(t, out.String(), "interface val2")
		assert.Contains(t, out.String(), "device busy")
	})
}

func TestRunReset_ReleasesPool(t *testing.T) {
	asRoot(t, true)
	nl := simulate(t, 1)
	require.NoError(t, nl.AddAddr("eth0", "10.0.1.50/24"))
	require.NoError(t, nl.AddAddr("eth0", "10.0.1.51/24"))
	env, out := newEnv(nl, "yes\n")

	require.NoError(t, RunReset(context.Background(), env, nil))
	assert.Contains(t, out.String(), "Pool addresses:  2 (eth0)")

	eth0, err := nl.LinkByName("eth0")
	require.NoError(t, err)
	addrs, err := nl.AddrList(eth0, network.FamilyV4)
	require.NoError(t, err)
	assert.Empty(t, addrs)
}

func TestRunReset_NoPoolInterface(t *testing.T) {
	asRoot(t, true)
	nl := network.NewMemoryNetlinker()
	for i := 1; i <= 2; i++ {
		table := i + 2
		nl.AddLink(network.NewUELink(fmt.Sprintf("val%d", i), true))
		nl.AddLink(network.NewVRFLink(fmt.Sprintf("vrf%d", i), uint32(table)))
		require.NoError(t, nl.AddAddr(fmt.Sprintf("val%d", i), fmt.Sprintf("10.60.0.%d/32", i)))
		require.NoError(t, nl.AddRule(fmt.Sprintf("10.60.0.%d/32", i), table, 100+i))
	}
	env, out := newEnv(nl, "yes\n")

	require.NoError(t, RunReset(context.Background(), env, nil))
	assert.Contains(t, out.String(), "resources removed")
	assert.NotContains(t, out.String(), "FAIL")
	assert.True(t, env.Reader().Snapshot().Zero())
}

func TestRunFix(t *testing.T) {
	asRoot(t, true)
	nl := simulate(t, 2)
	// vrf9 has no val9 peer.
	nl.AddLink(network.NewVRFLink("vrf9", 50))
	env, out := newEnv(nl, "")

	require.NoError(t, RunFix(context.Background(), env, nil))
	assert.Contains(t, out.String(), "vrfs: 1 removed")
	assert.Equal(t, 2, len(env.Reader().VRFs()))
}

func TestRunIPs(t *testing.T) {
	t.Run("invalid count mutates nothing", func(t *testing.T) {
		asRoot(t, true)
		for _, n := range []string{"0", "-1", "abc", "115"} {
			nl := simulate(t, 0)
			env, _ := newEnv(nl, "")
			err := RunIPs(env, []string{"-n", n})
			assert.ErrorIs(t, err, ErrUsage, n)
			assert.Zero(t, nl.Calls("AddrAdd"), n)
		}
	})

	t.Run("add list delete", func(t *testing.T) {
		asRoot(t, true)
		nl := simulate(t, 0)
		env, out := newEnv(nl, "")

		require.NoError(t, RunIPs(env, []string{"-n", "3"}))
		assert.Contains(t, out.String(), "Added 3, skipped 0, failed 0")

		out.Reset()
		require.NoError(t, RunIPs(env, []string{"-n", "4"}))
		assert.Contains(t, out.String(), "Added 1, skipped 3, failed 0")
		assert.Contains(t, out.String(), "Skip existing 10.0.1.50/24")

		out.Reset()
		require.NoError(t, RunIPs(env, []string{"list"}))
		assert.Contains(t, out.String(), "4 of 114 pool addresses on eth0")

		out.Reset()
		require.NoError(t, RunIPs(env, []string{"delete"}))
		assert.Contains(t, out.String(), "Removed 4, failed 0")

		out.Reset()
		require.NoError(t, RunIPs(env, []string{"delete"}))
		assert.Contains(t, out.String(), "No pool addresses present.")
	})

	t.Run("requires root", func(t *testing.T) {
		asRoot(t, false)
		env, _ := newEnv(simulate(t, 0), "")
		assert.ErrorIs(t, RunIPs(env, []string{"-n", "2"}), ErrNotRoot)
		assert.ErrorIs(t, RunIPs(env, []string{"delete"}), ErrNotRoot)
		assert.NoError(t, RunIPs(env, []string{"list"}))
	})

	t.Run("bad usage", func(t *testing.T) {
		asRoot(t, true)
		env, _ := newEnv(simulate(t, 0), "")
		assert.ErrorIs(t, RunIPs(env, nil), ErrUsage)
		assert.ErrorIs(t, RunIPs(env, []string{"purge"}), ErrUsage)
		assert.ErrorIs(t, RunIPs(env, []string{"-n", "2", "delete"}), ErrUsage)
	})
}

func TestRunTraffic(t *testing.T) {
	orig := TrafficOptions
	TrafficOptions = []stats.SamplerOption{stats.WithClock(clock.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))}
	t.Cleanup(func() { TrafficOptions = orig })

	t.Run("no interfaces", func(t *testing.T) {
		env, _ := newEnv(network.NewMemoryNetlinker(), "")
		assert.ErrorIs(t, RunTraffic(context.Background(), env, []string{"-n", "1"}), ErrNoInterfaces)
	})

	t.Run("unknown interfaces filtered", func(t *testing.T) {
		env, out := newEnv(simulate(t, 1), "")
		err := RunTraffic(context.Background(), env, []string{"--interfaces", "nope0,nope1"})
		assert.ErrorIs(t, err, ErrNoInterfaces)
		assert.Contains(t, out.String(), "No valid interfaces found after filtering.")
	})

	t.Run("samples", func(t *testing.T) {
		env, out := newEnv(simulate(t, 2), "")
		require.NoError(t, RunTraffic(context.Background(), env, []string{"-n", "2", "-i", "0.5"}))
		assert.Contains(t, out.String(), "Monitoring 2 interface(s): val1, val2")
		assert.Contains(t, out.String(), "Sample: 2")
		assert.NotContains(t, out.String(), "Sample: 3")
		assert.Contains(t, out.String(), "RX rate (peak / average)")
	})

	t.Run("bad interval", func(t *testing.T) {
		env, _ := newEnv(simulate(t, 1), "")
		assert.ErrorIs(t, RunTraffic(context.Background(), env, []string{"-i", "0"}), ErrUsage)
	})
}

type replaySource struct {
	frames [][]byte
	cancel context.CancelFunc
}

func (r *replaySource) ReadFrom(b []byte) (int, net.Addr, error) {
	if len(r.frames) == 0 {
		r.cancel()
		return 0, nil, &net.OpError{Op: "read", Net: "packet", Err: os.ErrDeadlineExceeded}
	}
	n := copy(b, r.frames[0])
	r.frames = r.frames[1:]
	return n, nil, nil
}

func (r *replaySource) SetReadDeadline(time.Time) error { return nil }
func (r *replaySource) Close() error                    { return nil }

func udpFrame(t *testing.T, src, dst string) []byte {
	t.Helper()
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.ParseIP(src).To4(),
		DstIP:    net.ParseIP(dst).To4(),
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: 53}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ip, udp, gopacket.Payload("q")))
	return buf.Bytes()
}

func TestRunCapture(t *testing.T) {
	orig := OpenCapture
	t.Cleanup(func() { OpenCapture = orig })

	t.Run("needs a source", func(t *testing.T) {
		env, _ := newEnv(simulate(t, 1), "")
		assert.ErrorIs(t, RunCapture(context.Background(), env, nil), ErrUsage)
	})

	t.Run("unknown source address falls back to any", func(t *testing.T) {
		asRoot(t, true)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var opened string
		OpenCapture = func(iface, _ string) (capture.Source, error) {
			opened = iface
			return &replaySource{
				frames: [][]byte{udpFrame(t, "10.99.0.1", "8.8.8.8")},
				cancel: cancel,
			}, nil
		}

		env, out := newEnv(simulate(t, 1), "")
		require.NoError(t, RunCapture(ctx, env, []string{"--src-ip", "10.99.0.1"}))
		assert.Equal(t, capture.AnyInterface, opened)
		assert.Contains(t, out.String(), "no local val* interface has IP 10.99.0.1")
		assert.Contains(t, out.String(), "Total packets captured: 1")
	})

	t.Run("requires root", func(t *testing.T) {
		asRoot(t, false)
		env, _ := newEnv(simulate(t, 1), "")
		err := RunCapture(context.Background(), env, []string{"--src-ip", "10.60.0.1"})
		assert.ErrorIs(t, err, ErrNotRoot)
	})

	t.Run("auto-detected interface", func(t *testing.T) {
		asRoot(t, true)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var opened string
		OpenCapture = func(iface, _ string) (capture.Source, error) {
			opened = iface
			return &replaySource{
				frames: [][]byte{
					udpFrame(t, "10.60.0.2", "8.8.8.8"),
					udpFrame(t, "10.60.0.9", "8.8.8.8"),
					udpFrame(t, "10.60.0.2", "1.1.1.1"),
				},
				cancel: cancel,
			}, nil
		}

		env, out := newEnv(simulate(t, 2), "")
		require.NoError(t, RunCapture(ctx, env, []string{"--src-ip", "10.60.0.2"}))
		assert.Equal(t, "val2", opened)
		assert.Contains(t, out.String(), "Interface: val2")
		assert.Contains(t, out.String(), "Total packets captured: 2")
	})

	t.Run("select", func(t *testing.T) {
		asRoot(t, true)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		OpenCapture = func(iface, _ string) (capture.Source, error) {
			return &replaySource{cancel: cancel}, nil
		}

		env, out := newEnv(simulate(t, 3), "3\n")
		require.NoError(t, RunCapture(ctx, env, []string{"--select", "--5-tuple"}))
		assert.Contains(t, out.String(), "Selected UE: val3")
		assert.Contains(t, out.String(), "Selected UE IP: 10.60.0.3")
		assert.Contains(t, out.String(), "No packets were captured")
	})

	t.Run("select cancelled", func(t *testing.T) {
		asRoot(t, true)
		env, out := newEnv(simulate(t, 1), "q\n")
		require.NoError(t, RunCapture(context.Background(), env, []string{"--select"}))
		assert.Contains(t, out.String(), "Cancelled by user")
	})

	t.Run("conflicting modes", func(t *testing.T) {
		env, _ := newEnv(simulate(t, 1), "")
		err := RunCapture(context.Background(), env, []string{"--src-ip", "10.60.0.1", "--5-tuple", "--simple"})
		assert.ErrorIs(t, err, ErrUsage)
	})
}

func TestRunCheck(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.hcl")
	require.NoError(t, os.WriteFile(valid, []byte(`
naming {
  ue_prefix = "val"
}
pool {
  interface = "ens3"
}
`), 0644))
	assert.NoError(t, RunCheck(nil, valid))

	invalid := filepath.Join(dir, "invalid.hcl")
	require.NoError(t, os.WriteFile(invalid, []byte(`
routing {
  table_min = 300
  table_max = 2
}
`), 0644))
	assert.Error(t, RunCheck([]string{invalid}, valid))

	assert.Error(t, RunCheck(nil, filepath.Join(dir, "missing.hcl")))
	assert.NoError(t, RunCheck([]string{"--defaults"}, ""))
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()

	var buf bytes.Buffer
	logger, err := newLogger(Globals{LogLevel: "info", LogFormat: "json"}, cfg, &buf)
	require.NoError(t, err)
	logger.WithComponent("cli").Info("json line", "iface", "val1")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
	assert.Contains(t, buf.String(), `"msg":"json line"`)
	assert.Contains(t, buf.String(), `"iface":"val1"`)

	buf.Reset()
	logger, err = newLogger(Globals{LogLevel: "info"}, cfg, &buf)
	require.NoError(t, err)
	logger.Info("text line")
	assert.Contains(t, buf.String(), "[info]")

	_, err = newLogger(Globals{LogFormat: "xml"}, cfg, &buf)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = newLogger(Globals{LogLevel: "loud"}, cfg, &buf)
	assert.ErrorIs(t, err, ErrUsage)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"val1", "val2"}, splitList("val1, ,val2,"))
	assert.Nil(t, splitList(""))
}

func TestMean(t *testing.T) {
	assert.Zero(t, mean(nil))
	assert.Equal(t, 25.0, mean([]float64{10, 40}))
}
