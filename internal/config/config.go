package config

import (
	"net"
	"time"
)

// Config is the root configuration.
type Config struct {
	LogLevel string   `hcl:"log_level,optional" json:"log_level,omitempty"`
	Naming   *Naming  `hcl:"naming,block" json:"naming,omitempty"`
	Routing  *Routing `hcl:"routing,block" json:"routing,omitempty"`
	Pool     *Pool    `hcl:"pool,block" json:"pool,omitempty"`
	Report   *Report  `hcl:"report,block" json:"report,omitempty"`
	Monitor  *Monitor `hcl:"monitor,block" json:"monitor,omitempty"`
}

// Naming holds the interface name prefixes used by the simulator.
// A UE interface is <ue_prefix><MSIN>, its VRF is <vrf_prefix><MSIN>.
type Naming struct {
	UEPrefix  string `hcl:"ue_prefix,optional" json:"ue_prefix,omitempty"`
	VRFPrefix string `hcl:"vrf_prefix,optional" json:"vrf_prefix,omitempty"`
}

// Routing describes the policy routing footprint of the simulator.
type Routing struct {
	RuleSubnet    string `hcl:"rule_subnet,optional" json:"rule_subnet,omitempty"`
	TableMin      int    `hcl:"table_min,optional" json:"table_min,omitempty"`
	TableMax      int    `hcl:"table_max,optional" json:"table_max,omitempty"`
	RuleDeleteCap int    `hcl:"rule_delete_cap,optional" json:"rule_delete_cap,omitempty"`
}

// Pool is the address range managed by `uectl ips`.
type Pool struct {
	Interface  string `hcl:"interface,optional" json:"interface,omitempty"`
	Network    string `hcl:"network,optional" json:"network,omitempty"`
	PrefixLen  int    `hcl:"prefix_len,optional" json:"prefix_len,omitempty"`
	StartOctet int    `hcl:"start_octet,optional" json:"start_octet,omitempty"`
	LastOctet  int    `hcl:"last_octet,optional" json:"last_octet,omitempty"`
}

// Report holds status reporter defaults.
type Report struct {
	UEDisplayCap    int    `hcl:"ue_display_cap,optional" json:"ue_display_cap,omitempty"`
	TableDisplayCap int    `hcl:"table_display_cap,optional" json:"table_display_cap,omitempty"`
	PingTarget      string `hcl:"ping_target,optional" json:"ping_target,omitempty"`
	PingCount       int    `hcl:"ping_count,optional" json:"ping_count,omitempty"`
	PingTimeout     string `hcl:"ping_timeout,optional" json:"ping_timeout,omitempty"`
}

// Monitor holds traffic monitor defaults.
type Monitor struct {
	Interval string `hcl:"interval,optional" json:"interval,omitempty"`
}

// Defaults matching the stock simulator deployment.
const (
	DefaultUEPrefix        = "val"
	DefaultVRFPrefix       = "vrf"
	DefaultRuleSubnet      = "10.60.0.0/16"
	DefaultTableMin        = 2
	DefaultTableMax        = 200
	DefaultRuleDeleteCap   = 1000
	DefaultPoolInterface   = "eth0"
	DefaultPoolNetwork     = "10.0.1.0"
	DefaultPoolPrefixLen   = 24
	DefaultStartOctet      = 50
	DefaultLastOctet       = 163
	DefaultUEDisplayCap    = 20
	DefaultTableDisplayCap = 10
	DefaultPingTarget      = "8.8.8.8"
	DefaultPingCount       = 3
	DefaultPingTimeout     = "5s"
	DefaultMonitorInterval = "1s"
)

// Default returns a fully populated configuration.
func Default() *Config {
	cfg := &Config{LogLevel: "warn"}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.Naming == nil {
		c.Naming = &Naming{}
	}
	if c.Naming.UEPrefix == "" {
		c.Naming.UEPrefix = DefaultUEPrefix
	}
	if c.Naming.VRFPrefix == "" {
		c.Naming.VRFPrefix = DefaultVRFPrefix
	}

	if c.Routing == nil {
		c.Routing = &Routing{}
	}
	if c.Routing.RuleSubnet == "" {
		c.Routing.RuleSubnet = DefaultRuleSubnet
	}
	if c.Routing.TableMin == 0 {
		c.Routing.TableMin = DefaultTableMin
	}
	if c.Routing.TableMax == 0 {
		c.Routing.TableMax = DefaultTableMax
	}
	if c.Routing.RuleDeleteCap == 0 {
		c.Routing.RuleDeleteCap = DefaultRuleDeleteCap
	}

	if c.Pool == nil {
		c.Pool = &Pool{}
	}
	if c.Pool.Interface == "" {
		c.Pool.Interface = DefaultPoolInterface
	}
	if c.Pool.Network == "" {
		c.Pool.Network = DefaultPoolNetwork
	}
	if c.Pool.PrefixLen == 0 {
		c.Pool.PrefixLen = DefaultPoolPrefixLen
	}
	if c.Pool.StartOctet == 0 {
		c.Pool.StartOctet = DefaultStartOctet
	}
	if c.Pool.LastOctet == 0 {
		c.Pool.LastOctet = DefaultLastOctet
	}

	if c.Report == nil {
		c.Report = &Report{}
	}
	if c.Report.UEDisplayCap == 0 {
		c.Report.UEDisplayCap = DefaultUEDisplayCap
	}
	if c.Report.TableDisplayCap == 0 {
		c.Report.TableDisplayCap = DefaultTableDisplayCap
	}
	if c.Report.PingTarget == "" {
		c.Report.PingTarget = DefaultPingTarget
	}
	if c.Report.PingCount == 0 {
		c.Report.PingCount = DefaultPingCount
	}
	if c.Report.PingTimeout == "" {
		c.Report.PingTimeout = DefaultPingTimeout
	}

	if c.Monitor == nil {
		c.Monitor = &Monitor{}
	}
	if c.Monitor.Interval == "" {
		c.Monitor.Interval = DefaultMonitorInterval
	}
}

// RuleNet returns the parsed rule source subnet. Call after Validate.
func (r *Routing) RuleNet() *net.IPNet {
	_, n, err := net.ParseCIDR(r.RuleSubnet)
	if err != nil {
		return nil
	}
	return n
}

// PingTimeoutDuration returns the parsed ping timeout. Call after Validate.
func (r *Report) PingTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(r.PingTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// IntervalDuration returns the parsed poll interval. Call after Validate.
func (m *Monitor) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(m.Interval)
	if err != nil {
		return time.Second
	}
	return d
}
