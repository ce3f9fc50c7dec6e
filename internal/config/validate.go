package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"
)

var prefixPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z_-]*$`)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks ranges and formats. Call after ApplyDefaults.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := parseLevelName(c.LogLevel); err != nil {
		add("log_level", "%v", err)
	}

	if !prefixPattern.MatchString(c.Naming.UEPrefix) {
		add("naming.ue_prefix", "must be letters only, got %q", c.Naming.UEPrefix)
	}
	if !prefixPattern.MatchString(c.Naming.VRFPrefix) {
		add("naming.vrf_prefix", "must be letters only, got %q", c.Naming.VRFPrefix)
	}
	if c.Naming.UEPrefix == c.Naming.VRFPrefix {
		add("naming.vrf_prefix", "must differ from ue_prefix")
	}

	if ip, _, err := net.ParseCIDR(c.Routing.RuleSubnet); err != nil || ip.To4() == nil {
		add("routing.rule_subnet", "must be an IPv4 CIDR, got %q", c.Routing.RuleSubnet)
	}
	if c.Routing.TableMin < 1 || c.Routing.TableMax > 252 || c.Routing.TableMin > c.Routing.TableMax {
		add("routing.table_min", "table range %d-%d must lie within 1-252", c.Routing.TableMin, c.Routing.TableMax)
	}
	if c.Routing.RuleDeleteCap < 1 {
		add("routing.rule_delete_cap", "must be positive")
	}

	if c.Pool.Interface == "" {
		add("pool.interface", "must not be empty")
	}
	if ip := net.ParseIP(c.Pool.Network); ip == nil || ip.To4() == nil {
		add("pool.network", "must be an IPv4 address, got %q", c.Pool.Network)
	}
	if c.Pool.PrefixLen < 8 || c.Pool.PrefixLen > 30 {
		add("pool.prefix_len", "must be within 8-30, got %d", c.Pool.PrefixLen)
	}
	if c.Pool.StartOctet < 1 || c.Pool.LastOctet > 254 || c.Pool.StartOctet > c.Pool.LastOctet {
		add("pool.start_octet", "octet range %d-%d must lie within 1-254", c.Pool.StartOctet, c.Pool.LastOctet)
	}

	if c.Report.UEDisplayCap < 1 {
		add("report.ue_display_cap", "must be positive")
	}
	if c.Report.TableDisplayCap < 1 {
		add("report.table_display_cap", "must be positive")
	}
	if net.ParseIP(c.Report.PingTarget) == nil {
		add("report.ping_target", "must be an IP address, got %q", c.Report.PingTarget)
	}
	if c.Report.PingCount < 1 {
		add("report.ping_count", "must be positive")
	}
	if d, err := time.ParseDuration(c.Report.PingTimeout); err != nil || d <= 0 {
		add("report.ping_timeout", "must be a positive duration, got %q", c.Report.PingTimeout)
	}

	if d, err := time.ParseDuration(c.Monitor.Interval); err != nil || d <= 0 {
		add("monitor.interval", "must be a positive duration, got %q", c.Monitor.Interval)
	}

	return errs
}

func parseLevelName(s string) (string, error) {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "warning", "error":
		return strings.ToLower(s), nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}
