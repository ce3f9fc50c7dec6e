package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// EncodeHCL renders c as an HCL document that LoadHCL reads back to the
// same values. Nil blocks are omitted.
func EncodeHCL(c *Config) ([]byte, error) {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	if err := setAttr(root, "log_level", c.LogLevel); err != nil {
		return nil, err
	}

	var blocks []section
	if c.Naming != nil {
		blocks = append(blocks, section{"naming", []attr{
			{"ue_prefix", c.Naming.UEPrefix},
			{"vrf_prefix", c.Naming.VRFPrefix},
		}})
	}
	if c.Routing != nil {
		blocks = append(blocks, section{"routing", []attr{
			{"rule_subnet", c.Routing.RuleSubnet},
			{"table_min", c.Routing.TableMin},
			{"table_max", c.Routing.TableMax},
			{"rule_delete_cap", c.Routing.RuleDeleteCap},
		}})
	}
	if c.Pool != nil {
		blocks = append(blocks, section{"pool", []attr{
			{"interface", c.Pool.Interface},
			{"network", c.Pool.Network},
			{"prefix_len", c.Pool.PrefixLen},
			{"start_octet", c.Pool.StartOctet},
			{"last_octet", c.Pool.LastOctet},
		}})
	}
	if c.Report != nil {
		blocks = append(blocks, section{"report", []attr{
			{"ue_display_cap", c.Report.UEDisplayCap},
			{"table_display_cap", c.Report.TableDisplayCap},
			{"ping_target", c.Report.PingTarget},
			{"ping_count", c.Report.PingCount},
			{"ping_timeout", c.Report.PingTimeout},
		}})
	}
	if c.Monitor != nil {
		blocks = append(blocks, section{"monitor", []attr{
			{"interval", c.Monitor.Interval},
		}})
	}

	for _, b := range blocks {
		root.AppendNewline()
		body := root.AppendNewBlock(b.name, nil).Body()
		for _, a := range b.attrs {
			if err := setAttr(body, a.name, a.value); err != nil {
				return nil, fmt.Errorf("%s: %w", b.name, err)
			}
		}
	}
	return hclwrite.Format(f.Bytes()), nil
}

type section struct {
	name  string
	attrs []attr
}

type attr struct {
	name  string
	value interface{}
}

// setAttr writes value unless it is the zero value, which the loader
// treats as unset anyway.
func setAttr(body *hclwrite.Body, name string, value interface{}) error {
	v, err := toCtyValue(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", name, err)
	}
	if v.IsNull() {
		return nil
	}
	body.SetAttributeValue(name, v)
	return nil
}

func toCtyValue(v interface{}) (cty.Value, error) {
	switch val := v.(type) {
	case int:
		if val == 0 {
			return cty.NullVal(cty.Number), nil
		}
		return cty.NumberIntVal(int64(val)), nil
	case string:
		if val == "" {
			return cty.NullVal(cty.String), nil
		}
		return cty.StringVal(val), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported type: %T", v)
	}
}
