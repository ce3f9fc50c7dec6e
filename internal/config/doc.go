// Package config handles HCL configuration parsing and validation.
//
// # Overview
//
// uectl reads an optional HCL file (default /etc/uectl/uectl.hcl) that
// overrides the deployment-specific constants: interface naming, the rule
// source subnet, the routing table range, the address pool and the report
// and monitor defaults. A missing default file is not an error; built-in
// defaults reproduce the stock PacketRusher layout.
//
// # Example
//
//	log_level = "info"
//
//	naming {
//	  ue_prefix  = "val"
//	  vrf_prefix = "vrf"
//	}
//
//	routing {
//	  rule_subnet = "10.60.0.0/16"
//	  table_min   = 2
//	  table_max   = 200
//	}
//
//	pool {
//	  interface   = "eth0"
//	  network     = "10.0.1.0"
//	  prefix_len  = 24
//	  start_octet = 50
//	  last_octet  = 163
//	}
package config
