package cmd

import (
	"errors"
	"fmt"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/addrpool"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/tui"
)

// RunIPs manages the address pool: `ips -n NUM`, `ips delete`, `ips list`.
func RunIPs(env *Env, args []string) error {
	pool, err := addrpool.New(env.NL, env.Config.Pool)
	if err != nil {
		return err
	}

	fs := newFlagSet("ips", env.Out, "-n NUM | delete | list")
	count := fs.String("n", "", fmt.Sprintf("Number of addresses to add (1-%d)", pool.MaxCount()))
	if err := parseFlags(fs, args); err != nil {
		if errors.Is(err, errHelp) {
			return nil
		}
		return err
	}

	action := fs.Arg(0)
	switch {
	case action == "list" && *count == "":
		return ipsList(env, pool)
	case action == "delete" && *count == "":
		if err := requireRoot("ips delete"); err != nil {
			return err
		}
		return ipsDelete(env, pool)
	case action == "" && *count != "":
		n, err := pool.ValidateCount(*count)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		if err := requireRoot("ips"); err != nil {
			return err
		}
		return ipsAdd(env, pool, n)
	case action != "" && action != "list" && action != "delete":
		return usageErrorf("ips: unknown action %q", action)
	default:
		fs.Usage()
		return usageErrorf("ips: use exactly one of -n NUM, delete or list")
	}
}

func ipsAdd(env *Env, pool *addrpool.Pool, n int) error {
	Printer.Fprintf(env.Out, "Adding %d addresses to %s\n", n, pool.Interface)
	results, err := pool.Add(n)
	if err != nil {
		return err
	}
	for _, r := range results {
		Printer.Fprintf(env.Out, "  %s\n", resultLine(r))
	}
	Printer.Fprintf(env.Out, "Added %d, skipped %d, failed %d\n",
		addrpool.Count(results, addrpool.Added),
		addrpool.Count(results, addrpool.Skipped),
		addrpool.Count(results, addrpool.Failed))
	return nil
}

func ipsDelete(env *Env, pool *addrpool.Pool) error {
	Printer.Fprintf(env.Out, "Removing %s-%s from %s\n",
		pool.Addr(pool.Start).IP, pool.Addr(pool.Last).IP, pool.Interface)
	results, err := pool.Delete()
	if err != nil {
		return err
	}
	if len(results) == 0 {
		Printer.Fprintf(env.Out, "No pool addresses present.\n")
		return nil
	}
	for _, r := range results {
		Printer.Fprintf(env.Out, "  %s\n", resultLine(r))
	}
	Printer.Fprintf(env.Out, "Removed %d, failed %d\n",
		addrpool.Count(results, addrpool.Removed),
		addrpool.Count(results, addrpool.Failed))
	return nil
}

func ipsList(env *Env, pool *addrpool.Pool) error {
	present, err := pool.List()
	if err != nil {
		return err
	}
	Printer.Fprintf(env.Out, "%d of %d pool addresses on %s\n", len(present), pool.MaxCount(), pool.Interface)
	for _, a := range present {
		Printer.Fprintf(env.Out, "  %s\n", a)
	}
	return nil
}

func resultLine(r addrpool.Result) string {
	switch r.Status {
	case addrpool.Added, addrpool.Removed:
		return tui.Good(r.String())
	case addrpool.Failed:
		return tui.Bad(r.String())
	default:
		return tui.StyleMuted.Render(r.String())
	}
}
