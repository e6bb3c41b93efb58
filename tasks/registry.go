package tasks

import (
	"fmt"
	"sort"

	"github.com/benchlab/bench/config"
	"github.com/benchlab/bench/framework"
	"github.com/benchlab/bench/machine"
	"github.com/benchlab/bench/machine/board"
)

// Func is a runnable testcase: it receives the testcase context, the run's
// machine manager and the configuration.
type Func func(c *framework.Context, mgr *machine.Manager, cfg *config.Config) error

// Builtin maps testcase names to the workflows this binary ships with.
var Builtin = map[string]Func{
	"tftp/setup":          runSetupTFTPDir,
	"uboot/build":         runBuildUBoot,
	"uboot/check-version": runCheckUBootVersion,
}

// Names lists the builtin testcases in stable order.
func Names() []string {
	names := make([]string, 0, len(Builtin))
	for name := range Builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup finds a builtin testcase by name.
func Lookup(name string) (Func, error) {
	fn, ok := Builtin[name]
	if !ok {
		return nil, fmt.Errorf("unknown testcase %q (known: %v)", name, Names())
	}
	return fn, nil
}

// buildMachine returns the machine builds run on: the lab host.
func buildMachine(mgr *machine.Manager) (machine.Machine, error) {
	return mgr.Get("build", func(m *machine.Manager) (machine.Machine, error) {
		if m.Lab() == nil {
			return nil, fmt.Errorf("no lab connection available")
		}
		return m.Lab(), nil
	})
}

// boardMachine creates (or reuses) the run's board from the "board.*"
// configuration.
func boardMachine(mgr *machine.Manager, cfg *config.Config) (*board.Board, error) {
	m, err := mgr.Get("board", func(mg *machine.Manager) (machine.Machine, error) {
		ctrl, err := board.FromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return board.New(mg.Lab(), ctrl, mg.Logger())
	})
	if err != nil {
		return nil, err
	}
	b, ok := m.(*board.Board)
	if !ok {
		return nil, fmt.Errorf("machine %q is not a board", m.UniqueName())
	}
	return b, nil
}

func runSetupTFTPDir(c *framework.Context, mgr *machine.Manager, cfg *config.Config) error {
	m, err := buildMachine(mgr)
	if err != nil {
		return err
	}
	dir, err := SetupTFTPDir(m, cfg)
	if err != nil {
		return err
	}
	c.Debug("tftp directory ready: %s", dir)
	return nil
}

func runBuildUBoot(c *framework.Context, mgr *machine.Manager, cfg *config.Config) error {
	m, err := buildMachine(mgr)
	if err != nil {
		return err
	}
	return BuildUBoot(m, cfg)
}

func runCheckUBootVersion(c *framework.Context, mgr *machine.Manager, cfg *config.Config) error {
	buildM, err := buildMachine(mgr)
	if err != nil {
		return err
	}
	b, err := boardMachine(mgr, cfg)
	if err != nil {
		return err
	}
	session, err := b.Enter()
	if err != nil {
		return err
	}
	defer session.Close()
	return CheckUBootVersion(b, buildM, cfg)
}
