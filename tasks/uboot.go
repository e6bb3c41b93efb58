package tasks

import (
	"fmt"
	"path"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/benchlab/bench/config"
	"github.com/benchlab/bench/machine"
)

// UBootBuildDir is where the bootloader sources for this board are checked
// out on the build machine.
func UBootBuildDir(cfg *config.Config) (string, error) {
	workdir, err := cfg.GetString("workdir")
	if err != nil {
		return "", err
	}
	name, err := cfg.GetString("board.name")
	if err != nil {
		return "", err
	}
	return path.Join(workdir, "u-boot-"+name), nil
}

// BuildUBoot checks out the configured U-Boot repository, applies board
// patches when a patch directory is configured, and builds the configured
// defconfig. Configuration keys: workdir, board.name, board.defconfig,
// uboot.repository, and optionally uboot.patchdir and board.cross_compile.
func BuildUBoot(m machine.Machine, cfg *config.Config) error {
	buildDir, err := UBootBuildDir(cfg)
	if err != nil {
		return err
	}
	repo, err := cfg.GetString("uboot.repository")
	if err != nil {
		return err
	}
	defconfig, err := cfg.GetString("board.defconfig")
	if err != nil {
		return err
	}

	opts := machine.DefaultExecOptions()
	qdir := shellescape.Quote(buildDir)

	// Clean checkout every time; incremental state from a previous run is
	// worth less than a reproducible build.
	if _, err := machine.Exec0(m, "rm -rf "+qdir, opts); err != nil {
		return err
	}
	cmd := fmt.Sprintf("git clone %s %s", shellescape.Quote(repo), qdir)
	if _, err := machine.Exec0(m, cmd, opts); err != nil {
		return err
	}
	if patchdir, ok := cfg.TryGetString("uboot.patchdir").Get(); ok {
		cmd = fmt.Sprintf("git -C %s am %s/*.patch", qdir, shellescape.Quote(patchdir))
		if _, err := machine.Exec0(m, cmd, opts); err != nil {
			return err
		}
	}

	makePrefix := fmt.Sprintf("make -C %s", qdir)
	if cross, ok := cfg.TryGetString("board.cross_compile").Get(); ok {
		makePrefix += " CROSS_COMPILE=" + shellescape.Quote(cross)
	}
	for _, target := range []string{"mrproper", defconfig, "-j4 all"} {
		if _, err := machine.Exec0(m, makePrefix+" "+target, opts); err != nil {
			return err
		}
	}
	return nil
}

// CheckUBootVersion verifies that the U-Boot running on the board matches the
// binary that was built: the board's "version" output must appear in the
// strings of the built u-boot.bin.
func CheckUBootVersion(boardConsole, buildMachine machine.Machine, cfg *config.Config) error {
	buildDir, err := UBootBuildDir(cfg)
	if err != nil {
		return err
	}
	binPath := path.Join(buildDir, "u-boot.bin")

	opts := machine.DefaultExecOptions()
	opts.ShowCommand = false
	known, err := machine.Exec0(buildMachine,
		fmt.Sprintf("strings %s | grep U-Boot", shellescape.Quote(binPath)), opts)
	if err != nil {
		return err
	}

	out, err := machine.Exec0(boardConsole, "version", machine.DefaultExecOptions())
	if err != nil {
		return err
	}
	version := strings.SplitN(strings.TrimSpace(out), "\n", 2)[0]
	if version == "" || !strings.Contains(known, version) {
		return fmt.Errorf("U-Boot version on the board (%q) does not match the built binary", version)
	}
	return nil
}
