// Package tasks contains the builtin testcase workflows: ordinary scripted
// sequences of exec0 calls against machines, driven by configuration. They
// carry no lifecycle logic of their own.
package tasks

import (
	"fmt"
	"path"

	"github.com/alessio/shellescape"

	"github.com/benchlab/bench/config"
	"github.com/benchlab/bench/machine"
)

// TFTPDir resolves the board's TFTP directory from configuration without
// touching any machine.
func TFTPDir(cfg *config.Config) (string, error) {
	root, err := cfg.GetString("tftp.rootdir")
	if err != nil {
		return "", err
	}
	boardDir, err := cfg.GetString("tftp.boarddir")
	if err != nil {
		return "", err
	}
	dir := path.Join(root, boardDir)
	if sub, ok := cfg.TryGetString("tftp.subdir").Get(); ok {
		dir = path.Join(dir, sub)
	}
	return dir, nil
}

// SetupTFTPDir creates the board's TFTP directory on the given machine and
// returns its path.
func SetupTFTPDir(m machine.Machine, cfg *config.Config) (string, error) {
	dir, err := TFTPDir(cfg)
	if err != nil {
		return "", err
	}
	opts := machine.DefaultExecOptions()
	opts.ShowCommand = false
	if _, err := machine.Exec0(m, "mkdir -p "+shellescape.Quote(dir), opts); err != nil {
		return "", err
	}
	return dir, nil
}

// CopyToTFTP copies a file into the board's TFTP directory. destName is
// optional; when empty the source file name is kept.
func CopyToTFTP(m machine.Machine, cfg *config.Config, src, destName string) error {
	dir, err := SetupTFTPDir(m, cfg)
	if err != nil {
		return err
	}
	if destName == "" {
		destName = path.Base(src)
	}
	cmd := fmt.Sprintf("cp %s %s", shellescape.Quote(src), shellescape.Quote(path.Join(dir, destName)))
	_, err = machine.Exec0(m, cmd, machine.DefaultExecOptions())
	return err
}
