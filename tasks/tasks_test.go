package tasks

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchlab/bench/config"
	"github.com/benchlab/bench/framework"
	"github.com/benchlab/bench/machine"
)

// recordingMachine captures every command it is asked to run and answers from
// a canned response table. Commands without a canned response succeed with
// empty output.
type recordingMachine struct {
	name      string
	commands  []string
	responses map[string]response
	logger    framework.EventLogger
}

type response struct {
	status int
	output string
}

func newRecordingMachine(name string) *recordingMachine {
	return &recordingMachine{name: name, responses: make(map[string]response)}
}

func (m *recordingMachine) CommonName() string { return m.name }

func (m *recordingMachine) UniqueName() string { return m.name + "-1" }

func (m *recordingMachine) SetLogger(l framework.EventLogger) { m.logger = l }

func (m *recordingMachine) Logger() framework.EventLogger { return m.logger }

func (m *recordingMachine) RunCommand(command string, _ time.Duration) (int, string, error) {
	m.commands = append(m.commands, command)
	r := m.responses[command]
	return r.status, r.output, nil
}

func (m *recordingMachine) Destroy() error { return nil }

func tftpConfig() *config.Config {
	cfg := config.New()
	cfg.Set("tftp.rootdir", "/var/lib/tftpboot")
	cfg.Set("tftp.boarddir", "taurus")
	return cfg
}

func TestTFTPDir(t *testing.T) {
	cfg := tftpConfig()
	dir, err := TFTPDir(cfg)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/tftpboot/taurus", dir)

	cfg.Set("tftp.subdir", "nightly")
	dir, err = TFTPDir(cfg)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/tftpboot/taurus/nightly", dir)
}

func TestTFTPDirRequiresKeys(t *testing.T) {
	cfg := config.New()
	cfg.Set("tftp.rootdir", "/var/lib/tftpboot")
	_, err := TFTPDir(cfg)
	var missing *config.MissingKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "tftp.boarddir", missing.Key)
}

func TestSetupTFTPDirQuotesPath(t *testing.T) {
	cfg := tftpConfig()
	cfg.Set("tftp.subdir", "with space")
	m := newRecordingMachine("lab")

	dir, err := SetupTFTPDir(m, cfg)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/tftpboot/taurus/with space", dir)
	require.Len(t, m.commands, 1)
	assert.Equal(t, "mkdir -p '/var/lib/tftpboot/taurus/with space'", m.commands[0])
}

func TestCopyToTFTPKeepsSourceName(t *testing.T) {
	m := newRecordingMachine("lab")
	require.NoError(t, CopyToTFTP(m, tftpConfig(), "/build/u-boot.bin", ""))
	require.Len(t, m.commands, 2)
	assert.Equal(t, "cp /build/u-boot.bin /var/lib/tftpboot/taurus/u-boot.bin", m.commands[1])
}

func TestCopyToTFTPRenames(t *testing.T) {
	m := newRecordingMachine("lab")
	require.NoError(t, CopyToTFTP(m, tftpConfig(), "/build/u-boot.bin", "uboot.img"))
	assert.Equal(t, "cp /build/u-boot.bin /var/lib/tftpboot/taurus/uboot.img", m.commands[1])
}

func ubootConfig() *config.Config {
	cfg := config.New()
	cfg.Set("workdir", "/work/hws")
	cfg.Set("board.name", "taurus")
	cfg.Set("board.defconfig", "taurus_defconfig")
	cfg.Set("uboot.repository", "git://git.denx.de/u-boot.git")
	return cfg
}

func TestBuildUBootCommandSequence(t *testing.T) {
	m := newRecordingMachine("lab")
	require.NoError(t, BuildUBoot(m, ubootConfig()))
	assert.Equal(t, []string{
		"rm -rf /work/hws/u-boot-taurus",
		"git clone git://git.denx.de/u-boot.git /work/hws/u-boot-taurus",
		"make -C /work/hws/u-boot-taurus mrproper",
		"make -C /work/hws/u-boot-taurus taurus_defconfig",
		"make -C /work/hws/u-boot-taurus -j4 all",
	}, m.commands)
}

func TestBuildUBootWithPatchesAndToolchain(t *testing.T) {
	cfg := ubootConfig()
	cfg.Set("uboot.patchdir", "/work/hws/patches")
	cfg.Set("board.cross_compile", "arm-linux-gnueabihf-")

	m := newRecordingMachine("lab")
	require.NoError(t, BuildUBoot(m, cfg))
	require.Len(t, m.commands, 6)
	assert.Equal(t, "git -C /work/hws/u-boot-taurus am /work/hws/patches/*.patch", m.commands[2])
	assert.Equal(t, "make -C /work/hws/u-boot-taurus CROSS_COMPILE=arm-linux-gnueabihf- mrproper", m.commands[3])
}

func TestBuildUBootStopsOnFailure(t *testing.T) {
	m := newRecordingMachine("lab")
	m.responses["git clone git://git.denx.de/u-boot.git /work/hws/u-boot-taurus"] =
		response{status: 128, output: "fatal: repository not found"}

	err := BuildUBoot(m, ubootConfig())
	require.Error(t, err)
	var cmdErr *machine.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 128, cmdErr.ExitStatus)
	assert.Len(t, m.commands, 2, "no make commands after a failed clone")
}

func TestCheckUBootVersion(t *testing.T) {
	banner := "U-Boot 2026.07-00123-gdeadbeef (Aug 01 2026)"

	build := newRecordingMachine("lab")
	build.responses["strings /work/hws/u-boot-taurus/u-boot.bin | grep U-Boot"] =
		response{output: "U-Boot SPL 2026.07\n" + banner + "\n"}
	board := newRecordingMachine("board")
	board.responses["version"] = response{output: banner + "\narm-linux-gnueabihf-gcc 13.2\n"}

	require.NoError(t, CheckUBootVersion(board, build, ubootConfig()))

	board.responses["version"] = response{output: "U-Boot 2019.01 (stale)\n"}
	err := CheckUBootVersion(board, build, ubootConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestLookupBuiltinTasks(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "tftp/setup")
	assert.Contains(t, names, "uboot/build")
	assert.Contains(t, names, "uboot/check-version")
	assert.True(t, sort.StringsAreSorted(names))

	fn, err := Lookup("uboot/build")
	require.NoError(t, err)
	assert.NotNil(t, fn)

	_, err = Lookup("no/such/task")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown testcase")
}
