package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OpportunityRadar/internal/testutil"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

// workspace is a temp directory holding sample inputs and a config file.
type workspace struct {
	dir        string
	inputDir   string
	artifact   string
	configPath string
}

func newWorkspace(t *testing.T, extraYAML string) *workspace {
	t.Helper()
	dir := t.TempDir()
	ws := &workspace{
		dir:        dir,
		inputDir:   filepath.Join(dir, "data"),
		artifact:   filepath.Join(dir, "out", "opportunities.csv"),
		configPath: filepath.Join(dir, "radar.yaml"),
	}
	require.NoError(t, os.MkdirAll(ws.inputDir, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(ws.artifact), 0o755))
	require.NoError(t, testutil.WriteSampleInputs(ws.inputDir))

	yaml := fmt.Sprintf(`input:
  location: %q
output:
  destination: %q
log:
  level: error
  format: console
%s`, ws.inputDir, ws.artifact, extraYAML)
	require.NoError(t, os.WriteFile(ws.configPath, []byte(yaml), 0o644))
	return ws
}

// execute runs the root command with args and captures stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "radar", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"run", "show", "serve", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	for _, flag := range []string{"config", "log-level", "output", "verbose", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}
	assert.Equal(t, "c", cmd.PersistentFlags().Lookup("config").Shorthand)
	assert.Equal(t, "table", cmd.PersistentFlags().Lookup("output").DefValue)
}

func TestPersistentPreRun_RejectsUnknownOutputFormat(t *testing.T) {
	ws := newWorkspace(t, "")
	_, _, err := execute(t, "--config", ws.configPath, "-o", "yaml", "show")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestPersistentPreRun_RejectsBadLogLevel(t *testing.T) {
	ws := newWorkspace(t, "")
	_, _, err := execute(t, "--config", ws.configPath, "--log-level", "loud", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log-level")
}

func TestPersistentPreRun_InvalidConfig(t *testing.T) {
	ws := newWorkspace(t, "pipeline:\n  top_k: -1\n")
	_, _, err := execute(t, "--config", ws.configPath, "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.top_k")
}

func TestGetCLIContext_Missing(t *testing.T) {
	_, err := GetCLIContext(NewShowCmd())
	assert.Error(t, err)
}

func TestVersionCmd_SkipsConfig(t *testing.T) {
	t.Setenv("RADAR_PIPELINE_TOP_K", "-1")

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "radar dev"), out)

	out, _, err = execute(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "dev"`)
}

func TestExecute_PrintsErrorPrefix(t *testing.T) {
	cmd := NewRootCommand()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	PrintError(cmd, errors.NewValidation("boom"))
	assert.Equal(t, "Error: ["+string(errors.ErrCodeValidation)+"] boom\n", stderr.String())
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"NAME", "SCORE"}, [][]string{{"Kitchen", "0.9"}, {"Home"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "NAME     SCORE", lines[0])
	assert.Equal(t, "-------  -----", lines[1])
	assert.Equal(t, "Kitchen  0.9", lines[2])
	assert.Equal(t, "Home     ", lines[3])

	assert.Empty(t, FormatTable(nil, nil))
}
