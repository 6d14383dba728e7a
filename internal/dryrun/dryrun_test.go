package dryrun

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Each case spawns the test binary again so the env var is read afresh.
func runHelper(t *testing.T, extraEnv ...string) string {
	t.Helper()

	//#nosec G204 -- os.Args[0] is the test binary itself, not user input.
	cmd := exec.Command(os.Args[0], "-printIsDryRun")
	cmd.Env = append(os.Environ(), extraEnv...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "subprocess failed: %s", out)

	return strings.TrimSpace(string(out))
}

func TestIsDryRunFromEnv(t *testing.T) {
	assert.Equal(t, "true", runHelper(t, RequestedEnv+"=1"))
	assert.Equal(t, "true", runHelper(t, RequestedEnv+"=yes"))
}

func TestIsDryRunFalsyEnv(t *testing.T) {
	assert.Equal(t, "false", runHelper(t, RequestedEnv+"=0"))
	assert.Equal(t, "false", runHelper(t, RequestedEnv+"=banana"))
}

func TestSetAndWrap(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	Set(true)
	t.Cleanup(func() { Set(false) })

	require.True(t, IsDryRun())

	out, err := Wrap(context.Background(), "sass", "in.scss", "out.css").Output()
	require.NoError(t, err)
	assert.Equal(t, "DRYRUN: sass in.scss out.css", strings.TrimSpace(string(out)))
}
