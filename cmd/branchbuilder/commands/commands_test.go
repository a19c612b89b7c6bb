package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/branchbuilder/internal/config"
	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/report"
	"git.home.luguber.info/inful/branchbuilder/internal/runner"
)

func TestRunCmdApplyOverridesConfig(t *testing.T) {
	cfg := &config.Config{PublishStatus: true, Concurrency: 1, ReportFile: "a.md"}
	(&RunCmd{Force: true, NoPublish: true, Concurrency: 4, Report: "b.json"}).apply(cfg)

	assert.True(t, cfg.ForceRebuild)
	assert.False(t, cfg.PublishStatus)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, "b.json", cfg.ReportFile)

	untouched := &config.Config{PublishStatus: true, Concurrency: 2}
	(&RunCmd{}).apply(untouched)
	assert.True(t, untouched.PublishStatus)
	assert.Equal(t, 2, untouched.Concurrency)
}

func TestInitThenValidate(t *testing.T) {
	t.Setenv("FORGE_TOKEN", "secret")
	path := filepath.Join(t.TempDir(), "branchbuilder.yaml")
	var out bytes.Buffer
	g := &Global{Out: &out}
	root := &CLI{Config: path}

	require.NoError(t, (&InitCmd{}).Run(g, root))
	require.NoError(t, (&ValidateCmd{}).Run(g, root))
	assert.Contains(t, out.String(), "configuration is valid")

	err := (&InitCmd{}).Run(g, root)
	require.Error(t, err, "existing file is not replaced without --force")
	require.NoError(t, (&InitCmd{Force: true}).Run(g, root))
}

func TestValidateMissingFileIsConfigError(t *testing.T) {
	g := &Global{Out: &bytes.Buffer{}}
	err := (&ValidateCmd{}).Run(g, &CLI{Config: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Equal(t, 7, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestHistoryRequiresDatabase(t *testing.T) {
	t.Setenv("FORGE_TOKEN", "secret")
	path := filepath.Join(t.TempDir(), "branchbuilder.yaml")
	require.NoError(t, config.Init(path, false))

	err := (&HistoryCmd{Limit: 5}).Run(&Global{Out: &bytes.Buffer{}}, &CLI{Config: path})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestRenderSummary(t *testing.T) {
	rep := report.New("run-42")
	ref, _ := forge.ParseFullName("foo/bar")
	require.NoError(t, rep.Append(report.Entry{
		Branch:    forge.BranchRef{Repository: ref, Name: "main", HeadCommit: strings.Repeat("a", 40)},
		Outcome:   runner.OutcomeBuildFailure,
		ExitCode:  2,
		Published: true,
		Duration:  1500 * time.Millisecond,
	}))
	require.NoError(t, rep.Append(report.Entry{
		Branch:  forge.BranchRef{Repository: ref, Name: "dev", HeadCommit: strings.Repeat("b", 40)},
		Outcome: runner.OutcomeSuccess,
		Skipped: true,
	}))
	rep.Finish()

	out := RenderSummary(rep)
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "foo/bar@main")
	assert.Contains(t, out, "Build Failure")
	assert.Contains(t, out, "exit=2")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "1 failed")
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&VersionCmd{}).Run(&Global{Out: &out}))
	assert.True(t, strings.HasPrefix(out.String(), "branchbuilder "))
}

func TestRunBuildRejectsUnknownForge(t *testing.T) {
	cfg := &config.Config{Forge: "gitlab", Server: "https://x", Token: "t", OutputDir: t.TempDir()}
	_, err := RunBuild(t.Context(), cfg)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(cfg.OutputDir, "report.md"))
	assert.True(t, os.IsNotExist(statErr))
}
