package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/branchbuilder/internal/forge"
)

func TestVariablesExpand(t *testing.T) {
	branch := forge.BranchRef{
		Repository: forge.RepositoryRef{Owner: "acme", Name: "site"},
		Name:       "feature/x",
		HeadCommit: "abc123",
		Kind:       forge.RefBranch,
	}
	vars := NewVariables(VariableInput{
		Branch:     branch,
		SourceDir:  "/out/acme/site/feature/x/src",
		BuildDir:   "/out/acme/site/feature/x/builds/1_abc123",
		CIFile:     "ci.json",
		ReportFile: "/out/report.json",
		RunID:      "run-1",
	})

	args := vars.ExpandAll([]string{"-i", "${SOURCE_DIR}", "-r", "${REPOSITORY}", "-b", "$BRANCH", "${CI_FILE}", "${UNKNOWN}"})
	assert.Equal(t, []string{"-i", "/out/acme/site/feature/x/src", "-r", "acme/site", "-b", "feature/x", "ci.json", ""}, args)
	assert.Equal(t, "https://ci.example.com/acme/site/abc123", vars.Expand("https://ci.example.com/${REPOSITORY}/${COMMIT}"))

	env := vars.Environ()
	assert.Contains(t, env, "BRANCHBUILDER_COMMIT=abc123")
	assert.Contains(t, env, "BRANCHBUILDER_REF_KIND=branch")
	assert.IsIncreasing(t, env)
}
