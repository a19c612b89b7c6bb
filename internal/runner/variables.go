package runner

import (
	"os"
	"slices"
	"strings"

	"git.home.luguber.info/inful/branchbuilder/internal/forge"
)

// EnvPrefix is prepended to every build variable exported to the build process.
const EnvPrefix = "BRANCHBUILDER_"

// Variables holds the per-branch values substituted into build arguments.
type Variables map[string]string

// VariableInput collects the values a branch contributes to its Variables.
type VariableInput struct {
	Branch     forge.BranchRef
	SourceDir  string
	BuildDir   string
	CIFile     string
	ReportFile string
	RunID      string
}

// NewVariables builds the variable set for one branch.
func NewVariables(in VariableInput) Variables {
	return Variables{
		"SOURCE_DIR":  in.SourceDir,
		"BUILD_DIR":   in.BuildDir,
		"REPOSITORY":  in.Branch.Repository.FullName(),
		"OWNER":       in.Branch.Repository.Owner,
		"NAME":        in.Branch.Repository.Name,
		"BRANCH":      in.Branch.Name,
		"REF_KIND":    string(in.Branch.Kind),
		"COMMIT":      in.Branch.HeadCommit,
		"CI_FILE":     in.CIFile,
		"REPORT_FILE": in.ReportFile,
		"RUN_ID":      in.RunID,
	}
}

// Expand substitutes ${NAME} and $NAME references. Unknown names expand to "".
func (v Variables) Expand(s string) string {
	return os.Expand(s, func(name string) string { return v[name] })
}

// ExpandAll expands every element of args.
func (v Variables) ExpandAll(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, v.Expand(a))
	}
	return out
}

// Environ returns the variables as sorted PREFIX_NAME=value pairs.
func (v Variables) Environ() []string {
	env := make([]string, 0, len(v))
	for k, val := range v {
		env = append(env, EnvPrefix+k+"="+val)
	}
	slices.Sort(env)
	return env
}

// String renders the variables for debug logs.
func (v Variables) String() string {
	return strings.Join(v.Environ(), " ")
}
