package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inful/mdfp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/branchbuilder/internal/runner"
)

func sampleReport(t *testing.T) *RunReport {
	t.Helper()
	r := New("run-42")
	ok := entry("acme/site", "main", runner.OutcomeSuccess)
	ok.Published = true
	failed := entry("foo/bar", "feature|x", runner.OutcomeBuildFailure)
	failed.ExitCode = 2
	failed.Output = "error: broken link\n```nested```\n"
	crashed := entry("foo/bar", "main", runner.OutcomeInternalError)
	crashed.ExitCode = 137
	crashed.Error = "build command exited unexpectedly"
	for _, e := range []Entry{ok, failed, crashed} {
		require.NoError(t, r.Append(e))
	}
	r.Finish()
	return r
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFor("out/report.json"))
	assert.Equal(t, FormatHTML, FormatFor("out/report.HTML"))
	assert.Equal(t, FormatMarkdown, FormatFor("out/report.md"))
	assert.Equal(t, FormatMarkdown, FormatFor("out/report"))
}

func TestRenderJSON(t *testing.T) {
	data, err := NewWriter("").Render(sampleReport(t), FormatJSON)
	require.NoError(t, err)

	var got struct {
		RunID   string  `json:"run_id"`
		Summary Summary `json:"summary"`
		Entries []struct {
			Repository string `json:"repository"`
			Branch     string `json:"branch"`
			Outcome    string `json:"outcome"`
			ExitCode   int    `json:"exit_code"`
			DurationMS int64  `json:"duration_ms"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-42", got.RunID)
	assert.Equal(t, 3, got.Summary.Total)
	require.Len(t, got.Entries, 3)
	assert.Equal(t, "foo/bar", got.Entries[1].Repository)
	assert.Equal(t, "build_failure", got.Entries[1].Outcome)
	assert.Equal(t, 137, got.Entries[2].ExitCode)
	assert.Equal(t, int64(1500), got.Entries[0].DurationMS)
}

func TestRenderMarkdownFingerprinted(t *testing.T) {
	data, err := NewWriter("Nightly").Render(sampleReport(t), FormatMarkdown)
	require.NoError(t, err)
	doc := string(data)

	require.True(t, strings.HasPrefix(doc, "---\n"))
	assert.Contains(t, doc, "run_id: run-42")
	assert.Contains(t, doc, mdfp.FingerprintField+":")
	ok, err := mdfp.VerifyFingerprint(doc)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Contains(t, doc, "# Nightly")
	assert.Contains(t, doc, `feature\|x`)
	assert.Contains(t, doc, "Build Failure")
	assert.Contains(t, doc, "## foo/bar@main: Internal Error")
	assert.Contains(t, doc, "````\nerror: broken link")
	assert.NotContains(t, doc, "## acme/site@main")
}

func TestRenderHTMLParses(t *testing.T) {
	data, err := NewWriter("Nightly <run>").Render(sampleReport(t), FormatHTML)
	require.NoError(t, err)

	doc, err := html.Parse(strings.NewReader(string(data)))
	require.NoError(t, err)

	var title string
	var rows int
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if n.FirstChild != nil {
					title = n.FirstChild.Data
				}
			case "tr":
				rows++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	assert.Equal(t, "Nightly <run>", title)
	assert.Equal(t, 4, rows, "header plus one row per entry")
}

func TestRenderEmpty(t *testing.T) {
	r := New("run-0")
	r.Finish()
	data, err := NewWriter("").Render(r, FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, string(data), "No branches were processed.")
}

func TestWriteAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")
	require.NoError(t, NewWriter("").Write(sampleReport(t), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assert.NoFileExists(t, path+".tmp")
}

func TestWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := NewWriter("").Write(sampleReport(t), filepath.Join(blocker, "report.md"))
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Success", Label(runner.OutcomeSuccess))
	assert.Equal(t, "Build Failure", Label(runner.OutcomeBuildFailure))
	assert.Equal(t, "Internal Error", Label(runner.OutcomeInternalError))
}

func TestRenderSkipReason(t *testing.T) {
	r := New("run-7")
	e := entry("acme/site", "main", runner.OutcomeSuccess)
	e.Skipped = true
	e.SkipReason = SkipNoCIFile
	require.NoError(t, r.Append(e))
	r.Finish()

	data, err := NewWriter("").Render(r, FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"skip_reason": "no_ci_file"`)

	md, err := NewWriter("").Render(r, FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, string(md), "(skipped: no ci file)")
}
