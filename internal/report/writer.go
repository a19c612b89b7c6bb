package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/inful/mdfp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/runner"
	"git.home.luguber.info/inful/branchbuilder/internal/version"
)

// Format selects how a report is rendered.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
)

// FormatFor picks the format from the file extension. Unknown extensions render Markdown.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatMarkdown
	}
}

// SchemaVersion is bumped on incompatible changes to the JSON layout.
const SchemaVersion = 1

type entryView struct {
	Repository string         `json:"repository"`
	Branch     string         `json:"branch"`
	Kind       string         `json:"kind,omitempty"`
	Commit     string         `json:"commit"`
	Outcome    runner.Outcome `json:"outcome"`
	Skipped    bool           `json:"skipped"`
	SkipReason string         `json:"skip_reason,omitempty"`
	Published  bool           `json:"published"`
	ExitCode   int            `json:"exit_code"`
	DurationMS int64          `json:"duration_ms"`
	StartedAt  time.Time      `json:"started_at"`
	BuildDir   string         `json:"build_dir,omitempty"`
	Error      string         `json:"error,omitempty"`
	Output     string         `json:"output,omitempty"`
}

type reportView struct {
	SchemaVersion int         `json:"schema_version"`
	Version       string      `json:"branchbuilder_version"`
	RunID         string      `json:"run_id"`
	StartedAt     time.Time   `json:"started_at"`
	FinishedAt    time.Time   `json:"finished_at"`
	Summary       Summary     `json:"summary"`
	Entries       []entryView `json:"entries"`
}

func view(r *RunReport) reportView {
	entries := r.Entries()
	v := reportView{
		SchemaVersion: SchemaVersion,
		Version:       version.Version,
		RunID:         r.RunID(),
		StartedAt:     r.StartedAt(),
		FinishedAt:    r.FinishedAt(),
		Summary:       r.Summary(),
		Entries:       make([]entryView, 0, len(entries)),
	}
	for _, e := range entries {
		v.Entries = append(v.Entries, entryView{
			Repository: e.Branch.Repository.FullName(),
			Branch:     e.Branch.Name,
			Kind:       string(e.Branch.Kind),
			Commit:     e.Branch.HeadCommit,
			Outcome:    e.Outcome,
			Skipped:    e.Skipped,
			SkipReason: e.SkipReason,
			Published:  e.Published,
			ExitCode:   e.ExitCode,
			DurationMS: e.Duration.Milliseconds(),
			StartedAt:  e.StartedAt,
			BuildDir:   e.BuildDir,
			Error:      e.Error,
			Output:     e.Output,
		})
	}
	return v
}

// Writer renders run reports.
type Writer struct {
	title string
}

// NewWriter returns a Writer using title as the document heading.
func NewWriter(title string) *Writer {
	if title == "" {
		title = "Branch build report"
	}
	return &Writer{title: title}
}

// Render encodes r in format.
func (w *Writer) Render(r *RunReport, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(view(r), "", "  ")
	case FormatHTML:
		return w.renderHTML(r)
	default:
		return w.renderMarkdown(r)
	}
}

// Write renders r in the format implied by path and replaces path atomically.
func (w *Writer) Write(r *RunReport, path string) error {
	data, err := w.Render(r, FormatFor(path))
	if err != nil {
		return errors.InternalError("failed to render run report").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.FileSystemError("failed to create report directory").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.FileSystemError("failed to write run report").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.FileSystemError("failed to replace run report").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return nil
}

type frontMatter struct {
	Title      string    `yaml:"title"`
	RunID      string    `yaml:"run_id"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
	Version    string    `yaml:"branchbuilder_version"`
	Summary    Summary   `yaml:"summary"`
}

// renderMarkdown writes YAML front matter and a body, then stamps the
// document with a content fingerprint.
func (w *Writer) renderMarkdown(r *RunReport) ([]byte, error) {
	v := view(r)
	fm, err := yaml.Marshal(frontMatter{
		Title:      w.title,
		RunID:      v.RunID,
		StartedAt:  v.StartedAt,
		FinishedAt: v.FinishedAt,
		Version:    v.Version,
		Summary:    v.Summary,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal front matter: %w", err)
	}
	doc := "---\n" + string(fm) + "---\n\n" + w.markdownBody(v)
	stamped, err := mdfp.ProcessContent(doc)
	if err != nil {
		return nil, fmt.Errorf("fingerprint report: %w", err)
	}
	return []byte(stamped), nil
}

func (w *Writer) renderHTML(r *RunReport) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var body bytes.Buffer
	if err := md.Convert([]byte(w.markdownBody(view(r))), &body); err != nil {
		return nil, fmt.Errorf("render report html: %w", err)
	}
	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&out, "<title>%s</title>\n", html.EscapeString(w.title))
	out.WriteString("</head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

// Label turns an outcome name such as build_failure into "Build Failure".
// A Caser is stateful, so each call builds its own.
func Label(o runner.Outcome) string {
	return cases.Title(language.English).String(strings.ReplaceAll(o.String(), "_", " "))
}

func (w *Writer) markdownBody(v reportView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", w.title)
	fmt.Fprintf(&b, "Run `%s`: %d branches, %d success, %d build failure, %d internal error, %d skipped.\n\n",
		v.RunID, v.Summary.Total, v.Summary.Success, v.Summary.BuildFailure, v.Summary.InternalError, v.Summary.Skipped)

	if len(v.Entries) == 0 {
		b.WriteString("No branches were processed.\n")
		return b.String()
	}

	b.WriteString("| Repository | Branch | Commit | Outcome | Exit | Duration | Published |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, e := range v.Entries {
		outcome := Label(e.Outcome)
		if e.Skipped {
			outcome += " (skipped"
			if e.SkipReason != "" {
				outcome += ": " + strings.ReplaceAll(e.SkipReason, "_", " ")
			}
			outcome += ")"
		}
		fmt.Fprintf(&b, "| %s | %s | `%s` | %s | %d | %s | %t |\n",
			cell(e.Repository), cell(e.Branch), forge.ShortSHA(e.Commit), outcome, e.ExitCode,
			(time.Duration(e.DurationMS) * time.Millisecond).String(), e.Published)
	}

	for _, e := range v.Entries {
		if e.Outcome == runner.OutcomeSuccess {
			continue
		}
		fmt.Fprintf(&b, "\n## %s@%s: %s\n\n", e.Repository, e.Branch, Label(e.Outcome))
		if e.Error != "" {
			fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(e.Error))
		}
		if e.Output != "" {
			fence := fenceFor(e.Output)
			fmt.Fprintf(&b, "%s\n%s\n%s\n", fence, strings.TrimRight(e.Output, "\n"), fence)
		}
	}
	return b.String()
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}


// fenceFor returns a backtick fence longer than any backtick run in s.
func fenceFor(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}
