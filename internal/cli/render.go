package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/claimcheck/internal/model"
)

const rule = "═══════════════════════════════════════════════════════════"

var verdictMarks = map[model.Verdict]string{
	model.VerdictSupported:    "✓",
	model.VerdictRefuted:      "✗",
	model.VerdictInsufficient: "?",
	model.VerdictConflicting:  "!",
}

// renderText writes a human-readable report
func renderText(w io.Writer, report *model.FinalReport) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "  Fact-Check Complete")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	for _, claim := range report.VerifiedClaims {
		fmt.Fprintf(w, "%s %s\n", verdictMarks[claim.Result], claim.Result)
		fmt.Fprintf(w, "  Claim:     %s\n", claim.Text)
		fmt.Fprintf(w, "  Reasoning: %s\n", claim.Reasoning)
		if len(claim.Sources) == 0 {
			fmt.Fprintf(w, "  Sources:   No sources found.\n")
		} else {
			fmt.Fprintf(w, "  Sources:\n")
			for _, s := range claim.Sources {
				fmt.Fprintf(w, "    - %s\n", sourceLabel(s))
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary: %s\n", report.Summary)
	fmt.Fprintf(w, "Stats:   %.1f%% supported, %.1f%% refuted, %.1f%% insufficient, %.1f%% conflicting\n",
		report.Stats.Supported, report.Stats.Refuted, report.Stats.Insufficient, report.Stats.Conflicting)
}

// renderFailure writes the panel shown when no complete report is available
func renderFailure(w io.Writer) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "  Error")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Could not generate a complete report. The claim might be empty or invalid.")
}

func sourceLabel(s model.Source) string {
	label := s.URL
	if s.Title != "" {
		label = fmt.Sprintf("%s <%s>", s.Title, s.URL)
	}
	if s.Authority != model.TierUnknown {
		label += fmt.Sprintf(" [%s]", s.Authority)
	}
	return label
}

// renderMarkdown writes the report as a Markdown document
func renderMarkdown(w io.Writer, report *model.FinalReport) {
	fmt.Fprintf(w, "# Fact-Check Report\n\n")
	fmt.Fprintf(w, "%s\n\n", report.Summary)

	fmt.Fprintf(w, "| Outcome | Share |\n|---|---|\n")
	fmt.Fprintf(w, "| Supported | %.1f%% |\n", report.Stats.Supported)
	fmt.Fprintf(w, "| Refuted | %.1f%% |\n", report.Stats.Refuted)
	fmt.Fprintf(w, "| Insufficient Information | %.1f%% |\n", report.Stats.Insufficient)
	fmt.Fprintf(w, "| Conflicting | %.1f%% |\n\n", report.Stats.Conflicting)

	for i, claim := range report.VerifiedClaims {
		fmt.Fprintf(w, "## %d. %s\n\n", i+1, claim.Text)
		fmt.Fprintf(w, "**Result:** %s\n\n", claim.Result)
		fmt.Fprintf(w, "%s\n\n", claim.Reasoning)
		if claim.OriginalSentence != "" && claim.OriginalSentence != claim.Text {
			fmt.Fprintf(w, "> %s\n\n", claim.OriginalSentence)
		}
		for _, s := range claim.Sources {
			title := s.Title
			if title == "" {
				title = s.URL
			}
			fmt.Fprintf(w, "- [%s](%s)\n", title, s.URL)
		}
		if len(claim.Sources) > 0 {
			fmt.Fprintln(w)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// writeFile renders into path, creating parent directories
func writeFile(path string, render func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "create output directory")
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create output file")
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = eris.Wrap(closeErr, "close output file")
		}
	}()

	return render(f)
}

// sanitizeFilename turns arbitrary text into a short, safe file name stem
func sanitizeFilename(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteRune('-')
			lastDash = true
		}
		if b.Len() >= 60 {
			break
		}
	}

	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "input"
	}
	return out
}
