package runner

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/fgeck/dbprobe/internal/models"
	"github.com/fgeck/dbprobe/internal/services/inspect"
)

// Separator underlines every report section.
const Separator = "====================================="

// Reporter renders human readable probe output.
// Each call writes one complete block so concurrent probes never interleave lines.
type Reporter struct {
	mu   sync.Mutex
	out  io.Writer
	ok   *color.Color
	fail *color.Color
	bold *color.Color
}

// NewReporter creates a Reporter writing to out. noColor disables ANSI escapes.
func NewReporter(out io.Writer, noColor bool) *Reporter {
	r := &Reporter{
		out:  out,
		ok:   color.New(color.FgGreen),
		fail: color.New(color.FgRed),
		bold: color.New(color.Bold),
	}
	if noColor {
		r.ok.DisableColor()
		r.fail.DisableColor()
		r.bold.DisableColor()
	}
	return r
}

func (r *Reporter) write(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.out, s)
}

// Section prints a heading followed by the separator.
func (r *Reporter) Section(title string) {
	r.write(r.bold.Sprint(title) + "\n" + Separator + "\n")
}

// Start announces a probe attempt before it connects.
func (r *Reporter) Start(backend models.Backend) {
	r.write(startLine(backend))
}

// Outcome prints the result of an attempt announced with Start.
func (r *Reporter) Outcome(res *models.ProbeResult) {
	r.write(r.outcomeLines(res))
}

// Attempt prints the announcement and result of an attempt as one block.
// Used when probes run concurrently.
func (r *Reporter) Attempt(res *models.ProbeResult) {
	r.write(startLine(res.Backend) + r.outcomeLines(res))
}

func startLine(backend models.Backend) string {
	return fmt.Sprintf("\nTesting %s connection...\n", backend.DisplayName())
}

func (r *Reporter) outcomeLines(res *models.ProbeResult) string {
	var b strings.Builder
	name := res.Backend.DisplayName()

	if res.Success {
		fmt.Fprintf(&b, "%s %s: Connected successfully\n", r.ok.Sprint("✓"), name)
		if res.Version != "" {
			fmt.Fprintf(&b, "  - Version: %s\n", res.Version)
		}
		if !res.ServerTime.IsZero() {
			fmt.Fprintf(&b, "  - Current time: %s\n", res.ServerTime.Format("2006-01-02 15:04:05 MST"))
		}
	} else {
		fmt.Fprintf(&b, "%s %s: Connection failed\n", r.fail.Sprint("✗"), name)
		fmt.Fprintf(&b, "   Error: %s\n", res.Message)
	}

	return b.String()
}

// Summary prints per-backend status, success rate and elapsed time.
func (r *Reporter) Summary(summary *models.RunSummary) {
	var b strings.Builder

	b.WriteString("\n" + r.bold.Sprint("Test Results Summary") + "\n" + Separator + "\n")
	for _, res := range summary.Results {
		status := r.ok.Sprint("Connected")
		if !res.Success {
			status = r.fail.Sprint("Failed")
		}
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(string(res.Backend)), status)
	}

	fmt.Fprintf(&b, "\nSuccess Rate: %d/%d (%d%%)\n", summary.SuccessCount(), summary.Total(), summary.SuccessRate())
	fmt.Fprintf(&b, "Total Time: %dms\n", summary.Duration.Milliseconds())

	r.write(b.String())
}

// Tips prints a troubleshooting hint per failed backend, followed by any
// inspection output collected for it.
func (r *Reporter) Tips(failed []models.Backend, inspections map[models.Backend]*models.InspectResult) {
	if len(failed) == 0 {
		return
	}

	var b strings.Builder
	b.WriteString("\n" + r.bold.Sprint("Troubleshooting Tips:") + "\n" + Separator + "\n")
	for _, backend := range failed {
		fmt.Fprintf(&b, "- Check %s: %s\n", backend.DisplayName(), inspect.HintCommand(backend))
		if ins, ok := inspections[backend]; ok {
			writeInspection(&b, ins)
		}
	}
	b.WriteString("- Restart failed containers: docker restart <container_name>\n")

	r.write(b.String())
}

func writeInspection(b *strings.Builder, ins *models.InspectResult) {
	if ins.Error != nil {
		fmt.Fprintf(b, "    inspection failed: %v\n", ins.Error)
		return
	}
	for _, line := range strings.Split(ins.Output, "\n") {
		fmt.Fprintf(b, "    %s\n", line)
	}
}

// Verdict prints the closing line of a full run.
func (r *Reporter) Verdict(allPassed bool) {
	if allPassed {
		r.write("\n" + r.ok.Sprint("All databases are connected and working properly!") + "\n")
		return
	}
	r.write("\n" + r.fail.Sprint("Some database connections failed. Check Docker containers and configurations.") + "\n")
}

// UnknownBackend prints the rejection for an unrecognized backend name.
func (r *Reporter) UnknownBackend(name string) {
	r.write(fmt.Sprintf("%s Unknown database: %s\nAvailable: %s\n",
		r.fail.Sprint("✗"), name, strings.Join(models.AvailableNames(), ", ")))
}
