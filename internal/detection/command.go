package detection

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/birdnet-ingest/internal/errors"
)

const maxStderrInError = 512

// CommandEngine runs a classifier executable and parses JSON from stdout.
// Args may reference {input}, {lat}, {lon}, {date}, {week} and {min_conf}.
type CommandEngine struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

func (e *CommandEngine) Name() string { return "command" }

// Analyze runs the command and returns its result objects.
func (e *CommandEngine) Analyze(ctx context.Context, req Request) ([]*jason.Object, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := expandArgs(e.Args, req)
	cmd := exec.CommandContext(ctx, e.Path, args...) //nolint:gosec // G204: path and args come from validated settings

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		category := errors.CategoryCommand
		if ctx.Err() != nil {
			category = errors.CategoryTimeout
		}
		return nil, errors.New(fmt.Errorf("classifier command failed: %w (stderr: %s)", err, tail(stderr.String()))).
			Component("detection").
			Category(category).
			Context("command", e.Path).
			Context("audio_path", req.AudioPath).
			Build()
	}

	results, err := ParseResults(stdout.Bytes())
	if err != nil {
		return nil, errors.New(err).
			Component("detection").
			Category(errors.CategoryAudioAnalysis).
			Context("command", e.Path).
			Context("output_bytes", stdout.Len()).
			Build()
	}
	return results, nil
}

// expandArgs substitutes request values into the argument templates.
// Missing coordinates expand to an empty string.
func expandArgs(templates []string, req Request) []string {
	replacer := strings.NewReplacer(
		"{input}", req.AudioPath,
		"{lat}", formatCoord(req.Lat),
		"{lon}", formatCoord(req.Lon),
		"{date}", req.RecordedAt.Format(time.DateOnly),
		"{week}", strconv.Itoa(BirdNETWeek(req.RecordedAt)),
		"{min_conf}", strconv.FormatFloat(req.MinConfidence, 'f', -1, 64),
	)
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = replacer.Replace(t)
	}
	return out
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrInError {
		return "..." + s[len(s)-maxStderrInError:]
	}
	return s
}
