package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
)

// MediaProbeError marks failures that come from the media itself (corrupt
// container, unsupported codec) rather than the environment. The failure
// classifier treats it as bad_media.
type MediaProbeError struct {
	Detail string
}

func (e *MediaProbeError) Error() string { return e.Detail }

// Tools shells out to ffprobe, mirroring how the rest of the media stack drives
// system binaries. The binary path is a field so tests can point it elsewhere.
type Tools struct {
	FfprobePath string
}

func New() *Tools {
	return &Tools{FfprobePath: "ffprobe"}
}

// Probe returns ffprobe's full JSON document (format + streams) for the file.
func (t *Tools) Probe(ctx context.Context, path string) (map[string]any, error) {
	cmd := exec.CommandContext(ctx, t.FfprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = "ffprobe_failed"
		}
		return nil, &MediaProbeError{Detail: detail}
	}

	var metadata map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &metadata); err != nil {
		return nil, &MediaProbeError{Detail: "ffprobe_invalid_json"}
	}
	return metadata, nil
}
