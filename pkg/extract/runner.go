package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// CommandRunner abstracts external binary invocation so extraction
// paths that shell out (pdftotext, tesseract) can be tested without the
// binaries installed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%s: %v: %s", name, err, stderr.String())
		}
		return nil, fmt.Errorf("%s: %v", name, err)
	}

	return stdout.Bytes(), nil
}
