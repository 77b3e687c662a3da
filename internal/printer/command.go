package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/taskspool/taskspool/internal/core"
)

// CommandPrinter hands the job payload to an external device-driver command
// as JSON on stdin. Rendering and transport to the physical printer stay
// inside that command.
type CommandPrinter struct {
	Path string
	Args []string
}

func NewCommandPrinter(command string) *CommandPrinter {
	parts := strings.Fields(command)
	cp := &CommandPrinter{Path: parts[0]}
	if len(parts) > 1 {
		cp.Args = parts[1:]
	}
	return cp
}

func (c *CommandPrinter) Print(ctx context.Context, job *core.Job) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = bytes.NewReader(payload)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			return fmt.Errorf("print command failed: %w", err)
		}
		return fmt.Errorf("print command failed: %w: %s", err, detail)
	}
	return nil
}
