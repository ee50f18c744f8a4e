package httpdiff

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"httpdiff/internal/apperr"
)

// RunExternalProcess spawns argv with piped stdio, streams input to the
// child's stdin when provided, and returns the captured stdout. A non-zero
// exit surfaces the child's stderr verbatim as a validation error. The same
// primitive backs both request builders and response processors; callers
// bound its concurrency through the thread semaphore.
func RunExternalProcess(ctx context.Context, argv []string, input string, hasInput bool) (string, error) {
	if len(argv) == 0 {
		return "", apperr.New(apperr.ValidationError, "external command is empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	if hasInput {
		cmd.Stdin = strings.NewReader(input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", apperr.Wrap(apperr.ValidationError, err, "failed to spawn %q", argv[0])
	}

	if err := cmd.Wait(); err != nil {
		if _, isExit := err.(*exec.ExitError); isExit {
			return "", apperr.New(apperr.ValidationError, "external command failed:\n%s", stderr.String())
		}
		return "", apperr.Wrap(apperr.ValidationError, err, "external command %q", argv[0])
	}

	return stdout.String(), nil
}
