package enhancer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Command runs an external CLI. Arguments may contain {input}, {output}
// and {model}, for example:
//
//	ffmpeg -y -i {input} -af arnndn=m=/models/std.rnnn {output}
type Command struct {
	name string
	args []string
}

var _ Enhancer = (*Command)(nil)

// ParseCommand splits a whitespace separated command line.
func ParseCommand(line string) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.New("enhancer command is empty")
	}
	return &Command{name: fields[0], args: fields[1:]}, nil
}

func (c *Command) OutputExt() string { return "wav" }

func (c *Command) Enhance(ctx context.Context, req Request) error {
	r := strings.NewReplacer("{input}", req.InputPath, "{output}", req.OutputPath, "{model}", req.Model)
	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = r.Replace(a)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.name, args...)
	cmd.Stderr = &stderr

	req.report(5)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[len(msg)-512:]
		}
		return fmt.Errorf("%s: %w: %s", c.name, err, msg)
	}

	st, err := os.Stat(req.OutputPath)
	if err != nil {
		return fmt.Errorf("enhanced audio file not generated: %w", err)
	}
	if st.Size() == 0 {
		return errors.New("enhanced audio file is empty")
	}
	req.report(100)
	return nil
}
