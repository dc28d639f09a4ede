package sasstrue

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Compiler turns SCSS source into CSS.
type Compiler interface {
	Compile(ctx context.Context, src []byte, loadPaths []string) ([]byte, error)
}

// ExecCompiler runs an external Sass binary (dart-sass command line
// interface) reading the source from stdin.
type ExecCompiler struct {
	// Binary is the sass executable. Defaults to "sass".
	Binary string
}

// CompileError is returned when the Sass compiler rejects a fixture.
type CompileError struct {
	Binary string
	Stderr string
	Err    error
}

func (e *CompileError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Binary, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Binary, e.Err, e.Stderr)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Compile implements Compiler.
func (c ExecCompiler) Compile(ctx context.Context, src []byte, loadPaths []string) ([]byte, error) {
	binary := c.Binary
	if binary == "" {
		binary = "sass"
	}

	args := []string{"--stdin", "--no-source-map"}
	for _, p := range loadPaths {
		args = append(args, "--load-path="+p)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = bytes.NewReader(src)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &CompileError{
			Binary: binary,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.Bytes(), nil
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(ctx context.Context, src []byte, loadPaths []string) ([]byte, error)

// Compile implements Compiler.
func (f CompilerFunc) Compile(ctx context.Context, src []byte, loadPaths []string) ([]byte, error) {
	return f(ctx, src, loadPaths)
}
