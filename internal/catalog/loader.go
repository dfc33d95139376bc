package catalog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultBinary  = "opencode"
	DefaultTimeout = 30 * time.Second
	DefaultTTL     = 10 * time.Minute
)

// DefaultArgs asks opencode for the verbose catalog.
var DefaultArgs = []string{"models", "--verbose"}

var headerPattern = regexp.MustCompile(`(?i)^[a-z0-9-]+/[a-z0-9-.:/]+$`)

// Parse reads `opencode models --verbose` output: a provider/model header
// line followed by a JSON object. Malformed blocks are skipped.
func Parse(output []byte) []Model {
	models := make([]Model, 0)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		header string
		buf    strings.Builder
		depth  int
	)
	for scanner.Scan() {
		line := scanner.Text()
		if depth == 0 && headerPattern.MatchString(line) {
			header = strings.TrimSpace(line)
			buf.Reset()
			continue
		}
		if header == "" {
			continue
		}

		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)

		if depth == 0 && buf.Len() > 0 {
			if model, ok := decodeBlock(header, buf.String()); ok {
				models = append(models, model)
			}
			header = ""
			buf.Reset()
		}
	}
	return models
}

func decodeBlock(header, block string) (Model, bool) {
	var model Model
	if err := json.Unmarshal([]byte(block), &model); err != nil {
		return Model{}, false
	}
	model.ModelID = model.ID
	model.ID = header
	return model, true
}

// Runner executes an external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- binary and args come from config
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Cache stores snapshots between runs.
type Cache interface {
	GetCatalog(ctx context.Context, key string) (*Snapshot, error)
	PutCatalog(ctx context.Context, key string, snapshot *Snapshot, ttl time.Duration) error
}

// Loader fetches and caches the catalog.
type Loader struct {
	Runner   Runner
	Binary   string
	Args     []string
	Timeout  time.Duration
	Cache    Cache
	CacheTTL time.Duration
}

// LoadError explains a failed catalog run.
type LoadError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *LoadError) Error() string {
	parts := []string{
		fmt.Sprintf("Failed to run %q.", e.Command),
		"",
		"Possible causes:",
		"  1. OpenCode is not installed",
		"  2. OpenCode is not in your PATH",
		"  3. OpenCode failed to start due to a configuration/plugin error (common: ProviderModelNotFoundError)",
		"",
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		parts = append(parts, "OpenCode error output:", stderr, "")
	}
	parts = append(parts,
		"To fix:",
		"  - Verify installation: opencode --version",
		"  - Try: opencode models",
		"  - If you recently changed providers/models, your config may reference a model that no longer exists.",
	)
	return strings.Join(parts, "\n")
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrEmptyCatalog is returned when opencode lists no models.
var ErrEmptyCatalog = errors.New("opencode returned no models")

func (l *Loader) command() (string, []string) {
	binary := l.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	args := l.Args
	if len(args) == 0 {
		args = DefaultArgs
	}
	return binary, args
}

func (l *Loader) cacheKey() string {
	binary, args := l.command()
	return strings.Join(append([]string{binary}, args...), " ")
}

// Load returns the catalog, from cache unless refresh is set. Cache errors
// are not fatal.
func (l *Loader) Load(ctx context.Context, refresh bool) (*Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	key := l.cacheKey()

	if l.Cache != nil && !refresh {
		if cached, err := l.Cache.GetCatalog(ctx, key); err == nil && cached != nil && len(cached.Models) > 0 {
			cached.FromCache = true
			return cached, nil
		}
	}

	snapshot, err := l.run(ctx)
	if err != nil {
		return nil, err
	}

	if l.Cache != nil {
		ttl := l.CacheTTL
		if ttl <= 0 {
			ttl = DefaultTTL
		}
		_ = l.Cache.PutCatalog(ctx, key, snapshot, ttl)
	}
	return snapshot, nil
}

func (l *Loader) run(ctx context.Context) (*Snapshot, error) {
	runner := l.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	binary, args := l.command()
	stdout, stderr, err := runner.Run(runCtx, binary, args...)
	if err != nil {
		return nil, &LoadError{
			Command: strings.Join(append([]string{binary}, args...), " "),
			Stderr:  string(stderr),
			Err:     err,
		}
	}

	models := Parse(stdout)
	if len(models) == 0 {
		return nil, ErrEmptyCatalog
	}
	return NewSnapshot(models), nil
}
