package docker

import (
	"context"
	"fmt"
	"os"
	"sort"
)

// RunOptions configures `docker container run`.
type RunOptions struct {
	Image       string
	Command     []string
	Entrypoint  string
	Network     string            // network name, typically Network.Name
	Alias       string            // --network-alias
	Env         map[string]string // passed via a temporary env-file
	Workdir     string
	Volumes     map[string]string // volume name or host path → mount point
	User        string
	Privileged  bool
	Detach      bool
	TTY         bool
	Interactive bool
}

// ExecOptions configures `docker container exec`.
type ExecOptions struct {
	Command     []string
	Shell       string // when set, runs Command[0] through `<shell> -c`
	Env         map[string]string
	Workdir     string
	User        string
	Privileged  bool
	Detach      bool
	TTY         bool
	Interactive bool
}

// Container is a docker container started by Run.
type Container struct {
	Name string
}

// Run starts a uniquely named container. The environment is passed
// through a temporary env-file so values never appear in the process
// argument list.
func Run(ctx context.Context, opts RunOptions) (*Container, error) {
	if opts.Image == "" {
		return nil, fmt.Errorf("docker run: image is required")
	}
	c := &Container{Name: parciID("parci-ctnr")}
	args := []string{"container", "run", "--name=" + c.Name}

	if opts.Detach {
		args = append(args, "--detach")
	}
	if opts.Privileged {
		args = append(args, "--privileged")
	}
	if opts.TTY {
		args = append(args, "--tty")
	}
	if opts.Interactive {
		args = append(args, "--interactive")
	}

	envFile, cleanup, err := writeEnvFile(opts.Env)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	args = append(args, "--env-file="+envFile)

	if opts.Alias != "" {
		args = append(args, "--network-alias="+opts.Alias)
	}
	if opts.Entrypoint != "" {
		args = append(args, "--entrypoint="+opts.Entrypoint)
	}
	if opts.Workdir != "" {
		args = append(args, "--workdir="+opts.Workdir)
	}
	for _, src := range sortedKeys(opts.Volumes) {
		args = append(args, fmt.Sprintf("--volume=%s:%s", src, opts.Volumes[src]))
	}
	if opts.Network != "" {
		args = append(args, "--network="+opts.Network)
	}
	if opts.User != "" {
		args = append(args, "--user="+opts.User)
	}

	args = append(args, opts.Image)
	args = append(args, opts.Command...)

	cleanupMu.Lock()
	containers[c] = struct{}{}
	cleanupMu.Unlock()

	if err := run(ctx, args...); err != nil {
		return c, err
	}
	return c, nil
}

// Exec runs a command inside the container.
func (c *Container) Exec(ctx context.Context, opts ExecOptions) error {
	args := []string{"container", "exec"}

	if opts.Detach {
		args = append(args, "--detach")
	}
	if opts.Privileged {
		args = append(args, "--privileged")
	}
	if opts.Interactive {
		args = append(args, "--interactive")
	}
	if opts.TTY {
		args = append(args, "--tty")
	}
	if opts.User != "" {
		args = append(args, "--user="+opts.User)
	}
	if opts.Workdir != "" {
		args = append(args, "--workdir="+opts.Workdir)
	}

	if len(opts.Env) > 0 {
		envFile, cleanup, err := writeEnvFile(opts.Env)
		if err != nil {
			return err
		}
		defer cleanup()
		args = append(args, "--env-file="+envFile)
	}

	args = append(args, c.Name)
	if opts.Shell != "" {
		if len(opts.Command) != 1 {
			return fmt.Errorf("docker exec: shell mode takes exactly one command string")
		}
		args = append(args, opts.Shell, "-c", opts.Command[0])
	} else {
		args = append(args, opts.Command...)
	}
	return run(ctx, args...)
}

// Stop stops the container.
func (c *Container) Stop(ctx context.Context) error {
	return runQuiet(ctx, "container", "stop", c.Name)
}

// Start starts a stopped container.
func (c *Container) Start(ctx context.Context) error {
	return runQuiet(ctx, "container", "start", c.Name)
}

// Wait blocks until the container exits.
func (c *Container) Wait(ctx context.Context) error {
	return runQuiet(ctx, "container", "wait", c.Name)
}

// Remove removes the container.
func (c *Container) Remove(ctx context.Context) error {
	return runQuiet(ctx, "container", "rm", c.Name)
}

// Cleanup stops, waits for, and removes the container, ignoring
// intermediate errors so a dead container still gets removed.
func (c *Container) Cleanup(ctx context.Context) error {
	_ = c.Stop(ctx)
	_ = c.Wait(ctx)
	err := c.Remove(ctx)
	cleanupMu.Lock()
	delete(containers, c)
	cleanupMu.Unlock()
	return err
}

// Env starts a long-lived background container with the current working
// directory mounted, for running build steps with Exec. The image must
// have /bin/sh.
func Env(ctx context.Context, image string, opts RunOptions) (*Container, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("docker env: %w", err)
	}
	opts.Image = image
	opts.Entrypoint = "/bin/sh"
	opts.Command = []string{"-c", "bye () { exit 0; }; trap bye TERM; read BLAH"}
	opts.Interactive = true
	opts.Detach = true
	opts.Workdir = wd
	if opts.User == "" {
		opts.User = fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())
	}
	if opts.Volumes == nil {
		opts.Volumes = make(map[string]string)
	}
	opts.Volumes[wd] = wd
	return Run(ctx, opts)
}

func writeEnvFile(env map[string]string) (string, func(), error) {
	f, err := os.CreateTemp("", "parci-env-")
	if err != nil {
		return "", nil, fmt.Errorf("create env file: %w", err)
	}
	for _, k := range sortedKeys(env) {
		fmt.Fprintf(f, "%s=%s\n", k, env[k])
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", nil, fmt.Errorf("write env file: %w", err)
	}
	return f.Name(), func() { _ = os.Remove(f.Name()) }, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
