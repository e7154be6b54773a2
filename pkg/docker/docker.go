// Package docker wraps the docker CLI for parci taskfiles: throwaway
// networks, volumes, and containers with unique names and a process-wide
// cleanup registry.
package docker

import (
	"context"
	"encoding/base32"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	cleanupMu  sync.Mutex
	networks   = make(map[*Network]struct{})
	volumes    = make(map[*Volume]struct{})
	containers = make(map[*Container]struct{})
)

// CleanupAll removes every container, volume, and network spawned by this
// process that has not been cleaned up yet. Containers go first since
// volumes and networks cannot be removed while in use.
func CleanupAll(ctx context.Context) {
	cleanupMu.Lock()
	cs := make([]*Container, 0, len(containers))
	for c := range containers {
		cs = append(cs, c)
	}
	vs := make([]*Volume, 0, len(volumes))
	for v := range volumes {
		vs = append(vs, v)
	}
	ns := make([]*Network, 0, len(networks))
	for n := range networks {
		ns = append(ns, n)
	}
	cleanupMu.Unlock()

	for _, c := range cs {
		_ = c.Cleanup(ctx)
	}
	for _, v := range vs {
		_ = v.Cleanup(ctx)
	}
	for _, n := range ns {
		_ = n.Cleanup(ctx)
	}
}

// parciID generates a unique name for docker objects.
func parciID(prefix string) string {
	id := uuid.New()
	enc := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(id[:])
	return prefix + "-" + enc
}

func run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker %s: %w", strings.Join(args[:2], " "), err)
	}
	return nil
}

func runQuiet(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "docker", args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker %s: %w", strings.Join(args[:2], " "), err)
	}
	return nil
}

// Network is a throwaway docker network.
type Network struct {
	Name string
}

// NewNetwork creates a uniquely named docker network.
func NewNetwork(ctx context.Context) (*Network, error) {
	n := &Network{Name: parciID("parci-net")}
	if err := run(ctx, "network", "create", n.Name); err != nil {
		return nil, err
	}
	cleanupMu.Lock()
	networks[n] = struct{}{}
	cleanupMu.Unlock()
	return n, nil
}

// Cleanup removes the network.
func (n *Network) Cleanup(ctx context.Context) error {
	err := runQuiet(ctx, "network", "remove", n.Name)
	cleanupMu.Lock()
	delete(networks, n)
	cleanupMu.Unlock()
	return err
}

// Volume is a throwaway docker volume.
type Volume struct {
	Name string
}

// NewVolume creates a uniquely named docker volume.
func NewVolume(ctx context.Context) (*Volume, error) {
	v := &Volume{Name: parciID("parci-vol")}
	if err := run(ctx, "volume", "create", v.Name); err != nil {
		return nil, err
	}
	cleanupMu.Lock()
	volumes[v] = struct{}{}
	cleanupMu.Unlock()
	return v, nil
}

// Cleanup removes the volume.
func (v *Volume) Cleanup(ctx context.Context) error {
	err := runQuiet(ctx, "volume", "remove", v.Name)
	cleanupMu.Lock()
	delete(volumes, v)
	cleanupMu.Unlock()
	return err
}
