package deploy

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Descriptor tells a deployment backend what to materialize.
type Descriptor struct {
	Name     string
	Image    string
	Replicas int
	Network  string
	Env      map[string]string
}

func (d Descriptor) validate() error {
	if d.Name == "" || d.Image == "" {
		return fmt.Errorf("descriptor needs a name and an image: %+v", d)
	}
	if d.Replicas < 1 {
		return fmt.Errorf("descriptor needs at least one replica: %+v", d)
	}
	return nil
}

// Deployer materializes a federated service and reports the address
// it is reachable at inside the federation overlay.
type Deployer interface {
	Deploy(ctx context.Context, d Descriptor) (federatedHost string, err error)
	Teardown(ctx context.Context, name string) error
}

// Tunnel describes one VXLAN leg between two domains.
type Tunnel struct {
	LocalIP     string
	RemoteIP    string
	Interface   string
	VXLANID     int
	VXLANPort   int
	Subnet      string
	IPRange     string
	NetworkName string
}

// Tunneler wires and unwires the data-plane overlay.
type Tunneler interface {
	Establish(ctx context.Context, t Tunnel) error
	Teardown(ctx context.Context, t Tunnel) error
}

// runner executes one external command and returns its combined
// output. Swapped for a fake in tests.
type runner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		return trimmed, fmt.Errorf("%s %s: %v: %s", name, strings.Join(args, " "), err, trimmed)
	}
	return trimmed, nil
}
