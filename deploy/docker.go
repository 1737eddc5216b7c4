package deploy

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DockerDeployer runs the federated workload as plain containers on
// the local engine, attached to the federation overlay network.
type DockerDeployer struct {
	run    runner
	logger *zap.Logger
}

func NewDockerDeployer(logger *zap.Logger) *DockerDeployer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DockerDeployer{
		run:    execRunner,
		logger: logger.With(zap.String("component", "docker")),
	}
}

// Deploy starts Replicas containers named <name>-1..<name>-N and
// returns the overlay address of the first one.
func (d *DockerDeployer) Deploy(ctx context.Context, desc Descriptor) (string, error) {
	if err := desc.validate(); err != nil {
		return "", err
	}

	for i := 1; i <= desc.Replicas; i++ {
		args := []string{"run", "-d", "--name", fmt.Sprintf("%s-%d", desc.Name, i)}
		if desc.Network != "" {
			args = append(args, "--network", desc.Network)
		}
		for k, v := range desc.Env {
			args = append(args, "-e", fmt.Sprintf("%s=%s", k, v))
		}
		// No command override: the image's default entrypoint is the
		// service being federated.
		args = append(args, desc.Image)

		if _, err := d.run(ctx, "docker", args...); err != nil {
			return "", fmt.Errorf("start replica %d: %w", i, err)
		}
	}

	host, err := d.run(ctx, "docker", "inspect", "-f",
		"{{range .NetworkSettings.Networks}}{{.IPAddress}}{{end}}",
		fmt.Sprintf("%s-1", desc.Name))
	if err != nil {
		return "", fmt.Errorf("resolve federated host: %w", err)
	}
	if host == "" {
		return "", fmt.Errorf("container %s-1 has no address on network %q", desc.Name, desc.Network)
	}

	d.logger.Info("service deployed",
		zap.String("name", desc.Name),
		zap.Int("replicas", desc.Replicas),
		zap.String("federated_host", host))
	return host, nil
}

// Teardown removes every container created for the service name.
func (d *DockerDeployer) Teardown(ctx context.Context, name string) error {
	out, err := d.run(ctx, "docker", "ps", "-a", "--format", "{{.Names}}", "--filter", "name="+name)
	if err != nil {
		return err
	}
	for _, cname := range strings.Fields(out) {
		if _, err := d.run(ctx, "docker", "rm", "-f", cname); err != nil {
			return err
		}
	}
	return nil
}
