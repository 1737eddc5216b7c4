package deploy

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// KubeDeployer runs the federated workload as a Kubernetes
// Deployment and reports the first pod's cluster IP as the federated
// host. It shells out to kubectl against the node's kubeconfig, the
// k3s path by default.
type KubeDeployer struct {
	run        runner
	namespace  string
	kubeconfig string
	logger     *zap.Logger
}

func NewKubeDeployer(namespace, kubeconfig string, logger *zap.Logger) *KubeDeployer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if namespace == "" {
		namespace = "default"
	}
	if kubeconfig == "" {
		kubeconfig = "/etc/rancher/k3s/k3s.yaml"
	}
	return &KubeDeployer{
		run:        execRunner,
		namespace:  namespace,
		kubeconfig: kubeconfig,
		logger:     logger.With(zap.String("component", "kubernetes")),
	}
}

func (k *KubeDeployer) kubectl(ctx context.Context, args ...string) (string, error) {
	base := []string{"--kubeconfig", k.kubeconfig, "-n", k.namespace}
	return k.run(ctx, "kubectl", append(base, args...)...)
}

// Deploy creates the deployment, waits for the rollout, and resolves
// the first pod's IP.
func (k *KubeDeployer) Deploy(ctx context.Context, desc Descriptor) (string, error) {
	if err := desc.validate(); err != nil {
		return "", err
	}

	if _, err := k.kubectl(ctx, "create", "deployment", desc.Name,
		"--image", desc.Image,
		"--replicas", fmt.Sprintf("%d", desc.Replicas)); err != nil {
		return "", fmt.Errorf("create deployment: %w", err)
	}
	if _, err := k.kubectl(ctx, "rollout", "status",
		"deployment/"+desc.Name, "--timeout", "300s"); err != nil {
		return "", fmt.Errorf("rollout: %w", err)
	}

	host, err := k.kubectl(ctx, "get", "pods",
		"-l", "app="+desc.Name,
		"-o", "jsonpath={.items[0].status.podIP}")
	if err != nil {
		return "", fmt.Errorf("resolve federated host: %w", err)
	}
	if host == "" {
		return "", fmt.Errorf("deployment %s has no pod IP yet", desc.Name)
	}

	k.logger.Info("service deployed",
		zap.String("name", desc.Name),
		zap.Int("replicas", desc.Replicas),
		zap.String("federated_host", host))
	return host, nil
}

// Teardown deletes the deployment and lets the controller reap its
// pods.
func (k *KubeDeployer) Teardown(ctx context.Context, name string) error {
	_, err := k.kubectl(ctx, "delete", "deployment", name, "--ignore-not-found")
	return err
}
