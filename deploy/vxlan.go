package deploy

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// VXLANTunneler wires the inter-domain overlay with iproute2 and a
// matching Docker bridge network, the same three moving parts the
// federation scripts manage on each host.
type VXLANTunneler struct {
	run    runner
	logger *zap.Logger
}

func NewVXLANTunneler(logger *zap.Logger) *VXLANTunneler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VXLANTunneler{
		run:    execRunner,
		logger: logger.With(zap.String("component", "vxlan")),
	}
}

func (v *VXLANTunneler) Establish(ctx context.Context, t Tunnel) error {
	link := fmt.Sprintf("vxlan%d", t.VXLANID)

	if _, err := v.run(ctx, "ip", "link", "add", link, "type", "vxlan",
		"id", fmt.Sprintf("%d", t.VXLANID),
		"local", t.LocalIP,
		"remote", t.RemoteIP,
		"dev", t.Interface,
		"dstport", fmt.Sprintf("%d", t.VXLANPort)); err != nil {
		return err
	}
	if _, err := v.run(ctx, "ip", "link", "set", link, "up"); err != nil {
		return err
	}
	if _, err := v.run(ctx, "docker", "network", "create",
		"--driver", "bridge",
		"--subnet", t.Subnet,
		"--ip-range", t.IPRange,
		t.NetworkName); err != nil {
		return err
	}

	v.logger.Info("tunnel established",
		zap.String("link", link),
		zap.String("remote", t.RemoteIP),
		zap.String("ip_range", t.IPRange))
	return nil
}

func (v *VXLANTunneler) Teardown(ctx context.Context, t Tunnel) error {
	link := fmt.Sprintf("vxlan%d", t.VXLANID)
	if _, err := v.run(ctx, "ip", "link", "del", link); err != nil {
		return err
	}
	if _, err := v.run(ctx, "docker", "network", "rm", t.NetworkName); err != nil {
		return err
	}
	return nil
}
