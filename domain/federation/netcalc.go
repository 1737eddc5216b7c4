package federation

import (
	"fmt"
	"net"
	"strings"
)

// SubnetForDomain carves a /24 for one domain out of the shared
// federation net by writing the domain's numeric id into the third
// octet. Both sides derive their slice independently and never
// collide as long as ids differ.
func SubnetForDomain(federationNet string, domainID int, prefixLen int) (string, error) {
	ip, _, ok := strings.Cut(federationNet, "/")
	if !ok {
		return "", fmt.Errorf("%w: cidr %q", ErrMalformed, federationNet)
	}
	octets := strings.Split(ip, ".")
	if len(octets) != 4 {
		return "", fmt.Errorf("%w: cidr %q", ErrMalformed, federationNet)
	}
	if domainID < 0 || domainID > 255 {
		return "", fmt.Errorf("%w: domain id %d out of octet range", ErrMalformed, domainID)
	}
	octets[2] = fmt.Sprintf("%d", domainID)
	return fmt.Sprintf("%s/%d", strings.Join(octets, "."), prefixLen), nil
}

// HostRange returns the usable "first-last" address range of a
// subnet, skipping the network and broadcast addresses.
func HostRange(subnet string) (string, error) {
	_, network, err := net.ParseCIDR(subnet)
	if err != nil {
		return "", fmt.Errorf("%w: subnet %q", ErrMalformed, subnet)
	}

	first := make(net.IP, len(network.IP))
	copy(first, network.IP)
	incIP(first)

	last := broadcast(network)
	decIP(last)

	return fmt.Sprintf("%s-%s", first, last), nil
}

func broadcast(n *net.IPNet) net.IP {
	ip := make(net.IP, len(n.IP))
	for i := range n.IP {
		ip[i] = n.IP[i] | ^n.Mask[i]
	}
	return ip
}

func incIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			return
		}
	}
}

func decIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]--
		if ip[i] != 255 {
			return
		}
	}
}
