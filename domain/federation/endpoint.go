package federation

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint is a domain's connectivity descriptor for the data-plane
// tunnel: where to reach it and which overlay to join.
type Endpoint struct {
	IPAddress     string
	VXLANID       int
	VXLANPort     int
	FederationNet string // CIDR
}

// ParseEndpoint decodes the on-ledger wire form:
//
//	ip_address=<ip>;vxlan_id=<n>;vxlan_port=<n>;federation_net=<cidr>
func ParseEndpoint(s string) (Endpoint, error) {
	var e Endpoint
	parts := strings.Split(s, ";")
	if len(parts) != 4 {
		return Endpoint{}, fmt.Errorf("%w: endpoint %q", ErrMalformed, s)
	}

	for i, key := range []string{"ip_address", "vxlan_id", "vxlan_port", "federation_net"} {
		k, v, ok := strings.Cut(parts[i], "=")
		if !ok || k != key || v == "" {
			return Endpoint{}, fmt.Errorf("%w: endpoint %q", ErrMalformed, s)
		}
		switch key {
		case "ip_address":
			if net.ParseIP(v) == nil {
				return Endpoint{}, fmt.Errorf("%w: ip_address %q", ErrMalformed, v)
			}
			e.IPAddress = v
		case "vxlan_id":
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return Endpoint{}, fmt.Errorf("%w: vxlan_id %q", ErrMalformed, v)
			}
			e.VXLANID = n
		case "vxlan_port":
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 65535 {
				return Endpoint{}, fmt.Errorf("%w: vxlan_port %q", ErrMalformed, v)
			}
			e.VXLANPort = n
		case "federation_net":
			if _, _, err := net.ParseCIDR(v); err != nil {
				return Endpoint{}, fmt.Errorf("%w: federation_net %q", ErrMalformed, v)
			}
			e.FederationNet = v
		}
	}
	return e, nil
}

// Validate checks the struct the same way ParseEndpoint checks the
// wire form.
func (e Endpoint) Validate() error {
	_, err := ParseEndpoint(e.String())
	return err
}

func (e Endpoint) String() string {
	return fmt.Sprintf("ip_address=%s;vxlan_id=%d;vxlan_port=%d;federation_net=%s",
		e.IPAddress, e.VXLANID, e.VXLANPort, e.FederationNet)
}
