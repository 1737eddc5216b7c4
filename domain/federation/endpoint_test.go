package federation

import (
	"errors"
	"testing"
)

func TestParseEndpointRoundTrip(t *testing.T) {
	e := Endpoint{
		IPAddress:     "192.168.56.104",
		VXLANID:       200,
		VXLANPort:     4789,
		FederationNet: "10.0.0.0/16",
	}
	parsed, err := ParseEndpoint(e.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != e {
		t.Errorf("round trip mismatch: %+v vs %+v", parsed, e)
	}
}

func TestParseEndpointRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"ip_address=192.168.1.1",
		"ip_address=not-an-ip;vxlan_id=200;vxlan_port=4789;federation_net=10.0.0.0/16",
		"ip_address=192.168.1.1;vxlan_id=abc;vxlan_port=4789;federation_net=10.0.0.0/16",
		"ip_address=192.168.1.1;vxlan_id=200;vxlan_port=99999;federation_net=10.0.0.0/16",
		"ip_address=192.168.1.1;vxlan_id=200;vxlan_port=4789;federation_net=10.0.0.0",
		"vxlan_id=200;ip_address=192.168.1.1;vxlan_port=4789;federation_net=10.0.0.0/16",
	}
	for _, s := range bad {
		if _, err := ParseEndpoint(s); !errors.Is(err, ErrMalformed) {
			t.Errorf("%q: expected ErrMalformed, got %v", s, err)
		}
	}
}

func TestSubnetForDomain(t *testing.T) {
	got, err := SubnetForDomain("10.0.0.0/16", 3, 24)
	if err != nil {
		t.Fatalf("subnet: %v", err)
	}
	if got != "10.0.3.0/24" {
		t.Errorf("got %s, want 10.0.3.0/24", got)
	}
}

func TestSubnetForDomainRejectsBadInputs(t *testing.T) {
	if _, err := SubnetForDomain("10.0.0.0", 1, 24); !errors.Is(err, ErrMalformed) {
		t.Errorf("missing prefix: expected ErrMalformed, got %v", err)
	}
	if _, err := SubnetForDomain("10.0.0.0/16", 300, 24); !errors.Is(err, ErrMalformed) {
		t.Errorf("octet overflow: expected ErrMalformed, got %v", err)
	}
}

func TestHostRange(t *testing.T) {
	got, err := HostRange("10.0.1.0/24")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if got != "10.0.1.1-10.0.1.254" {
		t.Errorf("got %s, want 10.0.1.1-10.0.1.254", got)
	}
}
