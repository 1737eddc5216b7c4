package federation

import (
	"errors"
	"testing"
)

func TestParseRequirementsRoundTrip(t *testing.T) {
	r := Requirements{ServiceType: "alpine", Replicas: 2, BandwidthMbps: 100, LatencyMs: 20}
	parsed, err := ParseRequirements(r.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != r {
		t.Errorf("round trip mismatch: %+v vs %+v", parsed, r)
	}
}

func TestParseRequirementsMinimal(t *testing.T) {
	r, err := ParseRequirements("service=alpine;replicas=1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.ServiceType != "alpine" || r.Replicas != 1 {
		t.Errorf("unexpected parse result: %+v", r)
	}
	if r.BandwidthMbps != 0 || r.LatencyMs != 0 || r.CPUCores != 0 || r.RAMMb != 0 {
		t.Errorf("unset fields should stay zero: %+v", r)
	}
}

func TestParseRequirementsRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"service=alpine",
		"replicas=1",
		"service=;replicas=1",
		"service=alpine;replicas=zero",
		"service=alpine;replicas=0",
		"service=alpine;replicas=1;flavor=large",
		"service=alpine;replicas=1;replicas=2",
		"service=bad image;replicas=1",
	}
	for _, s := range bad {
		if _, err := ParseRequirements(s); !errors.Is(err, ErrMalformed) {
			t.Errorf("%q: expected ErrMalformed, got %v", s, err)
		}
	}
}

func TestCapabilitySatisfies(t *testing.T) {
	cap := Capability{
		ServiceTypes:  []string{"alpine", "nginx"},
		BandwidthMbps: 1000,
		LatencyMs:     10,
		CPUCores:      8,
		RAMMb:         16384,
	}

	cases := []struct {
		name string
		req  Requirements
		want bool
	}{
		{"type match only", Requirements{ServiceType: "alpine", Replicas: 1}, true},
		{"type not offered", Requirements{ServiceType: "postgres", Replicas: 1}, false},
		{"within resources", Requirements{ServiceType: "nginx", Replicas: 1, BandwidthMbps: 500, CPUCores: 4}, true},
		{"bandwidth too high", Requirements{ServiceType: "nginx", Replicas: 1, BandwidthMbps: 2000}, false},
		{"latency ceiling ok", Requirements{ServiceType: "alpine", Replicas: 1, LatencyMs: 20}, true},
		{"latency ceiling exceeded", Requirements{ServiceType: "alpine", Replicas: 1, LatencyMs: 5}, false},
		{"ram too high", Requirements{ServiceType: "alpine", Replicas: 1, RAMMb: 32768}, false},
	}

	for _, tc := range cases {
		if got := cap.Satisfies(tc.req); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCapabilityOpenOffering(t *testing.T) {
	cap := Capability{BandwidthMbps: 100}
	if !cap.Satisfies(Requirements{ServiceType: "anything", Replicas: 1}) {
		t.Error("empty service type list should offer everything")
	}
}
