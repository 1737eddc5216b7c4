package federation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformed marks requirement or endpoint strings that fail
// format validation. Nothing is ever submitted to the ledger before
// this check passes.
var ErrMalformed = errors.New("malformed input")

// Requirements describes the requested service. ServiceType and
// Replicas are mandatory; the resource fields are optional and zero
// means "unset".
type Requirements struct {
	ServiceType string
	Replicas    int

	BandwidthMbps int
	LatencyMs     int
	CPUCores      int
	RAMMb         int
}

var serviceTypeRe = regexp.MustCompile(`^[\w.\-/:]+$`)

// ParseRequirements decodes the on-ledger wire form:
//
//	service=<image>;replicas=<n>[;bandwidth=<mbps>][;latency=<ms>][;cpu=<cores>][;ram=<mb>]
func ParseRequirements(s string) (Requirements, error) {
	var r Requirements
	seen := map[string]bool{}

	for _, part := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok || v == "" || seen[k] {
			return Requirements{}, fmt.Errorf("%w: requirements %q", ErrMalformed, s)
		}
		seen[k] = true

		switch k {
		case "service":
			if !serviceTypeRe.MatchString(v) {
				return Requirements{}, fmt.Errorf("%w: service type %q", ErrMalformed, v)
			}
			r.ServiceType = v
		case "replicas":
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return Requirements{}, fmt.Errorf("%w: replicas %q", ErrMalformed, v)
			}
			r.Replicas = n
		case "bandwidth", "latency", "cpu", "ram":
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return Requirements{}, fmt.Errorf("%w: %s %q", ErrMalformed, k, v)
			}
			switch k {
			case "bandwidth":
				r.BandwidthMbps = n
			case "latency":
				r.LatencyMs = n
			case "cpu":
				r.CPUCores = n
			case "ram":
				r.RAMMb = n
			}
		default:
			return Requirements{}, fmt.Errorf("%w: unknown requirement field %q", ErrMalformed, k)
		}
	}

	if r.ServiceType == "" || r.Replicas == 0 {
		return Requirements{}, fmt.Errorf("%w: requirements %q missing service or replicas", ErrMalformed, s)
	}
	return r, nil
}

// Validate checks the struct the same way ParseRequirements checks
// the wire form.
func (r Requirements) Validate() error {
	_, err := ParseRequirements(r.String())
	return err
}

// String encodes the wire form. Unset optional fields are omitted.
func (r Requirements) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "service=%s;replicas=%d", r.ServiceType, r.Replicas)
	if r.BandwidthMbps > 0 {
		fmt.Fprintf(&b, ";bandwidth=%d", r.BandwidthMbps)
	}
	if r.LatencyMs > 0 {
		fmt.Fprintf(&b, ";latency=%d", r.LatencyMs)
	}
	if r.CPUCores > 0 {
		fmt.Fprintf(&b, ";cpu=%d", r.CPUCores)
	}
	if r.RAMMb > 0 {
		fmt.Fprintf(&b, ";ram=%d", r.RAMMb)
	}
	return b.String()
}

// Capability is what a provider can serve: the service types it
// offers and the resource ceilings it can commit.
type Capability struct {
	ServiceTypes  []string
	BandwidthMbps int
	LatencyMs     int
	CPUCores      int
	RAMMb         int
}

// Satisfies reports whether the capability covers the requirements.
// Resource fields the request leaves unset are not constrained.
// Latency is a ceiling on the request side: the provider must be at
// or below it. An empty ServiceTypes list offers everything.
func (c Capability) Satisfies(r Requirements) bool {
	if len(c.ServiceTypes) > 0 {
		found := false
		for _, t := range c.ServiceTypes {
			if t == r.ServiceType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if r.BandwidthMbps > 0 && c.BandwidthMbps < r.BandwidthMbps {
		return false
	}
	if r.LatencyMs > 0 && (c.LatencyMs == 0 || c.LatencyMs > r.LatencyMs) {
		return false
	}
	if r.CPUCores > 0 && c.CPUCores < r.CPUCores {
		return false
	}
	if r.RAMMb > 0 && c.RAMMb < r.RAMMb {
		return false
	}
	return true
}
