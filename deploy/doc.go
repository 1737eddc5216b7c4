// Package deploy holds the collaborator contracts the negotiation
// core hands off to: a Deployer that materializes the federated
// workload and a Tunneler that wires the data-plane overlay between
// domains. Both are opaque to the protocol — any backend satisfying
// the interfaces is acceptable. Exec-based Docker and VXLAN
// backends ship by default.
package deploy
