package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimal = `
role: consumer
domain:
  name: domain-1
  id: 1
ledger:
  node_url: http://127.0.0.1:8545
  contract_address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
  private_key: "aa"
`

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Network.VXLANPort != 4789 {
		t.Errorf("default vxlan port: got %d", c.Network.VXLANPort)
	}
	if c.Negotiation.Deadline != 5*time.Minute {
		t.Errorf("default deadline: got %v", c.Negotiation.Deadline)
	}
	if c.Export.Topic != "federation.steps" {
		t.Errorf("default topic: got %q", c.Export.Topic)
	}
}

func TestLoadEnvOverridesKey(t *testing.T) {
	t.Setenv("FEDRA_PRIVATE_KEY", "bb")
	c, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Ledger.PrivateKey != "bb" {
		t.Errorf("env override ignored: got %q", c.Ledger.PrivateKey)
	}
}

const ledgerOnly = `
ledger:
  node_url: http://127.0.0.1:8545
  contract_address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
  private_key: "aa"
`

func TestLoadRejectsBadRole(t *testing.T) {
	if _, err := Load(writeConfig(t, "role: observer\n"+ledgerOnly)); err == nil {
		t.Fatal("unknown role should be rejected")
	}
}

func TestLoadRejectsMissingLedger(t *testing.T) {
	if _, err := Load(writeConfig(t, "role: provider\n")); err == nil {
		t.Fatal("missing ledger settings should be rejected")
	}
}

func TestLoadRejectsUnparseableDomainIDOverride(t *testing.T) {
	t.Setenv("FEDRA_DOMAIN_ID", "not-a-number")
	if _, err := Load(writeConfig(t, minimal)); err == nil {
		t.Fatal("a typoed FEDRA_DOMAIN_ID must not fall back silently")
	}
}

func TestLoadDeployBackend(t *testing.T) {
	c, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Deploy.Backend != "docker" {
		t.Errorf("default backend: got %q", c.Deploy.Backend)
	}

	c, err = Load(writeConfig(t, minimal+"\ndeploy:\n  backend: kubernetes\n  namespace: federation\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Deploy.Backend != "kubernetes" || c.Deploy.Namespace != "federation" {
		t.Errorf("kubernetes backend not honored: %+v", c.Deploy)
	}

	if _, err := Load(writeConfig(t, minimal+"\ndeploy:\n  backend: nomad\n")); err == nil {
		t.Fatal("unknown backend should be rejected")
	}
}

func TestLoadRejectsOversizedDomainID(t *testing.T) {
	body := "role: provider\ndomain:\n  id: 300\n" + ledgerOnly
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("domain id above 255 should be rejected")
	}
}
