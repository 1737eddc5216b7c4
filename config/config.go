// Package config loads the node configuration from YAML with
// environment overrides for the secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is everything one federation node needs to run.
type Config struct {
	// Role selects which orchestrator this node runs: "consumer" or
	// "provider".
	Role string `yaml:"role"`

	Domain struct {
		Name string `yaml:"name"`
		ID   int    `yaml:"id"`
	} `yaml:"domain"`

	Ledger struct {
		NodeURL         string `yaml:"node_url"`
		ContractAddress string `yaml:"contract_address"`
		PrivateKey      string `yaml:"private_key"` // FEDRA_PRIVATE_KEY overrides
	} `yaml:"ledger"`

	Network struct {
		IPAddress     string `yaml:"ip_address"`
		Interface     string `yaml:"interface"`
		VXLANID       int    `yaml:"vxlan_id"`
		VXLANPort     int    `yaml:"vxlan_port"`
		FederationNet string `yaml:"federation_net"`
		NetworkName   string `yaml:"network_name"`
	} `yaml:"network"`

	Consumer struct {
		ServiceType string `yaml:"service_type"`
		Replicas    int    `yaml:"replicas"`
		Quorum      uint64 `yaml:"quorum"`
	} `yaml:"consumer"`

	Provider struct {
		ServiceTypes []string `yaml:"service_types"`
		Price        uint64   `yaml:"price"`
		Image        string   `yaml:"image"`
	} `yaml:"provider"`

	Deploy struct {
		// Backend picks where won workloads run: "docker" or
		// "kubernetes".
		Backend    string `yaml:"backend"`
		Namespace  string `yaml:"namespace"`
		Kubeconfig string `yaml:"kubeconfig"`
	} `yaml:"deploy"`

	Negotiation struct {
		PollInitial  time.Duration `yaml:"poll_initial"`
		PollMax      time.Duration `yaml:"poll_max"`
		Deadline     time.Duration `yaml:"deadline"`
		LookbackBlks uint64        `yaml:"lookback_blocks"`
	} `yaml:"negotiation"`

	Export struct {
		Dir     string   `yaml:"dir"`
		Brokers []string `yaml:"kafka_brokers"`
		Topic   string   `yaml:"kafka_topic"`
	} `yaml:"export"`

	JournalDir string `yaml:"journal_dir"`
	ListenAddr string `yaml:"listen_addr"`
}

func defaults() Config {
	var c Config
	c.Role = "provider"
	c.Network.VXLANID = 200
	c.Network.VXLANPort = 4789
	c.Network.NetworkName = "federation-net"
	c.Consumer.Replicas = 1
	c.Consumer.Quorum = 1
	c.Deploy.Backend = "docker"
	c.Negotiation.PollInitial = 500 * time.Millisecond
	c.Negotiation.PollMax = 8 * time.Second
	c.Negotiation.Deadline = 5 * time.Minute
	c.Negotiation.LookbackBlks = 20
	c.Export.Dir = "experiments"
	c.Export.Topic = "federation.steps"
	c.JournalDir = "journal"
	c.ListenAddr = ":8000"
	return c
}

// Load reads path, applies environment overrides, and validates.
func Load(path string) (Config, error) {
	c := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := applyEnv(&c); err != nil {
		return Config{}, err
	}

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func applyEnv(c *Config) error {
	if v := os.Getenv("FEDRA_PRIVATE_KEY"); v != "" {
		c.Ledger.PrivateKey = v
	}
	if v := os.Getenv("FEDRA_NODE_URL"); v != "" {
		c.Ledger.NodeURL = v
	}
	if v := os.Getenv("FEDRA_CONTRACT_ADDRESS"); v != "" {
		c.Ledger.ContractAddress = v
	}
	if v := os.Getenv("FEDRA_DOMAIN_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FEDRA_DOMAIN_ID %q: %v", v, err)
		}
		c.Domain.ID = id
	}
	if v := os.Getenv("FEDRA_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	return nil
}

func (c Config) validate() error {
	if c.Role != "consumer" && c.Role != "provider" {
		return fmt.Errorf("role must be consumer or provider, got %q", c.Role)
	}
	if c.Ledger.NodeURL == "" {
		return fmt.Errorf("ledger.node_url is required")
	}
	if c.Ledger.ContractAddress == "" {
		return fmt.Errorf("ledger.contract_address is required")
	}
	if c.Ledger.PrivateKey == "" {
		return fmt.Errorf("ledger.private_key is required (or FEDRA_PRIVATE_KEY)")
	}
	if c.Domain.ID < 0 || c.Domain.ID > 255 {
		return fmt.Errorf("domain.id must fit one subnet octet, got %d", c.Domain.ID)
	}
	if c.Deploy.Backend != "docker" && c.Deploy.Backend != "kubernetes" {
		return fmt.Errorf("deploy.backend must be docker or kubernetes, got %q", c.Deploy.Backend)
	}
	return nil
}
