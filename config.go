package neo4rs

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/neo4j-labs/neo4rs-sub001/internal/boltdb"
	"github.com/neo4j-labs/neo4rs-sub001/internal/bolt"
	"github.com/neo4j-labs/neo4rs-sub001/internal/retry"
	"gopkg.in/yaml.v3"
)

const defaultPort = 7687

// TLSMode selects one of the four TLS configurations recognized for the
// `tls_config` option, per spec.md §6.
type TLSMode string

const (
	TLSNone           TLSMode = "none"
	TLSSkipValidation TLSMode = "skip_validation"
	TLSClientCA       TLSMode = "client_ca"
	TLSMutual         TLSMode = "mutual"
)

// Config is the full set of recognized configuration options, per
// spec.md §6.
type Config struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	Database string `yaml:"db"`

	FetchSize      int64 `yaml:"fetch_size"`
	MaxConnections int   `yaml:"max_connections"`

	TLSMode   TLSMode `yaml:"tls_config"`
	CAPath    string  `yaml:"tls_ca_path"`
	CertPath  string  `yaml:"tls_cert_path"`
	KeyPath   string  `yaml:"tls_key_path"`

	BackoffMultiplier  float64       `yaml:"backoff_multiplier"`
	BackoffMinDelayMs  int64         `yaml:"backoff_min_delay_ms"`
	BackoffMaxDelayMs  int64         `yaml:"backoff_max_delay_ms"`
	BackoffTotalMs     int64         `yaml:"backoff_total_delay_ms"`
	BackoffDisabled    bool          `yaml:"backoff_disabled"`

	UserAgent string `yaml:"-"`
}

// Defaults, per spec.md §6.
const (
	DefaultFetchSize      = 200
	DefaultMaxConnections = 16
)

// withDefaults fills in the documented defaults for zero-valued fields.
func (c Config) withDefaults() Config {
	if c.FetchSize == 0 {
		c.FetchSize = DefaultFetchSize
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.TLSMode == "" {
		c.TLSMode = TLSNone
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = retry.DefaultPolicy.Multiplier
	}
	if c.BackoffMinDelayMs == 0 {
		c.BackoffMinDelayMs = retry.DefaultPolicy.MinDelay.Milliseconds()
	}
	if c.BackoffMaxDelayMs == 0 {
		c.BackoffMaxDelayMs = retry.DefaultPolicy.MaxDelay.Milliseconds()
	}
	if c.BackoffTotalMs == 0 {
		c.BackoffTotalMs = retry.DefaultPolicy.TotalBudget.Milliseconds()
	}
	if c.UserAgent == "" {
		c.UserAgent = "neo4rs-sub001/1.0"
	}
	return c
}

func (c Config) retryPolicy() retry.Policy {
	return retry.Policy{
		Multiplier:  c.BackoffMultiplier,
		MinDelay:    time.Duration(c.BackoffMinDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.BackoffMaxDelayMs) * time.Millisecond,
		TotalBudget: time.Duration(c.BackoffTotalMs) * time.Millisecond,
		Disabled:    c.BackoffDisabled,
	}
}

// LoadConfigFile reads a YAML configuration file into a Config, per the
// ambient configuration surface described in SPEC_FULL.md §2.1.
func LoadConfigFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("neo4rs: reading config file: %w", boltdb.NewConfigError(err.Error()))
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("neo4rs: parsing config file: %w", boltdb.NewConfigError(err.Error()))
	}
	return c.withDefaults(), nil
}

// endpoint parses c.URI into a dial target, per spec.md §4.D/§6: bolt,
// bolt+s, neo4j, neo4j+s schemes; missing scheme defaults to bolt;
// default port 7687.
func (c Config) endpoint() (bolt.Endpoint, error) {
	if c.URI == "" {
		return bolt.Endpoint{}, boltdb.NewConfigError("uri is required")
	}
	raw := c.URI
	if !hasScheme(raw) {
		raw = "bolt://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return bolt.Endpoint{}, fmt.Errorf("neo4rs: parsing uri: %w", boltdb.NewConfigError(err.Error()))
	}
	useTLS := false
	switch u.Scheme {
	case "bolt", "neo4j":
		useTLS = false
	case "bolt+s", "neo4j+s":
		useTLS = true
	default:
		return bolt.Endpoint{}, boltdb.NewProtocolError("unsupported uri scheme: " + u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return bolt.Endpoint{}, boltdb.NewConfigError("uri is missing a host")
	}
	port := defaultPort
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return bolt.Endpoint{}, boltdb.NewConfigError("invalid port: " + p)
		}
		port = n
	}
	ep := bolt.Endpoint{Host: host, Port: port, TLS: useTLS}
	if useTLS {
		tlsCfg, err := c.buildTLSConfig(host)
		if err != nil {
			return bolt.Endpoint{}, err
		}
		ep.TLSConfig = tlsCfg
	}
	return ep, nil
}

func hasScheme(uri string) bool {
	return strings.Contains(uri, "://")
}

// buildTLSConfig maps TLSMode onto a *tls.Config. TLS handshake internals
// beyond this dispatch are out of scope, per spec.md §1.
func (c Config) buildTLSConfig(serverName string) (*tls.Config, error) {
	switch c.TLSMode {
	case TLSNone, "":
		return &tls.Config{ServerName: serverName}, nil
	case TLSSkipValidation:
		return &tls.Config{ServerName: serverName, InsecureSkipVerify: true}, nil
	case TLSClientCA:
		pool, err := loadCAPool(c.CAPath)
		if err != nil {
			return nil, err
		}
		return &tls.Config{ServerName: serverName, RootCAs: pool}, nil
	case TLSMutual:
		pool, err := loadCAPool(c.CAPath)
		if err != nil {
			return nil, err
		}
		cert, err := tls.LoadX509KeyPair(c.CertPath, c.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("neo4rs: loading client certificate: %w", boltdb.NewConfigError(err.Error()))
		}
		return &tls.Config{ServerName: serverName, RootCAs: pool, Certificates: []tls.Certificate{cert}}, nil
	default:
		return nil, boltdb.NewConfigError("unknown tls_config mode: " + string(c.TLSMode))
	}
}

func loadCAPool(path string) (*x509.CertPool, error) {
	if path == "" {
		return nil, boltdb.NewConfigError("tls_ca_path is required for this tls_config mode")
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("neo4rs: reading CA file: %w", boltdb.NewConfigError(err.Error()))
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, boltdb.NewConfigError("no certificates found in " + path)
	}
	return pool, nil
}
