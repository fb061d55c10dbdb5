package packager

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMappingKey is the reserved term in a status mapping that
// supplies the status for terms not otherwise listed
const DefaultMappingKey = "default-mapping"

// TargetConfig is the configuration of one target repository as loaded
// from the registry document
type TargetConfig struct {
	DepositConfig   DepositConfig   `yaml:"deposit-config"`
	AssemblerConfig AssemblerConfig `yaml:"assembler"`
	TransportConfig TransportConfig `yaml:"transport-config"`
}

// DepositConfig controls status interpretation for a target
type DepositConfig struct {
	Processing StatusProcessing  `yaml:"processing"`
	Mapping    map[string]string `yaml:"mapping"`

	// StatusRefRewrite optionally rewrites the status-document URL by
	// prefix replacement, to reach the same resource from a different
	// network perspective.
	StatusRefRewrite *PrefixRewrite `yaml:"status-ref-rewrite,omitempty"`
}

// StatusProcessing selects the status interpreter for a target
type StatusProcessing struct {
	BeanName string `yaml:"beanName"`
}

// PrefixRewrite replaces a URL prefix when it matches
type PrefixRewrite struct {
	Prefix      string `yaml:"prefix"`
	Replacement string `yaml:"replacement"`
}

// Apply rewrites u when it carries the configured prefix
func (p *PrefixRewrite) Apply(u string) string {
	if p == nil || p.Prefix == "" || !strings.HasPrefix(u, p.Prefix) {
		return u
	}
	return p.Replacement + strings.TrimPrefix(u, p.Prefix)
}

// AssemblerConfig selects the packaging specification and options
type AssemblerConfig struct {
	Specification string        `yaml:"specification"`
	Options       OptionsConfig `yaml:"options"`
}

// OptionsConfig is the serialized form of assembler options
type OptionsConfig struct {
	Archive     string   `yaml:"archive"`
	Compression string   `yaml:"compression"`
	Checksums   []string `yaml:"checksums"`
}

// AssemblerOptions converts the configured options to runtime options
func (c *TargetConfig) AssemblerOptions() Options {
	return Options{
		Archive:     Archive(c.AssemblerConfig.Options.Archive),
		Compression: Compression(c.AssemblerConfig.Options.Compression),
		Checksums:   c.AssemblerConfig.Options.Checksums,
		Spec:        c.AssemblerConfig.Specification,
	}
}

// TransportConfig holds the wire binding and credentials for a target
type TransportConfig struct {
	AuthRealms      []AuthRealm       `yaml:"auth-realms"`
	ProtocolBinding map[string]string `yaml:"protocol-binding"`
}

// AuthRealm scopes credentials to a base URL
type AuthRealm struct {
	Mech     string `yaml:"mech"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	BaseURL  string `yaml:"base-url"`
}

// Protocol returns the configured wire protocol for the target
func (c *TargetConfig) Protocol() string {
	return c.TransportConfig.ProtocolBinding[ParamProtocol]
}

// CredentialsFor returns the realm credentials covering u, if any
func (c *TargetConfig) CredentialsFor(u string) (AuthRealm, bool) {
	for _, realm := range c.TransportConfig.AuthRealms {
		if realm.BaseURL != "" && strings.HasPrefix(u, realm.BaseURL) {
			return realm, true
		}
	}
	return AuthRealm{}, false
}

// LoadDocument parses a registry document: an associative mapping from
// target key to target configuration
func LoadDocument(r io.Reader) (map[string]*TargetConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("packager: reading registry document: %w", err)
	}
	doc := make(map[string]*TargetConfig)
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("packager: parsing registry document: %w", err)
	}
	for key, cfg := range doc {
		if cfg == nil {
			return nil, fmt.Errorf("packager: target %q has no configuration", key)
		}
	}
	return doc, nil
}

// LoadDocumentURI loads a registry document from a file path, file://
// URI, or http(s) URL
func LoadDocumentURI(uri string) (map[string]*TargetConfig, error) {
	switch {
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		resp, err := http.Get(uri)
		if err != nil {
			return nil, fmt.Errorf("packager: fetching registry document: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("packager: fetching registry document: unexpected status %s", resp.Status)
		}
		return LoadDocument(resp.Body)
	default:
		path := strings.TrimPrefix(uri, "file://")
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("packager: opening registry document: %w", err)
		}
		defer f.Close()
		return LoadDocument(f)
	}
}

// Factories supply the concrete drivers a registry binds to targets
type Factories struct {
	Assemblers map[string]Assembler       // by packaging specification
	Transports map[string]Transport       // by protocol
	Processors map[string]StatusProcessor // by bean name
}

// BuildRegistry wires a registry from a parsed document and driver
// factories. Every target must resolve an assembler, a transport, and
// a status processor; a miss is a configuration error.
func BuildRegistry(doc map[string]*TargetConfig, f Factories) (*Registry, error) {
	reg := NewRegistry()
	for key, cfg := range doc {
		asm, ok := f.Assemblers[cfg.AssemblerConfig.Specification]
		if !ok {
			return nil, fmt.Errorf("packager: target %q: no assembler for specification %q",
				key, cfg.AssemblerConfig.Specification)
		}
		transport, ok := f.Transports[cfg.Protocol()]
		if !ok {
			return nil, fmt.Errorf("packager: target %q: no transport for protocol %q",
				key, cfg.Protocol())
		}
		proc, ok := f.Processors[cfg.DepositConfig.Processing.BeanName]
		if !ok {
			return nil, fmt.Errorf("packager: target %q: no status processor named %q",
				key, cfg.DepositConfig.Processing.BeanName)
		}
		reg.Register(key, &Packager{
			Name:      key,
			Assembler: asm,
			Transport: transport,
			Status:    proc,
			Config:    cfg,
		})
	}
	return reg, nil
}
