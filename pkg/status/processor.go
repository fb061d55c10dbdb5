package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/carrel-io/ferry/pkg/packager"
	"github.com/carrel-io/ferry/pkg/types"
)

// BeanNameMapping is the registry bean name of the mapping processor
const BeanNameMapping = "mappingStatusProcessor"

const maxDocumentBytes = 1 << 20

// MappingProcessor resolves a deposit's asynchronous outcome by
// fetching its status reference and translating the target-native term
// through the target's configured status mapping. Terms absent from
// the mapping fall back to the default-mapping entry; a term that maps
// to nothing yields the zero status, which callers treat as "do not
// guess".
type MappingProcessor struct {
	http *http.Client
}

// NewMappingProcessor creates a mapping-driven status processor
func NewMappingProcessor(client *http.Client) *MappingProcessor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &MappingProcessor{http: client}
}

// Process implements packager.StatusProcessor
func (p *MappingProcessor) Process(ctx context.Context, d *types.Deposit, cfg *packager.TargetConfig) (types.DepositStatus, error) {
	if d.StatusRef == "" {
		return "", fmt.Errorf("status: deposit %s has no status reference", d.ID)
	}

	term, err := p.fetchTerm(ctx, d.StatusRef, cfg)
	if err != nil {
		return "", err
	}
	return Map(term, cfg.DepositConfig.Mapping), nil
}

// fetchTerm retrieves the status document and extracts the
// target-native status term
func (p *MappingProcessor) fetchTerm(ctx context.Context, ref string, cfg *packager.TargetConfig) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", fmt.Errorf("status: building request for %s: %w", ref, err)
	}
	if realm, ok := cfg.CredentialsFor(ref); ok {
		req.SetBasicAuth(realm.Username, realm.Password)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("status: fetching %s: %w", ref, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status: fetching %s: unexpected status %s", ref, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("status: reading %s: %w", ref, err)
	}

	// JSON documents carry the term in a "status" member; anything
	// else is taken as a bare term.
	var doc struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &doc); err == nil && doc.Status != "" {
		return doc.Status, nil
	}
	return strings.TrimSpace(string(body)), nil
}

// Map translates a target-native term through a status mapping,
// falling back to the default-mapping entry. Unknown mapped values and
// absent defaults yield the zero status.
func Map(term string, mapping map[string]string) types.DepositStatus {
	mapped, ok := mapping[strings.ToLower(strings.TrimSpace(term))]
	if !ok {
		mapped = mapping[packager.DefaultMappingKey]
	}
	switch types.DepositStatus(mapped) {
	case types.DepositStatusAccepted, types.DepositStatusRejected, types.DepositStatusSubmitted:
		return types.DepositStatus(mapped)
	default:
		return ""
	}
}
