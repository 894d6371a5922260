// Package chainquery defines the abstract capability the loader uses to
// resolve transaction shapes: fetching a transaction's raw bytes by id,
// resolving the inputs it spends into outputs, and reading the slot
// configuration needed to evaluate time-dependent validators.
package chainquery

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SlotConfig pins the wall-clock origin of slot zero, mirroring the
// on-chain protocol parameter of the same name.
type SlotConfig struct {
	ZeroTime   int64
	ZeroSlot   int64
	SlotLength int64
}

// TransactionInput identifies a spent output by the hash of the
// transaction that produced it and the output's index within it.
type TransactionInput struct {
	TransactionID [32]byte
	Index         uint32
}

// ResolvedOutput is the subset of an output's fields the evaluator needs:
// its address, inline datum (if any) and attached script (if any).
type ResolvedOutput struct {
	Address        string
	InlineDatumHex string
	DatumHash      string
	ScriptHex      string
	ScriptHash     string
}

// ResolvedInput pairs an input reference with the output it resolved to.
type ResolvedInput struct {
	Input  TransactionInput
	Output ResolvedOutput
}

// Provider is the abstract chain-query capability. Both the loader's
// transaction-id shape and its .tx shape use it; only the former also
// needs GetTxBytes.
type Provider interface {
	GetTxBytes(ctx context.Context, txID [32]byte) ([]byte, error)
	GetUTXOs(ctx context.Context, inputs []TransactionInput) ([]ResolvedInput, error)
	GetSlotConfig(ctx context.Context) (SlotConfig, error)
}

// NoneProvider is the default, unconfigured provider: every call fails
// with a ChainFailure-shaped error, mirroring the original `ChainQuery::None`.
type NoneProvider struct{}

func (NoneProvider) GetTxBytes(context.Context, [32]byte) ([]byte, error) {
	return nil, fmt.Errorf("no chain query provider configured")
}

func (NoneProvider) GetUTXOs(context.Context, []TransactionInput) ([]ResolvedInput, error) {
	return nil, fmt.Errorf("no chain query provider configured")
}

func (NoneProvider) GetSlotConfig(context.Context) (SlotConfig, error) {
	return SlotConfig{}, fmt.Errorf("no chain query provider configured")
}

// HTTPProvider is a generic REST/JSON chain indexer client: given a base
// URL and an API key header, it resolves transactions and UTXOs against
// any indexer exposing the same shape of endpoints (tx cbor by id, utxos
// by tx id). It does not hardcode a specific indexer's full response
// schema — only the fields the evaluator needs.
type HTTPProvider struct {
	BaseURL    string
	APIKeyName string
	APIKey     string
	HTTPClient *http.Client
	Slot       SlotConfig
}

func NewHTTPProvider(baseURL, apiKeyName, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		BaseURL:    baseURL,
		APIKeyName: apiKeyName,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Slot:       SlotConfig{ZeroTime: 1660003200000, ZeroSlot: 0, SlotLength: 1000},
	}
}

func (p *HTTPProvider) client() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return http.DefaultClient
}

func (p *HTTPProvider) get(ctx context.Context, path string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if p.APIKeyName != "" {
		req.Header.Set(p.APIKeyName, p.APIKey)
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("chain query request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("chain query returned status %d: %s", resp.StatusCode, string(body))
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("chain query response was not JSON: %w", err)
	}
	return out, nil
}

func (p *HTTPProvider) GetTxBytes(ctx context.Context, txID [32]byte) ([]byte, error) {
	body, err := p.get(ctx, "/txs/"+hex.EncodeToString(txID[:])+"/cbor")
	if err != nil {
		return nil, err
	}
	cbor, ok := body["cbor"].(string)
	if !ok {
		return nil, fmt.Errorf("chain query response missing cbor field")
	}
	return hex.DecodeString(cbor)
}

func (p *HTTPProvider) GetUTXOs(ctx context.Context, inputs []TransactionInput) ([]ResolvedInput, error) {
	resolved := make([]ResolvedInput, 0, len(inputs))
	for _, in := range inputs {
		body, err := p.get(ctx, "/txs/"+hex.EncodeToString(in.TransactionID[:])+"/utxos")
		if err != nil {
			return nil, err
		}
		outputs, _ := body["outputs"].([]any)
		if int(in.Index) >= len(outputs) {
			return nil, fmt.Errorf("input index %d out of range for resolved transaction", in.Index)
		}
		raw, ok := outputs[in.Index].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected output shape at index %d", in.Index)
		}
		out := ResolvedOutput{}
		if addr, ok := raw["address"].(string); ok {
			out.Address = addr
		}
		if datum, ok := raw["inline_datum"].(string); ok {
			out.InlineDatumHex = datum
		}
		if hash, ok := raw["data_hash"].(string); ok {
			out.DatumHash = hash
		}
		if script, ok := raw["reference_script"].(string); ok {
			out.ScriptHex = script
		}
		if scriptHash, ok := raw["reference_script_hash"].(string); ok {
			out.ScriptHash = scriptHash
		}
		resolved = append(resolved, ResolvedInput{Input: in, Output: out})
	}
	return resolved, nil
}

func (p *HTTPProvider) GetSlotConfig(context.Context) (SlotConfig, error) {
	return p.Slot, nil
}
