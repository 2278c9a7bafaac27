package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultBaseURL is the Across Protocol relay endpoint.
	DefaultBaseURL = "https://across.to"

	quotePath      = "/api/v1/quote"
	requestTimeout = 30 * time.Second
)

// Client requests bridging quotes from the Across relay. It performs exactly
// one outbound call per request and never retries internally; retry policy
// belongs to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a relay client. An empty baseURL selects the public
// Across endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// quoteRequestBody is the relay's wire format.
type quoteRequestBody struct {
	Amount             string `json:"amount"`
	OriginToken        string `json:"originToken"`
	DestinationToken   string `json:"destinationToken"`
	OriginChainID      uint64 `json:"originChainId"`
	DestinationChainID uint64 `json:"destinationChainId"`
	ReceiveNativeToken bool   `json:"receiveNativeToken"`
}

// quoteResponseBody holds the response fields this core consumes. The relay
// returns numerics as strings.
type quoteResponseBody struct {
	RelayerFeePct string `json:"relayerFeePct"`
	Timestamp     string `json:"timestamp"`
	Amount        string `json:"amount"`
}

// RequestQuote asks the relay for a fee quote for the given bridging tuple.
// Errors are one of ErrNetworkUnavailable (wrapped), *UpstreamError or
// *MalformedResponseError.
func (c *Client) RequestQuote(ctx context.Context, req Request) (*Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(quoteRequestBody{
		Amount:             req.Amount.String(),
		OriginToken:        req.OriginToken,
		DestinationToken:   req.DestinationToken,
		OriginChainID:      req.OriginChainID,
		DestinationChainID: req.DestinationChainID,
		ReceiveNativeToken: req.ReceiveNativeToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode quote request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+quotePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	log.WithFields(log.Fields{
		"amount":     req.Amount,
		"from_chain": req.OriginChainID,
		"to_chain":   req.DestinationChainID,
	}).Debug("requesting bridge quote")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrNetworkUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var wire quoteResponseBody
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	return parseQuote(&wire, req)
}

// parseQuote validates the wire response and binds the quote to its request
// tuple. A missing or non-numeric fee is a MalformedResponseError, never a
// zero fee.
func parseQuote(wire *quoteResponseBody, req Request) (*Quote, error) {
	if wire.RelayerFeePct == "" {
		return nil, &MalformedResponseError{Reason: "missing relayerFeePct"}
	}
	feePct, ok := new(big.Int).SetString(wire.RelayerFeePct, 10)
	if !ok {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("non-numeric relayerFeePct %q", wire.RelayerFeePct)}
	}
	if feePct.Sign() < 0 {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("negative relayerFeePct %q", wire.RelayerFeePct)}
	}

	if wire.Timestamp == "" {
		return nil, &MalformedResponseError{Reason: "missing timestamp"}
	}
	unix, err := strconv.ParseInt(wire.Timestamp, 10, 64)
	if err != nil {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("non-numeric timestamp %q", wire.Timestamp)}
	}

	// A relay that echoes back a different amount than requested is quoting a
	// different transfer; its fee cannot be trusted for this one.
	if wire.Amount != "" {
		amount, ok := new(big.Int).SetString(wire.Amount, 10)
		if !ok {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("non-numeric amount %q", wire.Amount)}
		}
		if amount.Cmp(req.Amount) != 0 {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("quote amount %s does not match requested amount %s", amount, req.Amount)}
		}
	}

	return &Quote{
		RelayerFeePct:      feePct,
		Timestamp:          time.Unix(unix, 0).UTC(),
		Amount:             new(big.Int).Set(req.Amount),
		OriginChainID:      req.OriginChainID,
		DestinationChainID: req.DestinationChainID,
	}, nil
}
