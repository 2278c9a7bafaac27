package quote

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func validRequest() Request {
	return Request{
		Amount:             big.NewInt(1_000_000),
		OriginToken:        "0x0000000000000000000000000000000000000000",
		DestinationToken:   "0x0000000000000000000000000000000000000000",
		OriginChainID:      11155111,
		DestinationChainID: 421614,
		ReceiveNativeToken: true,
	}
}

func TestRequestQuoteSuccess(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/quote", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"relayerFeePct":"50","timestamp":"1712000000","amount":"1000000"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	q, err := c.RequestQuote(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, int64(50), q.RelayerFeePct.Int64())
	require.Equal(t, int64(1712000000), q.Timestamp.Unix())
	require.Equal(t, uint64(11155111), q.OriginChainID)
	require.Equal(t, uint64(421614), q.DestinationChainID)

	require.Equal(t, "1000000", gotBody["amount"])
	require.Equal(t, float64(11155111), gotBody["originChainId"])
	require.Equal(t, float64(421614), gotBody["destinationChainId"])
	require.Equal(t, true, gotBody["receiveNativeToken"])
}

func TestRequestQuoteUpstreamRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"relay at capacity"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.RequestQuote(context.Background(), validRequest())
	require.Error(t, err)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, http.StatusServiceUnavailable, upstream.Status)
	require.Contains(t, upstream.Body, "relay at capacity")
}

func TestRequestQuoteMalformedResponse(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing fee", `{"timestamp":"1712000000","amount":"1000000"}`},
		{"non-numeric fee", `{"relayerFeePct":"abc","timestamp":"1712000000"}`},
		{"negative fee", `{"relayerFeePct":"-5","timestamp":"1712000000"}`},
		{"missing timestamp", `{"relayerFeePct":"50"}`},
		{"non-numeric amount", `{"relayerFeePct":"50","timestamp":"1712000000","amount":"1,000,000"}`},
		{"amount for a different transfer", `{"relayerFeePct":"50","timestamp":"1712000000","amount":"999999"}`},
		{"not json", `<html>gateway error</html>`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL)
			_, err := c.RequestQuote(context.Background(), validRequest())
			var malformed *MalformedResponseError
			require.ErrorAs(t, err, &malformed)
		})
	}
}

func TestRequestQuoteNetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL)
	_, err := c.RequestQuote(context.Background(), validRequest())
	require.True(t, errors.Is(err, ErrNetworkUnavailable))
}

func TestRequestQuoteRejectsInvalidInput(t *testing.T) {
	c := NewClient("http://localhost:1") // must never be reached

	req := validRequest()
	req.Amount = big.NewInt(0)
	_, err := c.RequestQuote(context.Background(), req)
	require.Error(t, err)

	req = validRequest()
	req.DestinationChainID = req.OriginChainID
	_, err = c.RequestQuote(context.Background(), req)
	require.Error(t, err)
}
