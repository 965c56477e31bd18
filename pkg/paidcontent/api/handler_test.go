package api_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paywalled/paid-content/pkg/paidcontent"
	"github.com/paywalled/paid-content/pkg/paidcontent/api"
	"github.com/paywalled/paid-content/pkg/paidcontent/cipher"
	"github.com/paywalled/paid-content/pkg/paidcontent/ledger"
	"github.com/paywalled/paid-content/pkg/paidcontent/payment"
	memorystorage "github.com/paywalled/paid-content/pkg/paidcontent/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	registry, err := ledger.New(context.Background(), ledger.NewMemStore())
	require.NoError(t, err)

	secret := make([]byte, cipher.KeySize)
	_, err = rand.Read(secret)
	require.NoError(t, err)

	svc, err := paidcontent.New(
		paidcontent.WithLedger(registry),
		paidcontent.WithBlobStore("memory", memorystorage.New()),
		paidcontent.WithCipher(cipher.New()),
		paidcontent.WithPaymentVerifier(payment.NewLocalVerifier()),
		paidcontent.WithSecret(secret),
		paidcontent.WithPriceDefaults(paidcontent.PriceTerms{Amount: "0.01", Currency: "USDC", Network: "base"}),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/items", api.NewHandler(svc, nil).Routes())

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func publishItem(t *testing.T, server *httptest.Server, body map[string]any) api.PublishResponse {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/items/", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var pub api.PublishResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pub))
	return pub
}

func TestPublishEndpoint(t *testing.T) {
	server := newTestServer(t)

	pub := publishItem(t, server, map[string]any{
		"title":   "A",
		"content": "hello world",
		"owner":   "0xabc",
	})

	assert.NotEmpty(t, pub.ItemID)
	assert.Equal(t, "available", pub.Status)
	assert.Equal(t, "0.01", pub.Price.Amount)
	assert.Equal(t, "0xabc", pub.Price.PayoutAddress, "payout defaults to the owner")
}

func TestPublishEndpointValidation(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"content":"c","owner":"0xabc"}`},
		{"missing content", `{"title":"t","owner":"0xabc"}`},
		{"missing owner", `{"title":"t","content":"c"}`},
		{"malformed json", `{"title":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(server.URL+"/items/", "application/json", bytes.NewBufferString(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestPreviewEndpoint(t *testing.T) {
	server := newTestServer(t)
	pub := publishItem(t, server, map[string]any{
		"title": "A", "description": "teaser", "content": "hello world", "owner": "0xabc",
	})

	resp, err := http.Get(server.URL + "/items/" + pub.ItemID + "/preview")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var preview paidcontent.PreviewResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&preview))
	assert.Equal(t, "A", preview.Title)
	assert.NotEmpty(t, preview.ContentPreview)
	assert.Equal(t, "0.01", preview.Price.Amount)
}

func TestPreviewUnknownItemReturns404(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/items/nope/preview")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestContentEndpointRequiresRequester(t *testing.T) {
	server := newTestServer(t)
	pub := publishItem(t, server, map[string]any{
		"title": "A", "content": "hello world", "owner": "0xabc",
	})

	resp, err := http.Get(server.URL + "/items/" + pub.ItemID + "/content")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestContentEndpointPaymentFlow(t *testing.T) {
	server := newTestServer(t)
	client := server.Client()
	pub := publishItem(t, server, map[string]any{
		"title": "A", "content": "hello world", "owner": "0xabc",
	})

	// Without a payment proof the mediator answers 402 with the terms.
	req, err := http.NewRequest(http.MethodGet, server.URL+"/items/"+pub.ItemID+"/content", nil)
	require.NoError(t, err)
	req.Header.Set(api.HeaderRequester, "0xdef")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	var challenge api.PaymentRequiredResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&challenge))
	assert.Equal(t, "0.01", challenge.Price.Amount)
	require.NotNil(t, challenge.Challenge)
	assert.Equal(t, pub.ItemID, challenge.Challenge.ItemID)
	assert.NotEmpty(t, challenge.Challenge.Nonce)

	// With a proof attached the local verifier grants and the plaintext
	// comes back.
	req, err = http.NewRequest(http.MethodGet, server.URL+"/items/"+pub.ItemID+"/content", nil)
	require.NoError(t, err)
	req.Header.Set(api.HeaderRequester, "0xdef")
	req.Header.Set(api.HeaderPayment, "tx-proof")

	resp, err = client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var content api.ContentResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&content))
	assert.Equal(t, "hello world", content.Content)
	require.NotNil(t, content.Receipt)
	assert.NotEmpty(t, content.Receipt.GrantID)

	// The grant does not persist: the next proof-less request is challenged
	// again.
	req, err = http.NewRequest(http.MethodGet, server.URL+"/items/"+pub.ItemID+"/content", nil)
	require.NoError(t, err)
	req.Header.Set(api.HeaderRequester, "0xdef")

	resp, err = client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}

func TestContentEndpointRequesterQueryFallback(t *testing.T) {
	server := newTestServer(t)
	pub := publishItem(t, server, map[string]any{
		"title": "A", "content": "hello world", "owner": "0xabc",
	})

	resp, err := http.Get(server.URL + "/items/" + pub.ItemID + "/content?requester=0xdef")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}

func TestGetItemHidesSecrets(t *testing.T) {
	server := newTestServer(t)
	pub := publishItem(t, server, map[string]any{
		"title": "A", "content": "hello world", "owner": "0xabc",
	})

	resp, err := http.Get(server.URL + "/items/" + pub.ItemID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, "A", raw["title"])
	assert.Equal(t, true, raw["encrypted"])
	assert.NotContains(t, raw, "content")
	assert.NotContains(t, raw, "access_log")
}

func TestListAndSearchEndpoints(t *testing.T) {
	server := newTestServer(t)
	publishItem(t, server, map[string]any{
		"title": "Deep Dive", "content": "c1", "owner": "0xabc", "tags": []string{"go"},
	})
	publishItem(t, server, map[string]any{
		"title": "Shallow Skim", "content": "c2", "owner": "0xdef",
	})

	var items []api.ItemResponse

	resp, err := http.Get(server.URL + "/items/")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	resp.Body.Close()
	assert.Len(t, items, 2)

	resp, err = http.Get(server.URL + "/items/?owner=0xabc")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	resp.Body.Close()
	require.Len(t, items, 1)
	assert.Equal(t, "Deep Dive", items[0].Title)

	resp, err = http.Get(server.URL + "/items/search?q=deep")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	resp.Body.Close()
	assert.Len(t, items, 1)
}

func TestDeleteEndpoint(t *testing.T) {
	server := newTestServer(t)
	client := server.Client()
	pub := publishItem(t, server, map[string]any{
		"title": "A", "content": "hello world", "owner": "0xabc",
	})

	del := func(id string) api.DeleteResponse {
		req, err := http.NewRequest(http.MethodDelete, server.URL+"/items/"+id, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var dr api.DeleteResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&dr))
		return dr
	}

	assert.False(t, del("missing").Success)
	assert.True(t, del(pub.ItemID).Success)

	resp, err := http.Get(server.URL + "/items/" + pub.ItemID)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
