package process_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/serroba/ledger-shortener/internal/ledger"
	"github.com/serroba/ledger-shortener/internal/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPTransport(t *testing.T) {
	var received process.SignedMessage

	mux := http.NewServeMux()
	mux.HandleFunc("POST /mu/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"id":"mu-assigned"}`))
	})
	mux.HandleFunc("GET /cu/result/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "mu-assigned" || r.URL.Query().Get("process-id") != "proc-1" {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		_, _ = w.Write([]byte(`{"Messages":[{"Data":"{\"shortCode\":\"aZ3kQ9\"}"}]}`))
	})
	mux.HandleFunc("GET /broken/result/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	msg := &process.SignedMessage{
		Message: process.Message{
			Target: "proc-1",
			Tags:   []ledger.Tag{{Name: process.TagAction, Value: "CreateShortURL"}},
		},
		ID:        "local-id",
		Signature: "c2ln",
	}

	t.Run("send returns the unit's id", func(t *testing.T) {
		transport := process.NewHTTPTransport(srv.URL+"/mu", srv.URL+"/cu", srv.Client())

		id, err := transport.Send(context.Background(), msg)

		require.NoError(t, err)
		assert.Equal(t, "mu-assigned", id)
		assert.Equal(t, "proc-1", received.Target)
		assert.Equal(t, "c2ln", received.Signature)
		assert.Equal(t, msg.Tags, received.Tags)
	})

	t.Run("result accepts Messages as outputs", func(t *testing.T) {
		transport := process.NewHTTPTransport(srv.URL+"/mu", srv.URL+"/cu", srv.Client())

		result, err := transport.Result(context.Background(), "proc-1", "mu-assigned")

		require.NoError(t, err)
		require.Len(t, result.Outputs, 1)

		var data struct {
			ShortCode string `json:"shortCode"`
		}

		require.NoError(t, result.Outputs[0].Decode(&data))
		assert.Equal(t, "aZ3kQ9", data.ShortCode)
	})

	t.Run("result error status fails", func(t *testing.T) {
		transport := process.NewHTTPTransport(srv.URL+"/mu", srv.URL+"/broken", srv.Client())

		result, err := transport.Result(context.Background(), "proc-1", "mu-assigned")

		assert.Nil(t, result)
		assert.Error(t, err)
	})
}

func TestHTTPTransport_AcceptedWithoutID(t *testing.T) {
	delivered := 0

	mux := http.NewServeMux()
	mux.HandleFunc("POST /empty/", func(w http.ResponseWriter, _ *http.Request) {
		delivered++
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("POST /text/", func(w http.ResponseWriter, _ *http.Request) {
		delivered++
		_, _ = w.Write([]byte("queued"))
	})
	mux.HandleFunc("POST /down/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("GET /cu/result/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	msg := &process.SignedMessage{
		Message:   process.Message{Target: "proc-1"},
		ID:        "local-id",
		Signature: "c2ln",
	}

	t.Run("empty body returns the local id", func(t *testing.T) {
		transport := process.NewHTTPTransport(srv.URL+"/empty", srv.URL+"/cu", srv.Client())

		id, err := transport.Send(context.Background(), msg)

		require.NoError(t, err)
		assert.Equal(t, "local-id", id)
	})

	t.Run("non JSON body returns the local id", func(t *testing.T) {
		transport := process.NewHTTPTransport(srv.URL+"/text", srv.URL+"/cu", srv.Client())

		id, err := transport.Send(context.Background(), msg)

		require.NoError(t, err)
		assert.Equal(t, "local-id", id)
	})

	t.Run("error status is a send failure", func(t *testing.T) {
		transport := process.NewHTTPTransport(srv.URL+"/down", srv.URL+"/cu", srv.Client())

		_, err := transport.Send(context.Background(), msg)

		assert.Error(t, err)
	})

	t.Run("delivered message with lost result is ambiguous", func(t *testing.T) {
		delivered = 0
		transport := process.NewHTTPTransport(srv.URL+"/empty", srv.URL+"/cu", srv.Client())
		dispatcher := process.NewDispatcher("proc-1", transport, zap.NewNop())

		_, err := dispatcher.Send(context.Background(), stubSigner{}, []ledger.Tag{
			{Name: process.TagAction, Value: "CreateShortURL"},
		})

		assert.Equal(t, 1, delivered)
		require.ErrorIs(t, err, process.ErrTransportAmbiguous)
		assert.NotErrorIs(t, err, process.ErrSendFailed)
	})
}

func TestResult_UnmarshalJSON(t *testing.T) {
	var result process.Result

	require.NoError(t, json.Unmarshal([]byte(`{"Outputs":[{"Data":"{}"}],"Error":"boom"}`), &result))

	assert.Len(t, result.Outputs, 1)
	assert.Equal(t, "boom", result.Error)
}

func TestDigest(t *testing.T) {
	a := &process.Message{Target: "proc-1", Tags: []ledger.Tag{{Name: "A", Value: "1"}}}
	b := &process.Message{Target: "proc-1", Tags: []ledger.Tag{{Name: "A", Value: "1"}}}
	c := &process.Message{Target: "proc-1", Tags: []ledger.Tag{{Name: "A", Value: "2"}}}

	da, err := process.Digest(a)
	require.NoError(t, err)

	db, err := process.Digest(b)
	require.NoError(t, err)

	dc, err := process.Digest(c)
	require.NoError(t, err)

	assert.Len(t, da, 32)
	assert.Equal(t, da, db)
	assert.NotEqual(t, da, dc)
}

func TestSign(t *testing.T) {
	signed, err := process.Sign(context.Background(), stubSigner{}, process.Message{Target: "proc-1"})

	require.NoError(t, err)
	assert.Equal(t, "owner-key", signed.Owner)
	assert.NotEmpty(t, signed.ID)
	assert.NotEmpty(t, signed.Signature)
}
