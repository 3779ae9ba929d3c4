package drafting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testContext() Context {
	return Context{
		DocumentType:   "invoice",
		Number:         "INV-042",
		ClientName:     "Acme Ltd",
		AmountDue:      "USD 1,250.00",
		DueDate:        "2026-03-01",
		Overdue:        true,
		Days:           12,
		PriorReminders: 1,
	}
}

func TestClientSubjectLine(t *testing.T) {
	var gotReq draftRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/draft", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(draftResponse{Text: "Invoice INV-042 is 12 days overdue"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	got, err := c.SubjectLine(context.Background(), testContext())
	require.NoError(t, err)
	require.Equal(t, "Invoice INV-042 is 12 days overdue", got)
	require.Equal(t, "subject", gotReq.Kind)
	require.Equal(t, "INV-042", gotReq.Context.Number)
}

func TestClientEmailMessageKind(t *testing.T) {
	var gotKind string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req draftRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotKind = req.Kind
		_ = json.NewEncoder(w).Encode(draftResponse{Text: "Dear Acme Ltd, ..."})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.EmailMessage(context.Background(), testContext())
	require.NoError(t, err)
	require.Equal(t, "message", gotKind)
}

func TestClientDraftErrors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusBadGateway)
			},
		},
		{
			name: "empty text",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(draftResponse{Text: ""})
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			c := NewClient(srv.URL, time.Second)
			_, err := c.SubjectLine(context.Background(), testContext())
			require.Error(t, err)
		})
	}
}

func TestClientPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	require.NoError(t, c.Ping(context.Background()))
}

func TestClientPingUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	require.Error(t, c.Ping(context.Background()))
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "USD 1,250.00", FormatAmount("USD", 1250))
	require.Equal(t, "EUR 99.90", FormatAmount("EUR", 99.9))
	require.Equal(t, "ZZZ 10.00", FormatAmount("ZZZ", 10))
}

func TestFallbackCopy(t *testing.T) {
	dc := testContext()
	require.Equal(t, "Payment reminder: invoice INV-042 is 12 days overdue", FallbackSubject(dc))
	require.Contains(t, FallbackMessage(dc), "now 12 days overdue")
	require.Contains(t, FallbackMessage(dc), "Dear Acme Ltd,")

	dc.Overdue = false
	dc.Days = 0
	require.Equal(t, "Payment reminder: invoice INV-042 is due today", FallbackSubject(dc))

	dc.Days = 7
	require.Equal(t, "Payment reminder: invoice INV-042 is due in 7 days", FallbackSubject(dc))
	require.Contains(t, FallbackMessage(dc), "due on 2026-03-01")
}
