package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDisabledSenderLogsInsteadOfDelivering(t *testing.T) {
	sender, err := NewSender(Settings{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, sender.SendText(context.Background(), "+351912345678", "hello"))
}

func TestEnabledSenderRequiresGatewaySettings(t *testing.T) {
	_, err := NewSender(Settings{Enabled: true, From: "+1555000"}, zap.NewNop())
	require.Error(t, err)

	_, err = NewSender(Settings{Enabled: true, BaseURL: "https://gateway.example"}, zap.NewNop())
	require.Error(t, err)
}

func TestGatewaySenderPostsForm(t *testing.T) {
	var gotPath, gotTo, gotFrom, gotBody string
	var gotUser, gotPass string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotTo = r.PostFormValue("To")
		gotFrom = r.PostFormValue("From")
		gotBody = r.PostFormValue("Body")
		gotUser, gotPass, _ = r.BasicAuth()
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sender, err := NewSender(Settings{
		Enabled:   true,
		BaseURL:   server.URL,
		AccountID: "acct",
		AuthToken: "token",
		From:      "+15550001111",
		Timeout:   time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, sender.SendText(context.Background(), "+351 912 345 678", "Today at 09:00: Castle Tour in Lisbon."))
	require.Equal(t, "/Messages", gotPath)
	require.Equal(t, "+351 912 345 678", gotTo)
	require.Equal(t, "+15550001111", gotFrom)
	require.Equal(t, "Today at 09:00: Castle Tour in Lisbon.", gotBody)
	require.Equal(t, "acct", gotUser)
	require.Equal(t, "token", gotPass)
}

func TestGatewaySenderRejectsBadInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("gateway must not be called for invalid input")
	}))
	defer server.Close()

	sender, err := NewSender(Settings{
		Enabled: true,
		BaseURL: server.URL,
		From:    "+15550001111",
	}, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.Error(t, sender.SendText(ctx, "not-a-number", "hi"))
	require.Error(t, sender.SendText(ctx, "+351912345678", "   "))
}

func TestGatewaySenderSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of credit", http.StatusPaymentRequired)
	}))
	defer server.Close()

	sender, err := NewSender(Settings{
		Enabled: true,
		BaseURL: server.URL,
		From:    "+15550001111",
	}, zap.NewNop())
	require.NoError(t, err)

	err = sender.SendText(context.Background(), "+351912345678", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "402")
	require.Contains(t, err.Error(), "out of credit")
}

func TestMaskPhone(t *testing.T) {
	require.Equal(t, "****", maskPhone("123"))
	require.Equal(t, "*********5678", maskPhone("+351912345678"))
}
