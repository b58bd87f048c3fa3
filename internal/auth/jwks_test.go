package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func jwksEntry(kid string, pub *rsa.PublicKey) map[string]string {
	e := big.NewInt(int64(pub.E))
	return map[string]string{
		"kty": "RSA",
		"use": "sig",
		"kid": kid,
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(e.Bytes()),
	}
}

func TestKeySetFetchesAndCaches(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}

	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"keys": []any{jwksEntry("kid-1", &priv.PublicKey)},
		})
	}))
	defer srv.Close()

	ks := NewKeySet(srv.URL, nil)

	for i := 0; i < 3; i++ {
		key, err := ks.Key(context.Background(), "kid-1")
		if err != nil {
			t.Fatalf("Key() error = %v", err)
		}
		if key.N.Cmp(priv.PublicKey.N) != 0 {
			t.Fatal("Key() returned wrong modulus")
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Errorf("JWKS fetched %d times, want 1", got)
	}
}

func TestKeySetUnknownKidRateLimited(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}

	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"keys": []any{jwksEntry("kid-1", &priv.PublicKey)},
		})
	}))
	defer srv.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ks := NewKeySet(srv.URL, nil)
	ks.now = func() time.Time { return now }

	// Repeated lookups of a kid the endpoint never publishes must not keep
	// hammering the endpoint.
	for i := 0; i < 5; i++ {
		if _, err := ks.Key(context.Background(), "missing"); err == nil {
			t.Fatal("Key() returned a key for an unpublished kid")
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Errorf("JWKS fetched %d times, want 1 (rate limit)", got)
	}

	// Past the refresh interval a retry is allowed again.
	now = now.Add(minKeyRefreshInterval + time.Second)
	if _, err := ks.Key(context.Background(), "missing"); err == nil {
		t.Fatal("Key() returned a key for an unpublished kid")
	}
	if got := fetches.Load(); got != 2 {
		t.Errorf("JWKS fetched %d times after interval, want 2", got)
	}
}

func TestKeySetRolloverPicksUpNewKid(t *testing.T) {
	privA, _ := rsa.GenerateKey(rand.Reader, 2048)
	privB, _ := rsa.GenerateKey(rand.Reader, 2048)

	var generation atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry := jwksEntry("kid-a", &privA.PublicKey)
		if generation.Load() > 0 {
			entry = jwksEntry("kid-b", &privB.PublicKey)
		}
		json.NewEncoder(w).Encode(map[string]any{"keys": []any{entry}})
	}))
	defer srv.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ks := NewKeySet(srv.URL, nil)
	ks.now = func() time.Time { return now }

	if _, err := ks.Key(context.Background(), "kid-a"); err != nil {
		t.Fatalf("Key(kid-a) error = %v", err)
	}

	generation.Store(1)
	now = now.Add(minKeyRefreshInterval + time.Second)
	key, err := ks.Key(context.Background(), "kid-b")
	if err != nil {
		t.Fatalf("Key(kid-b) after rollover error = %v", err)
	}
	if key.N.Cmp(privB.PublicKey.N) != 0 {
		t.Error("Key(kid-b) returned wrong modulus")
	}
}

func TestKeySetRejectsEmptyDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"keys": []any{}})
	}))
	defer srv.Close()

	ks := NewKeySet(srv.URL, nil)
	if _, err := ks.Key(context.Background(), "any"); err == nil {
		t.Error("Key() succeeded against an empty key set")
	}
}

func TestParseRSAKey(t *testing.T) {
	tests := []struct {
		name    string
		n, e    string
		wantErr bool
	}{
		{name: "valid", n: base64.RawURLEncoding.EncodeToString([]byte{0x01, 0x02, 0x03}), e: "AQAB"},
		{name: "bad modulus encoding", n: "!!!", e: "AQAB", wantErr: true},
		{name: "bad exponent encoding", n: "AQID", e: "!!!", wantErr: true},
		{name: "empty modulus", n: "", e: "AQAB", wantErr: true},
		{name: "exponent one", n: "AQID", e: "AQ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRSAKey(tt.n, tt.e)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseRSAKey() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTenantJWKSURL(t *testing.T) {
	got := TenantJWKSURL("my-tenant")
	want := "https://login.microsoftonline.com/my-tenant/discovery/v2.0/keys"
	if got != want {
		t.Errorf("TenantJWKSURL() = %q, want %q", got, want)
	}
}
