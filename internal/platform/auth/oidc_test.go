package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return priv
}

// testJWK converts an RSA key into its JWKS wire form.
func testJWK(priv *rsa.PrivateKey, kid string) JWKSKey {
	pub := &priv.PublicKey
	return JWKSKey{
		Kty: "RSA",
		Kid: kid,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

func serveJWKS(keys ...JWKSKey) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(JWKSResponse{Keys: keys})
	}
}

func serveDiscovery(doc map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
	}
}

func TestOIDCProvider_Discovery(t *testing.T) {
	jwksSrv := httptest.NewServer(serveJWKS())
	defer jwksSrv.Close()

	srv := httptest.NewServer(serveDiscovery(map[string]interface{}{
		"issuer":                 "https://idp.example.com",
		"authorization_endpoint": "https://idp.example.com/authorize",
		"token_endpoint":         "https://idp.example.com/token",
		"userinfo_endpoint":      "https://idp.example.com/userinfo",
		"jwks_uri":               jwksSrv.URL,
		"scopes_supported":       []string{"openid", "profile", "email"},
	}))
	defer srv.Close()

	provider, err := NewOIDCProvider(srv.URL)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	if provider.AuthorizationEndpoint != "https://idp.example.com/authorize" {
		t.Errorf("unexpected authorization_endpoint %s", provider.AuthorizationEndpoint)
	}
	if provider.TokenEndpoint != "https://idp.example.com/token" {
		t.Errorf("unexpected token_endpoint %s", provider.TokenEndpoint)
	}
	if provider.JWKSURI != jwksSrv.URL {
		t.Errorf("expected jwks_uri %s, got %s", jwksSrv.URL, provider.JWKSURI)
	}
	if !provider.SupportsScope("openid") {
		t.Error("expected SupportsScope(openid) to be true")
	}
	if provider.SupportsScope("nonexistent") {
		t.Error("expected SupportsScope(nonexistent) to be false")
	}
}

func TestOIDCProvider_InvalidIssuer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	if _, err := NewOIDCProvider(srv.URL); err == nil {
		t.Fatal("expected error for 404 discovery document")
	}
	if _, err := NewOIDCProvider("http://127.0.0.1:1"); err == nil {
		t.Fatal("expected error for unreachable issuer")
	}
}

func TestOIDCProvider_MissingJWKSURI(t *testing.T) {
	srv := httptest.NewServer(serveDiscovery(map[string]interface{}{
		"issuer":         "https://idp.example.com",
		"token_endpoint": "https://idp.example.com/token",
	}))
	defer srv.Close()

	if _, err := NewOIDCProvider(srv.URL); err == nil {
		t.Fatal("expected error for missing jwks_uri")
	}
}

func TestOIDCProvider_JWKSKeyFunc(t *testing.T) {
	priv := testRSAKey(t)
	jwksSrv := httptest.NewServer(serveJWKS(testJWK(priv, "key-1")))
	defer jwksSrv.Close()

	srv := httptest.NewServer(serveDiscovery(map[string]interface{}{
		"issuer":   "https://idp.example.com",
		"jwks_uri": jwksSrv.URL,
	}))
	defer srv.Close()

	provider, err := NewOIDCProvider(srv.URL)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if provider.JWKSKeyFunc() == nil {
		t.Fatal("JWKSKeyFunc returned nil")
	}
}

func TestJWKSCache_Fetch(t *testing.T) {
	priv := testRSAKey(t)
	srv := httptest.NewServer(serveJWKS(testJWK(priv, "fetch-key")))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL, 5*time.Minute)

	key, err := cache.GetKey("fetch-key")
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if key.N.Cmp(priv.PublicKey.N) != 0 || key.E != priv.PublicKey.E {
		t.Error("fetched key does not match the served key")
	}

	key2, err := cache.GetKey("fetch-key")
	if err != nil {
		t.Fatalf("cache hit: %v", err)
	}
	if key2.N.Cmp(key.N) != 0 {
		t.Error("cached key should match the first fetch")
	}
}

func TestJWKSCache_KeyRotation(t *testing.T) {
	priv1 := testRSAKey(t)
	priv2 := testRSAKey(t)

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		keys := []JWKSKey{testJWK(priv1, "rotate-1")}
		if calls > 1 {
			// The provider rotated a second key in.
			keys = append(keys, testJWK(priv2, "rotate-2"))
		}
		serveJWKS(keys...)(w, r)
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL, 1*time.Millisecond)

	if _, err := cache.GetKey("rotate-1"); err != nil {
		t.Fatalf("first key: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	key2, err := cache.GetKey("rotate-2")
	if err != nil {
		t.Fatalf("rotated key: %v", err)
	}
	if key2.N.Cmp(priv2.PublicKey.N) != 0 {
		t.Error("rotated key modulus does not match")
	}
	if calls < 2 {
		t.Errorf("expected a re-fetch after rotation, got %d fetches", calls)
	}
}

func TestJWKSCache_TTL(t *testing.T) {
	priv := testRSAKey(t)
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		serveJWKS(testJWK(priv, "ttl-key"))(w, r)
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL, 10*time.Minute)
	if _, err := cache.GetKey("ttl-key"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := cache.GetKey("ttl-key"); err != nil {
		t.Fatalf("cache hit: %v", err)
	}
	if fetches != 1 {
		t.Errorf("expected 1 fetch within the TTL, got %d", fetches)
	}

	short := NewJWKSCache(srv.URL, 1*time.Millisecond)
	if _, err := short.GetKey("ttl-key"); err != nil {
		t.Fatalf("short ttl fetch: %v", err)
	}
	before := fetches

	time.Sleep(5 * time.Millisecond)

	if _, err := short.GetKey("ttl-key"); err != nil {
		t.Fatalf("post-expiry fetch: %v", err)
	}
	if fetches <= before {
		t.Error("expected an additional fetch after TTL expiry")
	}
}

func TestJWKSCache_KeyNotFound(t *testing.T) {
	srv := httptest.NewServer(serveJWKS(testJWK(testRSAKey(t), "existing-key")))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL, 5*time.Minute)
	if _, err := cache.GetKey("nonexistent-key"); err == nil {
		t.Fatal("expected error for unknown key id")
	}
}

func TestJWKSCache_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL, 5*time.Minute)
	if _, err := cache.GetKey("any-key"); err == nil {
		t.Fatal("expected error for a failing JWKS endpoint")
	}
}

func TestParseRSAPublicKey(t *testing.T) {
	priv := testRSAKey(t)
	pub, err := parseRSAPublicKey(testJWK(priv, "parse-key"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pub.N.Cmp(priv.PublicKey.N) != 0 || pub.E != priv.PublicKey.E {
		t.Error("parsed key does not match the original")
	}
}

func TestParseRSAPublicKey_InvalidEncoding(t *testing.T) {
	if _, err := parseRSAPublicKey(JWKSKey{Kty: "RSA", N: "!!!", E: "AQAB"}); err == nil {
		t.Error("expected error for invalid modulus")
	}
	n := base64.RawURLEncoding.EncodeToString(big.NewInt(12345).Bytes())
	if _, err := parseRSAPublicKey(JWKSKey{Kty: "RSA", N: n, E: "!!!"}); err == nil {
		t.Error("expected error for invalid exponent")
	}
}

func TestJwksKeyFunc_NoKidHeader(t *testing.T) {
	srv := httptest.NewServer(serveJWKS())
	defer srv.Close()

	keyFunc := jwksKeyFunc(srv.URL)
	_, err := keyFunc(&jwt.Token{Header: map[string]interface{}{}})
	if err == nil {
		t.Fatal("expected error for token without kid")
	}
	if fmt.Sprintf("%v", err) != "token has no kid header" {
		t.Errorf("unexpected error message: %v", err)
	}
}
