package kamipay

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newAuthServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != AuthTokenPath {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		if r.PostForm.Get("username") != "key" || r.PostForm.Get("password") != "secret" {
			t.Errorf("credentials = %v", r.PostForm)
		}
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-abc","token_type":"bearer"}`))
	}))
}

func TestTokenManagerCachesToken(t *testing.T) {
	var calls int32
	srv := newAuthServer(t, &calls)
	defer srv.Close()

	tm := NewTokenManager("key", "secret", srv.URL, srv.Client())

	// Duas chamadas dentro da janela de validade: uma única troca remota
	for i := 0; i < 2; i++ {
		token, err := tm.GetToken()
		if err != nil {
			t.Fatalf("GetToken() error = %v", err)
		}
		if token != "tok-abc" {
			t.Errorf("token = %v, want tok-abc", token)
		}
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("auth calls = %d, want 1", got)
	}
}

func TestTokenManagerRefreshesAfterExpiry(t *testing.T) {
	var calls int32
	srv := newAuthServer(t, &calls)
	defer srv.Close()

	tm := NewTokenManager("key", "secret", srv.URL, srv.Client())

	if _, err := tm.GetToken(); err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}

	// Simula a janela de validade vencida
	tm.mu.Lock()
	tm.expiresAt = time.Now().Add(-time.Minute)
	tm.mu.Unlock()

	if _, err := tm.GetToken(); err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("auth calls = %d, want 2", got)
	}
}

func TestTokenManagerInvalidate(t *testing.T) {
	var calls int32
	srv := newAuthServer(t, &calls)
	defer srv.Close()

	tm := NewTokenManager("key", "secret", srv.URL, srv.Client())

	if _, err := tm.GetToken(); err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	tm.Invalidate()
	if _, err := tm.GetToken(); err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("auth calls = %d, want 2", got)
	}
}

func TestTokenManagerExchangeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid credentials"}`))
	}))
	defer srv.Close()

	tm := NewTokenManager("key", "wrong", srv.URL, srv.Client())

	_, err := tm.GetToken()
	if err == nil {
		t.Fatal("GetToken() should fail")
	}
	if !IsAuthentication(err) {
		t.Errorf("error = %v, want ErrAuthentication", err)
	}
}
