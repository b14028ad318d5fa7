package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestSubmitSendsFormAndHeaders(t *testing.T) {
	var gotForm url.Values
	var gotAuth, gotType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotForm = r.PostForm
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"code":"success"}`)
	}))
	defer srv.Close()

	c := NewClient(nil, 5*time.Second, nil)
	form := url.Values{"platform": {"sketch"}, "image": {"data:image/png;base64,AAAA"}}
	header := http.Header{"Authorization": {"Token k"}}

	resp, err := c.Submit(context.Background(), srv.URL+"/predict/", form, header)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("Expected 201 passed through, got %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"code":"success"}` {
		t.Errorf("Unexpected body %s", resp.Body)
	}
	if gotAuth != "Token k" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if gotForm.Get("image") != "data:image/png;base64,AAAA" || gotForm.Get("platform") != "sketch" {
		t.Errorf("Unexpected form %v", gotForm)
	}
}

func TestSubmitReturnsErrorStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	resp, err := NewClient(srv.Client(), 0, nil).Submit(context.Background(), srv.URL, url.Values{}, nil)
	if err != nil {
		t.Fatalf("status errors are not transport errors: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	if _, err := NewClient(nil, time.Second, nil).Submit(context.Background(), addr, url.Values{}, nil); err == nil {
		t.Error("Expected error for closed server")
	}
	if _, err := NewClient(nil, time.Second, nil).Submit(context.Background(), "::bad", url.Values{}, nil); err == nil {
		t.Error("Expected error for invalid url")
	}
}

func TestFetchAndCredits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/asset.png":
			w.Write([]byte("png"))
		case "/credits":
			io.WriteString(w, `{"credits": 42}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(nil, time.Second, nil)

	data, err := c.Fetch(context.Background(), srv.URL+"/asset.png")
	if err != nil || string(data) != "png" {
		t.Errorf("Fetch = %q, %v", data, err)
	}
	if _, err := c.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("Expected error for 404 asset")
	}

	resp, err := c.Get(context.Background(), srv.URL+"/credits", http.Header{"Authorization": {"Token k"}})
	if err != nil {
		t.Fatal(err)
	}
	credits, err := DecodeCredits(resp.Body)
	if err != nil || credits.Credits != 42 {
		t.Errorf("DecodeCredits = %+v, %v", credits, err)
	}
}
