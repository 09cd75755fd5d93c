package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("image bytes"))
	}))
	defer srv.Close()

	f := New(time.Second)
	data, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "image bytes" {
		t.Errorf("data = %q", data)
	}
}

func TestFetch_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(time.Second)
	_, err := f.Fetch(context.Background(), srv.URL)
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *fetch.Error", err)
	}
	if fe.Status != http.StatusNotFound {
		t.Errorf("Status = %d", fe.Status)
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	f := New(time.Second)
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/none")
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *fetch.Error", err)
	}
	if fe.Status != 0 {
		t.Errorf("Status = %d, want 0 for transport failure", fe.Status)
	}
}

func TestFetch_SharesInFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	f := New(5 * time.Second)
	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := f.Fetch(context.Background(), srv.URL)
			done <- err
		}()
	}
	// Give both goroutines time to join the flight before releasing.
	time.Sleep(100 * time.Millisecond)
	close(release)
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("Fetch: %v", err)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}
}
