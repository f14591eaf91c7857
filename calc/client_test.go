package calc_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Spidey0819/Container-1/calc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	t.Run("sends file and product, returns body unchanged", func(t *testing.T) {
		var got map[string]json.RawMessage
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/sum", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body, err := io.ReadAll(r.Body)
			assert.Nil(t, err)
			assert.Nil(t, json.Unmarshal(body, &got))
			_, _ = w.Write([]byte(`{"file": "a/b.txt",  "sum": 42}`))
		}))
		defer srv.Close()

		c := calc.New(calc.WithURL(srv.URL + "/sum"))
		result, err := c.Calculate(context.Background(), "a/b.txt", json.RawMessage(`{"name":"wheat"}`))
		require.Nil(t, err)
		assert.Equal(t, `{"file": "a/b.txt",  "sum": 42}`, string(result))
		assert.JSONEq(t, `"a/b.txt"`, string(got["file"]))
		assert.JSONEq(t, `{"name":"wheat"}`, string(got["product"]))
	})
	t.Run("status code is not interpreted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Input file not in CSV format."}`))
		}))
		defer srv.Close()

		result, err := calc.New(calc.WithURL(srv.URL)).Calculate(context.Background(), "f", json.RawMessage(`1`))
		require.Nil(t, err)
		assert.JSONEq(t, `{"error":"Input file not in CSV format."}`, string(result))
	})
	t.Run("body that is not JSON", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>oops</html>"))
		}))
		defer srv.Close()

		_, err := calc.New(calc.WithURL(srv.URL)).Calculate(context.Background(), "f", json.RawMessage(`1`))
		assert.True(t, errors.Is(err, calc.ErrInvalidResponse), "got %v", err)
	})
	t.Run("empty body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		_, err := calc.New(calc.WithURL(srv.URL)).Calculate(context.Background(), "f", json.RawMessage(`1`))
		assert.True(t, errors.Is(err, calc.ErrInvalidResponse), "got %v", err)
	})
	t.Run("connection refused", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.Nil(t, err)
		addr := ln.Addr().String()
		require.Nil(t, ln.Close())

		_, err = calc.New(calc.WithURL("http://"+addr+"/sum")).Calculate(context.Background(), "f", json.RawMessage(`1`))
		assert.True(t, errors.Is(err, calc.ErrCommunication), "got %v", err)
	})
	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		start := time.Now()
		_, err := calc.New(calc.WithURL(srv.URL), calc.WithTimeout(100*time.Millisecond)).
			Calculate(context.Background(), "f", json.RawMessage(`1`))
		assert.True(t, errors.Is(err, calc.ErrCommunication), "got %v", err)
		assert.True(t, time.Since(start) < 5*time.Second)
	})
	t.Run("never retries", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		_, err := calc.New(calc.WithURL(srv.URL)).Calculate(context.Background(), "f", json.RawMessage(`1`))
		assert.NotNil(t, err)
		assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	})
	t.Run("rate limiter gives up with the context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		// One request every 100 seconds: the second one cannot make it within
		// the timeout.
		c := calc.New(calc.WithURL(srv.URL), calc.WithRateLimit(0.01), calc.WithTimeout(200*time.Millisecond))
		_, err := c.Calculate(context.Background(), "f", json.RawMessage(`1`))
		require.Nil(t, err)
		_, err = c.Calculate(context.Background(), "f", json.RawMessage(`1`))
		assert.True(t, errors.Is(err, calc.ErrCommunication), "got %v", err)
	})
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, calc.DefaultURL, calc.New().URL())
	assert.Equal(t, 10*time.Second, calc.DefaultTimeout)
}
