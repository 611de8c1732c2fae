package main

import (
	"bytes"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/nao1215/pluginlinks/internal/config"
)

func TestNewServeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewServeCmd()

	t.Run("has upstream flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("upstream")
		if flag == nil {
			t.Fatal("expected upstream flag")
		}
		if flag.Shorthand != "u" {
			t.Errorf("expected shorthand 'u', got %q", flag.Shorthand)
		}
	})

	t.Run("has listen flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("listen")
		if flag == nil {
			t.Fatal("expected listen flag")
		}
		if flag.DefValue != config.DefaultListenAddress {
			t.Errorf("expected default %q, got %q", config.DefaultListenAddress, flag.DefValue)
		}
	})

	t.Run("has session flags", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("session-ttl") == nil {
			t.Error("expected session-ttl flag")
		}
		if cmd.Flags().Lookup("session-cache-size") == nil {
			t.Error("expected session-cache-size flag")
		}
	})
}

func TestRunServeCmdValidation(t *testing.T) {
	t.Parallel()

	t.Run("missing upstream", func(t *testing.T) {
		t.Parallel()

		cmd := NewServeCmd()
		cmd.SetArgs([]string{"--config", emptyConfigFile(t)})
		cmd.SetOut(&bytes.Buffer{})

		if err := cmd.Execute(); !errors.Is(err, config.ErrNoUpstream) {
			t.Errorf("expected ErrNoUpstream, got %v", err)
		}
	})

	t.Run("invalid session ttl", func(t *testing.T) {
		t.Parallel()

		cmd := NewServeCmd()
		cmd.SetArgs([]string{"--config", emptyConfigFile(t), "-u", "http://localhost:9999", "--session-ttl", "0s"})
		cmd.SetOut(&bytes.Buffer{})

		if err := cmd.Execute(); !errors.Is(err, config.ErrInvalidSessionTTL) {
			t.Errorf("expected ErrInvalidSessionTTL, got %v", err)
		}
	})
}

func TestNewUpstreamTransport(t *testing.T) {
	t.Parallel()

	rt := newUpstreamTransport(3 * time.Second)
	tr, ok := rt.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", rt)
	}
	if tr.ResponseHeaderTimeout != 3*time.Second {
		t.Errorf("expected ResponseHeaderTimeout 3s, got %v", tr.ResponseHeaderTimeout)
	}
	if tr == http.DefaultTransport {
		t.Error("expected a clone of the default transport")
	}
}
