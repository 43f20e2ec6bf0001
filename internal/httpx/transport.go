// Package httpx holds the connection-pooling and circuit-breaking recipe
// shared by the store adapters that talk to networked collaborators
// (lexical, vector, candidate source).
package httpx

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultConnTimeout         = 10 * time.Second
	defaultRespTimeout         = 30 * time.Second
	defaultMaxIdleConns        = 50
	defaultMaxIdleConnsPerHost = 20
	defaultMaxConnsPerHost     = 50
	defaultIdleConnTimeout     = 90 * time.Second
)

// PoolConfig configures HTTP connection pooling for a store client.
type PoolConfig struct {
	ConnTimeout         time.Duration
	RespTimeout         time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
}

// NewClient builds an *http.Client with a pooled transport sized for a
// single-host store backend reached at high concurrency.
func NewClient(cfg PoolConfig) *http.Client {
	connTimeout := cfg.ConnTimeout
	if connTimeout <= 0 {
		connTimeout = defaultConnTimeout
	}
	respTimeout := cfg.RespTimeout
	if respTimeout <= 0 {
		respTimeout = defaultRespTimeout
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	maxIdlePerHost := cfg.MaxIdleConnsPerHost
	if maxIdlePerHost <= 0 {
		maxIdlePerHost = defaultMaxIdleConnsPerHost
	}
	maxConnsPerHost := cfg.MaxConnsPerHost
	if maxConnsPerHost <= 0 {
		maxConnsPerHost = defaultMaxConnsPerHost
	}
	idleTimeout := cfg.IdleConnTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleConnTimeout
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   connTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: respTimeout,
		MaxIdleConns:          maxIdle,
		MaxIdleConnsPerHost:   maxIdlePerHost,
		MaxConnsPerHost:       maxConnsPerHost,
		IdleConnTimeout:       idleTimeout,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   connTimeout + respTimeout,
	}
}
