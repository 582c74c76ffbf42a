package helpers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type transportWithLogger struct {
	Transport http.RoundTripper
}

func NewTransportWithLogger(transport http.RoundTripper) *transportWithLogger {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &transportWithLogger{Transport: transport}
}

// Request and response bodies of these paths carry credentials or tokens.
var secretPaths = []string{"/api/auth/", "/api/me/password"}

func hasSecrets(path string) bool {
	for _, p := range secretPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (t *transportWithLogger) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	secret := hasSecrets(req.URL.Path)

	var reqBodyBytes []byte
	if req.Body != nil && !secret {
		reqBodyBytes, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(reqBodyBytes))
	}

	event := log.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String())
	withBody(event, reqBodyBytes).Msg("API request:")

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		log.Debug().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("API request failed")
		return resp, err
	}

	var respBodyBytes []byte
	if resp.Body != nil && !secret {
		respBodyBytes, _ = io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewBuffer(respBodyBytes))
	}

	switch {
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		event = log.Warn()
	case resp.StatusCode >= http.StatusInternalServerError:
		event = log.Error()
	default:
		event = log.Debug()
	}

	event = event.Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start))
	withBody(event, respBodyBytes).Msg("API response:")

	return resp, nil
}

func withBody(event *zerolog.Event, body []byte) *zerolog.Event {
	if len(body) == 0 {
		return event
	}
	if json.Valid(body) {
		return event.RawJSON("body", body)
	}
	return event.Bytes("body", body)
}
