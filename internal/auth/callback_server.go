package auth

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"leo/internal/logging"
)

// CallbackResult is the authorization code and CSRF state returned by
// Google's redirect to the loopback listener.
type CallbackResult struct {
	Code  string
	State string
}

const successPage = `<!DOCTYPE html>
<html><head><title>Leo</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>✅ Signed in</h1>
<p>You can close this tab and return to the terminal.</p>
</body></html>`

const failurePage = `<!DOCTYPE html>
<html><head><title>Leo</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>❌ Sign-in failed</h1>
<p>Return to the terminal for details.</p>
</body></html>`

// WaitForCallback listens on the loopback callback address, accepts a
// single connection, and parses the OAuth redirect out of it. The
// browser gets a static confirmation page either way.
func WaitForCallback(ctx context.Context) (*CallbackResult, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", CallbackPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	defer listener.Close()

	// Unblock Accept when the context is cancelled or times out.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			listener.Close()
		case <-done:
		}
	}()

	logging.Debug("waiting for oauth callback", "addr", addr)

	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("authorization timed out: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to accept callback connection: %w", err)
	}
	defer conn.Close()

	requestLine, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read callback request: %w", err)
	}

	result, parseErr := ParseCallbackRequest(strings.TrimRight(requestLine, "\r\n"))

	page := successPage
	if parseErr != nil {
		page = failurePage
	}
	fmt.Fprintf(conn, "HTTP/1.1 200 OK\r\nContent-Type: text/html; charset=utf-8\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s", len(page), page)

	if parseErr != nil {
		return nil, parseErr
	}
	return result, nil
}

// ParseCallbackRequest extracts the code and state from the first line
// of the redirect HTTP request, e.g.
// "GET /callback?code=abc&state=xyz HTTP/1.1".
func ParseCallbackRequest(requestLine string) (*CallbackResult, error) {
	parts := strings.Split(requestLine, " ")
	if len(parts) < 2 {
		return nil, fmt.Errorf("malformed callback request line: %q", requestLine)
	}

	target, err := url.Parse(parts[1])
	if err != nil {
		return nil, fmt.Errorf("malformed callback URL: %w", err)
	}
	if target.Path != CallbackPath {
		return nil, fmt.Errorf("unexpected callback path: %s", target.Path)
	}

	query := target.Query()
	if errCode := query.Get("error"); errCode != "" {
		if desc := query.Get("error_description"); desc != "" {
			return nil, fmt.Errorf("authorization failed: %s (%s)", errCode, desc)
		}
		return nil, fmt.Errorf("authorization failed: %s", errCode)
	}

	code := query.Get("code")
	if code == "" {
		return nil, fmt.Errorf("callback is missing the authorization code")
	}

	return &CallbackResult{Code: code, State: query.Get("state")}, nil
}
