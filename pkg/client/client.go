// Package client talks to a running battwatch daemon over its unix socket.
package client

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Client is a struct for communicating with the battwatch daemon
type Client struct {
	socketPath string
	httpClient *http.Client
}

// NewClient is a constructor for creating a new Client
func NewClient(socketPath string) *Client {
	c := &Client{socketPath: socketPath}
	c.httpClient = &http.Client{
		Transport: &http.Transport{
			DialContext: c.dial,
		},
	}
	return c
}

func (c *Client) dial(ctx context.Context, _, _ string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		// A socket file left behind by a dead daemon refuses connections.
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
			return nil, ErrDaemonNotRunning
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, ErrPermissionDenied
		}
		logrus.Errorf("failed to connect to unix socket: %v", err)
		return nil, err
	}
	return conn, nil
}

// Send is a method for sending a request to the daemon
func (c *Client) Send(ctx context.Context, method string, path string, data string) (string, error) {
	logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"data":   data,
		"unix":   c.socketPath,
	}).Debug("sending request")

	var body io.Reader
	if data != "" {
		body = strings.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, "http://unix"+path, body)
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Keep the sentinel errors from dial visible to errors.Is.
		for _, sentinel := range []error{ErrDaemonNotRunning, ErrPermissionDenied} {
			if errors.Is(err, sentinel) {
				return "", sentinel
			}
		}
		return "", pkgerrors.Wrap(err, "failed to send request")
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Errorf("failed to close response body: %v", err)
		}
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to read response body")
	}
	ret := string(b)

	if resp.StatusCode == http.StatusNotFound {
		return "", pkgerrors.Wrap(ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", pkgerrors.Errorf("got %d: %s", resp.StatusCode, ret)
	}

	return ret, nil
}

// Get is a method for sending a GET request to the daemon
func (c *Client) Get(ctx context.Context, path string) (string, error) {
	return c.Send(ctx, http.MethodGet, path, "")
}
