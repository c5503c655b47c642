package client

import (
	"context"
	"encoding/json"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/battwatch/pkg/config"
	"github.com/charlie0129/battwatch/pkg/types"
)

func (c *Client) GetMetrics(ctx context.Context) (*types.Metrics, error) {
	ret, err := c.Get(ctx, "/metrics")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get metrics")
	}

	var m types.Metrics
	if err := json.Unmarshal([]byte(ret), &m); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal metrics")
	}
	return &m, nil
}

func (c *Client) GetPercent(ctx context.Context) (string, error) {
	return c.getString(ctx, "/percent", "battery percentage")
}

func (c *Client) GetWattage(ctx context.Context) (string, error) {
	return c.getString(ctx, "/wattage", "charging wattage")
}

func (c *Client) GetVersion(ctx context.Context) (string, error) {
	return c.getString(ctx, "/version", "version")
}

func (c *Client) GetConfig(ctx context.Context) (*config.RawFileConfig, error) {
	ret, err := c.Get(ctx, "/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

func (c *Client) getString(ctx context.Context, path, what string) (string, error) {
	ret, err := c.Get(ctx, path)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get %s", what)
	}
	var s string
	if err := json.Unmarshal([]byte(ret), &s); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal %s", what)
	}
	return s, nil
}
