// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// ClientConfig holds connection settings for the Zeebe gateway.
type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig defines backoff behavior for transient connection failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

// Connect dials the Zeebe gateway with exponential backoff and verifies the
// connection with a topology request before handing the client back.
func Connect(ctx context.Context, config *ClientConfig) (zbc.Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	var lastErr error
	delay := config.RetryConfig.BaseDelay
	for attempt := 0; attempt <= config.RetryConfig.MaxRetries; attempt++ {
		client, err := dial(ctx, config)
		if err == nil {
			return client, nil
		}
		lastErr = err

		if !isRetryableZeebeError(err) || attempt == config.RetryConfig.MaxRetries {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("zeebe connect cancelled after %d attempts: %w", attempt+1, ctx.Err())
		}
		delay *= 2
		if delay > config.RetryConfig.MaxDelay {
			delay = config.RetryConfig.MaxDelay
		}
	}
	return nil, fmt.Errorf("zeebe connect to %s failed: %w", config.GatewayAddress, lastErr)
}

func dial(ctx context.Context, config *ClientConfig) (zbc.Client, error) {
	client, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, err
	}

	checkCtx, cancel := context.WithTimeout(ctx, config.ConnectionTimeout)
	defer cancel()
	if _, err := client.NewTopologyCommand().Send(checkCtx); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// HealthCheck verifies the broker is reachable.
func HealthCheck(ctx context.Context, client zbc.Client) error {
	_, err := client.NewTopologyCommand().Send(ctx)
	if err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
