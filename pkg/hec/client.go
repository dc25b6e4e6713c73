// Package hec forwards transformed records to a Splunk HTTP Event Collector.
// It is used by eventctl to replay a batch into Splunk instead of Firehose.
package hec

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mosajjal/Go-Splunk-HTTP/splunk/v2"
	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/models"
)

// Config holds HEC client configuration
type Config struct {
	Endpoints       []string
	TLSSkipVerify   bool
	Token           string
	ChannelID       string
	Index           string
	Source          string
	SourceType      string
	Host            string
	Timeout         time.Duration
	BalanceStrategy string // first_available, roundrobin
}

// Balance strategies
const (
	FirstAvailable = 1
	RoundRobin     = 2
)

// sender is the part of splunk.Client the forwarder uses
type sender interface {
	LogEvents(events []*splunk.Event) error
	CheckHealth() error
}

type connection struct {
	endpoint string
	client   sender
}

// Client sends Ok records of a transformation response to HEC
type Client struct {
	config          Config
	connections     []*connection
	balanceStrategy uint8
	logger          *zap.Logger

	mu   sync.Mutex
	next int
}

// NewClient creates a new HEC client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := &Client{
		config: cfg,
		logger: logger,
	}

	switch cfg.BalanceStrategy {
	case "", "first_available":
		client.balanceStrategy = FirstAvailable
	case "roundrobin":
		client.balanceStrategy = RoundRobin
	default:
		logger.Warn("unknown load balance strategy, using first_available", zap.String("strategy", cfg.BalanceStrategy))
		client.balanceStrategy = FirstAvailable
	}

	for _, endpoint := range cfg.Endpoints {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint == "" {
			continue
		}
		client.connections = append(client.connections, newConnection(endpoint, cfg))
	}
	if len(client.connections) == 0 {
		return nil, errors.New("no valid HEC endpoints configured")
	}
	return client, nil
}

func newConnection(endpoint string, cfg Config) *connection {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.TLSSkipVerify},
		},
	}

	endpoint = strings.TrimSuffix(endpoint, "/")
	if !strings.HasSuffix(endpoint, "/services/collector") {
		endpoint = fmt.Sprintf("%s/services/collector", endpoint)
	}

	channelID := cfg.ChannelID
	if _, err := uuid.Parse(channelID); err != nil {
		channelID = uuid.New().String()
	}

	return &connection{
		endpoint: endpoint,
		client: splunk.NewClient(
			httpClient,
			endpoint,
			cfg.Token,
			channelID,
			cfg.Source,
			cfg.SourceType,
			cfg.Index,
		),
	}
}

// Events converts the Ok records of a response into HEC events. A record may
// hold several newline separated documents; each becomes its own event.
func (c *Client) Events(resp models.Response) ([]*splunk.Event, error) {
	now := time.Now()
	var out []*splunk.Event
	for _, env := range resp.Records {
		if !env.IsOk() {
			continue
		}
		raw, err := models.BatchRecord{RecordID: env.RecordID, Data: env.Data}.Decode()
		if err != nil {
			return nil, fmt.Errorf("decode record %s: %w", env.RecordID, err)
		}
		for _, line := range bytes.Split(raw, []byte("\n")) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			var event any = string(line)
			if json.Valid(line) {
				event = json.RawMessage(line)
			}
			out = append(out, &splunk.Event{
				Time:       splunk.EventTime{Time: now},
				Host:       c.config.Host,
				Source:     c.config.Source,
				SourceType: c.config.SourceType,
				Index:      c.config.Index,
				Event:      event,
			})
		}
	}
	return out, nil
}

// Forward sends the Ok records of resp and returns how many events were sent
func (c *Client) Forward(ctx context.Context, resp models.Response) (int, error) {
	events, err := c.Events(resp)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	conn := c.getConnection()
	if conn == nil {
		return 0, errors.New("no healthy HEC connection available")
	}
	if err := conn.client.LogEvents(events); err != nil {
		return 0, fmt.Errorf("send to %s: %w", conn.endpoint, err)
	}
	c.logger.Info("forwarded events to HEC", zap.String("endpoint", conn.endpoint), zap.Int("count", len(events)))
	return len(events), nil
}

func (c *Client) getConnection() *connection {
	c.mu.Lock()
	start := 0
	if c.balanceStrategy == RoundRobin {
		start = c.next
		c.next = (c.next + 1) % len(c.connections)
	}
	c.mu.Unlock()

	for i := range c.connections {
		conn := c.connections[(start+i)%len(c.connections)]
		if err := conn.client.CheckHealth(); err != nil {
			c.logger.Warn("HEC endpoint unhealthy", zap.String("endpoint", conn.endpoint), zap.Error(err))
			continue
		}
		return conn
	}
	return nil
}

// Close closes all connections
func (c *Client) Close() error {
	return nil
}
