package hec

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mosajjal/Go-Splunk-HTTP/splunk/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/models"
)

type fakeSender struct {
	healthErr error
	sendErr   error
	sent      [][]*splunk.Event
}

func (f *fakeSender) LogEvents(events []*splunk.Event) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, events)
	return nil
}

func (f *fakeSender) CheckHealth() error { return f.healthErr }

func testClient(strategy string, senders ...*fakeSender) *Client {
	c, _ := NewClient(Config{Endpoints: []string{"https://localhost:8088"}, BalanceStrategy: strategy, Index: "main"}, zap.NewNop())
	c.connections = nil
	for i, s := range senders {
		c.connections = append(c.connections, &connection{endpoint: string(rune('a' + i)), client: s})
	}
	return c
}

func response() models.Response {
	return models.Response{Records: []models.Envelope{
		models.OkEnvelope("r1", []byte(`{"a":1}`+"\n")),
		models.DroppedEnvelope(models.BatchRecord{RecordID: "r2", Data: "e30="}),
		models.OkEnvelope("r3", []byte(`{"b":2}`+"\n"+`{"c":3}`)),
	}}
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(Config{Endpoints: []string{"https://localhost:8088/", " "}, Token: "t"}, nil)
	require.NoError(t, err)
	require.Len(t, c.connections, 1)
	assert.Equal(t, "https://localhost:8088/services/collector", c.connections[0].endpoint)
	assert.Equal(t, uint8(FirstAvailable), c.balanceStrategy)

	_, err = NewClient(Config{}, nil)
	assert.Error(t, err)
}

func TestNewClient_BalanceStrategies(t *testing.T) {
	tests := []struct {
		strategy string
		expected uint8
	}{
		{"first_available", FirstAvailable},
		{"roundrobin", RoundRobin},
		{"unknown", FirstAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			c, err := NewClient(Config{Endpoints: []string{"https://localhost:8088"}, BalanceStrategy: tt.strategy}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c.balanceStrategy)
		})
	}
}

func TestEvents(t *testing.T) {
	c := testClient("", &fakeSender{})

	events, err := c.Events(response())
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, json.RawMessage(`{"a":1}`), events[0].Event)
	assert.Equal(t, json.RawMessage(`{"c":3}`), events[2].Event)
	assert.Equal(t, "main", events[0].Index)
}

func TestForward_FirstAvailable(t *testing.T) {
	down := &fakeSender{healthErr: errors.New("down")}
	up := &fakeSender{}
	c := testClient("first_available", down, up)

	n, err := c.Forward(context.Background(), response())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, down.sent)
	require.Len(t, up.sent, 1)
}

func TestForward_RoundRobin(t *testing.T) {
	a, b := &fakeSender{}, &fakeSender{}
	c := testClient("roundrobin", a, b)

	for i := 0; i < 4; i++ {
		_, err := c.Forward(context.Background(), response())
		require.NoError(t, err)
	}
	assert.Len(t, a.sent, 2)
	assert.Len(t, b.sent, 2)
}

func TestForward_Errors(t *testing.T) {
	c := testClient("", &fakeSender{healthErr: errors.New("down")})
	_, err := c.Forward(context.Background(), response())
	assert.ErrorContains(t, err, "no healthy")

	c = testClient("", &fakeSender{sendErr: errors.New("403")})
	_, err = c.Forward(context.Background(), response())
	assert.ErrorContains(t, err, "403")

	n, err := c.Forward(context.Background(), models.Response{})
	assert.NoError(t, err)
	assert.Zero(t, n)
}
