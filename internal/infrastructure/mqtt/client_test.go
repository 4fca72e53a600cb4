package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	cfg := config.Default().MQTT
	cfg.Enabled = true
	cfg.Broker.Host = "127.0.0.1"
	cfg.Broker.ClientID = "graylogic-topology-test"
	return cfg
}

type recordingLogger struct {
	errors, warns []string
}

func (l *recordingLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.warns = append(l.warns, msg) }

func TestClientOptions(t *testing.T) {
	t.Run("plain broker", func(t *testing.T) {
		opts := ClientOptions(testConfig())
		if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
			t.Errorf("Servers = %v", opts.Servers)
		}
		if opts.ClientID != "graylogic-topology-test" || opts.Username != "" {
			t.Errorf("ClientID = %q, Username = %q", opts.ClientID, opts.Username)
		}
		if opts.TLSConfig != nil {
			t.Error("TLSConfig set without TLS")
		}
	})

	t.Run("tls and auth", func(t *testing.T) {
		cfg := testConfig()
		cfg.Broker.TLS = true
		cfg.Broker.Port = 8883
		cfg.Auth = config.MQTTAuthConfig{Username: "topology", Password: "secret"}

		opts := ClientOptions(cfg)
		if opts.Servers[0].String() != "ssl://127.0.0.1:8883" {
			t.Errorf("Servers = %v", opts.Servers)
		}
		if opts.Username != "topology" || opts.Password != "secret" {
			t.Error("credentials not applied")
		}
		if opts.TLSConfig == nil {
			t.Error("TLSConfig not set")
		}
	})

	t.Run("last will", func(t *testing.T) {
		opts := ClientOptions(testConfig())
		if !opts.WillEnabled || opts.WillTopic != (Topics{}).Status() || !opts.WillRetained {
			t.Fatalf("will = %v %q retained=%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
		}
		var msg StatusMessage
		if err := json.Unmarshal(opts.WillPayload, &msg); err != nil {
			t.Fatal(err)
		}
		if msg.Status != "offline" || msg.Reason != "unexpected_disconnect" {
			t.Errorf("will payload = %+v", msg)
		}
	})
}

func TestDisconnectedClient(t *testing.T) {
	c := &Client{subscriptions: map[string]subscription{}, logger: noopLogger{}}
	handler := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish("", nil, 0, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish("t", nil, 3, false), ErrInvalidQoS},
		{"publish oversize", c.Publish("t", make([]byte, maxPayloadSize+1), 0, false), ErrPublishFailed},
		{"publish disconnected", c.Publish("t", []byte("x"), 1, false), ErrNotConnected},
		{"subscribe nil handler", c.Subscribe("t", 1, nil), ErrSubscribeFailed},
		{"subscribe disconnected", c.Subscribe("t", 1, handler), ErrNotConnected},
		{"unsubscribe empty", c.Unsubscribe(""), ErrInvalidTopic},
		{"health", c.HealthCheck(context.Background()), ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if c.HasSubscription("t") {
		t.Error("failed subscribe was tracked")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestDeliver(t *testing.T) {
	log := &recordingLogger{}

	deliver(log, func(string, []byte) error { return nil }, "a", nil)
	deliver(log, func(string, []byte) error { return fmt.Errorf("bad payload") }, "b", nil)
	deliver(log, func(string, []byte) error { panic("boom") }, "c", nil)

	if len(log.warns) != 1 || len(log.errors) != 1 {
		t.Errorf("warns = %v, errors = %v", log.warns, log.errors)
	}
}

func TestTopics(t *testing.T) {
	tp := Topics{}
	tests := []struct {
		got, want string
	}{
		{tp.Status(), "graylogic/topology/status"},
		{tp.Event("loaded"), "graylogic/topology/event/loaded"},
		{tp.Command("reload"), "graylogic/topology/command/reload"},
		{tp.AllEvents(), "graylogic/topology/event/+"},
		{tp.AllCommands(), "graylogic/topology/command/+"},
		{tp.CommandName("graylogic/topology/command/save"), "save"},
		{tp.CommandName("graylogic/topology/command/"), ""},
		{tp.CommandName("graylogic/topology/command/a/b"), ""},
		{tp.CommandName("graylogic/topology/event/loaded"), ""},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}
