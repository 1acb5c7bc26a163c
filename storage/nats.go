package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/truongquangDat1103/robot-homeguard/config"
	"github.com/truongquangDat1103/robot-homeguard/errors"
	"github.com/truongquangDat1103/robot-homeguard/pkg/retry"
	"github.com/truongquangDat1103/robot-homeguard/types"
)

// NATSStore persists readings and behavior entries to JetStream streams.
// Each record is published as a JSON message; stream retention is left to
// server-side policy.
type NATSStore struct {
	conn           *nats.Conn
	js             jetstream.JetStream
	subjectPrefix  string
	sensorStream   string
	behaviorStream string
}

// NewNATSStore connects to NATS and ensures the homeguard streams exist
func NewNATSStore(ctx context.Context, cfg config.NATSConfig) (*NATSStore, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	// The broker often starts alongside the hub, so the initial dial
	// backs off instead of failing on the first refused connection.
	conn, err := retry.DoWithResult(ctx, retry.Startup(), func() (*nats.Conn, error) {
		c, dialErr := nats.Connect(strings.Join(cfg.URLs, ","), opts...)
		if dialErr != nil {
			return nil, errors.WrapTransient(dialErr, "NATSStore", "NewNATSStore", "establish connection")
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapFatal(err, "NATSStore", "NewNATSStore", "initialize JetStream")
	}

	s := &NATSStore{
		conn:           conn,
		js:             js,
		subjectPrefix:  cfg.SubjectPrefix,
		sensorStream:   cfg.SensorStream,
		behaviorStream: cfg.BehaviorStream,
	}
	if s.subjectPrefix == "" {
		s.subjectPrefix = "homeguard"
	}

	if err := s.ensureStreams(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

// ensureStreams creates the sensor and behavior streams if they do not exist
func (s *NATSStore) ensureStreams(ctx context.Context) error {
	streams := []jetstream.StreamConfig{
		{
			Name:     s.sensorStream,
			Subjects: []string{s.subjectPrefix + ".sensors.>"},
			Storage:  jetstream.FileStorage,
		},
		{
			Name:     s.behaviorStream,
			Subjects: []string{s.subjectPrefix + ".behavior.>"},
			Storage:  jetstream.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := s.js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return errors.WrapTransient(err, "NATSStore", "ensureStreams",
				fmt.Sprintf("create stream %s", cfg.Name))
		}
	}
	return nil
}

// AppendSensorReadings publishes each reading to the sensor stream.
// Subject layout: <prefix>.sensors.<device_id>.<kind>
func (s *NATSStore) AppendSensorReadings(ctx context.Context, readings []types.SensorReading) error {
	for _, r := range readings {
		data, err := json.Marshal(r)
		if err != nil {
			return errors.WrapInvalid(err, "NATSStore", "AppendSensorReadings", "marshal reading")
		}

		subject := fmt.Sprintf("%s.sensors.%s.%s", s.subjectPrefix, subjectToken(r.DeviceID), r.Kind)
		if _, err := s.js.Publish(ctx, subject, data); err != nil {
			return errors.WrapTransient(err, "NATSStore", "AppendSensorReadings", "publish reading")
		}
	}
	return nil
}

// AppendBehaviorEntry publishes a behavior transition to the behavior stream.
// Subject layout: <prefix>.behavior.<device_id>
func (s *NATSStore) AppendBehaviorEntry(ctx context.Context, entry types.BehaviorLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.WrapInvalid(err, "NATSStore", "AppendBehaviorEntry", "marshal entry")
	}

	subject := fmt.Sprintf("%s.behavior.%s", s.subjectPrefix, subjectToken(entry.DeviceID))
	if _, err := s.js.Publish(ctx, subject, data); err != nil {
		return errors.WrapTransient(err, "NATSStore", "AppendBehaviorEntry", "publish entry")
	}
	return nil
}

// Close drains and closes the underlying connection
func (s *NATSStore) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return errors.WrapTransient(err, "NATSStore", "Close", "drain connection")
	}
	return nil
}

// subjectToken makes an identifier safe for use as a NATS subject token
func subjectToken(id string) string {
	replacer := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")
	return replacer.Replace(id)
}
