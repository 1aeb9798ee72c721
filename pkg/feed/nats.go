// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package feed

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// DefaultNATSSubject is the subject price updates are published on.
const DefaultNATSSubject = "prices.updates"

const natsBuffer = 1024

// NATSSource subscribes to a NATS subject.
type NATSSource struct {
	conn       *nats.Conn
	subject    string
	assetField string
	log        *logrus.Entry
}

// NewNATSSource creates a price source on subject.
func NewNATSSource(conn *nats.Conn, subject, assetField string) *NATSSource {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATSSource{
		conn:       conn,
		subject:    subject,
		assetField: assetField,
		log:        logrus.WithFields(logrus.Fields{"component": "feed", "source": "nats", "subject": subject}),
	}
}

// Run consumes until ctx is cancelled.
func (s *NATSSource) Run(ctx context.Context, out chan<- pipeline.PriceEvent) error {
	msgs := make(chan *nats.Msg, natsBuffer)
	sub, err := s.conn.ChanSubscribe(s.subject, msgs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			s.log.Debugf("unsubscribe: %v", err)
		}
	}()
	s.log.Info("subscribed to price updates")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			ev, err := ParsePriceUpdate(msg.Data, s.assetField)
			if err != nil {
				s.log.Warnf("skipping price update: %v", err)
				continue
			}
			if !forward(ctx, out, ev) {
				return nil
			}
		}
	}
}

// ConnectNATS dials url with reconnects enabled.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logrus.Warnf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logrus.Infof("nats reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return conn, nil
}
