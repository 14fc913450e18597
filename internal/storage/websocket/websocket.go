// Package websocket streams extraction artifacts to the crestline web
// server as they are produced, instead of persisting them locally.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/stopbank/crestline/pkg/core"
	"github.com/stopbank/crestline/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams run data over WebSocket to the crestline web server.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config) *Backend {
	return &Backend{
		conn: newConnection(slog.Default()),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// sendEnvelopeAndWait marshals the payload and waits for a server ack.
func (b *Backend) sendEnvelopeAndWait(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return b.conn.sendAndWait(data, msgType, ackTimeout)
}

// BeginRun announces the run and waits for server ack.
func (b *Backend) BeginRun(run *core.Run) error {
	data, err := marshalEnvelope(streaming.TypeBeginRun, streaming.NewRunMessage(run))
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedBeginMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeBeginRun, ackTimeout)
}

// EndRun sends the final run totals and waits for server ack.
func (b *Backend) EndRun(run *core.Run) error {
	err := b.sendEnvelopeAndWait(streaming.TypeEndRun, streaming.NewRunMessage(run))

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedBeginMsg = nil
	b.conn.mu.Unlock()

	return err
}

func (b *Backend) WriteFeature(f *core.Feature, s *core.FeatureSummary) error {
	return b.sendEnvelope(streaming.TypeFeature, streaming.NewFeatureMessage(f, s))
}

func (b *Backend) WriteBreakPoint(bp *core.BreakPoint) error {
	return b.sendEnvelope(streaming.TypeBreakPoint, streaming.NewBreakPointMessage(bp))
}

func (b *Backend) WriteCrossSection(cs *core.CrossSection) error {
	return b.sendEnvelope(streaming.TypeCrossSection, streaming.NewCrossSectionMessage(cs))
}

func (b *Backend) WriteToeBoundary(tb *core.ToeBoundary) error {
	return b.sendEnvelope(streaming.TypeToeBoundary, streaming.NewToeBoundaryMessage(tb))
}

func (b *Backend) WriteVolume(v *core.VolumeResult) error {
	return b.sendEnvelope(streaming.TypeVolume, streaming.NewVolumeMessage(v))
}
