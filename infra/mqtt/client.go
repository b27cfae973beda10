// Package mqtt connects the planner to an MQTT broker: fleet snapshots
// arrive on a subscription topic and completed plans are published back.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/core/planner"
	"github.com/kilianp07/chargeplan/core/report"
	"github.com/kilianp07/chargeplan/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker        string      `json:"broker"`
	ClientID      string      `json:"client_id"`
	Username      string      `json:"username"`
	Password      string      `json:"password"`
	SnapshotTopic string      `json:"snapshot_topic"`
	PlanTopic     string      `json:"plan_topic"`
	QoS           byte        `json:"qos"`
	UseTLS        bool        `json:"use_tls"`
	ClientCert    string      `json:"client_cert"`
	ClientKey     string      `json:"client_key"`
	CABundle      string      `json:"ca_bundle"`
	TLSConfig     *tls.Config `json:"-"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "chargeplan"
	}
	if c.SnapshotTopic == "" {
		c.SnapshotTopic = "chargeplan/snapshot"
	}
	if c.PlanTopic == "" {
		c.PlanTopic = "chargeplan/plan"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	return nil
}

// SnapshotHandler receives decoded fleet snapshots from the broker.
type SnapshotHandler func(planner.Snapshot)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PahoClient implements the snapshot subscription and plan publication using
// Eclipse Paho.
type PahoClient struct {
	cli    pahoClient
	cfg    Config
	onSnap SnapshotHandler
	log    logger.Logger
}

// NewPahoClient connects to the MQTT broker and subscribes to the snapshot
// topic. The handler is invoked for every decoded snapshot; malformed
// payloads are logged and dropped.
func NewPahoClient(cfg Config, handler SnapshotHandler) (*PahoClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{cfg: cfg, onSnap: handler, log: log}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(cfg.SnapshotTopic, cfg.QoS, pc.onSnapshot); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (p *PahoClient) onSnapshot(_ paho.Client, msg paho.Message) {
	var snap planner.Snapshot
	if err := json.Unmarshal(msg.Payload(), &snap); err != nil {
		p.log.Errorf("failed to decode snapshot: %v", err)
		return
	}
	p.log.Infof("snapshot received: %d sessions", len(snap.Sessions))
	if p.onSnap != nil {
		p.onSnap(snap)
	}
}

// PublishPlan publishes the plan result on the plan topic.
func (p *PahoClient) PublishPlan(res *report.Result) error {
	payload, err := json.Marshal(planPayload(res))
	if err != nil {
		return err
	}
	token := p.cli.Publish(p.cfg.PlanTopic, p.cfg.QoS, false, payload)
	token.Wait()
	return token.Error()
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}

type planMessage struct {
	PlanID   string                `json:"plan_id"`
	Status   string                `json:"status"`
	Summary  report.Summary        `json:"summary"`
	Sessions []model.SessionResult `json:"sessions,omitempty"`
	Error    string                `json:"error,omitempty"`
}

func planPayload(res *report.Result) planMessage {
	m := planMessage{
		PlanID:  res.PlanID,
		Status:  res.Status.String(),
		Summary: res.Summary,
	}
	if res.Schedule != nil {
		m.Sessions = res.Schedule.Sessions
	}
	if res.Err != nil {
		m.Error = res.Err.Error()
	}
	return m
}
