package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/e7canasta/orion-playout/internal/config"
	"github.com/e7canasta/orion-playout/internal/control"
	"github.com/e7canasta/orion-playout/internal/diagnostics"
	"github.com/e7canasta/orion-playout/internal/monitor"
	"github.com/e7canasta/orion-playout/modules/channel"
	"github.com/e7canasta/orion-playout/modules/frame"
)

// Server owns the channels and the MQTT and HTTP surfaces around them.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	registry   *diagnostics.Registry
	channels   []*channel.Channel
	dispatcher *control.Dispatcher

	mu         sync.RWMutex
	client     mqtt.Client
	exporter   *monitor.MQTTExporter
	handler    *control.Handler
	cancels    []func()
	httpServer *http.Server
	isRunning  bool
	started    time.Time
}

// NewServer builds every configured channel and starts its pipeline.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: diagnostics.NewRegistry(),
		started:  time.Now(),
	}

	for _, cc := range cfg.Channels {
		format, ok := frame.FormatByName(cc.Format)
		if !ok {
			s.closeChannels()
			return nil, fmt.Errorf("channel %d: unknown format %q", cc.Index, cc.Format)
		}

		c, err := channel.New(channel.Config{
			Index:          cc.Index,
			Format:         format,
			PipelineTokens: cfg.PipelineTokens,
			Pacing:         cc.PacingEnabled(),
			Logger:         logger,
			Registry:       s.registry,
		})
		if err != nil {
			s.closeChannels()
			return nil, err
		}
		s.channels = append(s.channels, c)
	}

	s.dispatcher = control.NewDispatcher(s.channels, control.BridgeOptions{
		LayerCapacity:     cfg.Bridge.LayerCapacity,
		ChannelCapacity:   cfg.Bridge.ChannelCapacity,
		FirstFrameTimeout: cfg.Bridge.FirstFrameTimeout(),
	}, logger)

	logger.Info("channels initialized", "count", len(s.channels), "pipeline_tokens", cfg.PipelineTokens)
	return s, nil
}

// Channels returns the channels in configuration order.
func (s *Server) Channels() []*channel.Channel { return s.channels }

// Dispatcher returns the command dispatcher.
func (s *Server) Dispatcher() *control.Dispatcher { return s.dispatcher }

// ShutdownTimeout returns the configured graceful shutdown timeout.
func (s *Server) ShutdownTimeout() time.Duration { return s.cfg.ShutdownTimeout() }

// Run connects to the broker, exports monitor events, serves the control
// plane and blocks until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	client, err := s.connect()
	if err != nil {
		return err
	}

	exporter := monitor.NewMQTTExporter(client, s.cfg.MQTT.Topics.Monitor, s.cfg.MQTT.QoS, s.logger)
	cancels := make([]func(), 0, len(s.channels))
	for _, c := range s.channels {
		cancels = append(cancels, c.Monitor().Subscribe(exporter))
	}

	handler := control.NewHandler(s.cfg.MQTT.Topics.Control, s.cfg.MQTT.QoS, client, s.dispatcher, s.logger)
	if err := handler.Start(ctx); err != nil {
		for _, cancel := range cancels {
			cancel()
		}
		client.Disconnect(250)
		return err
	}

	s.mu.Lock()
	s.client = client
	s.exporter = exporter
	s.handler = handler
	s.cancels = cancels
	s.isRunning = true
	s.mu.Unlock()

	s.logger.Info("playout server running",
		"instance_id", s.cfg.InstanceID,
		"control_topic", s.cfg.MQTT.Topics.Control,
		"monitor_topic", s.cfg.MQTT.Topics.Monitor,
	)

	<-ctx.Done()
	return nil
}

// connect dials the broker with auto-reconnect enabled.
func (s *Server) connect() (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.cfg.MQTT.Broker)
	opts.SetClientID(s.cfg.MQTT.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		s.logger.Info("mqtt connection established",
			"broker", s.cfg.MQTT.Broker,
			"client_id", s.cfg.MQTT.ClientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		s.logger.Warn("mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", s.cfg.MQTT.Broker)
	}

	client := mqtt.NewClient(opts)

	s.logger.Info("connecting to mqtt broker", "broker", s.cfg.MQTT.Broker)

	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}
	return client, nil
}

// Shutdown stops the control plane, closes every channel and disconnects.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.isRunning = false
	handler, client, cancels, httpServer := s.handler, s.client, s.cancels, s.httpServer
	s.handler, s.cancels = nil, nil
	s.mu.Unlock()

	var errs []error
	if handler != nil {
		if err := handler.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, cancel := range cancels {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.closeChannels()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("closing channels: %w", ctx.Err()))
	}

	if client != nil && client.IsConnected() {
		client.Disconnect(250)
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("health server: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (s *Server) closeChannels() {
	for _, c := range s.channels {
		c.Close()
	}
}
