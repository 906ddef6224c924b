package service

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"

	"chatrelay/internal/auth"
	"chatrelay/internal/constants"
	"chatrelay/internal/hub"
	"chatrelay/internal/metrics"
	"chatrelay/internal/models"
	"chatrelay/internal/privacy"
)

// SocketService runs the per-connection protocol loop: registration
// first, then frame dispatch until the connection drops.
type SocketService struct {
	cfg      models.SocketConfig
	registry *hub.Registry
	auth     auth.TokenValidator
	router   *RouterService
	delivery *DeliveryService
	presence *PresenceService
	logger   *logrus.Logger
}

// NewSocketService creates the websocket session handler.
func NewSocketService(
	cfg models.SocketConfig,
	registry *hub.Registry,
	validator auth.TokenValidator,
	router *RouterService,
	delivery *DeliveryService,
	presence *PresenceService,
	logger *logrus.Logger,
) *SocketService {
	if cfg.ReadLimitBytes <= 0 {
		cfg.ReadLimitBytes = constants.DefaultSocketReadLimitBytes
	}
	if cfg.RegisterTimeoutSec <= 0 {
		cfg.RegisterTimeoutSec = constants.DefaultRegisterTimeoutSec
	}
	return &SocketService{
		cfg:      cfg,
		registry: registry,
		auth:     validator,
		router:   router,
		delivery: delivery,
		presence: presence,
		logger:   logger,
	}
}

// HandleConnection owns conn for its whole lifetime. The first frame must
// be a register carrying a valid token; anything else closes the
// connection before any state is created. Admission is silent: a valid
// register gets no reply, the server simply starts routing.
func (s *SocketService) HandleConnection(ctx context.Context, conn *websocket.Conn, remoteIP string) {
	conn.SetReadLimit(s.cfg.ReadLimitBytes)

	userID, err := s.awaitRegistration(ctx, conn)
	if err != nil {
		metrics.IncrementCounter("socket_register_failures", nil)
		s.logger.WithFields(logrus.Fields{
			LogFieldRemoteIP: remoteIP,
			LogFieldError:    err,
		}).Info("Connection rejected before registration")
		_ = conn.Close(websocket.StatusPolicyViolation, "registration failed")
		return
	}

	client := hub.NewClient(userID, conn, s.cfg.PushBufferSize, s.logger)
	if replaced := s.registry.Register(client); replaced != nil {
		// The same user reconnected; the superseded connection is torn
		// down without an offline transition since the user stays online.
		replaced.Close()
	}
	metrics.SetGauge("socket_connections", float64(s.registry.Count()), nil)

	go client.WritePump(ctx)

	s.presence.Announce(ctx, userID, true)

	var teardown sync.Once
	defer teardown.Do(func() { s.teardown(client) })

	s.logger.WithFields(logrus.Fields{
		LogFieldUserID:     userID,
		LogFieldResourceID: client.ResourceID,
		LogFieldRemoteIP:   remoteIP,
	}).Info("Connection registered")

	s.readLoop(ctx, client)
}

// awaitRegistration reads the first frame and resolves it to a user.
func (s *SocketService) awaitRegistration(ctx context.Context, conn *websocket.Conn) (int64, error) {
	registerCtx, cancel := context.WithTimeout(ctx,
		time.Duration(s.cfg.RegisterTimeoutSec)*time.Second)
	defer cancel()

	var frame models.InboundFrame
	if err := wsjson.Read(registerCtx, conn, &frame); err != nil {
		return 0, err
	}
	if frame.Type != models.FrameTypeRegister {
		return 0, errUnregisteredFrame(frame.Type)
	}

	userID, err := s.auth.ValidateToken(registerCtx, frame.Token)
	if err != nil {
		s.logger.WithField("token", privacy.MaskToken(frame.Token)).Debug("Registration token rejected")
		return 0, err
	}
	return userID, nil
}

func (s *SocketService) readLoop(ctx context.Context, client *hub.Client) {
	for {
		var frame models.InboundFrame
		if err := wsjson.Read(ctx, client.Conn(), &frame); err != nil {
			s.logger.WithFields(logrus.Fields{
				LogFieldUserID:     client.UserID,
				LogFieldResourceID: client.ResourceID,
				LogFieldError:      err,
			}).Debug("Connection read ended")
			return
		}

		s.dispatch(ctx, client, &frame)

		select {
		case <-client.Done():
			return
		default:
		}
	}
}

func (s *SocketService) dispatch(ctx context.Context, client *hub.Client, frame *models.InboundFrame) {
	start := time.Now()
	defer func() {
		metrics.RecordTimer("socket_frame_duration", time.Since(start),
			map[string]string{"type": frame.Type})
	}()

	switch frame.Type {
	case models.FrameTypeMessage:
		receipt, err := s.router.Route(ctx, client.UserID, frame)
		if err != nil {
			// Validation and persistence failures get no reply on the
			// realtime channel; the client resends or falls back to
			// polling.
			s.logger.WithFields(logrus.Fields{
				LogFieldUserID: client.UserID,
				LogFieldError:  err,
			}).Warn("Send rejected")
			return
		}
		if receipt != nil {
			client.Push(*receipt)
		}

	case models.FrameTypeReceivedAck:
		s.acknowledge(ctx, client, frame, models.MessageStatusDelivered)

	case models.FrameTypeReadAck:
		s.acknowledge(ctx, client, frame, models.MessageStatusRead)

	case models.FrameTypeRegister:
		// Already registered; repeated registers are ignored.

	default:
		s.logger.WithFields(logrus.Fields{
			LogFieldUserID:    client.UserID,
			LogFieldFrameType: frame.Type,
		}).Debug("Ignoring unknown frame type")
	}
}

func (s *SocketService) acknowledge(ctx context.Context, client *hub.Client, frame *models.InboundFrame, status models.MessageStatus) {
	if err := s.delivery.Acknowledge(ctx, client.UserID, frame.ID, status); err != nil {
		s.logger.WithFields(logrus.Fields{
			LogFieldUserID:    client.UserID,
			LogFieldMessageID: frame.ID,
			LogFieldStatus:    status,
			LogFieldError:     err,
		}).Warn("Acknowledgement failed")
	}
}

// teardown runs exactly once per connection, on any termination path.
// Unregister only wins if this client is still the registered instance,
// so a superseded connection closing late cannot mark the user offline.
func (s *SocketService) teardown(client *hub.Client) {
	client.Close()
	if s.registry.Unregister(client) {
		// Fresh context: teardown still announces offline when the
		// connection's own context is already cancelled.
		offlineCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.presence.Announce(offlineCtx, client.UserID, false)
	}
	metrics.SetGauge("socket_connections", float64(s.registry.Count()), nil)
}

type errUnregisteredFrame string

func (e errUnregisteredFrame) Error() string {
	return "expected register frame, got " + string(e)
}
