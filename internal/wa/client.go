package wa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"

	"renewdesk/internal/metrics"
	"renewdesk/internal/store"
)

// ErrNotConnected is returned when sending while the device is offline.
var ErrNotConnected = errors.New("whatsapp not connected")

// Config holds configuration to initialise the WhatsApp client.
type Config struct {
	StorePath string
	LogLevel  string
	Metrics   *metrics.Metrics
}

// StatusSink receives channel status changes.
type StatusSink interface {
	SetWhatsAppStatus(p store.WhatsAppPatch)
}

// Client sends notices from a paired WhatsApp device.
type Client struct {
	client  *whatsmeow.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
	status  StatusSink

	mu sync.Mutex
	qr string
}

// New creates a new WhatsApp client instance backed by an SQLite store.
// status may be nil.
func New(ctx context.Context, cfg Config, status StatusSink, logger *slog.Logger) (*Client, error) {
	if cfg.StorePath == "" {
		return nil, errors.New("store path is required")
	}

	if err := ensureDir(filepath.Dir(cfg.StorePath)); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}

	storeLogger := waLog.Stdout("whatsmeow/sqlstore", cfg.LogLevel, true)
	container, err := sqlstore.New(ctx, "sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout=10000&_pragma=foreign_keys(ON)", cfg.StorePath), storeLogger)
	if err != nil {
		return nil, fmt.Errorf("create sqlstore: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}

	waLogger := waLog.Stdout("whatsmeow/client", cfg.LogLevel, true)
	client := whatsmeow.NewClient(deviceStore, waLogger)

	wc := &Client{
		client:  client,
		logger:  logger.With("component", "wa"),
		metrics: cfg.Metrics,
		status:  status,
	}
	client.AddEventHandler(wc.handleEvent)

	return wc, nil
}

// Start connects the client. An unpaired device publishes QR codes until it is scanned.
func (c *Client) Start(ctx context.Context) error {
	if c.client.Store.ID == nil {
		c.logger.Info("pairing required, waiting for QR scan")
		qrChan, err := c.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("get qr channel: %w", err)
		}

		go func() {
			for evt := range qrChan {
				if evt.Event == "code" {
					c.setQR(evt.Code)
					c.logger.Info("scan the QR code with WhatsApp", "qr", evt.Code)
				} else {
					c.setQR("")
					c.logger.Info("pairing event received", "event", evt.Event)
				}
			}
		}()
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("connect wa client: %w", err)
	}
	c.publish(store.WhatsAppPatch{Running: boolPtr(true)})

	c.logger.Info("whatsapp client started")
	return nil
}

// Close disconnects the WhatsApp client.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Disconnect()
	}
	c.publish(store.WhatsAppPatch{Running: boolPtr(false), Connected: boolPtr(false)})
}

// QR returns the latest pairing code, or "" when none is pending.
func (c *Client) QR() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.qr
}

func (c *Client) setQR(code string) {
	c.mu.Lock()
	c.qr = code
	c.mu.Unlock()
	c.publish(store.WhatsAppPatch{QRAvailable: boolPtr(code != "")})
}

func (c *Client) handleEvent(evt interface{}) {
	switch evt.(type) {
	case *events.Connected:
		c.logger.Info("device connected")
		c.publish(store.WhatsAppPatch{Connected: boolPtr(true), QRAvailable: boolPtr(false)})
	case *events.Disconnected:
		c.logger.Warn("device disconnected")
		c.publish(store.WhatsAppPatch{Connected: boolPtr(false)})
	case *events.LoggedOut:
		c.logger.Warn("device logged out")
		c.publish(store.WhatsAppPatch{Connected: boolPtr(false)})
	}
}

func (c *Client) publish(p store.WhatsAppPatch) {
	if c.status != nil {
		c.status.SetWhatsAppStatus(p)
	}
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

// JID converts an international number given as digits into a user JID.
func JID(number string) types.JID {
	return types.NewJID(number, types.DefaultUserServer)
}

// SendText sends a text message to number, given as digits with country code.
func (c *Client) SendText(ctx context.Context, number, text string) error {
	if !c.client.IsConnected() {
		return ErrNotConnected
	}
	message := &waProto.Message{
		Conversation: proto.String(text),
	}
	if _, err := c.client.SendMessage(ctx, JID(number), message); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	if c.metrics != nil {
		c.metrics.WAOutgoingMessages.WithLabelValues("text").Inc()
	}
	return nil
}

func boolPtr(v bool) *bool {
	return &v
}
