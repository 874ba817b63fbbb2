package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"leadbot_backend/platform/config"
	"leadbot_backend/platform/logger"
	"leadbot_backend/platform/phone"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

type tenantClient struct {
	wa       *whatsmeow.Client
	cancelQR context.CancelFunc
}

// Client runs one linked-device whatsmeow session per tenant. Device keys
// live in the whatsmeow SQL store on the service database.
type Client struct {
	container  *sqlstore.Container
	devices    DeviceStore
	normalizer phone.Normalizer
	log        *logger.Logger
	waLog      waLog.Logger

	mu      sync.Mutex
	sink    Sink
	tenants map[uuid.UUID]*tenantClient
}

var _ Transport = (*Client)(nil)

// NewClient opens the whatsmeow device store (creating its tables if needed).
func NewClient(ctx context.Context, cfg config.WhatsAppConfig, devices DeviceStore, normalizer phone.Normalizer, log *logger.Logger) (*Client, error) {
	wl := newWALogger(log, "whatsmeow", cfg.GetWhatsAppLogLevel())

	container, err := sqlstore.New(ctx, "pgx", cfg.GetDatabaseURL(), wl.Sub("store"))
	if err != nil {
		return nil, fmt.Errorf("open whatsapp device store: %w", err)
	}

	store.DeviceProps.Os = proto.String("Leadbot")

	return &Client{
		container:  container,
		devices:    devices,
		normalizer: normalizer,
		log:        log,
		waLog:      wl,
		tenants:    make(map[uuid.UUID]*tenantClient),
	}, nil
}

// SetSink registers the receiver of messages and status updates.
func (c *Client) SetSink(sink Sink) {
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()
}

func (c *Client) currentSink() Sink {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sink
}

// Connect starts the tenant's session. A tenant without a paired device gets
// a QR pairing flow whose codes are reported as StatusQR updates.
func (c *Client) Connect(ctx context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	if tc, ok := c.tenants[tenantID]; ok && tc.wa.IsConnected() {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	device, err := c.loadDevice(ctx, tenantID)
	if err != nil {
		return err
	}

	wa := whatsmeow.NewClient(device, c.waLog.Sub(tenantID.String()))
	wa.EnableAutoReconnect = true
	wa.AddEventHandler(c.eventHandler(tenantID, wa))

	tc := &tenantClient{wa: wa}

	c.mu.Lock()
	prev, hadPrev := c.tenants[tenantID]
	c.tenants[tenantID] = tc
	c.mu.Unlock()
	if hadPrev {
		c.release(prev)
	}

	if wa.Store.ID == nil {
		qrCtx, cancel := context.WithCancel(context.Background())
		qrChan, err := wa.GetQRChannel(qrCtx)
		if err != nil {
			cancel()
			c.forget(tenantID, tc)
			return fmt.Errorf("open qr channel: %w", err)
		}
		tc.cancelQR = cancel
		go c.pumpQR(tenantID, wa, qrChan)
	}

	if err := wa.Connect(); err != nil {
		c.forget(tenantID, tc)
		return fmt.Errorf("connect whatsapp: %w", err)
	}
	return nil
}

// loadDevice returns the tenant's stored device or a fresh one for pairing.
func (c *Client) loadDevice(ctx context.Context, tenantID uuid.UUID) (*store.Device, error) {
	raw, err := c.devices.LoadDevice(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load device mapping: %w", err)
	}
	if raw == "" {
		return c.container.NewDevice(), nil
	}

	jid, err := types.ParseJID(raw)
	if err != nil {
		c.log.WithTenant(tenantID.String()).Warn("discarding unparsable device id", "deviceJid", raw, "error", err)
		c.forgetDevice(ctx, tenantID)
		return c.container.NewDevice(), nil
	}

	device, err := c.container.GetDevice(ctx, jid)
	if err != nil {
		return nil, fmt.Errorf("load whatsapp device: %w", err)
	}
	if device == nil {
		// keys are gone, the tenant has to pair again
		c.forgetDevice(ctx, tenantID)
		return c.container.NewDevice(), nil
	}
	return device, nil
}

// forgetDevice drops the tenant's device mapping. A failure is logged and
// the next start pairs against the stale mapping again.
func (c *Client) forgetDevice(ctx context.Context, tenantID uuid.UUID) {
	if err := c.devices.DeleteDevice(ctx, tenantID); err != nil {
		c.log.WithTenant(tenantID.String()).Error("delete device mapping failed", "error", err)
	}
}

// Disconnect closes the tenant's session without unpairing the device.
func (c *Client) Disconnect(tenantID uuid.UUID) error {
	c.mu.Lock()
	tc, ok := c.tenants[tenantID]
	delete(c.tenants, tenantID)
	c.mu.Unlock()

	if ok {
		c.release(tc)
	}
	return nil
}

// Logout unpairs the tenant's device and forgets the mapping.
func (c *Client) Logout(ctx context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	tc, ok := c.tenants[tenantID]
	delete(c.tenants, tenantID)
	c.mu.Unlock()

	if ok {
		if tc.wa.Store.ID != nil {
			if err := tc.wa.Logout(ctx); err != nil {
				c.log.WithTenant(tenantID.String()).Warn("whatsapp logout failed", "error", err)
			}
		}
		c.release(tc)
	}
	return c.devices.DeleteDevice(ctx, tenantID)
}

func (c *Client) release(tc *tenantClient) {
	if tc.cancelQR != nil {
		tc.cancelQR()
	}
	tc.wa.Disconnect()
}

func (c *Client) forget(tenantID uuid.UUID, tc *tenantClient) {
	c.mu.Lock()
	if cur, ok := c.tenants[tenantID]; ok && cur == tc {
		delete(c.tenants, tenantID)
	}
	c.mu.Unlock()
	c.release(tc)
}

// Send delivers text to counterpartyID on the tenant's session.
func (c *Client) Send(ctx context.Context, tenantID uuid.UUID, counterpartyID, text string) error {
	c.mu.Lock()
	tc, ok := c.tenants[tenantID]
	c.mu.Unlock()
	if !ok || !tc.wa.IsConnected() {
		return ErrNotConnected
	}

	to, err := parseRecipient(counterpartyID)
	if err != nil {
		return err
	}

	_, err = tc.wa.SendMessage(ctx, to, &waE2E.Message{Conversation: proto.String(text)})
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	return nil
}

// Close disconnects every tenant and closes the device store.
func (c *Client) Close() error {
	c.mu.Lock()
	tenants := c.tenants
	c.tenants = make(map[uuid.UUID]*tenantClient)
	c.mu.Unlock()

	for _, tc := range tenants {
		c.release(tc)
	}
	return c.container.Close()
}

func (c *Client) pumpQR(tenantID uuid.UUID, wa *whatsmeow.Client, qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		if !c.isCurrent(tenantID, wa) {
			continue
		}
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			c.emitStatus(StatusUpdate{TenantID: tenantID, Status: StatusQR, QR: item.Code})
		case whatsmeow.QRChannelSuccess.Event:
			// the Connected event reports the bound account
		case whatsmeow.QRChannelTimeout.Event:
			c.emitStatus(StatusUpdate{TenantID: tenantID, Status: StatusDisconnected, Reason: "qr pairing timed out"})
		case whatsmeow.QRChannelEventError:
			reason := "qr pairing failed"
			if item.Error != nil {
				reason = item.Error.Error()
			}
			c.emitStatus(StatusUpdate{TenantID: tenantID, Status: StatusError, Reason: reason})
		default:
			c.emitStatus(StatusUpdate{TenantID: tenantID, Status: StatusAuthFailure, Reason: item.Event})
		}
	}
}

func (c *Client) eventHandler(tenantID uuid.UUID, wa *whatsmeow.Client) func(interface{}) {
	return func(evt interface{}) {
		if !c.isCurrent(tenantID, wa) {
			return
		}
		switch e := evt.(type) {
		case *events.Message:
			c.handleMessage(tenantID, wa, e)
		case *events.PairSuccess:
			if err := c.devices.SaveDevice(context.Background(), tenantID, e.ID.String()); err != nil {
				c.log.WithTenant(tenantID.String()).Error("save device mapping failed", "error", err)
			}
		case *events.Connected:
			account := ""
			if wa.Store.ID != nil {
				account = "+" + wa.Store.ID.User
				if err := c.devices.SaveDevice(context.Background(), tenantID, wa.Store.ID.String()); err != nil {
					c.log.WithTenant(tenantID.String()).Error("save device mapping failed", "error", err)
				}
			}
			if name := strings.TrimSpace(wa.Store.PushName); name != "" {
				account = strings.TrimSpace(name + " " + account)
			}
			c.emitStatus(StatusUpdate{TenantID: tenantID, Status: StatusConnected, Account: account})
		case *events.Disconnected:
			c.emitStatus(StatusUpdate{TenantID: tenantID, Status: StatusDisconnected, Reason: "connection lost"})
		case *events.StreamReplaced:
			c.emitStatus(StatusUpdate{TenantID: tenantID, Status: StatusDisconnected, Reason: "session opened elsewhere"})
		case *events.LoggedOut:
			c.forgetDevice(context.Background(), tenantID)
			c.emitStatus(StatusUpdate{TenantID: tenantID, Status: StatusAuthFailure, Reason: e.Reason.String()})
		case *events.ConnectFailure:
			c.emitStatus(StatusUpdate{TenantID: tenantID, Status: StatusError, Reason: fmt.Sprintf("%s: %s", e.Reason, e.Message)})
		case *events.TemporaryBan:
			c.emitStatus(StatusUpdate{TenantID: tenantID, Status: StatusAuthFailure, Reason: e.String()})
		}
	}
}

// isCurrent reports whether wa is still the tenant's live client; events of
// replaced or released clients are dropped.
func (c *Client) isCurrent(tenantID uuid.UUID, wa *whatsmeow.Client) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	tc, ok := c.tenants[tenantID]
	return ok && tc.wa == wa
}

func (c *Client) handleMessage(tenantID uuid.UUID, wa *whatsmeow.Client, e *events.Message) {
	sink := c.currentSink()
	if sink == nil {
		return
	}
	chat := e.Info.Chat
	isGroup := e.Info.IsGroup || isGroupServer(chat.Server)
	if isGroup {
		return
	}
	isSelf := e.Info.IsFromMe
	if !isSelf && wa.Store.ID != nil && e.Info.Sender.User == wa.Store.ID.User {
		isSelf = true
	}

	counterparty := chat.ToNonAD().String()
	sink.OnMessage(context.Background(), InboundMessage{
		TenantID:       tenantID,
		CounterpartyID: counterparty,
		Phone:          CounterpartyPhone(counterparty, c.normalizer),
		Text:           messageText(e.Message),
		IsFromSelf:     isSelf,
		At:             e.Info.Timestamp,
	})
}

func (c *Client) emitStatus(update StatusUpdate) {
	c.log.TransportEvent(update.TenantID.String(), string(update.Status), update.Reason)
	if sink := c.currentSink(); sink != nil {
		sink.OnStatus(context.Background(), update)
	}
}
