package api

import (
	"context"
	"net/http"

	"renewdesk/internal/model"
)

// TestMessage is a one-off message sent through the remote channel.
type TestMessage struct {
	Number  string `json:"numero" validate:"required,min=10"`
	Message string `json:"mensagem" validate:"required"`
}

// WhatsAppStatus reads the remote channel status.
func (c *Client) WhatsAppStatus(ctx context.Context) (model.WhatsAppStatus, error) {
	var res model.WhatsAppStatus
	if err := c.get(ctx, "whatsapp.status", "/whatsapp/status", nil, &res); err != nil {
		return model.WhatsAppStatus{}, err
	}
	return res, nil
}

// StartWhatsApp starts the remote channel.
func (c *Client) StartWhatsApp(ctx context.Context) (string, error) {
	var res message
	if err := c.send(ctx, "whatsapp.start", http.MethodPost, "/whatsapp/iniciar", nil, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// StopWhatsApp stops the remote channel.
func (c *Client) StopWhatsApp(ctx context.Context) (string, error) {
	var res message
	if err := c.send(ctx, "whatsapp.stop", http.MethodPost, "/whatsapp/parar", nil, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// WhatsAppQR returns the pairing code. ErrNotFound means none is available.
func (c *Client) WhatsAppQR(ctx context.Context) (string, error) {
	var res struct {
		Code string `json:"qr_code"`
	}
	if err := c.get(ctx, "whatsapp.qr", "/whatsapp/qr", nil, &res); err != nil {
		return "", err
	}
	return res.Code, nil
}

// SendTestMessage sends text to number through the remote channel.
func (c *Client) SendTestMessage(ctx context.Context, in TestMessage) error {
	const op = "whatsapp.send_test"
	if err := c.check(op, in); err != nil {
		return err
	}
	return c.send(ctx, op, http.MethodPost, "/whatsapp/enviar-teste", in, nil)
}

// ProcessNotices asks the remote to process pending notices itself.
func (c *Client) ProcessNotices(ctx context.Context) error {
	return c.send(ctx, "whatsapp.process_notices", http.MethodPost, "/whatsapp/processar-avisos", nil, nil)
}
