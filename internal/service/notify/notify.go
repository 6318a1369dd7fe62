// Package notify tells buyers about new transactions over WhatsApp and e-mail.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/mamadbah2/agrimarket/internal/config"
	"github.com/mamadbah2/agrimarket/internal/domain/models"
	"github.com/mamadbah2/agrimarket/pkg/clients/whatsapp"
)

// Notifier delivers a new-transaction notice to a buyer.
type Notifier interface {
	NotifyTransactionCreated(ctx context.Context, buyer models.Buyer, tx models.Transaction) error
}

// Message renders the notice sent to a buyer.
func Message(buyer models.Buyer, tx models.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", buyer.Name)
	fmt.Fprintf(&b, "A farmer has opened a sale with you on the marketplace.\n")
	fmt.Fprintf(&b, "Crop: %s\n", tx.CropType)
	fmt.Fprintf(&b, "Quantity: %s %s\n", formatNumber(tx.Quantity), tx.UnitOfMeasure)
	fmt.Fprintf(&b, "Price per %s: %s\n", tx.UnitOfMeasure, formatNumber(tx.PricePerUnit))
	fmt.Fprintf(&b, "Total: %s\n", formatNumber(tx.TotalAmount))
	fmt.Fprintf(&b, "Reference: %s", tx.ID)
	return b.String()
}

func formatNumber(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// WhatsAppNotifier sends the notice to the buyer's contact phone.
type WhatsAppNotifier struct {
	client whatsapp.Client
	logger *zap.Logger
}

func NewWhatsAppNotifier(client whatsapp.Client, logger *zap.Logger) *WhatsAppNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsAppNotifier{client: client, logger: logger}
}

func (n *WhatsAppNotifier) NotifyTransactionCreated(ctx context.Context, buyer models.Buyer, tx models.Transaction) error {
	if buyer.ContactInfo.Phone == "" {
		n.logger.Debug("buyer has no phone, skipping whatsapp", zap.String("buyer_id", buyer.ID))
		return nil
	}

	resp, err := n.client.SendTextMessage(ctx, whatsapp.SendTextMessageRequest{
		To:   buyer.ContactInfo.Phone,
		Body: Message(buyer, tx),
	})
	if err != nil {
		return fmt.Errorf("whatsapp notify buyer %s: %w", buyer.ID, err)
	}

	messageID := ""
	if resp != nil && len(resp.Messages) > 0 {
		messageID = resp.Messages[0].ID
	}
	n.logger.Info("buyer notified on whatsapp",
		zap.String("buyer_id", buyer.ID),
		zap.String("transaction_id", tx.ID),
		zap.String("message_id", messageID))
	return nil
}

// Dialer sends composed mails. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier sends the notice to the buyer's contact e-mail.
type EmailNotifier struct {
	dialer Dialer
	from   string
	logger *zap.Logger
}

// NewEmailNotifier dials the SMTP server from cfg for every notice.
func NewEmailNotifier(cfg config.SMTPConfig, logger *zap.Logger) *EmailNotifier {
	return newEmailNotifier(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From, logger)
}

func newEmailNotifier(d Dialer, from string, logger *zap.Logger) *EmailNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailNotifier{dialer: d, from: from, logger: logger}
}

func (n *EmailNotifier) NotifyTransactionCreated(ctx context.Context, buyer models.Buyer, tx models.Transaction) error {
	if buyer.ContactInfo.Email == "" {
		n.logger.Debug("buyer has no email, skipping", zap.String("buyer_id", buyer.ID))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", buyer.ContactInfo.Email)
	m.SetHeader("Subject", fmt.Sprintf("New %s sale request", tx.CropType))
	m.SetBody("text/plain", Message(buyer, tx))

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("email notify buyer %s: %w", buyer.ID, err)
	}

	n.logger.Info("buyer notified by email", zap.String("buyer_id", buyer.ID), zap.String("transaction_id", tx.ID))
	return nil
}

// Multi fans a notice out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) NotifyTransactionCreated(ctx context.Context, buyer models.Buyer, tx models.Transaction) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyTransactionCreated(ctx, buyer, tx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
