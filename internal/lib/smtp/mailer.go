package smtp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gold10x/purchase-reconciler/internal/lib/sl"
)

// Временные коды SMTP сервера, после которых попытку имеет смысл повторить.
var transientCodes = map[int]bool{
	421: true,
	450: true,
	451: true,
	452: true,
	471: true,
}

// SendResult итог отправки письма. Доставка письма не влияет на уже
// зафиксированное состояние покупки, результат нужен только для логов.
type SendResult struct {
	Success   bool   `json:"success"`
	Skipped   bool   `json:"skipped,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
}

// Mailer отправляет письма через транспорт с ограниченными повторами.
type Mailer struct {
	transport   TransportInterface
	log         *slog.Logger
	maxAttempts int
	retryDelay  time.Duration
}

// NewMailer создает новый Mailer. maxAttempts < 1 трактуется как 1.
func NewMailer(transport TransportInterface, log *slog.Logger, maxAttempts int) *Mailer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Mailer{
		transport:   transport,
		log:         log,
		maxAttempts: maxAttempts,
		retryDelay:  2 * time.Second,
	}
}

// Send отправляет HTML-письмо получателю. Повторяет попытку только при
// временных кодах сервера, не больше maxAttempts раз. Если SMTP не
// сконфигурирован, возвращает Skipped без ошибки.
func (m *Mailer) Send(to, subject, html string) (*SendResult, error) {
	if !m.transport.IsConfigured() {
		m.log.Warn("smtp is not configured, skipping email", slog.String("to", to))
		return &SendResult{Skipped: true}, nil
	}

	messageID := fmt.Sprintf("<%s@gold10x>", uuid.New().String())
	msg := strings.Join([]string{
		"From: " + m.transport.GetSMTPUser(),
		"To: " + to,
		"Subject: " + subject,
		"Message-ID: " + messageID,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		html,
	}, "\r\n")

	result := &SendResult{MessageID: messageID}
	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		result.Attempts = attempt
		lastErr = m.deliver(to, msg)
		if lastErr == nil {
			result.Success = true
			return result, nil
		}

		code := smtpCode(lastErr)
		result.ErrorCode = code
		if !transientCodes[code] {
			break
		}
		m.log.Warn("transient smtp error, retrying",
			slog.Int("code", code), slog.Int("attempt", attempt), sl.Err(lastErr))
		time.Sleep(m.retryDelay)
	}

	return result, lastErr
}

func (m *Mailer) deliver(to, msg string) error {
	client, err := m.transport.Connect()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(m.transport.GetSMTPUser()); err != nil {
		return fmt.Errorf("failed to set MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set RCPT TO: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

// smtpCode достает числовой код SMTP ответа из ошибки, 0 если его нет.
func smtpCode(err error) int {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code
	}
	return 0
}
