// Package sender собирает транзакционные письма сервиса и отправляет их
// через SMTP транспорт. Тексты писем на португальском: продукт продается
// на бразильском рынке.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gold10x/purchase-reconciler/internal/guru"
	"github.com/gold10x/purchase-reconciler/internal/lib/sl"
	"github.com/gold10x/purchase-reconciler/internal/lib/smtp"
	"github.com/gold10x/purchase-reconciler/internal/metrics"
	"github.com/gold10x/purchase-reconciler/internal/models"
)

// Mailer описывает контракт доставки письма. Send возвращает ненулевой
// результат даже при ошибке. Результат нужен только для логов: неудачная
// доставка никогда не отменяет уже записанную покупку.
type Mailer interface {
	Send(to, subject, html string) (*smtp.SendResult, error)
}

// SenderService собирает и отправляет письма.
type SenderService struct {
	mailer Mailer
	appURL string
	log    *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(mailer Mailer, appURL string, log *slog.Logger) *SenderService {
	return &SenderService{
		mailer: mailer,
		appURL: strings.TrimRight(appURL, "/"),
		log:    log,
	}
}

// SendAccessGranted письмо об открытии доступа со ссылками на вход
// и установку пароля.
func (s *SenderService) SendAccessGranted(to, name, productName string) (*smtp.SendResult, error) {
	subject := fmt.Sprintf("Seu acesso ao %s foi liberado", productName)
	html := fmt.Sprintf(`<p>Olá, %s!</p>
<p>Seu pagamento foi confirmado e o acesso ao <b>%s</b> já está liberado.</p>
<p>Entre na plataforma: <a href="%s/login">%s/login</a></p>
<p>Primeiro acesso? Defina sua senha aqui: <a href="%s/recuperar-senha">%s/recuperar-senha</a></p>`,
		displayName(name), productName,
		s.appURL, s.appURL, s.appURL, s.appURL)

	return s.send("access_granted", to, subject, html)
}

// SendPaymentUnderAnalysis письмо о платеже картой на ручной проверке.
func (s *SenderService) SendPaymentUnderAnalysis(to, name string, card *guru.CreditCard) (*smtp.SendResult, error) {
	subject := "Seu pagamento está em análise"
	var cardInfo string
	if card != nil && card.LastDigits != "" {
		cardInfo = fmt.Sprintf("<p>Cartão: %s final %s</p>", card.Brand, card.LastDigits)
	}
	html := fmt.Sprintf(`<p>Olá, %s!</p>
<p>Recebemos seu pagamento e ele está em análise pela operadora.</p>
%s<p>Assim que for aprovado, seu acesso será liberado automaticamente.</p>`,
		displayName(name), cardInfo)

	return s.send("analysis", to, subject, html)
}

// SendPaymentPending письмо о неоплаченном заказе, с реквизитами PIX
// когда они есть в payload.
func (s *SenderService) SendPaymentPending(to, name string, pix *guru.Pix) (*smtp.SendResult, error) {
	subject := "Seu pagamento está pendente"
	var pixInfo string
	if pix != nil {
		if pix.QRCode != "" {
			pixInfo += fmt.Sprintf(`<p><img src="%s" alt="PIX QR Code"/></p>`, pix.QRCode)
		}
		if pix.QRCodeContent != "" {
			pixInfo += fmt.Sprintf("<p>PIX copia e cola:</p><pre>%s</pre>", pix.QRCodeContent)
		}
	}
	html := fmt.Sprintf(`<p>Olá, %s!</p>
<p>Seu pedido foi registrado, mas o pagamento ainda não foi confirmado.</p>
%s<p>Após a confirmação, o acesso é liberado automaticamente.</p>`,
		displayName(name), pixInfo)

	return s.send("pending", to, subject, html)
}

// SendAccessExpiring обработчик сообщений очереди напоминаний:
// доступ к продукту заканчивается завтра.
func (s *SenderService) SendAccessExpiring(body []byte) error {
	var notice models.AccessNotice
	if err := json.Unmarshal(body, &notice); err != nil {
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := fmt.Sprintf("Seu acesso ao %s expira amanhã", notice.ProductName)
	html := fmt.Sprintf(`<p>Olá, %s!</p>
<p>Seu acesso ao <b>%s</b> expira em %s.</p>
<p>Renove sua assinatura para não perder o acesso: <a href="%s">%s</a></p>`,
		displayName(notice.Name), notice.ProductName,
		notice.EndDate.Format("02/01/2006"), s.appURL, s.appURL)

	result, err := s.send("expiring", notice.Email, subject, html)
	if err != nil {
		return err
	}
	if result.Skipped {
		s.log.Warn("expiring notice skipped, smtp not configured", slog.String("to", notice.Email))
	}
	return nil
}

func (s *SenderService) send(kind, to, subject, html string) (*smtp.SendResult, error) {
	result, err := s.mailer.Send(to, subject, html)
	outcome := "sent"
	switch {
	case err != nil:
		outcome = "failed"
		s.log.Error("failed to send email",
			slog.String("kind", kind), slog.String("to", to),
			slog.Int("attempts", result.Attempts), sl.Err(err))
	case result.Skipped:
		outcome = "skipped"
	default:
		s.log.Info("email sent",
			slog.String("kind", kind), slog.String("to", to),
			slog.String("message_id", result.MessageID))
	}
	metrics.EmailsDispatched.WithLabelValues(kind, outcome).Inc()
	return result, err
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "investidor"
	}
	return name
}
