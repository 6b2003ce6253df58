package service

import (
	"context"
	"fmt"
	"html"

	"budget/config"

	"gopkg.in/gomail.v2"
)

// EmailService 邮件服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// Notify 发送低预算提醒邮件；未启用或用户无邮箱时跳过
func (s *EmailService) Notify(_ context.Context, w BudgetWarning) error {
	if !s.cfg.Enabled || w.Email == "" {
		return nil
	}
	return s.SendBudgetWarningEmail(w)
}

// SendBudgetWarningEmail 发送低预算提醒邮件
func (s *EmailService) SendBudgetWarningEmail(w BudgetWarning) error {
	if !s.cfg.Enabled {
		return fmt.Errorf("email service disabled, set email.enabled=true")
	}

	subject := fmt.Sprintf("[Budget] %s budget running low", w.Month)
	return s.sendEmail(w.Email, subject, s.generateWarningEmailBody(w))
}

// generateWarningEmailBody 生成提醒邮件内容
func (s *EmailService) generateWarningEmailBody(w BudgetWarning) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
        .header { background: linear-gradient(135deg, #f59e0b, #d97706); color: white; padding: 30px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 40px 30px; }
        .content p { color: #333; line-height: 1.8; margin: 0 0 20px; }
        .amount-box { background: #fff7ed; border: 2px dashed #f59e0b; border-radius: 12px; padding: 24px; text-align: center; margin: 30px 0; }
        .amount { font-size: 32px; font-weight: bold; color: #b45309; }
        .footer { background: #f8f9fa; padding: 20px 30px; text-align: center; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Budget</h1>
        </div>
        <div class="content">
            <p>Hi <strong>%s</strong>,</p>
            <p>%s</p>
            <div class="amount-box">
                <span class="amount">%.2f / %.2f</span>
                <p>remaining for %s</p>
            </div>
        </div>
        <div class="footer">
            <p>This message was sent automatically, please do not reply.</p>
        </div>
    </div>
</body>
</html>
`, html.EscapeString(w.Username), html.EscapeString(w.Message), w.Remaining, w.Total, html.EscapeString(w.Month))
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	return nil
}
