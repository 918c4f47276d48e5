package mailing

import (
	"fmt"
	"strconv"

	"kopimatic/internal/utils"

	"gopkg.in/gomail.v2"
)

type MailConfig struct {
	AppURL       string
	SMTPHost     string
	SMTPPort     string
	SMTPSender   string
	SMTPEmail    string
	SMTPPassword string
	AlertEmail   string
}

func LoadMailConfig() MailConfig {
	return MailConfig{
		AppURL:       utils.GetConfig("APP_URL"),
		SMTPHost:     utils.GetConfig("SMTP_HOST"),
		SMTPPort:     utils.GetConfig("SMTP_PORT"),
		SMTPSender:   utils.GetConfig("SMTP_SENDER_NAME"),
		SMTPEmail:    utils.GetConfig("SMTP_AUTH_EMAIL"),
		SMTPPassword: utils.GetConfig("SMTP_AUTH_PASSWORD"),
		AlertEmail:   utils.GetConfig("ALERT_EMAIL"),
	}
}

func SendMail(toEmail string, subject string, body string) error {
	emailConfig := LoadMailConfig()

	mailer := gomail.NewMessage()
	mailer.SetHeader("From", emailConfig.SMTPEmail)
	mailer.SetHeader("To", toEmail)
	mailer.SetHeader("Subject", subject)
	mailer.SetBody("text/html", body)
	port, err := strconv.Atoi(emailConfig.SMTPPort)
	if err != nil {
		return err
	}
	dialer := gomail.NewDialer(
		emailConfig.SMTPHost,
		port,
		emailConfig.SMTPEmail,
		emailConfig.SMTPPassword,
	)

	err = dialer.DialAndSend(mailer)
	if err != nil {
		return err
	}

	return nil
}

// SendCriticalStockAlert mails the operations inbox when a machine runs an
// ingredient down to the critical threshold.
func SendCriticalStockAlert(machineID, ingredientID string, quantity float64) error {
	emailConfig := LoadMailConfig()
	if emailConfig.AlertEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("Critical stock on machine %s", machineID)
	body := fmt.Sprintf(
		"<p>Machine <b>%s</b> is critically low on ingredient <b>%s</b>: %.2f remaining.</p><p>Schedule a refill.</p>",
		machineID, ingredientID, quantity,
	)
	return SendMail(emailConfig.AlertEmail, subject, body)
}
