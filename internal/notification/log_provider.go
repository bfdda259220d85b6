package notification

import (
	"context"

	"vtc-platform/internal/mylogger"
)

// LogProvider satisfies every delivery port by logging the payload. It is
// the default wiring until real FCM/SMS/WhatsApp clients are configured.
type LogProvider struct {
	log mylogger.Logger
}

func NewLogProvider(log mylogger.Logger) *LogProvider {
	return &LogProvider{log: log}
}

func (p *LogProvider) SendPush(ctx context.Context, userType, userID, title, body string, data map[string]string) error {
	p.log.Action("push").Info("push notification",
		"user_type", userType, "user_id", userID, "title", title, "body", body)
	return nil
}

func (p *LogProvider) SendSms(ctx context.Context, phone, text string) error {
	p.log.Action("sms").Info("sms notification", "phone", phone, "text", text)
	return nil
}

func (p *LogProvider) SendWhatsApp(ctx context.Context, phone, text string) error {
	p.log.Action("whatsapp").Info("whatsapp notification", "phone", phone, "text", text)
	return nil
}
