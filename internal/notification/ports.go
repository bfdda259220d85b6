package notification

import "context"

// Delivery providers are external collaborators. Only the ports live here,
// real clients are wired at deployment time.

type IPushSender interface {
	SendPush(ctx context.Context, userType, userID, title, body string, data map[string]string) error
}

type ISmsSender interface {
	SendSms(ctx context.Context, phone, text string) error
}

type IWhatsAppSender interface {
	SendWhatsApp(ctx context.Context, phone, text string) error
}
