package message_broker_dto

// Bonus credit requests travel over the broker so registration never touches
// wallet rows directly. The wallet consumer is the single crediting path.
const (
	RoutingKeyBonusCredit = "wallet.bonus.credit"
	BonusQueueName        = "wallet_bonus_queue"
)

const (
	BonusKindWelcome  = "WELCOME"
	BonusKindReferral = "REFERRAL"
)

type BonusCreditEvent struct {
	UserType  string  `json:"user_type"` // DRIVER | CUSTOMER
	UserID    string  `json:"user_id"`
	Kind      string  `json:"kind"`
	Amount    float64 `json:"amount"`
	Reference string  `json:"reference"` // idempotency key
}
