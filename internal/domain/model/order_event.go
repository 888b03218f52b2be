package model

import "time"

// 誰が遷移させたか
type EventActor string

const (
	EventActorUser    EventActor = "user"
	EventActorWebhook EventActor = "webhook"
	EventActorSweeper EventActor = "sweeper"
	EventActorSystem  EventActor = "system"
)

// 注文ステータス遷移の履歴。
// 「誰が」「どの注文を」「どこからどこへ」を残す。
type OrderEvent struct {
	ID      int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID int64 `gorm:"not null;index" json:"order_id"`

	//作成時はFromが空
	FromStatus OrderStatus `gorm:"type:varchar(20)" json:"from_status"`
	ToStatus   OrderStatus `gorm:"type:varchar(20);not null" json:"to_status"`

	Actor       EventActor `gorm:"type:varchar(20);not null;index" json:"actor"`
	ActorUserID *int64     `gorm:"index" json:"actor_user_id,omitempty"`
	Reason      string     `gorm:"type:varchar(255)" json:"reason"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
