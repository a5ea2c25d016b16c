package mysql

import "time"

// ClientModel represents the database model for client records. Column names
// match the hosted clientes table so the two backends stay interchangeable.
type ClientModel struct {
	ID   int64  `json:"id" gorm:"primaryKey"`
	Name string `json:"nome" gorm:"column:nome;size:255"`

	// Entitlements holds the JSON-encoded entitlement list
	Entitlements string `json:"carteiras" gorm:"column:carteiras;type:json"`

	SubscriptionEnd time.Time `json:"data_expiracao" gorm:"column:data_expiracao;type:date"`

	TelegramUserID    *int64 `json:"telegram_user_id" gorm:"column:telegram_user_id"`
	TelegramUsername  string `json:"telegram_username" gorm:"column:telegram_username;size:255"`
	TelegramFirstName string `json:"telegram_first_name" gorm:"column:telegram_first_name;size:255"`

	Connected bool       `json:"conectado" gorm:"column:conectado;default:false"`
	LastSync  *time.Time `json:"ultimo_sync" gorm:"column:ultimo_sync"`
	RemovedAt *time.Time `json:"removido_em" gorm:"column:removido_em"`
}

// TableName sets the table name for GORM
func (ClientModel) TableName() string {
	return "clientes"
}
