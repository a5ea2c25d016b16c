package records

import "time"

// Column names of the clientes table, used as patch keys
const (
	FieldEntitlements      = "carteiras"
	FieldTelegramUserID    = "telegram_user_id"
	FieldTelegramUsername  = "telegram_username"
	FieldTelegramFirstName = "telegram_first_name"
	FieldConnected         = "conectado"
	FieldLastSync          = "ultimo_sync"
	FieldRemovedAt         = "removido_em"
)

// Patch is a partial field update, keyed by column name. Stores apply it as
// a merge, leaving absent fields untouched.
type Patch map[string]any

// ActivationPatch builds the conditional update for a successful activation:
// link the invoking Telegram identity, mark the record connected, and stamp
// the sync time. Replays produce the same patch, so the update is idempotent.
func ActivationPatch(userID int64, username, firstName string, now time.Time) Patch {
	return Patch{
		FieldTelegramUserID:    userID,
		FieldTelegramUsername:  username,
		FieldTelegramFirstName: firstName,
		FieldConnected:         true,
		FieldLastSync:          now.UTC(),
	}
}

// RevocationPatch builds the conditional update for an expired subscription:
// disconnect the record, stamp the removal time, and reset the entitlements
// to the terminal sentinel so later sweeps skip it.
func RevocationPatch(now time.Time) Patch {
	return Patch{
		FieldConnected:    false,
		FieldRemovedAt:    now.UTC(),
		FieldEntitlements: []string{TerminalEntitlement},
	}
}
