package activation

import "fmt"

// User-visible texts
const (
	msgInvalidLink      = "❌ Link inválido ou expirado. Peça um novo ao suporte."
	msgNotFoundStart    = "❌ Cliente não encontrado. Peça um novo link ao suporte."
	msgNotFound         = "❌ Cliente não encontrado."
	msgStoreUnavailable = "⚠️ Não foi possível consultar seu cadastro. Tente novamente em instantes."

	validateButtonText = "🔓 VALIDAR ACESSO"
)

// greeting is the reply to a valid /start, inviting the client to validate
func greeting(name string) string {
	return fmt.Sprintf("👋 Olá <b>%s</b>!\n\nClique abaixo para validar seu acesso.", name)
}

// validatedHeader opens the invite-link response after a successful validation
func validatedHeader(name string) string {
	return fmt.Sprintf("🎉 <b>Acesso Validado, %s!</b>\n", name)
}

// entitlementLine formats one granted entitlement with its invite link
func entitlementLine(entitlement, inviteLink string) string {
	return fmt.Sprintf("➡️ <b>%s</b>: %s", entitlement, inviteLink)
}

// missingGroupLine warns about an entitlement with no configured group
func missingGroupLine(entitlement string) string {
	return fmt.Sprintf("⚠️ Carteira sem grupo configurado: %s", entitlement)
}
