package ledger

const (
	operationGrant        = "grant"
	operationGrantWelcome = "grant_welcome"
	operationConsume      = "consume"
	operationSpend        = "spend"

	operationStatusOK        = "ok"
	operationStatusError     = "error"
	operationStatusDuplicate = "duplicate"

	welcomeKeyPrefix = "welcome:"

	grantSourceUnit = "credits"
	meteredUnit     = "tokens/1000"

	defaultListLimit = 50
	maxListLimit     = 500
)
