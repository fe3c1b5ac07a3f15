package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField     Code = "REQUIRED_FIELD"
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeInvalidState      Code = "INVALID_STATE"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConfigInvalid     Code = "CONFIG_INVALID"
	CodeServiceTimeout    Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	CodeInternalError     Code = "INTERNAL_ERROR"
	CodeUnknownError      Code = "UNKNOWN_ERROR"
)

// Wallet provisioning
const (
	CodeWalletConfigMissing   Code = "WALLET_CONFIG_MISSING"
	CodeWalletLoadFailed      Code = "WALLET_LOAD_FAILED"
	CodeWalletAddressMismatch Code = "WALLET_ADDRESS_MISMATCH"
	CodeWalletPersistFailed   Code = "WALLET_PERSIST_FAILED"
	CodeWalletFundingFailed   Code = "WALLET_FUNDING_FAILED"
)

// Ledger networks
const (
	CodeNetworkUnavailable     Code = "NETWORK_UNAVAILABLE"
	CodeLedgerConnectionFailed Code = "LEDGER_CONNECTION_FAILED"
	CodeLedgerChainMismatch    Code = "LEDGER_CHAIN_MISMATCH"
	CodeLedgerRPCError         Code = "LEDGER_RPC_ERROR"
	CodeDevNodeStartFailed     Code = "DEV_NODE_START_FAILED"
	CodeDevNodeTimeout         Code = "DEV_NODE_TIMEOUT"
	CodeContractCallFailed     Code = "CONTRACT_CALL_FAILED"
	CodeContractNotDeployed    Code = "CONTRACT_NOT_DEPLOYED"
	CodeSignerUnavailable      Code = "SIGNER_UNAVAILABLE"
)

// Contract state cache
const (
	CodeCacheUnavailable Code = "CACHE_UNAVAILABLE"
	CodeCacheMiss        Code = "CACHE_MISS"
	CodeCacheWriteFailed Code = "CACHE_WRITE_FAILED"
	CodeCircuitOpen      Code = "CIRCUIT_OPEN"
)

// Bootstrap
const (
	CodeAlreadyBootstrapped Code = "ALREADY_BOOTSTRAPPED"
)
