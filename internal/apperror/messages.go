package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:     "Required field is missing",
	CodeInvalidInput:      "Invalid input provided",
	CodeInvalidState:      "Invalid state for this operation",
	CodeNotFound:          "Resource not found",
	CodeConfigInvalid:     "Configuration is invalid",
	CodeServiceTimeout:    "Operation timed out",
	CodeRateLimitExceeded: "Rate limit exceeded",
	CodeInternalError:     "Internal error",
	CodeUnknownError:      "An unknown error occurred",

	CodeWalletConfigMissing:   "Production wallet requires an expected address and a key file path",
	CodeWalletLoadFailed:      "Wallet key file could not be loaded",
	CodeWalletAddressMismatch: "Wallet key file does not match the expected address",
	CodeWalletPersistFailed:   "Development wallet could not be persisted",
	CodeWalletFundingFailed:   "Development wallet funding failed",

	CodeNetworkUnavailable:     "No ledger network could be reached",
	CodeLedgerConnectionFailed: "Failed to connect to ledger node",
	CodeLedgerChainMismatch:    "Ledger node reported an unexpected chain ID",
	CodeLedgerRPCError:         "Ledger RPC call failed",
	CodeDevNodeStartFailed:     "Local dev node could not be started",
	CodeDevNodeTimeout:         "Local dev node did not become ready in time",
	CodeContractCallFailed:     "Contract call failed",
	CodeContractNotDeployed:    "No contract code at address",
	CodeSignerUnavailable:      "No signing identity attached",

	CodeCacheUnavailable: "Remote cache unavailable",
	CodeCacheMiss:        "Key not found in any tier",
	CodeCacheWriteFailed: "Cache write failed",
	CodeCircuitOpen:      "Circuit breaker is open",

	CodeAlreadyBootstrapped: "Bootstrap already ran for this process",
}

// severities lists codes that must stop the process from serving. Codes not
// listed are degraded or transient.
var severities = map[Code]Severity{
	CodeConfigInvalid:         SeverityFatal,
	CodeWalletConfigMissing:   SeverityFatal,
	CodeWalletLoadFailed:      SeverityFatal,
	CodeWalletAddressMismatch: SeverityFatal,
	CodeWalletPersistFailed:   SeverityFatal,
	CodeNetworkUnavailable:    SeverityFatal,
	CodeAlreadyBootstrapped:   SeverityFatal,

	CodeServiceTimeout: SeverityTransient,
	CodeCircuitOpen:    SeverityTransient,
}
