package app

import "time"

// Step names a bootstrap stage.
type Step string

const (
	StepPreflight   Step = "wallet_preflight"
	StepRemoteCache Step = "remote_cache"
	StepNetwork     Step = "network"
	StepBind        Step = "cache_bind"
	StepWallet      Step = "wallet"
	StepSigner      Step = "signer"
	StepFunding     Step = "funding"
	StepComplete    Step = "complete"
)

// Steps lists the stages in the order they start.
var Steps = []Step{StepPreflight, StepRemoteCache, StepNetwork, StepBind, StepWallet, StepSigner, StepFunding}

// Status is the outcome of a step.
type Status string

const (
	StatusRunning  Status = "running"
	StatusDone     Status = "done"
	StatusSkipped  Status = "skipped"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Event reports progress of one step.
type Event struct {
	Step   Step
	Status Status
	Detail string
	Err    error
	At     time.Time
}

// Observer receives events. It must not block.
type Observer func(Event)
