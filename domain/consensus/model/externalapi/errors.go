package externalapi

import "fmt"

// ErrorCode enumerates the error kinds the core can surface to callers,
// per spec §7. Each is either a local/recoverable classification outcome
// or a fatal halt condition.
type ErrorCode int

const (
	// ErrUnknownParent means a referenced parent is not yet in the
	// BlockStore (I2). Recoverable: the block is buffered.
	ErrUnknownParent ErrorCode = iota
	// ErrDuplicateParent means selected_parent appears in merge_parents,
	// or merge_parents has a repeat (I3). Non-recoverable: block dropped.
	ErrDuplicateParent
	// ErrMergesetTooLarge means a block's mergeset exceeds MAX_MERGESET.
	// Non-recoverable: block dropped.
	ErrMergesetTooLarge
	// ErrInvalidStructure covers acyclicity and other structural
	// invariant violations (I1). Non-recoverable: block dropped.
	ErrInvalidStructure
	// ErrAlreadyClassified is the idempotence guard: the block was
	// already accepted. The resubmission is rejected and the existing
	// DagMetadata is left unchanged.
	ErrAlreadyClassified
	// ErrCommitmentMismatch means the executor's returned roots disagree
	// with the block's BodyCommitments. Fatal: the core halts.
	ErrCommitmentMismatch
	// ErrReorgPastFinality means the reorg would abandon a finalized
	// block (I7). Non-recoverable: head unchanged.
	ErrReorgPastFinality
	// ErrStoreUnavailable means the BlockStore failed a read or write.
	// Fatal: the core halts rather than present an inconsistent head.
	ErrStoreUnavailable
	// ErrExecutorTimeout means the executor did not respond to apply
	// within its configured timeout, even after one retry.
	// Fatal: the core halts.
	ErrExecutorTimeout
)

var errorCodeNames = map[ErrorCode]string{
	ErrUnknownParent:      "UnknownParent",
	ErrDuplicateParent:    "DuplicateParent",
	ErrMergesetTooLarge:   "MergesetTooLarge",
	ErrInvalidStructure:   "InvalidStructure",
	ErrAlreadyClassified:  "AlreadyClassified",
	ErrCommitmentMismatch: "CommitmentMismatch",
	ErrReorgPastFinality:  "ReorgPastFinality",
	ErrStoreUnavailable:   "StoreUnavailable",
	ErrExecutorTimeout:    "ExecutorTimeout",
}

// String renders the error code's name.
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UnknownErrorCode"
}

// RuleError is the error type the core returns for every classification,
// validation, or consensus-state failure. Mirrors the teacher's
// ruleError(ErrXxx, msg)-shaped errors, giving every caller a structured
// code to log or use for peer scoring, plus a human message.
type RuleError struct {
	ErrorCode ErrorCode
	Message   string
	// Hash is the offending block, when one is known.
	Hash *DomainHash
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	if e.Hash != nil {
		return fmt.Sprintf("%s: %s (block %s)", e.ErrorCode, e.Message, e.Hash)
	}
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}

// NewRuleError constructs a RuleError for the given code and message.
func NewRuleError(code ErrorCode, hash *DomainHash, message string) *RuleError {
	return &RuleError{ErrorCode: code, Message: message, Hash: hash}
}

// IsFatal reports whether the error kind requires the core to halt
// rather than continue (§7 propagation policy).
func (c ErrorCode) IsFatal() bool {
	switch c {
	case ErrCommitmentMismatch, ErrStoreUnavailable, ErrExecutorTimeout:
		return true
	default:
		return false
	}
}

// AsRuleError unwraps err into a *RuleError if it is (or wraps) one.
func AsRuleError(err error) (*RuleError, bool) {
	type causer interface{ Cause() error }
	for err != nil {
		if ruleErr, ok := err.(*RuleError); ok {
			return ruleErr, true
		}
		c, ok := err.(causer)
		if !ok {
			return nil, false
		}
		err = c.Cause()
	}
	return nil, false
}
