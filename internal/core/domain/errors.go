package domain

import "errors"

// ErrorKind classifies failures so callers can decide between rejecting,
// retrying or escalating.
type ErrorKind int

const (
	UnknownErrorKind ErrorKind = iota
	ValidationError
	StateError
	AuthorizationError
	TransientError
	FatalError
)

func (k ErrorKind) String() string {
	switch k {
	case ValidationError:
		return "validation"
	case StateError:
		return "state"
	case AuthorizationError:
		return "authorization"
	case TransientError:
		return "transient"
	case FatalError:
		return "fatal"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind ErrorKind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

var errorsByCode = make(map[string]*Error)

func newError(kind ErrorKind, code, msg string) *Error {
	err := &Error{kind, code, msg}
	errorsByCode[code] = err
	return err
}

// Validation
var (
	ErrInvalidDeadline        = newError(ValidationError, "INVALID_DEADLINE", "deadline must be in the future")
	ErrInvalidResolveTime     = newError(ValidationError, "INVALID_RESOLVE_TIME", "resolve time must not precede the betting deadline")
	ErrInvalidChallengeWindow = newError(ValidationError, "INVALID_CHALLENGE_WINDOW", "challenge window must be positive")
	ErrInvalidOptionsCount    = newError(ValidationError, "INVALID_OPTIONS_COUNT", "invalid number of options")
	ErrQuestionTooLong        = newError(ValidationError, "QUESTION_TOO_LONG", "question too long")
	ErrOptionTooLong          = newError(ValidationError, "OPTION_TOO_LONG", "option label too long")
	ErrInvalidAsset           = newError(ValidationError, "INVALID_ASSET", "missing asset identifier")
	ErrInvalidPoolKind        = newError(ValidationError, "INVALID_POOL_KIND", "operation not supported by this kind of pool")
	ErrStakeTooSmall          = newError(ValidationError, "STAKE_TOO_SMALL", "stake below minimum amount")
	ErrInvalidAmount          = newError(ValidationError, "INVALID_AMOUNT", "amount does not match the market stake")
	ErrInvalidOption          = newError(ValidationError, "INVALID_OPTION", "invalid option index")
	ErrOptionMismatch         = newError(ValidationError, "OPTION_MISMATCH", "cannot change option of an existing position")
	ErrInvalidPrice           = newError(ValidationError, "INVALID_PRICE", "invalid resolution price")
	ErrInvalidFeeRate         = newError(ValidationError, "INVALID_FEE_RATE", "fee rate exceeds 10000 basis points")
	ErrInvalidAdmin           = newError(ValidationError, "INVALID_ADMIN", "invalid admin identity")
	ErrInvalidIdentity        = newError(ValidationError, "INVALID_IDENTITY", "missing signer identity")
)

// State
var (
	ErrPoolNotFound          = newError(StateError, "POOL_NOT_FOUND", "pool not found")
	ErrPoolNotOpen           = newError(StateError, "POOL_NOT_OPEN", "pool is not open")
	ErrBettingClosed         = newError(StateError, "BETTING_CLOSED", "betting deadline has passed")
	ErrNotExpired            = newError(StateError, "NOT_EXPIRED", "pool deadline has not passed yet")
	ErrAlreadySettled        = newError(StateError, "ALREADY_SETTLED", "pool already settled")
	ErrAlreadyCancelled      = newError(StateError, "ALREADY_CANCELLED", "pool already cancelled")
	ErrNotProposed           = newError(StateError, "NOT_PROPOSED", "market has no pending proposal")
	ErrNotDisputed           = newError(StateError, "NOT_DISPUTED", "market is not disputed")
	ErrChallengeWindowClosed = newError(StateError, "CHALLENGE_WINDOW_CLOSED", "challenge window has closed")
	ErrChallengeWindowOpen   = newError(StateError, "CHALLENGE_WINDOW_OPEN", "challenge window has not ended yet")
	ErrNotParticipant        = newError(StateError, "NOT_PARTICIPANT", "signer holds no position in this pool")
	ErrSelfChallenge         = newError(StateError, "SELF_CHALLENGE", "proposer cannot challenge its own proposal")
	ErrPoolNotSettled        = newError(StateError, "POOL_NOT_SETTLED", "pool not settled")
	ErrNotWinner             = newError(StateError, "NOT_WINNER", "position is not on the winning side")
	ErrAlreadyClaimed        = newError(StateError, "ALREADY_CLAIMED", "position already claimed")
	ErrNoOpponentRefund      = newError(StateError, "NO_OPPONENT_REFUND", "pool settled unopposed, positions are refundable")
	ErrPoolNotCancelled      = newError(StateError, "POOL_NOT_CANCELLED", "pool is not cancelled")
	ErrNotExpirable          = newError(StateError, "NOT_EXPIRABLE", "market cannot be expired yet")
)

// Authorization
var (
	ErrNotAdmin    = newError(AuthorizationError, "NOT_ADMIN", "signer is not the administrator")
	ErrNotResolver = newError(AuthorizationError, "NOT_RESOLVER", "signer is not the authorized resolver")
)

// Transient
var (
	ErrPriceUnavailable  = newError(TransientError, "PRICE_UNAVAILABLE", "price unavailable")
	ErrLedgerUnavailable = newError(TransientError, "LEDGER_UNAVAILABLE", "ledger unavailable")
	ErrUnknownOutcome    = newError(TransientError, "UNKNOWN_OUTCOME", "submission outcome unknown")
	ErrLockHeld          = newError(TransientError, "LOCK_HELD", "pool is being processed elsewhere")
)

// Fatal
var (
	ErrOverflow        = newError(FatalError, "OVERFLOW", "arithmetic overflow")
	ErrMalformedRecord = newError(FatalError, "MALFORMED_RECORD", "malformed pool record")
)

// KindOf returns the kind of the first *Error found in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnknownErrorKind
}

// CodeOf returns the code of the first *Error found in err's chain, if any.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ErrorFromCode maps a wire code back to its sentinel.
func ErrorFromCode(code string) (*Error, bool) {
	err, ok := errorsByCode[code]
	return err, ok
}

// IsRetryable reports whether err is worth retrying as is.
func IsRetryable(err error) bool {
	return KindOf(err) == TransientError
}
