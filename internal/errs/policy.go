package errs

// policyKind enumerates how a store failure is treated by the reconciler.
type policyKind uint8

const (
	kindFatal policyKind = iota
	kindSwallow
	kindSwallowIfCode
)

// ErrorPolicy decides whether an error from one store operation aborts the push.
// The zero value is Fatal.
type ErrorPolicy struct {
	kind policyKind
	code string
}

var (
	// Fatal propagates every error.
	Fatal = ErrorPolicy{kind: kindFatal}
	// Swallow ignores every error.
	Swallow = ErrorPolicy{kind: kindSwallow}
)

// SwallowIfCode ignores errors carrying the given SQL state and propagates the rest.
func SwallowIfCode(code string) ErrorPolicy {
	return ErrorPolicy{kind: kindSwallowIfCode, code: code}
}

// Apply classifies err. A nil err is neither swallowed nor fatal.
func (p ErrorPolicy) Apply(err error) (swallowed bool, fatal error) {
	if err == nil {
		return false, nil
	}
	switch p.kind {
	case kindSwallow:
		return true, nil
	case kindSwallowIfCode:
		if Code(err) == p.code {
			return true, nil
		}
		return false, err
	default:
		return false, err
	}
}

func (p ErrorPolicy) String() string {
	switch p.kind {
	case kindSwallow:
		return "swallow"
	case kindSwallowIfCode:
		return "swallow-if-" + p.code
	default:
		return "fatal"
	}
}
