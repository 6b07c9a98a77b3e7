// File: internal/browser/detect/verdict.go
package detect

// Kind classifies the state a tab was found in.
type Kind string

const (
	KindAuthenticated Kind = "authenticated"
	KindAnonymous     Kind = "anonymous"
	KindCaptcha       Kind = "captcha"
	KindBlocked       Kind = "blocked"
	KindUnknown       Kind = "unknown"
)

// Verdict is the outcome of one detection predicate together with the raw
// signals that produced it. Verdicts are produced fresh on every check and
// never cached across navigations.
type Verdict struct {
	Kind    Kind
	Signals map[string]string
}

func newVerdict(kind Kind) Verdict {
	return Verdict{Kind: kind, Signals: map[string]string{}}
}

func (v *Verdict) set(signal, value string) {
	v.Signals[signal] = value
}

func (v *Verdict) setBool(signal string, value bool) {
	if value {
		v.Signals[signal] = "true"
	} else {
		v.Signals[signal] = "false"
	}
}
