// File: internal/browser/detect/detect_test.go
package detect

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProbe is a configurable Probe fixture.
type stubProbe struct {
	url     string
	title   string
	cookies map[string]bool
	// selectors maps CSS selector -> present.
	selectors map[string]bool
	// heights maps CSS selector -> rendered height.
	heights map[string]float64
	body    string

	neutralized int
	err         error
}

func (s *stubProbe) URL(context.Context) (string, error)   { return s.url, s.err }
func (s *stubProbe) Title(context.Context) (string, error) { return s.title, s.err }

func (s *stubProbe) HasCookie(_ context.Context, name string) (bool, error) {
	return s.cookies[name], s.err
}

func (s *stubProbe) HasSelector(_ context.Context, selector string) (bool, error) {
	return s.selectors[selector], s.err
}

func (s *stubProbe) SelectorHeight(_ context.Context, selector string) (float64, error) {
	return s.heights[selector], s.err
}

func (s *stubProbe) BodyContains(_ context.Context, needle string) (bool, error) {
	return strings.Contains(s.body, needle), s.err
}

func (s *stubProbe) NeutralizeLoginForm(context.Context) error {
	s.neutralized++
	return nil
}

// authenticatedProbe returns a probe where all four session signals hold.
func authenticatedProbe() *stubProbe {
	return &stubProbe{
		url:       "https://smartstore.naver.com/somestore",
		title:     homeTitle,
		cookies:   map[string]bool{authCookieName: true},
		selectors: map[string]bool{},
		heights:   map[string]float64{},
	}
}

func TestSessionConjunctiveTruthTable(t *testing.T) {
	// Flipping any single signal must flip the verdict to Anonymous; the
	// verdict is Authenticated iff all four hold.
	for mask := 0; mask < 16; mask++ {
		urlOK := mask&1 != 0
		cookieOK := mask&2 != 0
		noFormOK := mask&4 != 0
		titleOK := mask&8 != 0

		probe := authenticatedProbe()
		if !urlOK {
			probe.url = "https://" + loginFormURL + "?mode=form"
		}
		if !cookieOK {
			probe.cookies = map[string]bool{}
		}
		if !noFormOK {
			probe.selectors[loginFormSelector] = true
		}
		if !titleOK {
			probe.title = "로그인"
		}

		verdict, err := Session(context.Background(), probe)
		require.NoError(t, err)

		if urlOK && cookieOK && noFormOK && titleOK {
			assert.Equal(t, KindAuthenticated, verdict.Kind, "mask %04b", mask)
		} else {
			assert.Equal(t, KindAnonymous, verdict.Kind, "mask %04b", mask)
		}
	}
}

func TestSessionRecordsSignals(t *testing.T) {
	probe := authenticatedProbe()
	probe.cookies = map[string]bool{}

	verdict, err := Session(context.Background(), probe)
	require.NoError(t, err)

	assert.Equal(t, KindAnonymous, verdict.Kind)
	assert.Equal(t, "true", verdict.Signals["not_login_url"])
	assert.Equal(t, "false", verdict.Signals["auth_cookie"])
	assert.Equal(t, "true", verdict.Signals["no_login_form"])
	assert.Equal(t, "true", verdict.Signals["home_title"])
}

func TestSessionNeutralizesRawLoginForm(t *testing.T) {
	probe := authenticatedProbe()
	probe.selectors[loginFormSelector] = true

	verdict, err := Session(context.Background(), probe)
	require.NoError(t, err)

	assert.Equal(t, KindAnonymous, verdict.Kind)
	assert.Equal(t, 1, probe.neutralized, "a present login form must be defused exactly once")
}

func TestSessionProbeErrorYieldsUnknown(t *testing.T) {
	probe := authenticatedProbe()
	probe.err = errors.New("tab went away")

	verdict, err := Session(context.Background(), probe)
	assert.Error(t, err)
	assert.Equal(t, KindUnknown, verdict.Kind)
}

func TestCaptchaRequiresLayout(t *testing.T) {
	tests := []struct {
		name      string
		selectors map[string]bool
		heights   map[string]float64
		want      Kind
	}{
		{
			name:      "no markers at all",
			selectors: map[string]bool{},
			want:      KindAnonymous,
		},
		{
			name:      "inert script tag only",
			selectors: map[string]bool{captchaScriptSelector: true},
			heights:   map[string]float64{},
			want:      KindAnonymous,
		},
		{
			name:      "container laid out",
			selectors: map[string]bool{captchaContainerSelector: true},
			heights:   map[string]float64{captchaContainerSelector: 320},
			want:      KindCaptcha,
		},
		{
			name:      "container collapsed but frame visible",
			selectors: map[string]bool{captchaContainerSelector: true},
			heights:   map[string]float64{captchaFrameSelector: 240},
			want:      KindCaptcha,
		},
		{
			name:      "marker with trivial height",
			selectors: map[string]bool{captchaContainerSelector: true},
			heights:   map[string]float64{captchaContainerSelector: 4},
			want:      KindAnonymous,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := &stubProbe{selectors: tt.selectors, heights: tt.heights}
			verdict, err := Captcha(context.Background(), probe)
			require.NoError(t, err)
			assert.Equal(t, tt.want, verdict.Kind)
		})
	}
}

func TestBlockedDisjunctiveMarkers(t *testing.T) {
	tests := []struct {
		name  string
		probe *stubProbe
		want  Kind
	}{
		{
			name:  "clean page",
			probe: &stubProbe{title: "상품 목록", selectors: map[string]bool{}},
			want:  KindAnonymous,
		},
		{
			name:  "rate limit phrase in body",
			probe: &stubProbe{body: "서비스 이용이 일시적으로 제한되었습니다.", selectors: map[string]bool{}},
			want:  KindBlocked,
		},
		{
			name:  "error marker class",
			probe: &stubProbe{selectors: map[string]bool{errorMarkerSelector: true}},
			want:  KindBlocked,
		},
		{
			name: "generic title with vendor help link",
			probe: &stubProbe{
				title:     "오류",
				selectors: map[string]bool{helpLinkSelector: true},
			},
			want: KindBlocked,
		},
		{
			name:  "generic title alone is not enough",
			probe: &stubProbe{title: "오류", selectors: map[string]bool{}},
			want:  KindAnonymous,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := Blocked(context.Background(), tt.probe)
			require.NoError(t, err)
			assert.Equal(t, tt.want, verdict.Kind)
		})
	}
}

func TestBlockedRecordsWinningPhrase(t *testing.T) {
	probe := &stubProbe{body: "비정상적인 검색 활동이 감지되었습니다", selectors: map[string]bool{}}
	verdict, err := Blocked(context.Background(), probe)
	require.NoError(t, err)
	assert.Equal(t, KindBlocked, verdict.Kind)
	assert.Contains(t, verdict.Signals["block_phrase"], "비정상적인 검색")
}
