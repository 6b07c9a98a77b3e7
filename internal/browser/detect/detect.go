// File: internal/browser/detect/detect.go
// Package detect holds the stateless predicates that classify a tab as
// authenticated, captcha-challenged, or traffic-blocked. Predicates are pure
// with respect to a Probe, so tests can drive them with stubs and assert on
// individual signals.
package detect

import (
	"context"
	"strings"
)

// Probe abstracts the page observations the predicates need. The production
// implementation runs CDP commands against a tab; tests substitute fixtures.
type Probe interface {
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	HasCookie(ctx context.Context, name string) (bool, error)
	// HasSelector reports whether any element matches the CSS selector.
	HasSelector(ctx context.Context, selector string) (bool, error)
	// SelectorHeight returns the rendered height in px of the first match,
	// or 0 when nothing matches.
	SelectorHeight(ctx context.Context, selector string) (float64, error)
	BodyContains(ctx context.Context, needle string) (bool, error)
	// NeutralizeLoginForm disables submit behavior on any raw login form so
	// a detection pass can never fire an accidental credential post.
	NeutralizeLoginForm(ctx context.Context) error
}

// Marketplace page markers. These track what the vendor actually serves and
// are expected to rot; Blocked is deliberately disjunctive so one surviving
// marker is enough.
const (
	loginFormURL      = "nid.naver.com/nidlogin.login"
	authCookieName    = "NID_AUT"
	loginFormSelector = "form#frmNIDLogin, form[action*='nidlogin']"
	homeTitle         = "네이버"

	captchaScriptSelector    = "script[src*='ncpt.naver.com'], script[src*='captcha']"
	captchaContainerSelector = "#captcha_wrap, .captcha_wrap, #rcapt"
	captchaFrameSelector     = "iframe[src*='captcha']"

	errorMarkerSelector = ".error_content, .content_error"
	helpLinkSelector    = "a[href*='help.naver.com']"
)

// minCaptchaHeight guards against inert captcha script tags left in the page
// bundle: the challenge only counts when it is actually laid out.
const minCaptchaHeight = 10.0

var blockPhrases = []string{
	"일시적으로 제한",       // temporarily restricted
	"비정상적인 검색",       // abnormal search traffic
	"자동화된 요청",        // automated requests
	"접속이 일시적으로 차단", // access temporarily blocked
}

var genericTitles = []string{"오류", "에러", "error", "네이버 :: 세상의 모든 지식"}

// Session decides whether the tab holds an authenticated marketplace session.
// The policy is conjunctive: every signal alone is spoofable or transiently
// false during navigation, so all four must hold.
func Session(ctx context.Context, p Probe) (Verdict, error) {
	v := newVerdict(KindAnonymous)

	pageURL, err := p.URL(ctx)
	if err != nil {
		return newVerdict(KindUnknown), err
	}
	notLoginURL := !strings.Contains(pageURL, loginFormURL)
	v.setBool("not_login_url", notLoginURL)

	hasCookie, err := p.HasCookie(ctx, authCookieName)
	if err != nil {
		return newVerdict(KindUnknown), err
	}
	v.setBool("auth_cookie", hasCookie)

	hasForm, err := p.HasSelector(ctx, loginFormSelector)
	if err != nil {
		return newVerdict(KindUnknown), err
	}
	v.setBool("no_login_form", !hasForm)
	if hasForm {
		// Safety net only; detection must never trigger a credential post.
		if nerr := p.NeutralizeLoginForm(ctx); nerr != nil {
			v.set("neutralize_error", nerr.Error())
		}
	}

	title, err := p.Title(ctx)
	if err != nil {
		return newVerdict(KindUnknown), err
	}
	titleOK := strings.TrimSpace(title) == homeTitle
	v.setBool("home_title", titleOK)
	v.set("title", title)

	if notLoginURL && hasCookie && !hasForm && titleOK {
		v.Kind = KindAuthenticated
	}
	return v, nil
}

// Captcha decides whether the tab is showing a live captcha challenge.
func Captcha(ctx context.Context, p Probe) (Verdict, error) {
	v := newVerdict(KindAnonymous)

	present := false
	for _, sel := range []string{captchaScriptSelector, captchaContainerSelector, captchaFrameSelector} {
		has, err := p.HasSelector(ctx, sel)
		if err != nil {
			return newVerdict(KindUnknown), err
		}
		if has {
			present = true
			v.set("marker", sel)
			break
		}
	}
	v.setBool("marker_present", present)
	if !present {
		return v, nil
	}

	height, err := p.SelectorHeight(ctx, captchaContainerSelector)
	if err != nil {
		return newVerdict(KindUnknown), err
	}
	if height <= minCaptchaHeight {
		// Also accept a laid-out challenge frame when the container is
		// styled away.
		frameHeight, ferr := p.SelectorHeight(ctx, captchaFrameSelector)
		if ferr != nil {
			return newVerdict(KindUnknown), ferr
		}
		height = frameHeight
	}
	v.setBool("laid_out", height > minCaptchaHeight)

	if height > minCaptchaHeight {
		v.Kind = KindCaptcha
	}
	return v, nil
}

// Blocked decides whether the tab is showing a rate-limit / traffic-block
// page. Disjunctive: blocking pages vary in which marker survives vendor
// changes.
func Blocked(ctx context.Context, p Probe) (Verdict, error) {
	v := newVerdict(KindAnonymous)

	for _, phrase := range blockPhrases {
		has, err := p.BodyContains(ctx, phrase)
		if err != nil {
			return newVerdict(KindUnknown), err
		}
		if has {
			v.Kind = KindBlocked
			v.set("block_phrase", phrase)
			return v, nil
		}
	}
	v.setBool("block_phrase_present", false)

	hasMarker, err := p.HasSelector(ctx, errorMarkerSelector)
	if err != nil {
		return newVerdict(KindUnknown), err
	}
	v.setBool("error_marker", hasMarker)
	if hasMarker {
		v.Kind = KindBlocked
		return v, nil
	}

	title, err := p.Title(ctx)
	if err != nil {
		return newVerdict(KindUnknown), err
	}
	if isGenericTitle(title) {
		hasHelp, herr := p.HasSelector(ctx, helpLinkSelector)
		if herr != nil {
			return newVerdict(KindUnknown), herr
		}
		v.setBool("generic_title", true)
		v.setBool("help_link", hasHelp)
		if hasHelp {
			v.Kind = KindBlocked
		}
	}
	return v, nil
}

func isGenericTitle(title string) bool {
	lowered := strings.ToLower(strings.TrimSpace(title))
	for _, generic := range genericTitles {
		if lowered == strings.ToLower(generic) {
			return true
		}
	}
	return false
}
