package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jaeho-dev/marketscout/internal/browser/detect"
	"github.com/jaeho-dev/marketscout/internal/config"
	"github.com/jaeho-dev/marketscout/internal/market"
	"github.com/jaeho-dev/marketscout/internal/relay"
)

func TestParseKeywords(t *testing.T) {
	assert.Equal(t, []string{"무선 이어폰", "충전기"}, ParseKeywords(" 무선 이어폰 , 충전기 "))
	assert.Equal(t, []string{"a"}, ParseKeywords("a,,  ,"))
	assert.Nil(t, ParseKeywords(""))
	assert.Nil(t, ParseKeywords(" , "))
}

func newTestSourcer(cfg config.SourcingConfig, browser *stubBrowser, det *stubDetector, rel *stubRelay, searcher *stubSearcher, exts ...*stubExtractor) *Sourcer {
	m := map[market.Platform]market.Extractor{}
	for _, e := range exts {
		m[e.platform] = e
	}
	s := NewSourcer(cfg, browser, det, rel, searcher, m, zap.NewNop())
	s.tick = time.Millisecond
	return s
}

func naverOnly() config.SourcingConfig {
	return config.SourcingConfig{SearchNaver: true}
}

func TestSourcingEmptyKeywordsIsNoOp(t *testing.T) {
	browser := &stubBrowser{ensureErr: errors.New("must not launch")}
	s := newTestSourcer(naverOnly(), browser, authedDetector(), &stubRelay{}, &stubSearcher{})

	require.NoError(t, s.Run(context.Background(), "user", " , ,"))
	assert.Equal(t, "completed", s.Progress().Snapshot().Status)
}

func TestSourcingRefusesOverlap(t *testing.T) {
	s := newTestSourcer(naverOnly(), &stubBrowser{}, authedDetector(), &stubRelay{}, &stubSearcher{})
	s.running.Store(true)
	assert.ErrorIs(t, s.Run(context.Background(), "user", "a"), ErrAlreadyRunning)
}

func TestSourcingSearchesAndPostsPerKeyword(t *testing.T) {
	browser := &stubBrowser{}
	rel := &stubRelay{}
	searcher := &stubSearcher{}
	ext := &stubExtractor{platform: market.PlatformNaver}
	s := newTestSourcer(naverOnly(), browser, authedDetector(), rel, searcher, ext)

	require.NoError(t, s.Run(context.Background(), "user", "이어폰, 충전기"))

	require.Len(t, searcher.calls, 2)
	assert.True(t, searcher.calls[0].firstVisit)
	assert.Equal(t, "이어폰", searcher.calls[0].keyword)
	assert.False(t, searcher.calls[1].firstVisit)
	assert.Equal(t, "충전기", searcher.calls[1].keyword)

	require.Len(t, ext.calls, 2)
	assert.False(t, ext.calls[0].req.FetchOnly, "interactive results read in place")
	assert.Empty(t, ext.calls[0].req.URL)

	require.Len(t, rel.posts, 2)
	assert.Equal(t, "이어폰", rel.posts[0].Keyword)
	assert.Equal(t, "user", rel.posts[0].UserID)
	assert.Equal(t, "completed", s.Progress().Snapshot().Status)
}

func TestSourcingAttachesWhenTabCountGrows(t *testing.T) {
	newest := testTab()
	browser := &stubBrowser{newestTab: newest}
	browser.targetLists = [][]*target.Info{targets(1), targets(2)}
	rel := &stubRelay{}
	ext := &stubExtractor{platform: market.PlatformNaver}
	s := newTestSourcer(naverOnly(), browser, authedDetector(), rel, &stubSearcher{}, ext)

	require.NoError(t, s.Run(context.Background(), "user", "이어폰"))
	require.Len(t, rel.posts, 1)
}

func TestSourcingBlockFallsBackToFetchOnly(t *testing.T) {
	det := authedDetector()
	det.blockedSeq = []detect.Verdict{
		{Kind: detect.KindBlocked},
	}
	rel := &stubRelay{}
	searcher := &stubSearcher{}
	ext := &stubExtractor{platform: market.PlatformNaver}
	s := newTestSourcer(naverOnly(), &stubBrowser{}, det, rel, searcher, ext)

	require.NoError(t, s.Run(context.Background(), "user", "a, b, c"))

	require.Len(t, searcher.calls, 1, "no interactive searches once blocked")
	require.Len(t, ext.calls, 3)
	assert.True(t, ext.calls[0].req.FetchOnly)
	assert.True(t, ext.calls[1].req.FetchOnly)
	assert.True(t, ext.calls[2].req.FetchOnly)
	assert.Len(t, rel.posts, 3, "blocked search surface still sources via fetch")
}

func TestSourcingBlockedSurfaceSkipsInteractiveSearch(t *testing.T) {
	det := authedDetector()
	det.blockedSeq = []detect.Verdict{
		{Kind: detect.KindUnknown},
		{Kind: detect.KindBlocked},
	}
	rel := &stubRelay{}
	searcher := &stubSearcher{}
	ext := &stubExtractor{platform: market.PlatformNaver}
	s := newTestSourcer(naverOnly(), &stubBrowser{}, det, rel, searcher, ext)

	require.NoError(t, s.Run(context.Background(), "user", "a, b, c"))

	// The block verdict lands before the second keyword's search, so no
	// interactive search is spent on an already hostile surface.
	require.Len(t, searcher.calls, 1)
	assert.Equal(t, "a", searcher.calls[0].keyword)
	require.Len(t, ext.calls, 3)
	assert.False(t, ext.calls[0].req.FetchOnly)
	assert.True(t, ext.calls[1].req.FetchOnly)
	assert.True(t, ext.calls[2].req.FetchOnly)
}

func TestSourcingAppliesPriceWindow(t *testing.T) {
	cfg := config.SourcingConfig{SearchNaver: true, PriceMin: 1000, PriceMax: 50000}
	rel := &stubRelay{}
	searcher := &stubSearcher{}
	listings := []market.Product{
		{Code: "c1", Name: "폰 케이스 하드", SalePrice: 900},
		{Code: "c2", Name: "폰 케이스 실리콘", SalePrice: 1500},
		{Code: "c3", Name: "폰 케이스 가죽", SalePrice: 30000},
		{Code: "c4", Name: "폰 케이스 범퍼", SalePrice: 50000},
		{Code: "c5", Name: "폰 케이스 한정판", SalePrice: 120000},
	}
	ext := &stubExtractor{platform: market.PlatformNaver}
	ext.resultFn = func(req market.ExtractRequest) *market.Result {
		if req.Keyword != "phone case" {
			return &market.Result{}
		}
		return &market.Result{Products: market.FilterByPrice(listings, req.Price)}
	}
	s := newTestSourcer(cfg, &stubBrowser{}, authedDetector(), rel, searcher, ext)

	require.NoError(t, s.Run(context.Background(), "user", "phone case, screen protector"))

	require.Len(t, ext.calls, 2)
	assert.Equal(t, market.PriceRange{Min: 1000, Max: 50000}, ext.calls[0].req.Price,
		"configured price window reaches the extractor")

	require.Len(t, rel.posts, 1, "keyword with no products posts nothing")
	require.Len(t, rel.posts[0].Products, 3)
	got := []string{}
	for _, p := range rel.posts[0].Products {
		got = append(got, p.Code)
	}
	assert.Equal(t, []string{"c2", "c3", "c4"}, got)

	snap := s.Progress().Snapshot()
	assert.Equal(t, "completed", snap.Status)
	assert.Equal(t, 2, snap.Current)
}

func TestSourcingMarketplacesRelayIndependently(t *testing.T) {
	rel := &stubRelay{postErrs: []error{errors.New("naver post down"), nil}}
	naverExt := &stubExtractor{platform: market.PlatformNaver}
	auctionExt := &stubExtractor{platform: market.PlatformAuction}
	cfg := config.SourcingConfig{SearchNaver: true, SearchAuction: true}
	s := newTestSourcer(cfg, &stubBrowser{}, authedDetector(), rel, &stubSearcher{}, naverExt, auctionExt)

	require.NoError(t, s.Run(context.Background(), "user", "이어폰"))

	assert.Len(t, naverExt.calls, 1)
	require.Len(t, auctionExt.calls, 1)
	assert.True(t, auctionExt.calls[0].req.FetchOnly, "auction always sources by fetch")
	require.Len(t, rel.posts, 1, "surviving marketplace still posted")
	assert.Equal(t, market.PlatformAuction, rel.posts[0].Platform)
}

func TestSourcingTodayStopEndsRun(t *testing.T) {
	rel := &stubRelay{postErrs: []error{relay.ErrTodayStop}}
	ext := &stubExtractor{platform: market.PlatformNaver}
	s := newTestSourcer(naverOnly(), &stubBrowser{}, authedDetector(), rel, &stubSearcher{}, ext)

	err := s.Run(context.Background(), "user", "a, b")
	assert.ErrorIs(t, err, relay.ErrTodayStop)
	assert.Len(t, ext.calls, 1)
	assert.Equal(t, "failed", s.Progress().Snapshot().Status)
}

func TestSourcingStopBetweenKeywords(t *testing.T) {
	rel := &stubRelay{}
	ext := &stubExtractor{platform: market.PlatformNaver}
	s := newTestSourcer(naverOnly(), &stubBrowser{}, authedDetector(), rel, &stubSearcher{}, ext)
	ext.onCall = func(n int) {
		if n == 1 {
			s.Stop()
		}
	}

	require.NoError(t, s.Run(context.Background(), "user", "a, b, c"))
	assert.Len(t, ext.calls, 1)
	assert.Equal(t, "stopped", s.Progress().Snapshot().Status)
}

func TestSourcingSearchFailureSkipsKeyword(t *testing.T) {
	rel := &stubRelay{}
	searcher := &stubSearcher{errs: []error{nil, errors.New("box vanished")}}
	ext := &stubExtractor{platform: market.PlatformNaver}
	s := newTestSourcer(naverOnly(), &stubBrowser{}, authedDetector(), rel, searcher, ext)

	require.NoError(t, s.Run(context.Background(), "user", "a, b"))
	assert.Len(t, ext.calls, 1, "keyword with failed search is skipped")
	assert.Len(t, rel.posts, 1)
}
