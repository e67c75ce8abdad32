package frame

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	chainstub "hat-store/internal/chain/stub"
	"hat-store/internal/domain"
	"hat-store/internal/engine"
	idstub "hat-store/internal/identity/stub"
)

const aliceFID = 100

var alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")

type captureRecorder struct {
	mu     sync.Mutex
	events []domain.InteractionEvent
}

func (r *captureRecorder) Record(e domain.InteractionEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return true
}

type fixture struct {
	server   *httptest.Server
	chain    *chainstub.Client
	resolver *idstub.Resolver
	recorder *captureRecorder
}

func newFixture(t *testing.T, supply int64) *fixture {
	t.Helper()
	return newFixtureWith(t, supply, nil)
}

func newFixtureWith(t *testing.T, supply int64, configure func(*Options)) *fixture {
	t.Helper()

	c := chainstub.NewClient(supply)
	res := idstub.NewResolver()
	res.Set(aliceFID, alice)
	rec := &captureRecorder{}

	eng := engine.New(engine.Options{
		Chain:       c,
		Resolver:    res,
		ReadTimeout: time.Second,
		MintTimeout: time.Second,
	})
	opts := Options{
		Engine:    eng,
		Recorder:  rec,
		PublicURL: "https://hats.example.com",
		Contract:  testContract,
	}
	if configure != nil {
		configure(&opts)
	}
	h := NewHandler(opts)

	router := chi.NewRouter()
	router.Mount("/api", h.Routes())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &fixture{server: srv, chain: c, resolver: res, recorder: rec}
}

func (f *fixture) post(t *testing.T, route string, fid uint64, button int, input string) (int, string) {
	t.Helper()
	body := fmt.Sprintf(`{"untrustedData":{"fid":%d,"buttonIndex":%d,"inputText":%q}}`, fid, button, input)
	resp, err := http.Post(f.server.URL+"/api"+route, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func (f *fixture) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func TestHandler_HomeAvailable(t *testing.T) {
	f := newFixture(t, 100)

	status, body := f.get(t, "/api")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `content="Buy for 0.005 ETH"`)
	assert.Contains(t, body, `content="Watch ad for 1/2 off"`)
	assert.Contains(t, body, `content="tx"`)

	require.Len(t, f.recorder.events, 1)
	assert.Equal(t, CustomHome, f.recorder.events[0].CustomID)
	assert.Equal(t, domain.BranchBuyFullPrice, f.recorder.events[0].Branch)
}

func TestHandler_HomeSoldOut(t *testing.T) {
	f := newFixture(t, 0)

	status, body := f.post(t, "/", 0, 0, "")
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, `content="tx"`)
	assert.Contains(t, body, `content="Sold out"`)
}

func TestHandler_HomeUnavailable(t *testing.T) {
	f := newFixture(t, 100)
	f.chain.SupplyErr = fmt.Errorf("rpc down")

	status, body := f.get(t, "/api")
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, `content="tx"`)
	assert.Contains(t, body, "retry")
}

// Scenario: supply=100, balance=0 through home, ad, coupon and the discounted purchase.
func TestHandler_DiscountFlow(t *testing.T) {
	f := newFixture(t, 100)

	_, body := f.get(t, "/api")
	assert.Contains(t, body, "Buy for 0.005 ETH")

	status, body := f.post(t, RouteAd, aliceFID, 2, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `content="Wallet Address (not ens)"`)
	assert.Contains(t, body, `content="Receive Coupon"`)

	status, body = f.post(t, RouteCoupon, aliceFID, 1, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `content="Buy for 0.0025 ETH"`)
	assert.Contains(t, body, "https://hats.example.com/api/buy-discount")
	assert.Equal(t, 1, f.chain.MintCalls)
	assert.Equal(t, []common.Address{alice}, f.chain.Minted)

	status, body = f.post(t, RouteBuyDiscount, aliceFID, 1, "")
	require.Equal(t, http.StatusOK, status)
	var tx TxResponse
	require.NoError(t, json.Unmarshal([]byte(body), &tx))
	assert.Equal(t, "2500000000000000", tx.Params.Value)
	assert.Equal(t, testContract.Hex(), tx.Params.To)

	status, body = f.post(t, RouteFinish, aliceFID, 1, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, ChannelURL)

	var ids []string
	for _, e := range f.recorder.events {
		ids = append(ids, e.CustomID)
	}
	assert.Equal(t, []string{CustomHome, CustomAd, CustomCoupon, CustomBuyDiscount, CustomPurchased}, ids)
}

func TestHandler_CouponHolderNoSecondMint(t *testing.T) {
	f := newFixture(t, 100)
	f.chain.SetBalance(alice, 1)

	_, body := f.post(t, RouteCoupon, aliceFID, 1, "")
	assert.Contains(t, body, "Buy for 0.0025 ETH")
	assert.Zero(t, f.chain.MintCalls)
}

func TestHandler_CouponNoAddress(t *testing.T) {
	f := newFixture(t, 100)

	status, body := f.post(t, RouteCoupon, 999, 1, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "No address connected")
	assert.NotContains(t, body, "0.0025")
	assert.Zero(t, f.chain.MintCalls)
	assert.Zero(t, f.chain.SupplyCalls)
}

func TestHandler_CouponTypedAddress(t *testing.T) {
	f := newFixture(t, 100)
	typed := "0x00000000000000000000000000000000000000b0"

	_, body := f.post(t, RouteCoupon, 999, 1, typed)
	assert.Contains(t, body, "Buy for 0.0025 ETH")
	assert.Equal(t, []common.Address{common.HexToAddress(typed)}, f.chain.Minted)
	assert.Zero(t, f.resolver.Calls)
}

func TestHandler_CouponMintFailureStillOffersPurchase(t *testing.T) {
	f := newFixture(t, 100)
	f.chain.SubmitErr = fmt.Errorf("execution reverted")

	status, body := f.post(t, RouteCoupon, aliceFID, 1, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Buy for 0.0025 ETH")
	assert.Equal(t, 1, f.chain.MintCalls)
}

func TestHandler_AdSoldOut(t *testing.T) {
	f := newFixture(t, 0)

	_, body := f.post(t, RouteAd, aliceFID, 2, "")
	assert.Contains(t, body, ImageSoldOut)
	assert.NotContains(t, body, `content="tx"`)
}

func TestHandler_BuyFullPrice(t *testing.T) {
	f := newFixture(t, 100)

	status, body := f.post(t, RouteBuy, aliceFID, 1, "")
	require.Equal(t, http.StatusOK, status)

	var tx TxResponse
	require.NoError(t, json.Unmarshal([]byte(body), &tx))
	assert.Equal(t, "5000000000000000", tx.Params.Value)
	assert.Equal(t, DefaultChainID, tx.ChainID)
}

func TestHandler_BuyAnonymousRejected(t *testing.T) {
	f := newFixture(t, 100)

	status, _ := f.post(t, RouteBuy, 0, 1, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Empty(t, f.recorder.events)
}

func TestHandler_MalformedMessage(t *testing.T) {
	f := newFixture(t, 100)

	resp, err := http.Post(f.server.URL+"/api/coupon", "application/json", strings.NewReader("{oops"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, f.chain.SupplyCalls)
}

func TestHandler_SoldOutRoute(t *testing.T) {
	f := newFixture(t, 0)

	_, body := f.post(t, RouteSoldOut, aliceFID, 1, "")
	assert.Contains(t, body, ImageSoldOut)
	require.Len(t, f.recorder.events, 1)
	assert.Equal(t, CustomSoldOut, f.recorder.events[0].CustomID)
	assert.Equal(t, uint64(aliceFID), f.recorder.events[0].SocialID)
}

func TestHandler_CouponMintThrottledPerCaller(t *testing.T) {
	f := newFixtureWith(t, 100, func(o *Options) {
		o.MintLimiter = NewMintLimiter(time.Hour, 0, 0)
	})

	status, body := f.post(t, RouteCoupon, aliceFID, 1, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "0.0025")
	require.Equal(t, 1, f.chain.MintCalls)

	// Same caller, fresh typed address: still eligible, but no second mint.
	status, body = f.post(t, RouteCoupon, aliceFID, 1, "0x00000000000000000000000000000000000000d4")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "0.0025")
	assert.Equal(t, 1, f.chain.MintCalls)

	// Another caller is unaffected.
	status, _ = f.post(t, RouteCoupon, 200, 1, "0x00000000000000000000000000000000000000e5")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, f.chain.MintCalls)
}

func TestHandler_BuyLogsConnectedAddress(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f := newFixtureWith(t, 100, func(o *Options) {
		o.Logger = zap.New(core)
	})

	body := `{"untrustedData":{"fid":100,"buttonIndex":1,"address":"0x00000000000000000000000000000000000000c0"}}`
	resp, err := http.Post(f.server.URL+"/api"+RouteBuy, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	entries := logs.FilterMessage("purchase frame built").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "0x00000000000000000000000000000000000000c0", fields["connected_address"])
	assert.Equal(t, uint64(100), fields["fid"])
}
