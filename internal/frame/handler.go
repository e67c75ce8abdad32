// Package frame serves the storefront as a sequence of fc:frame screens
// and the transaction frames for its purchase buttons.
package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hat-store/internal/domain"
	"hat-store/internal/engine"
	"hat-store/internal/observability"
)

// Analytics custom ids per route.
const (
	CustomHome        = "home"
	CustomAd          = "ad"
	CustomCoupon      = "coupon"
	CustomPurchased   = "purchased"
	CustomSoldOut     = "soldOut"
	CustomBuy         = "buy"
	CustomBuyDiscount = "buy-discount"
)

// EventRecorder accepts analytics events without blocking.
type EventRecorder interface {
	Record(e domain.InteractionEvent) bool
}

// Handler serves the frame routes.
type Handler struct {
	engine   *engine.Engine
	recorder EventRecorder
	renderer *Renderer
	contract common.Address
	chainID  string
	limiter  *MintLimiter
	logger   *zap.Logger
}

// Options contains configuration for creating a Handler.
type Options struct {
	Engine    *engine.Engine
	Recorder  EventRecorder // Optional
	PublicURL string        // e.g. https://hats.example.com
	BasePath  string        // Default: /api
	Contract  common.Address
	ChainID   string // Default: eip155:8453
	// MintLimiter throttles sponsored mints on the coupon route.
	// Default: NewMintLimiter(DefaultMintInterval, DefaultMintRate, DefaultMintBurst)
	MintLimiter *MintLimiter
	Logger      *zap.Logger
}

// NewHandler creates a frame handler.
func NewHandler(opts Options) *Handler {
	basePath := opts.BasePath
	if basePath == "" {
		basePath = "/api"
	}

	chainID := opts.ChainID
	if chainID == "" {
		chainID = DefaultChainID
	}

	limiter := opts.MintLimiter
	if limiter == nil {
		limiter = NewMintLimiter(DefaultMintInterval, DefaultMintRate, DefaultMintBurst)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		engine:   opts.Engine,
		recorder: opts.Recorder,
		renderer: NewRenderer(opts.PublicURL, basePath),
		contract: opts.Contract,
		chainID:  chainID,
		limiter:  limiter,
		logger:   logger,
	}
}

// Routes returns the frame router, to be mounted at the base path.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get(RouteHome, h.home)
	r.Post(RouteHome, h.home)
	r.Post(RouteAd, h.ad)
	r.Post(RouteCoupon, h.coupon)
	r.Post(RouteFinish, h.finish)
	r.Post(RouteSoldOut, h.soldOut)
	r.Post(RouteBuy, h.buy)
	r.Post(RouteBuyDiscount, h.buyDiscount)
	return r
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	in, ok := h.parse(w, r, domain.StepHome)
	if !ok {
		return
	}
	d := h.engine.DecideHomeScreen(r.Context())
	h.respond(w, RouteHome, CustomHome, in, HomeScreen(d), start)
}

func (h *Handler) ad(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	in, ok := h.parse(w, r, domain.StepAd)
	if !ok {
		return
	}
	d := h.engine.DecideHomeScreen(r.Context())
	h.respond(w, RouteAd, CustomAd, in, AdScreen(d), start)
}

func (h *Handler) coupon(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	in, ok := h.parse(w, r, domain.StepCoupon)
	if !ok {
		return
	}

	d := h.engine.DecideDiscountEligibility(r.Context(), in.Identity())
	outcome := h.gatedMint(r, in, d)
	h.logger.Debug("coupon decided",
		zap.Uint64("fid", in.CallerSocialID),
		zap.String("eligibility", d.Eligibility.String()),
		zap.String("mint", string(outcome.Status)),
	)

	h.respond(w, RouteCoupon, CustomCoupon, in, CouponScreen(d), start)
}

// gatedMint runs the engine's gated mint unless the caller is over the
// sponsored mint limit. A throttled caller keeps the discounted offer.
func (h *Handler) gatedMint(r *http.Request, in domain.Interaction, d domain.EligibilityDecision) domain.MintOutcome {
	if d.Eligibility == domain.EligibleForMint && !h.limiter.Allow(in.CallerSocialID, time.Now()) {
		h.logger.Warn("sponsored mint throttled",
			zap.Uint64("fid", in.CallerSocialID),
			zap.String("recipient", d.Address.Hex()),
		)
		observability.RecordMintOutcome(string(domain.MintThrottled))
		return domain.MintOutcome{Status: domain.MintThrottled}
	}
	return h.engine.PerformGatedMint(r.Context(), d)
}

func (h *Handler) finish(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	in, ok := h.parse(w, r, domain.StepFinish)
	if !ok {
		return
	}
	h.respond(w, RouteFinish, CustomPurchased, in, FinishScreen(), start)
}

func (h *Handler) soldOut(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	in, ok := h.parse(w, r, domain.StepSoldOut)
	if !ok {
		return
	}
	h.respond(w, RouteSoldOut, CustomSoldOut, in, SoldOutScreen(), start)
}

func (h *Handler) buy(w http.ResponseWriter, r *http.Request) {
	h.transaction(w, r, RouteBuy, CustomBuy, domain.PriceFull, domain.BranchBuyFullPrice)
}

func (h *Handler) buyDiscount(w http.ResponseWriter, r *http.Request) {
	h.transaction(w, r, RouteBuyDiscount, CustomBuyDiscount, domain.PriceDiscounted, domain.BranchBuyDiscounted)
}

// transaction answers a transaction button with buyHat(fid) at the route's tier.
func (h *Handler) transaction(w http.ResponseWriter, r *http.Request, route, customID string, tier domain.PriceTier, branch domain.Branch) {
	start := time.Now()
	in, ok := h.parse(w, r, domain.StepFinish)
	if !ok {
		return
	}

	tx, err := BuildPurchase(h.chainID, h.contract, in.CallerSocialID, tier)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrAnonymousPurchase) {
			status = http.StatusBadRequest
		}
		h.logger.Warn("build purchase failed", zap.String("route", route), zap.Error(err))
		http.Error(w, err.Error(), status)
		return
	}

	body, err := json.Marshal(tx)
	if err != nil {
		h.logger.Error("encode transaction frame", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("purchase frame built",
		zap.String("route", route),
		zap.Uint64("fid", in.CallerSocialID),
		zap.String("connected_address", in.ConnectedAddress),
		zap.String("value", tx.Params.Value),
	)

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)

	h.record(route, customID, branch, in)
	observability.RecordFrameRequest(route, string(branch), time.Since(start).Seconds())
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request, step domain.Step) (domain.Interaction, bool) {
	in, err := ParseInteraction(r, step)
	if err != nil {
		h.logger.Debug("rejecting frame message", zap.String("step", step.String()), zap.Error(err))
		http.Error(w, "malformed frame message", http.StatusBadRequest)
		return in, false
	}
	return in, true
}

func (h *Handler) respond(w http.ResponseWriter, route, customID string, in domain.Interaction, p domain.RenderPayload, start time.Time) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, p); err != nil {
		h.logger.Error("render frame", zap.String("route", route), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())

	h.record(route, customID, p.Branch, in)
	observability.RecordFrameRequest(route, string(p.Branch), time.Since(start).Seconds())
}

func (h *Handler) record(route, customID string, branch domain.Branch, in domain.Interaction) {
	if h.recorder == nil {
		return
	}
	h.recorder.Record(domain.InteractionEvent{
		CustomID:    customID,
		Route:       route,
		Branch:      branch,
		SocialID:    in.CallerSocialID,
		ButtonIndex: in.ButtonIndex,
	})
}
