package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"plantshop/internal"
	"plantshop/internal/cart"
	"plantshop/internal/config"
	"plantshop/internal/export"
	"plantshop/internal/storefront"
)

const SessionCookie = "plantshop_cart"

// Handler serves the storefront pages, the JSON API and the cart exports.
type Handler struct {
	shop     *storefront.Service
	carts    *cart.Registry
	validate *validator.Validate
	receipt  export.ReceiptOptions
	log      *zap.Logger
}

func NewHandler(shop *storefront.Service, carts *cart.Registry, cfg config.Config, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		shop:     shop,
		carts:    carts,
		validate: validator.New(),
		receipt:  export.ReceiptOptions{FromName: cfg.ReceiptFromName, FromAddress: cfg.ReceiptFromAddress},
		log:      log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Health)

	r.Get("/", h.Index)
	r.Get("/category/{categoryId}", h.Index)
	r.Get("/plant/{plantId}", h.Index)

	r.Post("/cart/add", h.FormAdd)
	r.Post("/cart/remove", h.FormRemove)
	r.Post("/cart/clear", h.FormClear)
	r.Get("/cart/export.xlsx", h.CartXLSX)
	r.Get("/cart/receipt.eml", h.CartReceipt)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", h.ListCategories)
		r.Get("/plants", h.ListPlants)
		r.Get("/plants/{plantId}", h.GetPlant)
		r.Get("/cart", h.GetCart)
		r.Post("/cart/items", h.AddCartItem)
		r.Delete("/cart/items/{itemId}", h.RemoveCartItem)
		r.Delete("/cart", h.ClearCart)
	})
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, ErrorResponse{Error: message})
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.log.Error("encode json response", zap.Error(err))
		}
	}
}

// session returns the caller's cart, starting a new session when the
// cookie is missing or unknown. Only routes that add to the cart use it.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *cart.Store {
	id := sessionID(r)
	newID, store := h.carts.Get(id)
	if newID != id {
		log := h.log.With(zap.String("session", newID))
		store.Subscribe(func(v cart.View) {
			log.Debug("cart changed", zap.Int("lines", len(v.Lines)), zap.Float64("total", v.Total))
		})
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    newID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return store
}

// existing returns the caller's cart if the session is live. It never
// creates one, so cookieless reads cost nothing.
func (h *Handler) existing(r *http.Request) (*cart.Store, bool) {
	return h.carts.Peek(sessionID(r))
}

// cartView is the caller's cart, or an empty one without a session.
func (h *Handler) cartView(r *http.Request) cart.View {
	if store, ok := h.existing(r); ok {
		return store.View()
	}
	return cart.View{}
}

func sessionID(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Pages ---

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := h.shop.BuildPage(r.Context(), storefront.PageRequest{
		CategoryID: chi.URLParam(r, "categoryId"),
		DetailID:   chi.URLParam(r, "plantId"),
		Cart:       h.cartView(r),
	})
	status := http.StatusOK
	if err != nil {
		if !errors.Is(err, storefront.ErrUnknownItem) || page == nil {
			h.log.Error("build page", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		status = http.StatusNotFound
	}

	body, err := page.HTML()
	if err != nil {
		h.log.Error("render page", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (h *Handler) FormAdd(w http.ResponseWriter, r *http.Request) {
	store := h.session(w, r)
	id := r.FormValue("id")
	if _, err := h.shop.AddToCart(r.Context(), store, id); err != nil {
		if errors.Is(err, storefront.ErrUnknownItem) {
			http.Error(w, "Unknown plant", http.StatusNotFound)
			return
		}
		h.log.Error("add to cart", zap.String("id", id), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	redirectBack(w, r)
}

func (h *Handler) FormRemove(w http.ResponseWriter, r *http.Request) {
	if store, ok := h.existing(r); ok {
		store.Remove(r.FormValue("id"))
	}
	redirectBack(w, r)
}

func (h *Handler) FormClear(w http.ResponseWriter, r *http.Request) {
	if store, ok := h.existing(r); ok {
		store.Clear()
	}
	redirectBack(w, r)
}

// redirectBack answers a form post with 303 to the page it came from. Only
// the path and query of the Referer are used.
func redirectBack(w http.ResponseWriter, r *http.Request) {
	target := "/"
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Path != "" {
		target = ref.RequestURI()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// --- Exports ---

func (h *Handler) CartXLSX(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteCartXLSX(&buf, h.cartView(r)); err != nil {
		h.log.Error("cart spreadsheet", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", export.XLSXContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="cart.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) CartReceipt(w http.ResponseWriter, r *http.Request) {
	opts := h.receipt
	opts.ToAddress = r.URL.Query().Get("to")

	raw, err := export.BuildReceipt(h.cartView(r), opts)
	if err != nil {
		h.log.Error("cart receipt", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "message/rfc822")
	w.Header().Set("Content-Disposition", `attachment; filename="receipt.eml"`)
	_, _ = w.Write(raw)
}

// --- JSON API ---

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.shop.Categories(r.Context())
	if err != nil {
		h.log.Warn("categories failed", zap.Error(err))
		h.respondWithError(w, http.StatusBadGateway, "Failed to load categories.")
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (h *Handler) ListPlants(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	query := r.URL.Query().Get("q")

	var (
		items []internal.Item
		err   error
	)
	if query != "" {
		items, err = h.shop.Search(r.Context(), category, query)
	} else {
		items, err = h.shop.Items(r.Context(), category)
	}
	if err != nil {
		h.log.Warn("plants failed", zap.String("category", category), zap.Error(err))
		h.respondWithError(w, http.StatusBadGateway, "Failed to load plants.")
		return
	}
	if items == nil {
		items = []internal.Item{}
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"plants": items})
}

func (h *Handler) GetPlant(w http.ResponseWriter, r *http.Request) {
	item, err := h.shop.Detail(r.Context(), chi.URLParam(r, "plantId"))
	if err != nil {
		if errors.Is(err, storefront.ErrUnknownItem) {
			h.respondWithError(w, http.StatusNotFound, "Plant not found")
			return
		}
		h.respondWithError(w, http.StatusInternalServerError, "Failed to load plant")
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"plant": item})
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, cartResponse(h.cartView(r)))
}

type CartItemInput struct {
	ID string `json:"id" validate:"required"`
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var input CartItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	store := h.session(w, r)
	line, err := h.shop.AddToCart(r.Context(), store, input.ID)
	if err != nil {
		if errors.Is(err, storefront.ErrUnknownItem) {
			h.respondWithError(w, http.StatusNotFound, "Plant not found")
			return
		}
		h.respondWithError(w, http.StatusInternalServerError, "Failed to add plant")
		return
	}

	resp := cartResponse(store.View())
	resp.Line = &line
	h.respondWithJSON(w, http.StatusCreated, resp)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	if store, ok := h.existing(r); ok {
		store.Remove(chi.URLParam(r, "itemId"))
	}
	h.respondWithJSON(w, http.StatusOK, cartResponse(h.cartView(r)))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if store, ok := h.existing(r); ok {
		store.Clear()
	}
	h.respondWithJSON(w, http.StatusOK, cartResponse(h.cartView(r)))
}

type CartResponse struct {
	Line  *internal.CartLine  `json:"line,omitempty"`
	Lines []internal.CartLine `json:"lines"`
	Total float64             `json:"total"`
}

func cartResponse(view cart.View) CartResponse {
	lines := view.Lines
	if lines == nil {
		lines = []internal.CartLine{}
	}
	return CartResponse{Lines: lines, Total: view.Total}
}
