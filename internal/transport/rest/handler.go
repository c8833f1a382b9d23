// Package rest provides HTTP handlers for the sales desk engine.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/salesdesk/internal/catalog"
	deskerrors "github.com/abgdnv/salesdesk/internal/errors"
	"github.com/abgdnv/salesdesk/internal/service"
	"github.com/abgdnv/salesdesk/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  service.DeskService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of the sales desk API with the provided service.
func NewHandler(service service.DeskService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes of the sales desk.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.FindProduct)
				r.Put("/", h.UpdateProduct)
				r.Delete("/", h.DeleteProduct)
			})
		})

		r.Route("/kits", func(r chi.Router) {
			r.Get("/", h.ListKits)
			r.Post("/", h.CreateKit)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.FindKit)
				r.Delete("/", h.DeleteKit)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Delete("/items/{kind}/{id}", h.RemoveCartItem)
		})

		r.Post("/checkout", h.Checkout)
		r.Get("/sales", h.ListSales)
		r.Get("/summary", h.Summary)
	})

	r.Get("/healthz", h.HealthCheck)
}

// ListProducts retrieves all products in catalog order.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	list := h.service.Products()
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindProduct retrieves a product by its ID.
func (h *Handler) FindProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	found, err := h.service.FindProduct(id)
	if err != nil {
		if errors.Is(err, deskerrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve product with ID %s", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// CreateProduct handles the creation of a new product.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto service.ProductCreateDto
	if !h.decodeValid(w, r, mLogger, &dto) {
		return
	}

	created, err := h.service.CreateProduct(r.Context(), dto)
	if err != nil {
		if errors.Is(err, deskerrors.ErrInvalidInput) {
			mLogger.WarnContext(r.Context(), "Invalid product", "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
			return
		}
		mLogger.ErrorContext(r.Context(), "Error creating product", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Name", created.Name)
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// UpdateProduct replaces the mutable fields of an existing product.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.ProductCreateDto
	if !h.decodeValid(w, r, mLogger, &dto) {
		return
	}

	updated, err := h.service.UpdateProduct(r.Context(), id, dto)
	if err != nil {
		switch {
		case errors.Is(err, deskerrors.ErrProductNotFound):
			mLogger.WarnContext(r.Context(), "Product not found for update", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
		case errors.Is(err, deskerrors.ErrInvalidInput):
			mLogger.WarnContext(r.Context(), "Invalid product", "ID", id, "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
		default:
			mLogger.ErrorContext(r.Context(), "Error updating product", "ID", id, "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to update product with ID %s", id))
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// DeleteProduct deletes a product by its ID. A product still referenced by a
// kit is not deleted and the request fails with a conflict.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, deskerrors.ErrProductNotFound):
			mLogger.WarnContext(r.Context(), "Product not found for deletion", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
		case errors.Is(err, deskerrors.ErrProductInUse):
			mLogger.WarnContext(r.Context(), "Product still referenced by a kit", "ID", id)
			web.RespondError(w, mLogger, http.StatusConflict, err.Error())
		default:
			mLogger.ErrorContext(r.Context(), "Error deleting product", "ID", id, "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to delete product with ID %s", id))
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListKits retrieves all kits with their derived availability.
func (h *Handler) ListKits(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	list := h.service.Kits()
	mLogger.DebugContext(r.Context(), "Successfully retrieved kit list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindKit retrieves a kit by its ID.
func (h *Handler) FindKit(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	found, err := h.service.FindKit(id)
	if err != nil {
		if errors.Is(err, deskerrors.ErrKitNotFound) {
			mLogger.WarnContext(r.Context(), "Kit not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Kit with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving kit", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve kit with ID %s", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// CreateKit handles the creation of a new kit.
func (h *Handler) CreateKit(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto service.KitCreateDto
	if !h.decodeValid(w, r, mLogger, &dto) {
		return
	}

	created, err := h.service.CreateKit(r.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, deskerrors.ErrInvalidInput):
			mLogger.WarnContext(r.Context(), "Invalid kit", "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
		case errors.Is(err, deskerrors.ErrProductNotFound):
			mLogger.WarnContext(r.Context(), "Kit references unknown product", "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
		default:
			mLogger.ErrorContext(r.Context(), "Error creating kit", "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to create kit")
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Kit created successfully", "ID", created.ID, "Name", created.Name)
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// DeleteKit deletes a kit by its ID.
func (h *Handler) DeleteKit(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	if err := h.service.DeleteKit(r.Context(), id); err != nil {
		if errors.Is(err, deskerrors.ErrKitNotFound) {
			mLogger.WarnContext(r.Context(), "Kit not found for deletion", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Kit with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error deleting kit", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to delete kit with ID %s", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Kit deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// GetCart returns the current draft sale.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.service.Cart())
}

// AddCartItem validates and adds an item to the draft sale.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto service.CartAddDto
	if !h.decodeValid(w, r, mLogger, &dto) {
		return
	}

	updated, err := h.service.AddToCart(dto)
	if err != nil {
		switch {
		case errors.Is(err, deskerrors.ErrInsufficientStock):
			mLogger.WarnContext(r.Context(), "Not enough stock for cart item", "ref_id", dto.RefID, "error", err)
			web.RespondError(w, mLogger, http.StatusConflict, err.Error())
		case errors.Is(err, deskerrors.ErrProductNotFound), errors.Is(err, deskerrors.ErrKitNotFound):
			mLogger.WarnContext(r.Context(), "Cart item not found", "ref_id", dto.RefID, "error", err)
			web.RespondError(w, mLogger, http.StatusNotFound, err.Error())
		case errors.Is(err, deskerrors.ErrInvalidInput):
			mLogger.WarnContext(r.Context(), "Invalid cart item", "ref_id", dto.RefID, "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
		default:
			mLogger.ErrorContext(r.Context(), "Error adding cart item", "ref_id", dto.RefID, "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to add item to cart")
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Cart item added", "ref_id", dto.RefID, "kind", dto.Kind)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// RemoveCartItem deletes a draft line. Removing an absent line succeeds.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	kind := catalog.Kind(r.PathValue("kind"))
	if kind != catalog.KindProduct && kind != catalog.KindKit {
		web.RespondError(w, mLogger, http.StatusBadRequest, fmt.Sprintf("Invalid item kind: %s", kind))
		return
	}
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	updated := h.service.RemoveFromCart(kind, id)
	mLogger.InfoContext(r.Context(), "Cart item removed", "ID", id, "kind", kind)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// ClearCart empties the draft sale.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	h.service.ClearCart()
	mLogger.InfoContext(r.Context(), "Cart cleared")
	w.WriteHeader(http.StatusNoContent)
}

// Checkout commits the draft sale.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)

	sale, err := h.service.Checkout(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, deskerrors.ErrEmptyCart):
			mLogger.WarnContext(r.Context(), "Checkout with empty cart")
			web.RespondError(w, mLogger, http.StatusUnprocessableEntity, "Cart is empty")
		case errors.Is(err, deskerrors.ErrInsufficientStock):
			mLogger.WarnContext(r.Context(), "Checkout failed on stock re-validation", "error", err)
			web.RespondError(w, mLogger, http.StatusConflict, err.Error())
		case errors.Is(err, deskerrors.ErrProductNotFound), errors.Is(err, deskerrors.ErrKitNotFound):
			mLogger.WarnContext(r.Context(), "Checkout references removed item", "error", err)
			web.RespondError(w, mLogger, http.StatusConflict, err.Error())
		default:
			mLogger.ErrorContext(r.Context(), "Error committing sale", "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to complete sale")
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Sale committed", "ID", sale.ID, "total", sale.Total)
	web.RespondJSON(w, mLogger, http.StatusCreated, sale)
}

// ListSales returns committed sales, most recent first.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	list := h.service.Sales()
	mLogger.DebugContext(r.Context(), "Successfully retrieved sale list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// Summary returns the dashboard numbers.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.service.Summary())
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeValid decodes the request body into dto and validates it, writing the
// error response itself when either step fails.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dto any) bool {
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dto); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			// If the error is a validation error, we can extract field-specific errors.
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				// fieldErr.Tag() returns "required", "max", etc.
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
