package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mamadbah2/agrimarket/internal/domain/apperr"
	"github.com/mamadbah2/agrimarket/internal/domain/models"
	"github.com/mamadbah2/agrimarket/internal/server/middleware"
	"github.com/mamadbah2/agrimarket/internal/service/buyers"
	"github.com/mamadbah2/agrimarket/internal/service/marketplace"
	"github.com/mamadbah2/agrimarket/internal/service/matching"
)

// BuyerMatcher ranks buyers for a farmer.
type BuyerMatcher interface {
	Match(ctx context.Context, q matching.Query) (matching.Result, error)
}

// BuyerDirectory manages registered buyers.
type BuyerDirectory interface {
	Get(ctx context.Context, id string) (models.Buyer, error)
	Add(ctx context.Context, actor models.Actor, in buyers.AddInput) (models.Buyer, error)
	Seed(ctx context.Context) (int, error)
}

// TransactionService runs the transaction lifecycle.
type TransactionService interface {
	Create(ctx context.Context, actor models.Actor, in marketplace.CreateInput) (models.Transaction, error)
	Get(ctx context.Context, actor models.Actor, id string) (models.Transaction, error)
	List(ctx context.Context, actor models.Actor, f marketplace.ListFilter) ([]models.Transaction, error)
	UpdateStatus(ctx context.Context, actor models.Actor, id string, upd marketplace.StatusUpdate) (models.Transaction, error)
	Cancel(ctx context.Context, actor models.Actor, id string) (models.Transaction, error)
}

// FieldLister lists the fields a farmer owns.
type FieldLister interface {
	ListFieldsByUser(ctx context.Context, userID string) ([]models.Field, error)
}

// MarketplaceHandler exposes buyer matching and transactions over HTTP.
type MarketplaceHandler struct {
	matcher      BuyerMatcher
	buyers       BuyerDirectory
	transactions TransactionService
	fields       FieldLister
	logger       *zap.Logger
}

// NewMarketplaceHandler constructs the HTTP handler adapter.
func NewMarketplaceHandler(matcher BuyerMatcher, directory BuyerDirectory, transactions TransactionService, fields FieldLister, logger *zap.Logger) *MarketplaceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketplaceHandler{
		matcher:      matcher,
		buyers:       directory,
		transactions: transactions,
		fields:       fields,
		logger:       logger,
	}
}

// MatchBuyers lists buyers near the farmer's location.
func (h *MarketplaceHandler) MatchBuyers(c *gin.Context) {
	actor := middleware.ActorFrom(c)

	var maxDistance *float64
	if raw, ok := c.GetQuery("maxDistance"); ok && raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			h.writeError(c, apperr.New(apperr.ErrValidation, "maxDistance must be a non-negative number"))
			return
		}
		maxDistance = &v
	}

	crops := splitCSV(c.Query("crops"))
	if len(crops) == 0 {
		crops = h.farmerCrops(c.Request.Context(), actor.UserID)
	}

	result, err := h.matcher.Match(c.Request.Context(), matching.Query{
		Location:    c.Query("location"),
		FarmerCrops: crops,
		Crop:        c.Query("crop"),
		MaxDistance: maxDistance,
		SortBy:      matching.ParseSortOrder(c.Query("sortBy")),
		Search:      c.Query("search"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// farmerCrops collects the distinct crops grown on the farmer's fields.
func (h *MarketplaceHandler) farmerCrops(ctx context.Context, userID string) []string {
	if h.fields == nil || userID == "" {
		return nil
	}
	fields, err := h.fields.ListFieldsByUser(ctx, userID)
	if err != nil {
		h.logger.Warn("failed to load farmer fields", zap.String("user_id", userID), zap.Error(err))
		return nil
	}

	seen := make(map[string]bool)
	var crops []string
	for _, f := range fields {
		crop := strings.TrimSpace(f.Crop)
		if crop == "" || seen[crop] {
			continue
		}
		seen[crop] = true
		crops = append(crops, crop)
	}
	return crops
}

// GetBuyer returns one buyer.
func (h *MarketplaceHandler) GetBuyer(c *gin.Context) {
	buyer, err := h.buyers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"buyer": buyer})
}

type contactInfoRequest struct {
	Phone string `json:"phone" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

type addBuyerRequest struct {
	Name              string                   `json:"name" binding:"required"`
	Location          string                   `json:"location" binding:"required"`
	ContactInfo       contactInfoRequest       `json:"contactInfo"`
	InterestedCrops   []string                 `json:"interestedCrops" binding:"required,min=1,dive,required"`
	OfferPrice        map[string]float64       `json:"offerPrice"`
	AdditionalInfo    string                   `json:"additionalInfo"`
	ProfileImage      string                   `json:"profileImage"`
	BuyingPreferences models.BuyingPreferences `json:"buyingPreferences"`
}

// AddBuyer registers a buyer.
func (h *MarketplaceHandler) AddBuyer(c *gin.Context) {
	var req addBuyerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid buyer payload", zap.Error(err))
		h.writeError(c, bindingError(err))
		return
	}

	buyer, err := h.buyers.Add(c.Request.Context(), middleware.ActorFrom(c), buyers.AddInput{
		Name:              req.Name,
		Location:          req.Location,
		ContactInfo:       models.ContactInfo{Phone: req.ContactInfo.Phone, Email: req.ContactInfo.Email},
		InterestedCrops:   req.InterestedCrops,
		OfferPrice:        req.OfferPrice,
		AdditionalInfo:    req.AdditionalInfo,
		ProfileImage:      req.ProfileImage,
		BuyingPreferences: req.BuyingPreferences,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"buyer": buyer, "message": "Buyer added successfully"})
}

// SeedBuyers loads the reference buyers into an empty directory.
func (h *MarketplaceHandler) SeedBuyers(c *gin.Context) {
	n, err := h.buyers.Seed(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inserted": n})
}

// ListTransactions returns the caller's transactions.
func (h *MarketplaceHandler) ListTransactions(c *gin.Context) {
	txs, err := h.transactions.List(c.Request.Context(), middleware.ActorFrom(c), marketplace.ListFilter{
		UserID:  c.Query("userId"),
		Status:  models.TransactionStatus(c.Query("status")),
		BuyerID: c.Query("buyerId"),
		FieldID: c.Query("fieldId"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// createTransactionRequest accepts the farmer as farmerId or its alias userId.
type createTransactionRequest struct {
	FarmerID        string               `json:"farmerId"`
	UserID          string               `json:"userId"`
	BuyerID         string               `json:"buyerId" binding:"required"`
	FieldID         string               `json:"fieldId"`
	CropType        string               `json:"cropType" binding:"required"`
	Quantity        float64              `json:"quantity" binding:"gt=0"`
	UnitOfMeasure   models.UnitOfMeasure `json:"unitOfMeasure" binding:"omitempty,oneof=kg quintal ton"`
	PricePerUnit    float64              `json:"pricePerUnit" binding:"gt=0"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod" binding:"omitempty,oneof=cash bank_transfer digital_wallet other"`
	TransactionDate *time.Time           `json:"transactionDate"`
	DeliveryDate    *time.Time           `json:"deliveryDate"`
	Notes           string               `json:"notes"`
}

// CreateTransaction records a new pending sale.
func (h *MarketplaceHandler) CreateTransaction(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid transaction payload", zap.Error(err))
		h.writeError(c, bindingError(err))
		return
	}

	farmerID := req.FarmerID
	if farmerID == "" {
		farmerID = req.UserID
	} else if req.UserID != "" && req.UserID != farmerID {
		h.writeError(c, apperr.New(apperr.ErrValidation, "farmerId and userId must match"))
		return
	}

	tx, err := h.transactions.Create(c.Request.Context(), middleware.ActorFrom(c), marketplace.CreateInput{
		FarmerID:        farmerID,
		BuyerID:         req.BuyerID,
		FieldID:         req.FieldID,
		CropType:        req.CropType,
		Quantity:        req.Quantity,
		UnitOfMeasure:   req.UnitOfMeasure,
		PricePerUnit:    req.PricePerUnit,
		PaymentMethod:   req.PaymentMethod,
		TransactionDate: req.TransactionDate,
		DeliveryDate:    req.DeliveryDate,
		Notes:           req.Notes,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx, "message": "Transaction created successfully"})
}

// GetTransaction returns one transaction.
func (h *MarketplaceHandler) GetTransaction(c *gin.Context) {
	tx, err := h.transactions.Get(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

type updateTransactionRequest struct {
	UserID        string                    `json:"userId"`
	Status        *models.TransactionStatus `json:"status"`
	PaymentStatus *models.PaymentStatus     `json:"paymentStatus"`
	PaymentMethod *models.PaymentMethod     `json:"paymentMethod"`
	Notes         *string                   `json:"notes"`
	DeliveryDate  *time.Time                `json:"deliveryDate"`
	QualityRating *int                      `json:"qualityRating"`
}

// UpdateTransaction changes the status and allow-listed fields of a transaction.
func (h *MarketplaceHandler) UpdateTransaction(c *gin.Context) {
	var req updateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid transaction update payload", zap.Error(err))
		h.writeError(c, bindingError(err))
		return
	}

	actor := middleware.ActorFrom(c)
	if err := checkActingUser(actor, req.UserID); err != nil {
		h.writeError(c, err)
		return
	}
	if req.Status != nil && *req.Status == "" {
		req.Status = nil
	}

	tx, err := h.transactions.UpdateStatus(c.Request.Context(), actor, c.Param("id"), marketplace.StatusUpdate{
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		DeliveryDate:  req.DeliveryDate,
		QualityRating: req.QualityRating,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx, "message": "Transaction updated successfully"})
}

// CancelTransaction cancels a transaction that has not finished yet.
// The acting user may be named in the userId query parameter.
func (h *MarketplaceHandler) CancelTransaction(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if err := checkActingUser(actor, c.Query("userId")); err != nil {
		h.writeError(c, err)
		return
	}

	tx, err := h.transactions.Cancel(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx, "message": "Transaction cancelled successfully"})
}

// checkActingUser rejects a payload userId that names someone other than the caller.
func checkActingUser(actor models.Actor, userID string) error {
	if userID == "" || userID == actor.UserID || actor.IsAdmin() {
		return nil
	}
	return apperr.New(apperr.ErrUnauthorized, "userId does not match the authenticated user")
}

// bindingError turns a binding failure into a validation error naming the offending fields.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.New(apperr.ErrValidation, "invalid request body")
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperr.New(apperr.ErrValidation, "%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	name := jsonPath(fe.StructNamespace())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email"
	case "gt":
		return name + " must be greater than " + fe.Param()
	case "min":
		return name + " must have at least " + fe.Param() + " entries"
	case "oneof":
		return name + " must be one of: " + fe.Param()
	default:
		return name + " is invalid"
	}
}

// jsonPath maps "createTransactionRequest.PricePerUnit" to "pricePerUnit".
func jsonPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

func (h *MarketplaceHandler) writeError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if !apperr.Exposed(err) {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"error": msg, "code": apperr.Code(err)})
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
