package models

import "time"

// TransactionStatus enumerates the lifecycle states of a crop sale.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusConfirmed  TransactionStatus = "confirmed"
	StatusInProgress TransactionStatus = "in_progress"
	StatusDelivered  TransactionStatus = "delivered"
	StatusCompleted  TransactionStatus = "completed"
	StatusCancelled  TransactionStatus = "cancelled"
)

// AllTransactionStatuses lists every status in lifecycle order.
var AllTransactionStatuses = []TransactionStatus{
	StatusPending,
	StatusConfirmed,
	StatusInProgress,
	StatusDelivered,
	StatusCompleted,
	StatusCancelled,
}

// Terminal reports whether no further status change is accepted.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// PaymentStatus tracks settlement of a transaction.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPartial   PaymentStatus = "partial"
	PaymentCompleted PaymentStatus = "completed"
)

// Valid reports whether the payment status is known.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPartial, PaymentCompleted:
		return true
	}
	return false
}

// PaymentMethod is how the buyer pays.
type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "cash"
	PaymentBankTransfer  PaymentMethod = "bank_transfer"
	PaymentDigitalWallet PaymentMethod = "digital_wallet"
	PaymentOther         PaymentMethod = "other"
)

// Valid reports whether the payment method is known.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentBankTransfer, PaymentDigitalWallet, PaymentOther:
		return true
	}
	return false
}

// UnitOfMeasure is the unit quantity and price refer to.
type UnitOfMeasure string

const (
	UnitKg      UnitOfMeasure = "kg"
	UnitQuintal UnitOfMeasure = "quintal"
	UnitTon     UnitOfMeasure = "ton"
)

// Valid reports whether the unit is known.
func (u UnitOfMeasure) Valid() bool {
	switch u {
	case UnitKg, UnitQuintal, UnitTon:
		return true
	}
	return false
}

// Transaction is a crop sale between a farmer and a buyer.
// TotalAmount always equals Quantity * PricePerUnit at rest.
type Transaction struct {
	ID              string            `bson:"_id,omitempty" json:"id"`
	FarmerID        string            `bson:"farmerId" json:"farmerId"`
	BuyerID         string            `bson:"buyerId" json:"buyerId"`
	FieldID         string            `bson:"fieldId,omitempty" json:"fieldId,omitempty"`
	CropType        string            `bson:"cropType" json:"cropType"`
	Quantity        float64           `bson:"quantity" json:"quantity"`
	UnitOfMeasure   UnitOfMeasure     `bson:"unitOfMeasure" json:"unitOfMeasure"`
	PricePerUnit    float64           `bson:"pricePerUnit" json:"pricePerUnit"`
	TotalAmount     float64           `bson:"totalAmount" json:"totalAmount"`
	TransactionDate time.Time         `bson:"transactionDate" json:"transactionDate"`
	DeliveryDate    *time.Time        `bson:"deliveryDate,omitempty" json:"deliveryDate,omitempty"`
	Status          TransactionStatus `bson:"status" json:"status"`
	PaymentStatus   PaymentStatus     `bson:"paymentStatus" json:"paymentStatus"`
	PaymentMethod   PaymentMethod     `bson:"paymentMethod" json:"paymentMethod"`
	Notes           string            `bson:"notes,omitempty" json:"notes,omitempty"`
	QualityRating   *int              `bson:"qualityRating,omitempty" json:"qualityRating,omitempty"`
	CreatedAt       time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// ComputeTotal recomputes TotalAmount from quantity and unit price.
// Repositories call it on every save.
func (t *Transaction) ComputeTotal() {
	t.TotalAmount = t.Quantity * t.PricePerUnit
}

// TransactionFilter narrows a transaction listing. Empty fields do not filter.
type TransactionFilter struct {
	FarmerID string
	Status   TransactionStatus
	BuyerID  string
	FieldID  string
	// CreatedFrom and CreatedTo bound CreatedAt (inclusive, exclusive) when set.
	CreatedFrom time.Time
	CreatedTo   time.Time
	// UpdatedFrom and UpdatedTo bound UpdatedAt the same way.
	UpdatedFrom time.Time
	UpdatedTo   time.Time
}

// Matches reports whether t satisfies the filter.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.FarmerID != "" && t.FarmerID != f.FarmerID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.BuyerID != "" && t.BuyerID != f.BuyerID {
		return false
	}
	if f.FieldID != "" && t.FieldID != f.FieldID {
		return false
	}
	if !f.CreatedFrom.IsZero() && t.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && !t.CreatedAt.Before(f.CreatedTo) {
		return false
	}
	if !f.UpdatedFrom.IsZero() && t.UpdatedAt.Before(f.UpdatedFrom) {
		return false
	}
	if !f.UpdatedTo.IsZero() && !t.UpdatedAt.Before(f.UpdatedTo) {
		return false
	}
	return true
}

// TransactionPatch is the allow-listed set of fields a status update may change.
// Nil pointers leave the stored value untouched.
type TransactionPatch struct {
	Status        *TransactionStatus
	PaymentStatus *PaymentStatus
	PaymentMethod *PaymentMethod
	Notes         *string
	DeliveryDate  *time.Time
	QualityRating *int
	UpdatedAt     time.Time
}

// Apply writes the patch onto t.
func (p TransactionPatch) Apply(t *Transaction) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		t.PaymentStatus = *p.PaymentStatus
	}
	if p.PaymentMethod != nil {
		t.PaymentMethod = *p.PaymentMethod
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.DeliveryDate != nil {
		d := *p.DeliveryDate
		t.DeliveryDate = &d
	}
	if p.QualityRating != nil {
		r := *p.QualityRating
		t.QualityRating = &r
	}
	t.UpdatedAt = p.UpdatedAt
	t.ComputeTotal()
}

// Clone returns a copy that shares no pointers with t.
func (t Transaction) Clone() Transaction {
	c := t
	if t.DeliveryDate != nil {
		d := *t.DeliveryDate
		c.DeliveryDate = &d
	}
	if t.QualityRating != nil {
		r := *t.QualityRating
		c.QualityRating = &r
	}
	return c
}
