package models

import "time"

// BuyerStatus enumerates the directory states of a buyer.
type BuyerStatus string

const (
	BuyerActive   BuyerStatus = "active"
	BuyerInactive BuyerStatus = "inactive"
)

// PaymentTerms describes when a buyer settles a purchase.
type PaymentTerms string

const (
	PaymentTermsImmediate PaymentTerms = "immediate"
	PaymentTermsWeekly    PaymentTerms = "weekly"
	PaymentTermsMonthly   PaymentTerms = "monthly"
	PaymentTermsCustom    PaymentTerms = "custom"
)

// Valid reports whether the terms are one of the known values.
func (p PaymentTerms) Valid() bool {
	switch p {
	case PaymentTermsImmediate, PaymentTermsWeekly, PaymentTermsMonthly, PaymentTermsCustom:
		return true
	}
	return false
}

// ContactInfo holds the channels used to reach a buyer.
type ContactInfo struct {
	Phone string `bson:"phone" json:"phone"`
	Email string `bson:"email" json:"email"`
}

// BuyingPreferences captures how a buyer prefers to source produce.
type BuyingPreferences struct {
	MinQuantity        float64      `bson:"minQuantity" json:"minQuantity"`
	RegularSupplier    bool         `bson:"regularSupplier" json:"regularSupplier"`
	TransportAvailable bool         `bson:"transportAvailable" json:"transportAvailable"`
	PaymentTerms       PaymentTerms `bson:"paymentTerms" json:"paymentTerms"`
	OrganicPreference  bool         `bson:"organicPreference" json:"organicPreference"`
}

// Buyer is a registered purchaser of crops. Crop names are case-sensitive keys.
type Buyer struct {
	ID                string             `bson:"_id,omitempty" json:"id"`
	Name              string             `bson:"name" json:"name"`
	Location          string             `bson:"location" json:"location"`
	ContactInfo       ContactInfo        `bson:"contactInfo" json:"contactInfo"`
	InterestedCrops   []string           `bson:"interestedCrops" json:"interestedCrops"`
	OfferPrice        map[string]float64 `bson:"offerPrice,omitempty" json:"offerPrice,omitempty"`
	Coordinates       *Coordinates       `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	AdditionalInfo    string             `bson:"additionalInfo,omitempty" json:"additionalInfo,omitempty"`
	ProfileImage      string             `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	BuyingPreferences BuyingPreferences  `bson:"buyingPreferences" json:"buyingPreferences"`
	Status            BuyerStatus        `bson:"status" json:"status"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsActive reports whether the buyer is visible to matching.
func (b Buyer) IsActive() bool {
	return b.Status == BuyerActive
}

// InterestedIn reports whether crop is one of the buyer's interested crops.
func (b Buyer) InterestedIn(crop string) bool {
	for _, c := range b.InterestedCrops {
		if c == crop {
			return true
		}
	}
	return false
}

// BestPrice returns the highest positive offer the buyer posted among crops,
// or 0 when none of the crops carries an offer.
func (b Buyer) BestPrice(crops []string) float64 {
	var best float64
	for _, crop := range crops {
		if price, ok := b.OfferPrice[crop]; ok && price > best {
			best = price
		}
	}
	return best
}

// MatchCount counts how many of crops the buyer is interested in.
func (b Buyer) MatchCount(crops []string) int {
	n := 0
	for _, crop := range crops {
		if b.InterestedIn(crop) {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the buyer.
func (b Buyer) Clone() Buyer {
	c := b
	c.InterestedCrops = append([]string(nil), b.InterestedCrops...)
	if b.OfferPrice != nil {
		c.OfferPrice = make(map[string]float64, len(b.OfferPrice))
		for k, v := range b.OfferPrice {
			c.OfferPrice[k] = v
		}
	}
	if b.Coordinates != nil {
		coords := *b.Coordinates
		c.Coordinates = &coords
	}
	return c
}
