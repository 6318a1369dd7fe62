package matching

import "github.com/mamadbah2/agrimarket/internal/domain/models"

// ReferenceBuyers returns the static sample directory used when the buyer
// store cannot be reached, and as seed data for an empty store.
func ReferenceBuyers() []models.Buyer {
	out := make([]models.Buyer, len(referenceBuyers))
	for i, b := range referenceBuyers {
		out[i] = b.Clone()
	}
	return out
}

func coords(lat, lon float64) *models.Coordinates {
	return &models.Coordinates{Latitude: lat, Longitude: lon}
}

var referenceBuyers = []models.Buyer{
	{
		ID:              "ref-organic-foods",
		Name:            "Organic Foods Co.",
		Location:        "Bengaluru, Karnataka",
		ContactInfo:     models.ContactInfo{Phone: "+91 9876543210", Email: "purchase@organicfoods.com"},
		InterestedCrops: []string{"Rice", "Wheat", "Vegetables"},
		OfferPrice:      map[string]float64{"Rice": 25, "Wheat": 22, "Vegetables": 18},
		Coordinates:     coords(12.9716, 77.5946),
		AdditionalInfo:  "Certified organic produce only. Transport provided above 500kg; premium paid for certified organic.",
		BuyingPreferences: models.BuyingPreferences{
			MinQuantity: 100, RegularSupplier: true, TransportAvailable: true,
			PaymentTerms: models.PaymentTermsImmediate, OrganicPreference: true,
		},
		Status: models.BuyerActive,
	},
	{
		ID:              "ref-green-harvest",
		Name:            "Green Harvest Buyers",
		Location:        "Mysuru, Karnataka",
		ContactInfo:     models.ContactInfo{Phone: "+91 9988776655", Email: "buy@greenharvest.com"},
		InterestedCrops: []string{"Rice", "Maize", "Fruits"},
		OfferPrice:      map[string]float64{"Rice": 24, "Maize": 19, "Fruits": 35},
		Coordinates:     coords(12.2958, 76.6394),
		AdditionalInfo:  "Supplies export markets with strict quality requirements. Looking for long-term suppliers.",
		BuyingPreferences: models.BuyingPreferences{
			MinQuantity: 200, RegularSupplier: true,
			PaymentTerms: models.PaymentTermsWeekly, OrganicPreference: true,
		},
		Status: models.BuyerActive,
	},
	{
		ID:              "ref-farm-fresh",
		Name:            "Farm Fresh Direct",
		Location:        "Bengaluru, Karnataka",
		ContactInfo:     models.ContactInfo{Phone: "+91 8765432109", Email: "procurement@farmfresh.com"},
		InterestedCrops: []string{"Vegetables", "Fruits", "Herbs"},
		OfferPrice:      map[string]float64{"Vegetables": 20, "Fruits": 38, "Herbs": 45},
		Coordinates:     coords(12.9716, 77.5946),
		AdditionalInfo:  "Farm-to-table supplier for restaurants and hotels. Produce delivered within 24 hours of harvest.",
		BuyingPreferences: models.BuyingPreferences{
			MinQuantity: 50, RegularSupplier: true,
			PaymentTerms: models.PaymentTermsImmediate,
		},
		Status: models.BuyerActive,
	},
	{
		ID:              "ref-agriexport",
		Name:            "AgriExport International",
		Location:        "Chennai, Tamil Nadu",
		ContactInfo:     models.ContactInfo{Phone: "+91 7788990011", Email: "exports@agriexport.com"},
		InterestedCrops: []string{"Rice", "Cotton", "Spices"},
		OfferPrice:      map[string]float64{"Rice": 26, "Cotton": 75, "Spices": 120},
		Coordinates:     coords(13.0827, 80.2707),
		AdditionalInfo:  "Exporter to Middle East and European markets. Produce must meet international certification standards.",
		BuyingPreferences: models.BuyingPreferences{
			MinQuantity: 500, RegularSupplier: true, TransportAvailable: true,
			PaymentTerms: models.PaymentTermsMonthly, OrganicPreference: true,
		},
		Status: models.BuyerActive,
	},
	{
		ID:              "ref-local-market",
		Name:            "Local Market Association",
		Location:        "Hosur, Tamil Nadu",
		ContactInfo:     models.ContactInfo{Phone: "+91 9090909090", Email: "contact@localmarket.org"},
		InterestedCrops: []string{"Rice", "Wheat", "Vegetables", "Fruits", "Maize"},
		OfferPrice:      map[string]float64{"Rice": 23, "Wheat": 21, "Vegetables": 17, "Fruits": 32, "Maize": 18},
		Coordinates:     coords(12.7409, 77.8253),
		AdditionalInfo:  "Coalition of local markets. Immediate cash payment on delivery, no minimum quantity.",
		BuyingPreferences: models.BuyingPreferences{
			PaymentTerms: models.PaymentTermsImmediate,
		},
		Status: models.BuyerActive,
	},
	{
		ID:              "ref-eco-friendly",
		Name:            "Eco Friendly Foods",
		Location:        "Bengaluru, Karnataka",
		ContactInfo:     models.ContactInfo{Phone: "+91 9555000111", Email: "purchase@ecofriendlyfoods.com"},
		InterestedCrops: []string{"Vegetables", "Fruits", "Grains", "Pulses"},
		OfferPrice:      map[string]float64{"Vegetables": 22, "Fruits": 40, "Grains": 30, "Pulses": 60},
		Coordinates:     coords(12.9716, 77.5946),
		AdditionalInfo:  "Sustainable farming focus. Minimal pesticide use and natural farming preferred.",
		BuyingPreferences: models.BuyingPreferences{
			MinQuantity: 100,
			PaymentTerms: models.PaymentTermsWeekly, OrganicPreference: true,
		},
		Status: models.BuyerActive,
	},
	{
		ID:              "ref-daily-fresh",
		Name:            "Daily Fresh Supply Co.",
		Location:        "Electronic City, Bengaluru",
		ContactInfo:     models.ContactInfo{Phone: "+91 8844556677", Email: "sourcing@dailyfresh.com"},
		InterestedCrops: []string{"Vegetables", "Fruits", "Herbs", "Leafy Greens"},
		OfferPrice:      map[string]float64{"Vegetables": 19, "Fruits": 36, "Herbs": 42, "Leafy Greens": 25},
		Coordinates:     coords(12.8458, 77.6716),
		AdditionalInfo:  "Supplies supermarkets and retail chains. Requires consistent quality and a reliable delivery schedule.",
		BuyingPreferences: models.BuyingPreferences{
			MinQuantity: 150, RegularSupplier: true, TransportAvailable: true,
			PaymentTerms: models.PaymentTermsWeekly,
		},
		Status: models.BuyerActive,
	},
}
