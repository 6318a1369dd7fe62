package models

import "time"

// DailyReport aggregates one day of marketplace activity.
type DailyReport struct {
	Date                time.Time      `bson:"date" json:"date"`
	TransactionsCreated int            `bson:"transactions_created" json:"transactions_created"`
	StatusCounts        map[string]int `bson:"status_counts" json:"status_counts"`
	CreatedVolume       float64        `bson:"created_volume" json:"created_volume"`
	CreatedValue        float64        `bson:"created_value" json:"created_value"`
	CompletedRevenue    float64        `bson:"completed_revenue" json:"completed_revenue"`
	Cancelled           int            `bson:"cancelled" json:"cancelled"`
	CreatedAt           time.Time      `bson:"created_at" json:"created_at"`
}
