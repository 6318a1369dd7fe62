package marketplace

import "github.com/mamadbah2/agrimarket/internal/domain/models"

var validNext = map[models.TransactionStatus]map[models.TransactionStatus]bool{
	models.StatusPending:    {models.StatusConfirmed: true, models.StatusCancelled: true},
	models.StatusConfirmed:  {models.StatusInProgress: true, models.StatusCancelled: true},
	models.StatusInProgress: {models.StatusDelivered: true, models.StatusCancelled: true},
	models.StatusDelivered:  {models.StatusCompleted: true, models.StatusCancelled: true},
	models.StatusCompleted:  {},
	models.StatusCancelled:  {},
}

// CanTransition reports whether a transaction in status from may move to to.
// Unknown statuses and self-transitions are never allowed.
func CanTransition(from, to models.TransactionStatus) bool {
	return validNext[from][to]
}

// AllowedNext lists the statuses reachable from from, in lifecycle order.
func AllowedNext(from models.TransactionStatus) []models.TransactionStatus {
	out := make([]models.TransactionStatus, 0, 2)
	for _, s := range models.AllTransactionStatuses {
		if validNext[from][s] {
			out = append(out, s)
		}
	}
	return out
}
