// Package postgres implements the repository contracts on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mamadbah2/agrimarket/internal/domain/models"
	"github.com/mamadbah2/agrimarket/internal/repository"
)

// Repo is backed by a pgx pool.
type Repo struct{ DB *pgxpool.Pool }

var _ repository.Store = (*Repo)(nil)

const transactionColumns = `id, farmer_id, buyer_id, field_id, crop_type, quantity, unit_of_measure,
	price_per_unit, total_amount, transaction_date, delivery_date, status, payment_status,
	payment_method, notes, quality_rating, created_at, updated_at`

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var (
		tx                                   models.Transaction
		unit, status, paymentStatus, payment string
	)
	err := row.Scan(&tx.ID, &tx.FarmerID, &tx.BuyerID, &tx.FieldID, &tx.CropType, &tx.Quantity, &unit,
		&tx.PricePerUnit, &tx.TotalAmount, &tx.TransactionDate, &tx.DeliveryDate, &status, &paymentStatus,
		&payment, &tx.Notes, &tx.QualityRating, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return models.Transaction{}, err
	}
	tx.UnitOfMeasure = models.UnitOfMeasure(unit)
	tx.Status = models.TransactionStatus(status)
	tx.PaymentStatus = models.PaymentStatus(paymentStatus)
	tx.PaymentMethod = models.PaymentMethod(payment)
	return tx, nil
}

func (r *Repo) Insert(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.ComputeTotal()

	_, err := r.DB.Exec(ctx, `
		INSERT INTO transactions(`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		tx.ID, tx.FarmerID, tx.BuyerID, tx.FieldID, tx.CropType, tx.Quantity, string(tx.UnitOfMeasure),
		tx.PricePerUnit, tx.TotalAmount, tx.TransactionDate, tx.DeliveryDate, string(tx.Status), string(tx.PaymentStatus),
		string(tx.PaymentMethod), tx.Notes, tx.QualityRating, tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (models.Transaction, error) {
	tx, err := scanTransaction(r.DB.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("find transaction %s: %w", id, err)
	}
	return tx, nil
}

// List returns matching transactions ordered by transaction_date, newest first.
func (r *Repo) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	where, args := transactionWhere(filter)
	rows, err := r.DB.Query(ctx, `SELECT `+transactionColumns+` FROM transactions`+where+` ORDER BY transaction_date DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func transactionWhere(f models.TransactionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.FarmerID != "" {
		add("farmer_id=$%d", f.FarmerID)
	}
	if f.Status != "" {
		add("status=$%d", string(f.Status))
	}
	if f.BuyerID != "" {
		add("buyer_id=$%d", f.BuyerID)
	}
	if f.FieldID != "" {
		add("field_id=$%d", f.FieldID)
	}
	if !f.CreatedFrom.IsZero() {
		add("created_at>=$%d", f.CreatedFrom)
	}
	if !f.CreatedTo.IsZero() {
		add("created_at<$%d", f.CreatedTo)
	}
	if !f.UpdatedFrom.IsZero() {
		add("updated_at>=$%d", f.UpdatedFrom)
	}
	if !f.UpdatedTo.IsZero() {
		add("updated_at<$%d", f.UpdatedTo)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// UpdateIfStatus applies patch in a single conditional UPDATE.
func (r *Repo) UpdateIfStatus(ctx context.Context, id string, expected models.TransactionStatus, patch models.TransactionPatch) (models.Transaction, error) {
	tx, err := scanTransaction(r.DB.QueryRow(ctx, `
		UPDATE transactions SET
			status         = COALESCE($3, status),
			payment_status = COALESCE($4, payment_status),
			payment_method = COALESCE($5, payment_method),
			notes          = COALESCE($6, notes),
			delivery_date  = COALESCE($7, delivery_date),
			quality_rating = COALESCE($8, quality_rating),
			updated_at     = $9
		WHERE id=$1 AND status=$2
		RETURNING `+transactionColumns,
		id, string(expected),
		stringPtr(patch.Status), stringPtr(patch.PaymentStatus), stringPtr(patch.PaymentMethod),
		patch.Notes, patch.DeliveryDate, patch.QualityRating, patch.UpdatedAt,
	))
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}

	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE id=$1)`, id).Scan(&exists); err != nil {
		return models.Transaction{}, fmt.Errorf("check transaction %s: %w", id, err)
	}
	if !exists {
		return models.Transaction{}, repository.ErrNotFound
	}
	return models.Transaction{}, repository.ErrStatusConflict
}

func stringPtr[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

const buyerColumns = `id, name, location, phone, email, interested_crops, offer_price, latitude, longitude,
	additional_info, profile_image, buying_preferences, status, created_at, updated_at`

func scanBuyer(row pgx.Row) (models.Buyer, error) {
	var (
		b                    models.Buyer
		crops, offers, prefs []byte
		lat, lon             *float64
		status               string
	)
	err := row.Scan(&b.ID, &b.Name, &b.Location, &b.ContactInfo.Phone, &b.ContactInfo.Email, &crops, &offers,
		&lat, &lon, &b.AdditionalInfo, &b.ProfileImage, &prefs, &status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return models.Buyer{}, err
	}
	if err := json.Unmarshal(crops, &b.InterestedCrops); err != nil {
		return models.Buyer{}, fmt.Errorf("decode interested crops: %w", err)
	}
	if err := json.Unmarshal(offers, &b.OfferPrice); err != nil {
		return models.Buyer{}, fmt.Errorf("decode offer price: %w", err)
	}
	if err := json.Unmarshal(prefs, &b.BuyingPreferences); err != nil {
		return models.Buyer{}, fmt.Errorf("decode buying preferences: %w", err)
	}
	if lat != nil && lon != nil {
		b.Coordinates = &models.Coordinates{Latitude: *lat, Longitude: *lon}
	}
	b.Status = models.BuyerStatus(status)
	return b, nil
}

func (r *Repo) InsertBuyer(ctx context.Context, b models.Buyer) (models.Buyer, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	crops, err := json.Marshal(b.InterestedCrops)
	if err != nil {
		return models.Buyer{}, fmt.Errorf("encode interested crops: %w", err)
	}
	offers, err := json.Marshal(b.OfferPrice)
	if err != nil {
		return models.Buyer{}, fmt.Errorf("encode offer price: %w", err)
	}
	prefs, err := json.Marshal(b.BuyingPreferences)
	if err != nil {
		return models.Buyer{}, fmt.Errorf("encode buying preferences: %w", err)
	}
	var lat, lon *float64
	if b.Coordinates != nil {
		lat, lon = &b.Coordinates.Latitude, &b.Coordinates.Longitude
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO buyers(`+buyerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		b.ID, b.Name, b.Location, b.ContactInfo.Phone, b.ContactInfo.Email, crops, offers, lat, lon,
		b.AdditionalInfo, b.ProfileImage, prefs, string(b.Status), b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return models.Buyer{}, fmt.Errorf("insert buyer: %w", err)
	}
	return b, nil
}

func (r *Repo) FindBuyerByID(ctx context.Context, id string) (models.Buyer, error) {
	b, err := scanBuyer(r.DB.QueryRow(ctx, `SELECT `+buyerColumns+` FROM buyers WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Buyer{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Buyer{}, fmt.Errorf("find buyer %s: %w", id, err)
	}
	return b, nil
}

func (r *Repo) ListActiveBuyers(ctx context.Context, crop string) ([]models.Buyer, error) {
	if crop == "" {
		return r.queryBuyers(ctx, `WHERE status=$1`, string(models.BuyerActive))
	}
	filter, err := json.Marshal([]string{crop})
	if err != nil {
		return nil, fmt.Errorf("encode crop filter: %w", err)
	}
	return r.queryBuyers(ctx, `WHERE status=$1 AND interested_crops @> $2::jsonb`, string(models.BuyerActive), string(filter))
}

func (r *Repo) ListBuyersWithoutCoordinates(ctx context.Context) ([]models.Buyer, error) {
	return r.queryBuyers(ctx, `WHERE latitude IS NULL OR longitude IS NULL`)
}

func (r *Repo) queryBuyers(ctx context.Context, where string, args ...any) ([]models.Buyer, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+buyerColumns+` FROM buyers `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list buyers: %w", err)
	}
	defer rows.Close()

	out := make([]models.Buyer, 0)
	for rows.Next() {
		b, err := scanBuyer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan buyer: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list buyers: %w", err)
	}
	return out, nil
}

func (r *Repo) SetBuyerCoordinates(ctx context.Context, id string, coords models.Coordinates) error {
	tag, err := r.DB.Exec(ctx, `UPDATE buyers SET latitude=$2, longitude=$3 WHERE id=$1`, id, coords.Latitude, coords.Longitude)
	if err != nil {
		return fmt.Errorf("set coordinates for buyer %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repo) CountBuyers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM buyers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count buyers: %w", err)
	}
	return n, nil
}

const fieldColumns = `id, user_id, name, location, soil_type, crop, status, created_at, updated_at`

func scanField(row pgx.Row) (models.Field, error) {
	var f models.Field
	err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.Location, &f.SoilType, &f.Crop, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (r *Repo) InsertField(ctx context.Context, f models.Field) (models.Field, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	_, err := r.DB.Exec(ctx, `INSERT INTO fields(`+fieldColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, f.UserID, f.Name, f.Location, f.SoilType, f.Crop, f.Status, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return models.Field{}, fmt.Errorf("insert field: %w", err)
	}
	return f, nil
}

func (r *Repo) FindFieldByID(ctx context.Context, id string) (models.Field, error) {
	f, err := scanField(r.DB.QueryRow(ctx, `SELECT `+fieldColumns+` FROM fields WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Field{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Field{}, fmt.Errorf("find field %s: %w", id, err)
	}
	return f, nil
}

func (r *Repo) ListFieldsByUser(ctx context.Context, userID string) ([]models.Field, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+fieldColumns+` FROM fields WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	defer rows.Close()

	out := make([]models.Field, 0)
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SaveDailyReport upserts the report of one day.
func (r *Repo) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	counts, err := json.Marshal(report.StatusCounts)
	if err != nil {
		return fmt.Errorf("encode status counts: %w", err)
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO daily_reports(date, transactions_created, status_counts, created_volume, created_value,
			completed_revenue, cancelled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (date) DO UPDATE SET
			transactions_created = EXCLUDED.transactions_created,
			status_counts        = EXCLUDED.status_counts,
			created_volume       = EXCLUDED.created_volume,
			created_value        = EXCLUDED.created_value,
			completed_revenue    = EXCLUDED.completed_revenue,
			cancelled            = EXCLUDED.cancelled,
			created_at           = EXCLUDED.created_at`,
		report.Date, report.TransactionsCreated, counts, report.CreatedVolume, report.CreatedValue,
		report.CompletedRevenue, report.Cancelled, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save daily report: %w", err)
	}
	return nil
}

// Close releases the pool.
func (r *Repo) Close(context.Context) error {
	r.DB.Close()
	return nil
}
