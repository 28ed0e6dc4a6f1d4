package payments

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
	"github.com/absolutastore/storefront-backend/pkg/logger"
	"github.com/absolutastore/storefront-backend/pkg/mercadopago"
)

// LogRecorder only logs the notification.
type LogRecorder struct {
	logg *logger.Logger
}

func NewLogRecorder(logg *logger.Logger) *LogRecorder {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogRecorder{logg: logg}
}

func (r *LogRecorder) Record(ctx context.Context, payment *mercadopago.Payment) error {
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment is required")
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"status":             payment.Status,
		"status_detail":      payment.StatusDetail,
		"external_reference": payment.ExternalReference,
		"amount":             payment.TransactionAmount,
		"currency":           payment.CurrencyID,
	})
	r.logg.Info(ctx, "payments.payment_status")
	return nil
}

// PaymentRecord is the latest known status of a Mercado Pago payment.
type PaymentRecord struct {
	PaymentID         string          `gorm:"column:payment_id;primaryKey"`
	Status            string          `gorm:"column:status"`
	StatusDetail      string          `gorm:"column:status_detail"`
	ExternalReference string          `gorm:"column:external_reference"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(12,2)"`
	Currency          string          `gorm:"column:currency"`
	NotificationCount int             `gorm:"column:notification_count"`
	CreatedAt         time.Time       `gorm:"column:created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at"`
}

func (PaymentRecord) TableName() string {
	return "payment_records"
}

// GormRecorder upserts one row per payment id; re-deliveries update the row
// and bump notification_count.
type GormRecorder struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormRecorder(db *gorm.DB) (*GormRecorder, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database required")
	}
	return &GormRecorder{db: db, now: time.Now}, nil
}

func (r *GormRecorder) Record(ctx context.Context, payment *mercadopago.Payment) error {
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment is required")
	}
	now := r.now().UTC()
	record := PaymentRecord{
		PaymentID:         strconv.FormatInt(payment.ID, 10),
		Status:            payment.Status,
		StatusDetail:      payment.StatusDetail,
		ExternalReference: payment.ExternalReference,
		Amount:            decimal.NewFromFloat(payment.TransactionAmount),
		Currency:          payment.CurrencyID,
		NotificationCount: 1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if record.Currency == "" {
		record.Currency = mercadopago.CurrencyBRL
	}

	updates := clause.AssignmentColumns([]string{"status", "status_detail", "external_reference", "amount", "currency", "updated_at"})
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "notification_count"},
		Value:  gorm.Expr("payment_records.notification_count + 1"),
	})

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payment_id"}},
		DoUpdates: updates,
	}).Create(&record).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert payment record")
	}
	return nil
}

// Find returns the stored record for paymentID.
func (r *GormRecorder) Find(ctx context.Context, paymentID string) (*PaymentRecord, error) {
	var record PaymentRecord
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).Take(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment record not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment record")
	}
	return &record, nil
}

// MultiRecorder records to every recorder and joins their errors.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, payment *mercadopago.Payment) error {
	var err error
	for _, r := range m {
		err = multierr.Append(err, r.Record(ctx, payment))
	}
	return err
}
