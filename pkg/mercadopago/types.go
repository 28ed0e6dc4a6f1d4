package mercadopago

import (
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
)

const (
	CurrencyBRL   = "BRL"
	AutoReturnAll = "all"
)

// Preference is the checkout preference the storefront sends to Mercado Pago.
type Preference struct {
	Items               []Item
	BackURLs            *BackURLs
	AutoReturn          string
	ExternalReference   string
	NotificationURL     string
	StatementDescriptor string
	BinaryMode          bool
}

type Item struct {
	ID          string
	Title       string
	Description string
	PictureURL  string
	CategoryID  string
	Quantity    int
	CurrencyID  string
	UnitPrice   float64
}

type BackURLs struct {
	Success string
	Pending string
	Failure string
}

func (p Preference) sdkRequest() preference.Request {
	items := make([]preference.ItemRequest, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, preference.ItemRequest{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			PictureURL:  item.PictureURL,
			CategoryID:  item.CategoryID,
			Quantity:    item.Quantity,
			CurrencyID:  item.CurrencyID,
			UnitPrice:   item.UnitPrice,
		})
	}
	req := preference.Request{
		Items:               items,
		AutoReturn:          p.AutoReturn,
		ExternalReference:   p.ExternalReference,
		NotificationURL:     p.NotificationURL,
		StatementDescriptor: p.StatementDescriptor,
		BinaryMode:          p.BinaryMode,
	}
	if p.BackURLs != nil {
		req.BackURLs = &preference.BackURLsRequest{
			Success: p.BackURLs.Success,
			Pending: p.BackURLs.Pending,
			Failure: p.BackURLs.Failure,
		}
	}
	return req
}

type PreferenceResponse struct {
	ID               string
	InitPoint        string
	SandboxInitPoint string
}

// CheckoutURL prefers the production init point and falls back to the sandbox one.
func (p PreferenceResponse) CheckoutURL() string {
	if p.InitPoint != "" {
		return p.InitPoint
	}
	return p.SandboxInitPoint
}

// Payment is the subset of a Mercado Pago payment the storefront reads.
type Payment struct {
	ID                int64
	Status            string
	StatusDetail      string
	ExternalReference string
	TransactionAmount float64
	CurrencyID        string
}

func paymentFromSDK(resource *payment.Response) *Payment {
	if resource == nil {
		return &Payment{}
	}
	return &Payment{
		ID:                int64(resource.ID),
		Status:            resource.Status,
		StatusDetail:      resource.StatusDetail,
		ExternalReference: resource.ExternalReference,
		TransactionAmount: resource.TransactionAmount,
		CurrencyID:        resource.CurrencyID,
	}
}
