package charts

import "time"

// ProductPoint is the serialized product row the dashboard charts
// consume.
type ProductPoint struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Info  string `json:"info"`
	Price *int64 `json:"price"`
}

// TransactionPoint is the serialized transaction row. Relations are
// flattened to their primary keys, the way the charts scripts expect.
type TransactionPoint struct {
	ID              int64     `json:"id"`
	Category        *int64    `json:"category"`
	Amount          string    `json:"amount"`
	DateTime        time.Time `json:"dateTime"`
	PaymentType     string    `json:"paymentType"`
	TransactionType string    `json:"transactionType"`
	Remarks         string    `json:"remarks"`
	CreatedBy       int64     `json:"createdBy"`
}

// ChartData bundles both collections for one response.
type ChartData struct {
	Products     []ProductPoint     `json:"products"`
	Transactions []TransactionPoint `json:"transactions"`
}
