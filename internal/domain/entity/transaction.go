package entity

import "time"

type TransactionStatus string

const (
	TransactionRequested TransactionStatus = "REQUESTED"
	TransactionApproved  TransactionStatus = "APPROVED"
	TransactionPaid      TransactionStatus = "PAID"
	TransactionRejected  TransactionStatus = "REJECTED"
	TransactionConfirmed TransactionStatus = "CONFIRMED"
)

// Transaction is owned by the purchase workflow; chat only reads it.
type Transaction struct {
	ID          string            `json:"id" firestore:"id"`
	ProductID   string            `json:"product_id" firestore:"productId"`
	BuyerID     string            `json:"buyer_id" firestore:"buyerId"`
	SellerID    string            `json:"seller_id" firestore:"sellerId"`
	Status      TransactionStatus `json:"status" firestore:"status"`
	PaidAt      *time.Time        `json:"paid_at,omitempty" firestore:"paidAt,omitempty"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty" firestore:"confirmedAt,omitempty"`
	CreatedAt   time.Time         `json:"created_at" firestore:"createdAt"`
}

func (t *Transaction) IsBuyer(userID string) bool {
	return t.BuyerID == userID
}

func (t *Transaction) IsSeller(userID string) bool {
	return t.SellerID == userID
}
