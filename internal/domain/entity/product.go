package entity

type ProductStatus string

const (
	ProductNew      ProductStatus = "NEW"
	ProductReserved ProductStatus = "RESERVED"
	ProductSoldOut  ProductStatus = "SOLDOUT"
	ProductReported ProductStatus = "REPORTED"
)

// Product is the chat subject. Only the fields chat reads are mapped.
type Product struct {
	ID       string        `json:"id" firestore:"id"`
	SellerID string        `json:"seller_id" firestore:"sellerId"`
	Title    string        `json:"title" firestore:"title"`
	Status   ProductStatus `json:"status" firestore:"status"`
}

// IsLocked is true while a purchase holds the product.
func (p *Product) IsLocked() bool {
	return p.Status == ProductReserved
}
