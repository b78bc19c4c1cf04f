package domain

import "github.com/shopspring/decimal"

// CartItem is one cart line. The product is persisted under "cart" so that
// snapshots written by the web client keep loading.
type CartItem struct {
	Product  Product `json:"cart"`
	Quantity int     `json:"quantity"`
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the persisted cart snapshot: {"cart": CartItem[]}.
// Lines keep insertion order and hold at most one entry per product.
type Cart struct {
	Items []CartItem `json:"cart"`
}

func (c Cart) Find(productID int64) (int, bool) {
	for i, item := range c.Items {
		if item.Product.ID == productID {
			return i, true
		}
	}
	return -1, false
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (c Cart) Count() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items}
}
