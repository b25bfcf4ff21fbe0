package domain

// Pizza sizes accepted by the menu. Items that come in a single
// presentation (drinks, desserts) use SizeUnico.
const (
	SizeBroto  = "broto"
	SizeGrande = "grande"
	SizeUnico  = "unico"
)

// CartItem is one line of the cart. Lines are keyed by (ID, Size):
// the same product in two sizes is two separate lines.
type CartItem struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Size           string   `json:"size"`
	Quantity       int      `json:"quantity"`
	UnitPriceCents int64    `json:"unitPriceCents"`
	Flavors        []string `json:"flavors,omitempty"`
	HalfFlavor     string   `json:"halfFlavor,omitempty"`
	Extras         []string `json:"extras,omitempty"`
	CrustType      string   `json:"crustType,omitempty"`
}

// TotalCents is the line total.
func (i CartItem) TotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// Cart holds the working set of lines for a checkout session.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

// SubtotalCents sums unit price times quantity across all lines.
func (c *Cart) SubtotalCents() int64 {
	var sum int64
	for _, it := range c.Items {
		sum += it.TotalCents()
	}
	return sum
}

// Upsert adds the item or, when a line with the same (ID, Size) exists,
// adds the quantities together.
func (c *Cart) Upsert(item CartItem) {
	if item.Quantity <= 0 {
		return
	}
	for i := range c.Items {
		if c.Items[i].ID == item.ID && c.Items[i].Size == item.Size {
			c.Items[i].Quantity += item.Quantity
			return
		}
	}
	c.Items = append(c.Items, item)
}

// SetQuantity sets the quantity of the (id, size) line. A quantity of
// zero or less removes the line.
func (c *Cart) SetQuantity(id, size string, quantity int) {
	for i := range c.Items {
		if c.Items[i].ID != id || c.Items[i].Size != size {
			continue
		}
		if quantity <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity = quantity
		}
		return
	}
}

// Clear drops all lines.
func (c *Cart) Clear() {
	c.Items = nil
}
