package models

import "time"

// CartLine is one pending, unpersisted reservation candidate. Lines live
// only in the cart repository and are copied, not referenced, into a
// Booking on commit.
type CartLine struct {
	RoomID        int64     `json:"room_id"`
	RoomNum       string    `json:"room_num"`
	Title         string    `json:"title"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	PricePerNight float64   `json:"price_per_night"`
	TotalPrice    float64   `json:"total_price"`
}

// Nights returns the whole-day length of the stay, minimum one night.
func (l CartLine) Nights() int {
	nights := int(l.CheckOut.Sub(l.CheckIn).Hours() / 24)
	if nights < 1 {
		nights = 1
	}
	return nights
}

// Same reports whether two lines reference the identical room and dates.
func (l CartLine) Same(other CartLine) bool {
	return l.RoomID == other.RoomID &&
		l.CheckIn.Equal(other.CheckIn) &&
		l.CheckOut.Equal(other.CheckOut)
}

// Cart is the session-scoped collection of pending lines. The key is
// always passed explicitly by callers; the cart itself carries none.
type Cart struct {
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Total sums line totals.
func (c *Cart) Total() float64 {
	var total float64
	for _, l := range c.Lines {
		total += l.TotalPrice
	}
	return total
}

// Count returns the number of lines.
func (c *Cart) Count() int {
	return len(c.Lines)
}
