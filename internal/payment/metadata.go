package payment

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"staybook/internal/models"
)

// Checkout session metadata keys. The booked stays travel through the
// provider as one pipe-delimited line per cart item:
//
//	item_N = roomId|yyyy-MM-dd|yyyy-MM-dd|pricePerNight
//
// plus items_count and user_id. The webhook decodes the same shape back.
const (
	metaItemPrefix = "item_"
	metaItemsCount = "items_count"
	metaUserID     = "user_id"
)

// EncodeMetadata flattens the cart lines into provider metadata.
func EncodeMetadata(userID string, lines []models.CartLine) map[string]string {
	meta := make(map[string]string, len(lines)+2)
	for i, line := range lines {
		meta[metaItemPrefix+strconv.Itoa(i)] = strings.Join([]string{
			strconv.FormatInt(line.RoomID, 10),
			line.CheckIn.Format(models.DateLayout),
			line.CheckOut.Format(models.DateLayout),
			strconv.FormatFloat(line.PricePerNight, 'f', -1, 64),
		}, "|")
	}
	meta[metaItemsCount] = strconv.Itoa(len(lines))
	meta[metaUserID] = userID
	return meta
}

// DecodeMetadata is the inverse of EncodeMetadata. Any malformed or missing
// line fails the whole event; a paid session must never book a subset.
func DecodeMetadata(meta map[string]string) (string, []models.CartLine, error) {
	userID := meta[metaUserID]
	if userID == "" {
		return "", nil, fmt.Errorf("metadata is missing %s", metaUserID)
	}

	rawCount, ok := meta[metaItemsCount]
	if !ok {
		return "", nil, fmt.Errorf("metadata is missing %s", metaItemsCount)
	}
	count, err := strconv.Atoi(rawCount)
	if err != nil || count <= 0 {
		return "", nil, fmt.Errorf("invalid %s: %q", metaItemsCount, rawCount)
	}

	lines := make([]models.CartLine, 0, count)
	for i := 0; i < count; i++ {
		key := metaItemPrefix + strconv.Itoa(i)
		raw, ok := meta[key]
		if !ok {
			return "", nil, fmt.Errorf("metadata is missing %s", key)
		}
		line, err := decodeLine(raw)
		if err != nil {
			return "", nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		lines = append(lines, line)
	}

	return userID, lines, nil
}

func decodeLine(raw string) (models.CartLine, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 4 {
		return models.CartLine{}, fmt.Errorf("expected 4 fields, got %d", len(parts))
	}

	roomID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return models.CartLine{}, fmt.Errorf("bad room id %q", parts[0])
	}

	checkIn, err := time.Parse(models.DateLayout, parts[1])
	if err != nil {
		return models.CartLine{}, fmt.Errorf("bad check-in %q", parts[1])
	}

	checkOut, err := time.Parse(models.DateLayout, parts[2])
	if err != nil {
		return models.CartLine{}, fmt.Errorf("bad check-out %q", parts[2])
	}

	price, err := strconv.ParseFloat(parts[3], 64)
	if err != nil || price < 0 {
		return models.CartLine{}, fmt.Errorf("bad price %q", parts[3])
	}

	line := models.CartLine{
		RoomID:        roomID,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		PricePerNight: price,
	}
	line.TotalPrice = price * float64(line.Nights())
	return line, nil
}
