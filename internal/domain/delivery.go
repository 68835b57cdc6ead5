package domain

// Delivery types decide who pays whom when a delivery is settled
const (
	DeliveryTypeRequest = "request" // A sender requested a carrier: sender pays receiver
	DeliveryTypeOffer   = "offer"   // A traveler offered capacity: receiver pays sender
)

// Delivery is the read model of a delivery listing. This service never writes it.
type Delivery struct {
	ID         string `gorm:"primaryKey;size:64" json:"id" db:"id"`
	Type       string `gorm:"size:16;not null" json:"type" db:"type"`
	SenderID   uint   `gorm:"not null;index" json:"senderId" db:"sender_id"`
	ReceiverID uint   `gorm:"not null;index" json:"receiverId" db:"receiver_id"`
	FromCity   string `gorm:"size:128" json:"fromCity" db:"from_city"`
	ToCity     string `gorm:"size:128" json:"toCity" db:"to_city"`
}

// Parties resolves payer and recipient from the delivery type.
// ok is false when the type is unknown.
func (d Delivery) Parties() (payerID, recipientID uint, ok bool) {
	switch d.Type {
	case DeliveryTypeRequest:
		return d.SenderID, d.ReceiverID, true
	case DeliveryTypeOffer:
		return d.ReceiverID, d.SenderID, true
	default:
		return 0, 0, false
	}
}
