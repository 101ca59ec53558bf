// Package ticketart renders the scannable artifact handed to a ticket
// holder. Generation happens after the booking commits; a failure here
// never unwinds the booking.
package ticketart

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/skip2/go-qrcode"

	"cinetix/internal/models"
)

type Generator struct {
	secret []byte
}

func NewGenerator(secret string) *Generator {
	return &Generator{secret: []byte(secret)}
}

type payload struct {
	TicketID  int64     `json:"ticket_id"`
	ShowID    int64     `json:"show_id"`
	UserID    int64     `json:"user_id"`
	Seats     []string  `json:"seats"`
	IssuedAt  time.Time `json:"issued_at"`
	Signature string    `json:"sig"`
}

// Generate renders a PNG QR code carrying the ticket identity and an
// HMAC so gate scanners can verify it offline.
func (g *Generator) Generate(t *models.Ticket, seatCodes []string) ([]byte, error) {
	p := payload{
		TicketID: t.ID,
		ShowID:   t.ShowID,
		UserID:   t.UserID,
		Seats:    seatCodes,
		IssuedAt: time.Now().UTC(),
	}
	p.Signature = g.sign(p)

	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(string(data), qrcode.Medium, 256)
}

func (g *Generator) sign(p payload) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(encodeIdentity(p)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks that raw JSON payload bytes carry a valid signature.
func (g *Generator) Verify(data []byte) bool {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return false
	}
	sig := p.Signature
	p.Signature = ""
	return hmac.Equal([]byte(g.sign(p)), []byte(sig))
}

func encodeIdentity(p payload) string {
	b, _ := json.Marshal(struct {
		TicketID int64     `json:"ticket_id"`
		ShowID   int64     `json:"show_id"`
		UserID   int64     `json:"user_id"`
		Seats    []string  `json:"seats"`
		IssuedAt time.Time `json:"issued_at"`
	}{p.TicketID, p.ShowID, p.UserID, p.Seats, p.IssuedAt})
	return string(b)
}
