package teesheet

// Slot is a bookable tee time as returned by the booking service. Slots are
// read-only on this side; the service owns them.
type Slot struct {
	ID             string  `json:"_id"`
	Date           string  `json:"date"` // YYYY-MM-DD (or full ISO date, passed through)
	Time           string  `json:"time"` // HH:MM, 24-hour
	MaxPlayers     int     `json:"maxPlayers"`
	AvailableSpots int     `json:"availableSpots"`
	Status         string  `json:"status"`
	CourseID       string  `json:"courseId"`
	Price          float64 `json:"price"` // 18-hole price; nine-hole display price is derived
}

// Valid reports whether the slot satisfies 0 <= availableSpots <= maxPlayers.
func (s Slot) Valid() bool {
	return s.AvailableSpots >= 0 && s.AvailableSpots <= s.MaxPlayers
}

// BookingRequest contains everything the booking service needs to create a booking.
type BookingRequest struct {
	TeeTimeID       string `json:"teeTimeId"`
	NumberOfPlayers int    `json:"numberOfPlayers"`
	HoleCount       string `json:"holeCount"` // "9" or "18"
	Email           string `json:"email"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	PhoneNumber     string `json:"phoneNumber"`
	CartRequired    bool   `json:"cartRequired"`
}

// BookingRecord is the confirmed result of a successful booking submission.
// It is never mutated once received.
type BookingRecord struct {
	ID              string      `json:"_id"`
	TeeTimeID       string      `json:"teeTimeId"`
	UserID          string      `json:"userId"`
	NumberOfPlayers int         `json:"numberOfPlayers"`
	HoleCount       string      `json:"holeCount"`
	CartRequired    bool        `json:"cartRequired"`
	QRCodeURL       string      `json:"qrCodeUrl"`
	Status          string      `json:"status"`
	PaymentStatus   string      `json:"paymentStatus"`
	Email           string      `json:"email"`
	TeeTime         BookingSlot `json:"teeTime"`
}

// BookingSlot carries the booked slot's date and time on the confirmation.
type BookingSlot struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type listResponse struct {
	Data struct {
		TeeTimes []Slot `json:"teeTimes"`
	} `json:"data"`
}

type createResponse struct {
	Data struct {
		Booking BookingRecord `json:"booking"`
	} `json:"data"`
}
