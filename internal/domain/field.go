package domain

type FieldStatus string

const (
	FieldStatusAvailable   FieldStatus = "available"
	FieldStatusBooked      FieldStatus = "booked"
	FieldStatusMaintenance FieldStatus = "maintenance"
	FieldStatusClosed      FieldStatus = "closed"
)

type Field struct {
	ID         int64       `json:"id"`
	BranchID   int64       `json:"branchId"`
	Name       string      `json:"name"`
	Status     FieldStatus `json:"status"`
	PriceDay   float64     `json:"priceDay"`
	PriceNight float64     `json:"priceNight"`
}

type BranchStatus string

const (
	BranchStatusActive   BranchStatus = "active"
	BranchStatusInactive BranchStatus = "inactive"
)

type Branch struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	Location string       `json:"location"`
	Status   BranchStatus `json:"status"`
	ImageURL string       `json:"imageUrl,omitempty"`
}
