package domain

// FieldAvailability is a point-in-time snapshot pushed over the realtime
// channel. A newer snapshot replaces an older one, it is never merged.
type FieldAvailability struct {
	Date     string              `json:"date,omitempty"`
	BranchID int64               `json:"branchId,omitempty"`
	Fields   []FieldAvailableRow `json:"fields"`
}

type FieldAvailableRow struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Status         FieldStatus     `json:"status"`
	AvailableHours []HourAvailable `json:"availableHours,omitempty"`
}

type HourAvailable struct {
	Hour        int  `json:"hour"`
	IsAvailable bool `json:"isAvailable"`
}
