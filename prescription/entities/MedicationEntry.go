package entities

// MedicationEntry is a single drug name and quantity pair extracted from a prescription
type MedicationEntry struct {
	Name     string   `json:"name"`
	Quantity Quantity `json:"quantity"`
}

// NormalizedUnits mirrors Quantity.Units for callers that only need a count
func (m MedicationEntry) NormalizedUnits() int {
	return m.Quantity.Units()
}
