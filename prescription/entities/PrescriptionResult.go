// Package entities holds the plain data produced by prescription parsing.
package entities

// PrescriptionResult is the structured outcome of parsing one document.
// Token and Date are nil when absent. Built once and never mutated.
type PrescriptionResult struct {
	Medications []MedicationEntry `json:"medications"`
	Token       *string           `json:"token"`
	Date        *string           `json:"date,omitempty"` // dd/mm/yyyy, time of day dropped
}

// HasToken reports whether a token code was found
func (r PrescriptionResult) HasToken() bool {
	return r.Token != nil
}

// TokenValue returns the token or an empty string
func (r PrescriptionResult) TokenValue() string {
	if r.Token == nil {
		return ""
	}
	return *r.Token
}

// MedicationNames returns the names in result order
func (r PrescriptionResult) MedicationNames() []string {
	names := make([]string, 0, len(r.Medications))
	for _, m := range r.Medications {
		names = append(names, m.Name)
	}
	return names
}
