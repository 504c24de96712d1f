// internal/models/property.go
package models

// PropertyRecord exists only for secured products. Its absence is not an
// error; the registry decides whether the property step applies at all.
type PropertyRecord struct {
	ApplicationID  string  `json:"applicationId"`
	Address        Address `json:"address"`
	PropertyType   string  `json:"propertyType"`
	EstimatedValue float64 `json:"estimatedValue"`
	OwnershipProof string  `json:"ownershipProof,omitempty"`
}

// ChecklistItem is one entry of the document service's checklist for an
// application.
type ChecklistItem struct {
	Code      string `json:"code"`
	Mandatory bool   `json:"mandatory"`
	Uploaded  bool   `json:"uploaded"`
}
