package partner

// Vehicle is the partner's registered vehicle. The dispatch engine only displays it.
type Vehicle struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}
