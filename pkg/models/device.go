package models

// Device is a catalogue entry an operator can recommend in a report.
type Device struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Retailer    string         `json:"retailer"`
	Price       string         `json:"price"`
	ImgURL      string         `json:"imgUrl"`
	Thoughts    string         `json:"thoughts"`
	OfferURL    string         `json:"offerUrl"`
	TechSpecs   map[string]any `json:"techSpecs"`
	DateUpdated string         `json:"dateUpdated"`
}

// Report ranks up to three devices for an order. Its id is the order id.
type Report struct {
	ID            string `json:"id"`
	DeviceRank1ID string `json:"deviceRank1Id"`
	DeviceRank2ID string `json:"deviceRank2Id"`
	DeviceRank3ID string `json:"deviceRank3Id"`
	DateUpdated   string `json:"dateUpdated"`
}

type Operator struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
