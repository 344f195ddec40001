package domain

// Geocoder status values.
const (
	GeocodeStatusOK          = "OK"
	GeocodeStatusZeroResults = "ZERO_RESULTS"
)

// GeocodeResponse is the reverse-geocoding payload shape shared by providers.
type GeocodeResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Results      []GeocodeResult `json:"results"`
}

type GeocodeResult struct {
	FormattedAddress  string             `json:"formatted_address"`
	AddressComponents []AddressComponent `json:"address_components"`
}

type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}
