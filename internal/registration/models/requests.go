package models

// InitialInfo is the data packet of the first step. Password is plaintext and
// is never stored on the registration.
type InitialInfo struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	ClientID string `json:"client_id"`
}

// AccountInfo is the data packet of the account information step.
type AccountInfo struct {
	PhoneNumber     string `json:"phone_number"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	CountryCodeIso2 string `json:"country_code_iso2"`
	RegistrationID  string `json:"registration_id"`
}
