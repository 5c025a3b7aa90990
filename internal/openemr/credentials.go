package openemr

// Credentials holds the fixed client and resource-owner credentials used for
// the password grant. One set serves the whole process; there is no
// per-request or per-tenant credential selection.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	// Role is sent as the user_role form field. OpenEMR distinguishes
	// "users" (practitioner/API accounts) from "patient" portal accounts.
	Role string
	// Scope is optional; when empty the field is omitted from the request.
	Scope string
}

// Validate reports the first missing required credential as a ConfigError.
// Role defaults to "users" when unset rather than failing.
func (c *Credentials) Validate() error {
	switch {
	case c.ClientID == "":
		return &ConfigError{Field: "client_id"}
	case c.ClientSecret == "":
		return &ConfigError{Field: "client_secret"}
	case c.Username == "":
		return &ConfigError{Field: "username"}
	case c.Password == "":
		return &ConfigError{Field: "password"}
	}
	if c.Role == "" {
		c.Role = "users"
	}
	return nil
}
