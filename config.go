package identity

// SimpleConfig is a plain value implementation of Config, convenient for
// hosts that load settings from env or flags and for tests.
type SimpleConfig struct {
	SigningKey          string
	ContextKey          string
	TokenExpiration     int
	AuthScheme          string
	Issuer              string
	Audience            []string
	BootstrapAdminEmail string
}

func (c SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "identity"
	}
	return c.ContextKey
}

func (c SimpleConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return 24
	}
	return c.TokenExpiration
}

func (c SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c SimpleConfig) GetIssuer() string { return c.Issuer }

func (c SimpleConfig) GetAudience() []string { return c.Audience }

func (c SimpleConfig) GetBootstrapAdminEmail() string {
	return NormalizeEmail(c.BootstrapAdminEmail)
}

var _ Config = SimpleConfig{}
