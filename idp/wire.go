package idp

// Request and response bodies of the HTTP API served by Server

type SignUpBody struct {
	Username       string            `json:"username"`
	Password       string            `json:"password"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	ValidationData map[string]string `json:"validation_data,omitempty"`
}

type ConfirmBody struct {
	Username           string `json:"username"`
	Code               string `json:"code"`
	ForceAliasCreation bool   `json:"force_alias_creation,omitempty"`
}

// TokenRequest is the body of POST /token
type TokenRequest struct {
	GrantType string `json:"grant_type"` // "password"
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// TokenResponse is the success body of POST /token
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

// ErrorResponse is returned with every non-2xx status.
// Error carries the provider reason, e.g. "NotAuthorizedException".
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
