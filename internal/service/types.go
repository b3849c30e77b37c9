package service

// GrantTypeClientCredentials is the only grant type the token endpoint
// accepts.
const GrantTypeClientCredentials = "client_credentials"

// TokenRequest is the parsed form body of POST /oauth2/token.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Scope        string
}

// TokenResponse is the OAuth2-shaped success payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
