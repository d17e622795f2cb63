package transfer

import "time"

type FacebookToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"-"`
}

type FacebookPage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

type FacebookPages struct {
	Data []FacebookPage `json:"data"`
}

type GraphErrorResponse struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FbtraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// ConnectResult summarises one OAuth callback.
type ConnectResult struct {
	AccountIDs []int64 `json:"account_ids"`
	Pages      int     `json:"pages"`
}
