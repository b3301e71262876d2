package whitelist

type SetInput struct {
	Address     string `json:"account"`
	Whitelisted bool   `json:"isWhitelisted"`
	Email       string `json:"email"`
}

type SetDTO struct {
	TxHash      string `json:"transactionHash"`
	Address     string `json:"account"`
	Whitelisted bool   `json:"isWhitelisted"`
	AccountID   string `json:"accountId"`
}

type StatusDTO struct {
	Address     string `json:"account"`
	Whitelisted bool   `json:"isWhitelisted"`
}
