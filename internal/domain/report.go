package domain

// ProvisioningResult is the outcome for one user in a bulk run
type ProvisioningResult struct {
	UserID uint           `json:"userId"`
	Name   string         `json:"name,omitempty"`
	Email  string         `json:"email,omitempty"`
	Wallet *WalletSummary `json:"wallet,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// ProvisioningReport aggregates a bulk run. One failing user never aborts the run.
type ProvisioningReport struct {
	TotalUsers int                  `json:"totalUsers"`
	Successful int                  `json:"successful"`
	Failed     int                  `json:"failed"`
	FundAmount int64                `json:"fundAmount,omitempty"`
	Results    []ProvisioningResult `json:"results"`
}
