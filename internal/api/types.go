package api

// Session carries the opaque tokens attached to every call. It is passed to the
// client explicitly so tests can supply their own.
type Session struct {
	WalletToken string
	OwnerToken  string
}

// IssuanceRequest is a customer's request for one stamp.
type IssuanceRequest struct {
	ID              int64  `json:"id"`
	WalletID        int64  `json:"walletId"`
	StoreID         int64  `json:"storeId"`
	StoreName       string `json:"storeName"`
	StampCardID     int64  `json:"stampCardId"`
	StampCardTitle  string `json:"stampCardTitle"`
	ClientRequestID string `json:"clientRequestId"`
	Status          string `json:"status"`
	ExpiresAt       Time   `json:"expiresAt"`
	RejectionReason string `json:"rejectionReason,omitempty"`
	ProcessedAt     Time   `json:"processedAt"`
	CreatedAt       Time   `json:"createdAt"`
}

// CreateIssuanceInput is the body of POST /api/issuance.
type CreateIssuanceInput struct {
	StoreID         int64  `json:"storeId"`
	ClientRequestID string `json:"clientRequestId"`
}

// RewardInstance is an earned reward held by a wallet.
type RewardInstance struct {
	ID             int64  `json:"id"`
	WalletID       int64  `json:"walletId"`
	StoreID        int64  `json:"storeId"`
	StoreName      string `json:"storeName"`
	StampCardID    int64  `json:"stampCardId"`
	StampCardTitle string `json:"stampCardTitle"`
	RewardName     string `json:"rewardName"`
	Status         string `json:"status"`
	ExpiresAt      Time   `json:"expiresAt"`
	UsedAt         Time   `json:"usedAt"`
	CreatedAt      Time   `json:"createdAt"`
}

// RedeemSession is a short-lived window in which staff confirm a redemption.
type RedeemSession struct {
	ID           int64  `json:"id"`
	SessionToken string `json:"sessionToken"`
	RewardID     int64  `json:"rewardId"`
	RewardName   string `json:"rewardName"`
	StoreName    string `json:"storeName"`
	Completed    bool   `json:"completed"`
	ExpiresAt    Time   `json:"expiresAt"`
	CreatedAt    Time   `json:"createdAt"`
}

// CreateRedeemSessionInput is the body of POST /api/redemption/sessions.
type CreateRedeemSessionInput struct {
	RewardID        int64  `json:"rewardId"`
	ClientRequestID string `json:"clientRequestId"`
}

// MigrationRequest asks a store to convert paper stamps into digital ones.
type MigrationRequest struct {
	ID                 int64  `json:"id"`
	WalletID           int64  `json:"walletId"`
	StoreID            int64  `json:"storeId"`
	StoreName          string `json:"storeName"`
	StampCardID        int64  `json:"stampCardId"`
	StampCardTitle     string `json:"stampCardTitle"`
	PhotoURL           string `json:"photoUrl"`
	Status             string `json:"status"`
	ApprovedStampCount *int   `json:"approvedStampCount"`
	RejectReason       string `json:"rejectReason,omitempty"`
	ProcessedAt        Time   `json:"processedAt"`
	CreatedAt          Time   `json:"createdAt"`
}

// CreateMigrationInput is the body of POST /api/migration.
type CreateMigrationInput struct {
	StoreID       int64  `json:"storeId"`
	PhotoFileName string `json:"photoFileName"`
}

// StepUpResult is the response of a step-up verification.
type StepUpResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
