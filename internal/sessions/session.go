package sessions

import "time"

// Revocation marks a token id as logged out until the token would have expired anyway.
type Revocation struct {
	TokenID    string    `bson:"_id" json:"tokenId"`
	IdentityID string    `bson:"identityId" json:"identityId"`
	ExpiresAt  time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}
