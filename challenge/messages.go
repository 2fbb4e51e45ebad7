package challenge

// Wire shapes for the login endpoints. Field names match the upstream
// identity-pool contract, so clients built against it keep working.

// Request is the body every login round posts.
type Request struct {
	Session         []Round `json:"session"`
	UserName        string  `json:"userName"`
	ChallengeAnswer string  `json:"challengeAnswer,omitempty"`
}

// PublicParameters is shown to the caller.
type PublicParameters struct {
	Challenge string `json:"challenge"`
}

// PrivateParameters stays server-side between issue and verify.
type PrivateParameters struct {
	PublicKey string `json:"publicKey"`
	Challenge string `json:"challenge"`
}

// Response carries the authenticator's verdict for one round.
type Response struct {
	PublicChallengeParameters  *PublicParameters  `json:"publicChallengeParameters,omitempty"`
	PrivateChallengeParameters *PrivateParameters `json:"privateChallengeParameters,omitempty"`
	IssueTokens                bool               `json:"issueTokens"`
	FailAuthentication         bool               `json:"failAuthentication"`
	ChallengeName              string             `json:"challengeName,omitempty"`
	AnswerCorrect              *bool              `json:"answerCorrect,omitempty"`
}
