package services

import "time"

const (
	KeyWallet         = "wallet:%d"
	KeyUserActiveSeed = "user:%d:active_seed"
	KeyUserSeeds      = "user:%d:seeds"
	KeySeedPair       = "seed:%s"
	KeySeedNonce      = "seed:%s:nonce:%d"
	KeyBet            = "bet:%s"
	KeyUserBets       = "user:%d:bets"
	KeyGameConfig     = "game:config:%s"
	KeyRateLimit      = "ratelimit:%d:%s"

	DefaultRateLimitBets = 30 // Max 30 bets per minute
	DefaultRateWindow    = time.Minute

	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// conflictPrefix marks Lua error replies that mean a conditional write lost.
const conflictPrefix = "CONFLICT"
