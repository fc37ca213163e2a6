package models

import "time"

// SeedPair is the per-user server secret and client seed used to derive bet
// randomness. Exactly one pair per user is active at a time.
type SeedPair struct {
	ID             string     `json:"id"`
	UserID         int64      `json:"user_id"`
	ServerSeed     string     `json:"-"`
	ServerSeedHash string     `json:"server_seed_hash"`
	ClientSeed     string     `json:"client_seed"`
	Nonce          uint64     `json:"nonce"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	RetiredAt      *time.Time `json:"retired_at,omitempty"`
}

// SeedPairView is the player-facing form of a pair. The secret is only
// disclosed once the pair has been retired.
type SeedPairView struct {
	ID             string     `json:"id"`
	ServerSeedHash string     `json:"server_seed_hash"`
	ServerSeed     string     `json:"server_seed,omitempty"`
	ClientSeed     string     `json:"client_seed"`
	Nonce          uint64     `json:"nonce"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	RetiredAt      *time.Time `json:"retired_at,omitempty"`
}

func (p *SeedPair) View() SeedPairView {
	v := SeedPairView{
		ID:             p.ID,
		ServerSeedHash: p.ServerSeedHash,
		ClientSeed:     p.ClientSeed,
		Nonce:          p.Nonce,
		Active:         p.Active,
		CreatedAt:      p.CreatedAt,
		RetiredAt:      p.RetiredAt,
	}
	if !p.Active {
		v.ServerSeed = p.ServerSeed
	}
	return v
}

type RotateSeedRequest struct {
	ClientSeed string `json:"client_seed" binding:"omitempty,min=1,max=64,printascii"`
}

type RotateSeedResponse struct {
	Retired SeedPairView `json:"retired"`
	Active  SeedPairView `json:"active"`
}
