package goSession

import (
	"time"

	"github.com/MrEthical07/goSession/votes"
)

// Vote is one opaque vote record as returned by the API.
type Vote = votes.Vote

// Rating is one opaque rating record as returned by the API.
type Rating = votes.Rating

// Snapshot is the last fetched set of votes and ratings.
type Snapshot = votes.Snapshot

// State is a copy of the session state at one instant.
//
// Generation increases on every login, every logout and every status check
// that flips LoggedIn. A fetch started under one generation is only committed
// if the generation is unchanged when it completes.
type State struct {
	LoggedIn   bool
	Snapshot   Snapshot
	Generation uint64
	UpdatedAt  time.Time
}

// TokenInfo describes the stored token without exposing it.
type TokenInfo struct {
	Present   bool
	JWT       bool
	Verified  bool
	Subject   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Expired   bool
}
