// Package playtime holds the normalized response contract shared by every
// platform adapter and the read-through service that fronts them.
package playtime

import (
	"context"
	"math"
	"sort"
)

type Game struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	HoursPlayed float64 `json:"hoursPlayed"`
	CoverArt    string  `json:"coverArt"`
	Platform    string  `json:"platform"`
}

// Response is the platform-agnostic payload. Success=false with
// Supported=true is a recoverable failure; Supported=false marks a platform
// that is intentionally not implemented.
type Response struct {
	Success   bool   `json:"success"`
	Supported bool   `json:"supported"`
	Games     []Game `json:"games,omitzero"`
	Reason    string `json:"reason,omitempty"`
}

// Adapter fetches playtime for one platform. Implementations never return
// an error: every vendor or configuration problem is folded into Response.
type Adapter interface {
	Platform() string
	FetchPlaytime(ctx context.Context, subjectID string) Response
}

func Success(games []Game) Response {
	if games == nil {
		games = []Game{}
	}
	return Response{Success: true, Supported: true, Games: games}
}

func Failure(reason string) Response {
	return Response{Success: false, Supported: true, Reason: reason}
}

func Unsupported(reason string) Response {
	return Response{Success: false, Supported: false, Reason: reason}
}

// RoundHours clamps negatives to zero and keeps one decimal place.
func RoundHours(h float64) float64 {
	if h <= 0 || math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	return math.Round(h*10) / 10
}

// SortGames orders by hours played, most first, then by name.
func SortGames(games []Game) {
	sort.SliceStable(games, func(i, j int) bool {
		if games[i].HoursPlayed != games[j].HoursPlayed {
			return games[i].HoursPlayed > games[j].HoursPlayed
		}
		return games[i].Name < games[j].Name
	})
}
