package platform

import (
	"context"

	"github.com/Dzaakk/playtime-gateway/internal/playtime"
	"github.com/Dzaakk/playtime-gateway/internal/vendor"
)

func NewRiot(api vendor.RiotAPI, creds vendor.Credentials, opts Options) *Adapter {
	fetch := func(ctx context.Context, puuid string) ([]playtime.Game, error) {
		matches, err := api.MatchHistory(ctx, puuid)
		if err != nil {
			return nil, err
		}
		return riotGames(matches), nil
	}
	return newAdapter(Riot, creds.APIKey != "",
		"Riot Games API key is not configured",
		"Failed to fetch Riot Games data",
		fetch, opts)
}

// riotGames sums match durations per game, keeping first-seen order.
func riotGames(matches []vendor.RiotMatch) []playtime.Game {
	seconds := make(map[string]int)
	byID := make(map[string]*playtime.Game)
	var order []string

	for _, m := range matches {
		g, ok := byID[m.GameID]
		if !ok {
			g = &playtime.Game{ID: m.GameID, Name: m.GameName}
			byID[m.GameID] = g
			order = append(order, m.GameID)
		}
		if g.CoverArt == "" {
			g.CoverArt = m.CoverArt
		}
		if m.GameDuration > 0 {
			seconds[m.GameID] += m.GameDuration
		}
	}

	games := make([]playtime.Game, 0, len(order))
	for _, id := range order {
		g := *byID[id]
		g.HoursPlayed = float64(seconds[id]) / 3600
		games = append(games, g)
	}
	return games
}
