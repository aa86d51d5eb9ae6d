package platform

import (
	"context"
	"fmt"

	"github.com/Dzaakk/playtime-gateway/internal/playtime"
	"github.com/Dzaakk/playtime-gateway/internal/vendor"
)

func NewPlayStation(api vendor.PlayStationAPI, creds vendor.Credentials, opts Options) *Adapter {
	fetch := func(ctx context.Context, psnID string) ([]playtime.Game, error) {
		groups, err := api.TrophyGroups(ctx, psnID)
		if err != nil {
			return nil, err
		}
		return trophyGames(groups), nil
	}
	return newAdapter(PlayStation, creds.APIKey != "",
		"PlayStation Network API key is not configured",
		"Failed to fetch PlayStation Network data",
		fetch, opts)
}

// trophyGames estimates hours from earned trophies. Titles without any
// earned trophy are left out.
func trophyGames(groups []vendor.TrophyGroup) []playtime.Game {
	games := make([]playtime.Game, 0, len(groups))
	for _, g := range groups {
		tiers := playtime.Tiers{
			Lowest: g.EarnedTrophies.Bronze,
			Mid:    g.EarnedTrophies.Silver,
			High:   g.EarnedTrophies.Gold,
			Top:    g.EarnedTrophies.Platinum,
		}
		if tiers.Total() == 0 {
			continue
		}

		id := g.NpCommunicationID
		if id == "" {
			id = fmt.Sprintf("psn-%d", len(games))
		}
		name := g.TrophyTitleName
		if name == "" {
			name = "Unknown Game"
		}

		games = append(games, playtime.Game{
			ID:          id,
			Name:        name,
			HoursPlayed: tiers.EstimateHours(),
			CoverArt:    g.TrophyTitleIconURL,
		})
	}
	return games
}
