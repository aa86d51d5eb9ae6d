package platform

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Dzaakk/playtime-gateway/internal/playtime"
	"github.com/Dzaakk/playtime-gateway/internal/vendor"
)

const steamCoverArt = "https://cdn.cloudflare.steamstatic.com/steam/apps/%d/header.jpg"

func NewSteam(api vendor.SteamAPI, creds vendor.Credentials, opts Options) *Adapter {
	fetch := func(ctx context.Context, steamID string) ([]playtime.Game, error) {
		owned, err := api.OwnedGames(ctx, steamID)
		if err != nil {
			return nil, err
		}
		return steamGames(owned), nil
	}
	return newAdapter(Steam, creds.APIKey != "",
		"Steam API key is not configured",
		"Failed to fetch Steam data",
		fetch, opts)
}

func steamGames(owned []vendor.SteamOwnedGame) []playtime.Game {
	games := make([]playtime.Game, 0, len(owned))
	for _, g := range owned {
		games = append(games, playtime.Game{
			ID:          strconv.Itoa(g.AppID),
			Name:        g.Name,
			HoursPlayed: float64(g.PlaytimeForever) / 60,
			CoverArt:    fmt.Sprintf(steamCoverArt, g.AppID),
		})
	}
	return games
}
