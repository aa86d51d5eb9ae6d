package platform

import (
	"context"
	"strconv"

	"github.com/Dzaakk/playtime-gateway/internal/playtime"
	"github.com/Dzaakk/playtime-gateway/internal/vendor"
)

func NewRoblox(api vendor.RobloxAPI, creds vendor.Credentials, opts Options) *Adapter {
	fetch := func(ctx context.Context, userID string) ([]playtime.Game, error) {
		universes, err := api.PlayedUniverses(ctx, userID)
		if err != nil {
			return nil, err
		}
		games := make([]playtime.Game, 0, len(universes))
		for _, u := range universes {
			games = append(games, playtime.Game{
				ID:          strconv.FormatInt(u.UniverseID, 10),
				Name:        u.Name,
				HoursPlayed: float64(u.MinutesPlayed) / 60,
				CoverArt:    u.ThumbnailURL,
			})
		}
		return games, nil
	}
	return newAdapter(Roblox, creds.APIKey != "",
		"Roblox API key is not configured",
		"Failed to fetch Roblox data",
		fetch, opts)
}
