package platform

import (
	"context"

	"github.com/Dzaakk/playtime-gateway/internal/playtime"
	"github.com/Dzaakk/playtime-gateway/internal/vendor"
)

func NewXbox(api vendor.XboxAPI, creds vendor.Credentials, opts Options) *Adapter {
	fetch := func(ctx context.Context, xuid string) ([]playtime.Game, error) {
		titles, err := api.TitleHistory(ctx, xuid)
		if err != nil {
			return nil, err
		}
		games := make([]playtime.Game, 0, len(titles))
		for _, t := range titles {
			games = append(games, playtime.Game{
				ID:          t.TitleID,
				Name:        t.Name,
				HoursPlayed: float64(t.MinutesPlayed) / 60,
				CoverArt:    t.DisplayImage,
			})
		}
		return games, nil
	}
	return newAdapter(Xbox, creds.ClientID != "" && creds.ClientSecret != "",
		"Xbox Live API credentials are not configured",
		"Failed to fetch Xbox Live data",
		fetch, opts)
}
