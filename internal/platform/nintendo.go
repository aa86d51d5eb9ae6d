package platform

import (
	"context"

	"github.com/Dzaakk/playtime-gateway/internal/playtime"
	"github.com/Dzaakk/playtime-gateway/internal/vendor"
)

func NewNintendo(api vendor.NintendoAPI, creds vendor.Credentials, opts Options) *Adapter {
	fetch := func(ctx context.Context, nintendoID string) ([]playtime.Game, error) {
		histories, err := api.PlayHistories(ctx, nintendoID)
		if err != nil {
			return nil, err
		}
		games := make([]playtime.Game, 0, len(histories))
		for _, h := range histories {
			games = append(games, playtime.Game{
				ID:          h.TitleID,
				Name:        h.TitleName,
				HoursPlayed: float64(h.TotalPlayedMinutes) / 60,
				CoverArt:    h.ImageURL,
			})
		}
		return games, nil
	}
	return newAdapter(Nintendo, creds.ClientID != "" && creds.ClientSecret != "",
		"Nintendo API credentials are not configured",
		"Failed to fetch Nintendo data",
		fetch, opts)
}
