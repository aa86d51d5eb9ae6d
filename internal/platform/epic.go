package platform

import (
	"context"

	"github.com/Dzaakk/playtime-gateway/internal/playtime"
	"github.com/Dzaakk/playtime-gateway/internal/vendor"
)

func NewEpic(api vendor.EpicAPI, creds vendor.Credentials, opts Options) *Adapter {
	fetch := func(ctx context.Context, accountID string) ([]playtime.Game, error) {
		records, err := api.Library(ctx, accountID)
		if err != nil {
			return nil, err
		}
		games := make([]playtime.Game, 0, len(records))
		for _, r := range records {
			games = append(games, playtime.Game{
				ID:          r.CatalogItemID,
				Name:        r.Title,
				HoursPlayed: float64(r.TotalTime) / 3600,
				CoverArt:    r.KeyImageURL,
			})
		}
		return games, nil
	}
	return newAdapter(Epic, creds.ClientID != "" && creds.ClientSecret != "",
		"Epic Games API credentials are not configured",
		"Failed to fetch Epic Games data",
		fetch, opts)
}
