// Package platform adapts each vendor's raw playtime data to the shared
// playtime.Response shape.
package platform

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dzaakk/playtime-gateway/internal/playtime"
	"github.com/Dzaakk/playtime-gateway/internal/vendor"
)

const (
	Steam       = "steam"
	Riot        = "riot"
	Xbox        = "xbox"
	PlayStation = "playstation"
	Epic        = "epic"
	Nintendo    = "nintendo"
	Roblox      = "roblox"
)

var labels = map[string]string{
	Steam:       "Steam",
	Riot:        "Riot",
	Xbox:        "Xbox",
	PlayStation: "PlayStation Network",
	Epic:        "Epic Games",
	Nintendo:    "Nintendo",
	Roblox:      "Roblox",
}

// Label is the vendor display name used in client-facing messages.
func Label(platform string) string {
	if l, ok := labels[platform]; ok {
		return l
	}
	return platform
}

func InvalidIDReason(platform string) string {
	return "Invalid " + Label(platform) + " ID provided"
}

type Options struct {
	Logger *slog.Logger
	// Timeout bounds one upstream fetch, pacing wait included.
	Timeout time.Duration
}

type fetchFunc func(ctx context.Context, subjectID string) ([]playtime.Game, error)

// Adapter is the common shape of every platform: a credential check, one
// bounded upstream fetch and normalization of its result.
type Adapter struct {
	platform      string
	configured    bool
	missingReason string
	failReason    string
	fetch         fetchFunc
	timeout       time.Duration
	logger        *slog.Logger
}

func newAdapter(platform string, configured bool, missingReason, failReason string, fetch fetchFunc, opts Options) *Adapter {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = vendor.DefaultTimeout
	}
	return &Adapter{
		platform:      platform,
		configured:    configured,
		missingReason: missingReason,
		failReason:    failReason,
		fetch:         fetch,
		timeout:       opts.Timeout,
		logger:        opts.Logger.With("platform", platform),
	}
}

func (a *Adapter) Platform() string {
	return a.platform
}

func (a *Adapter) FetchPlaytime(ctx context.Context, subjectID string) playtime.Response {
	if !a.configured {
		a.logger.Warn("platform credentials missing")
		return playtime.Failure(a.missingReason)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	games, err := a.fetch(ctx, subjectID)
	if err != nil {
		a.logger.Error("upstream fetch failed", "subject_id", subjectID, "error", err)
		return playtime.Failure(a.failReason)
	}

	for i := range games {
		games[i].HoursPlayed = playtime.RoundHours(games[i].HoursPlayed)
		games[i].Platform = a.platform
	}
	playtime.SortGames(games)

	return playtime.Success(games)
}

var _ playtime.Adapter = (*Adapter)(nil)
