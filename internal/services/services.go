package services

import (
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/search"
	"github.com/desertthunder/ytplay/internal/session"
)

var (
	_ search.Searcher         = (*CatalogService)(nil)
	_ playback.StreamResolver = (*CatalogService)(nil)
	_ session.Provider        = (*AuthService)(nil)
	_ session.CooldownStore   = (*AuthService)(nil)
)
