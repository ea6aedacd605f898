package app

import (
	repos "github.com/yungbote/btcmood-backend/internal/data/repos/imagegen"
	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
)

type Repos struct {
	Prompt            repos.PromptRepo
	ImageLink         repos.ImageLinkRepo
	DailyImageVersion repos.DailyImageVersionRepo
}

func wireRepos(log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Prompt:            repos.NewPromptRepo(log),
		ImageLink:         repos.NewImageLinkRepo(log),
		DailyImageVersion: repos.NewDailyImageVersionRepo(log),
	}
}
