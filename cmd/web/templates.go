package main

import (
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/models"
)

type BaseTemplateData struct {
	Title string
}

type panelTemplateData struct {
	ID          episode.PanelID
	Title       string
	Highlighted bool
	Table       models.Table
}

type episodeTemplateData struct {
	BaseTemplateData
	View        episode.View
	Evidence    []panelTemplateData
	Pending     string
	Flash       string
	Leaderboard []models.PlaythroughResult
}
