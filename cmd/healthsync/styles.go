package main

import "charm.land/lipgloss/v2"

var (
	colorGood = lipgloss.Color("#16EC06")
	colorWarn = lipgloss.Color("#FFDE00")
	colorBad  = lipgloss.Color("#FF0026")
	colorDim  = lipgloss.Color("#666666")
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true)
	styleLabel = lipgloss.NewStyle().Foreground(colorDim)
	styleGood  = lipgloss.NewStyle().Foreground(colorGood)
	styleWarn  = lipgloss.NewStyle().Foreground(colorWarn)
	styleBad   = lipgloss.NewStyle().Foreground(colorBad)
)

func okBad(ok bool, okText, badText string) string {
	if ok {
		return styleGood.Render(okText)
	}
	return styleBad.Render(badText)
}
