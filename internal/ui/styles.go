package ui

import (
	"github.com/charmbracelet/lipgloss"

	"taskmaster/internal/models"
)

type styles struct {
	title     lipgloss.Style
	label     lipgloss.Style
	faint     lipgloss.Style
	done      lipgloss.Style
	overdue   lipgloss.Style
	bell      lipgloss.Style
	bar       lipgloss.Style
	nlp       lipgloss.Style
	celebrate lipgloss.Style

	priorityHigh   lipgloss.Style
	priorityMedium lipgloss.Style
	priorityLow    lipgloss.Style

	toastInfo    lipgloss.Style
	toastSuccess lipgloss.Style
	toastWarning lipgloss.Style
	toastError   lipgloss.Style
}

func newStyles(dark bool) styles {
	faintColor := lipgloss.Color("245")
	accent := lipgloss.Color("63")
	if !dark {
		faintColor = lipgloss.Color("243")
		accent = lipgloss.Color("27")
	}

	toast := lipgloss.NewStyle().Padding(0, 1).Bold(true)

	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		label:     lipgloss.NewStyle().Bold(true),
		faint:     lipgloss.NewStyle().Foreground(faintColor),
		done:      lipgloss.NewStyle().Strikethrough(true).Foreground(faintColor),
		overdue:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		bell:      lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		bar:       lipgloss.NewStyle().Foreground(accent),
		nlp:       lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("114")),
		celebrate: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")),

		priorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		priorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		priorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("78")),

		toastInfo:    toast.Foreground(lipgloss.Color("252")).Background(lipgloss.Color("238")),
		toastSuccess: toast.Foreground(lipgloss.Color("230")).Background(lipgloss.Color("28")),
		toastWarning: toast.Foreground(lipgloss.Color("232")).Background(lipgloss.Color("214")),
		toastError:   toast.Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")),
	}
}

func (s styles) priority(p string) lipgloss.Style {
	switch p {
	case models.PriorityHigh:
		return s.priorityHigh
	case models.PriorityLow:
		return s.priorityLow
	default:
		return s.priorityMedium
	}
}

func (s styles) toast(level string) lipgloss.Style {
	switch level {
	case "success":
		return s.toastSuccess
	case "warning":
		return s.toastWarning
	case "error":
		return s.toastError
	default:
		return s.toastInfo
	}
}
