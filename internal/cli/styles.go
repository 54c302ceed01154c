package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"roleplay-chat/backend/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

// speakerStyle colors a character's label with its theme color
func speakerStyle(ch *models.Character) lipgloss.Style {
	if ch != nil && ch.ThemeColor != "" {
		return nameStyle.Foreground(lipgloss.Color(ch.ThemeColor))
	}
	return nameStyle
}

func printMessage(w io.Writer, ch *models.Character, m models.Message) {
	stamp := dimStyle.Render(m.Timestamp.Local().Format(time.Kitchen))
	switch m.Sender {
	case models.SenderUser:
		fmt.Fprintf(w, "%s %s %s\n", stamp, userStyle.Render("You:"), m.Text)
	default:
		fmt.Fprintf(w, "%s %s %s\n", stamp, speakerStyle(ch).Render(ch.DisplayName()+":"), m.Text)
	}
}

func printError(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render("Error: ")+msg)
}
