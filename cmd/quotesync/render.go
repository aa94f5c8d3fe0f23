package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

var (
	quoteStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2).
			Width(60)
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Italic(true)
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	emptyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	levelStyles = map[domain.NotificationLevel]lipgloss.Style{
		domain.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		domain.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		domain.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

func renderQuote(w io.Writer, q domain.Quote) {
	body := textStyle.Render("“"+q.Text+"”") + "\n" + categoryStyle.Render("- "+q.Category)
	fmt.Fprintln(w, quoteStyle.Render(body))
}

func renderQuoteList(w io.Writer, quotes []domain.Quote, category string) {
	title := "All quotes"
	if category != "" && category != domain.CategoryAll {
		title = "Quotes in " + category
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s (%d)", title, len(quotes))))

	if len(quotes) == 0 {
		fmt.Fprintln(w, emptyStyle.Render("  none"))
		return
	}

	for i, q := range quotes {
		fmt.Fprintf(w, "%3d. %s %s\n", i+1, q.Text, categoryStyle.Render("["+q.Category+"]"))
	}
}

func renderCategories(w io.Writer, categories []string, selected string) {
	fmt.Fprintln(w, headerStyle.Render("Categories"))

	options := append([]string{domain.CategoryAll}, categories...)
	for _, cat := range options {
		if cat == selected || (selected == "" && cat == domain.CategoryAll) {
			fmt.Fprintln(w, selectedStyle.Render("* "+cat))
			continue
		}

		fmt.Fprintln(w, "  "+cat)
	}
}

func renderNotification(w io.Writer, n domain.Notification) {
	style, ok := levelStyles[n.Level]
	if !ok {
		style = levelStyles[domain.LevelInfo]
	}

	fmt.Fprintln(w, style.Render(strings.TrimSpace(n.Message)))
}
