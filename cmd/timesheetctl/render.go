package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/medflow/medflow-timesheet/internal/timesheet/service"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validFormat(format string) bool {
	switch format {
	case formatText, formatJSON, formatYAML:
		return true
	}
	return false
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7"))
	weekStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	totalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3b4261")).
			Padding(0, 1)
)

func render(w io.Writer, report *service.TimesheetReport, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case formatYAML:
		return renderYAML(w, report)
	default:
		_, err := io.WriteString(w, renderText(report)+"\n")
		return err
	}
}

// renderYAML goes through JSON so that the YAML keys match the API response
func renderYAML(w io.Writer, report *service.TimesheetReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func renderText(report *service.TimesheetReport) string {
	weeks := make([]*service.WeeklyReportEntry, 0, len(report.Data))
	for _, week := range report.Data {
		weeks = append(weeks, week)
	}
	sort.Slice(weeks, func(i, j int) bool {
		return weeks[i].StartDate.After(weeks[j].StartDate)
	})

	var b strings.Builder
	title := "Weekly timesheet report"
	if report.Global {
		title += " (all employees)"
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("expected %g h %s, %d leaves, %d holidays",
		report.WorkingHour, strings.ToLower(report.WorkingFrequency), len(report.Leaves), len(report.Holidays))) + "\n")

	for _, week := range weeks {
		b.WriteString(boxStyle.Render(renderWeek(week, report.Global)) + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderWeek(week *service.WeeklyReportEntry, global bool) string {
	var b strings.Builder
	b.WriteString(weekStyle.Render(week.Label))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s .. %s",
		week.StartDate.Format("2006-01-02"), week.EndDate.Format("2006-01-02"))))

	if global {
		return b.String()
	}

	ids := make([]string, 0, len(week.Tasks))
	for id := range week.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		task := week.Tasks[id]
		name := task.Subject
		if name == "" {
			name = id
		}
		if task.ProjectName != nil && *task.ProjectName != "" {
			name += dimStyle.Render(" · " + *task.ProjectName)
		}
		b.WriteString(fmt.Sprintf("\n  %-40s %6.2f h", name, task.Hours()))
	}

	b.WriteString("\n" + totalStyle.Render(fmt.Sprintf("  %-40s %6.2f h", "Total", week.TotalHours)))
	return b.String()
}
