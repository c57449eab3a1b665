package main

import (
	"context"
	"fmt"

	"github.com/medflow/medflow-timesheet/internal/timesheet/calendar"
	"github.com/medflow/medflow-timesheet/internal/timesheet/repository"
	"github.com/medflow/medflow-timesheet/internal/timesheet/service"
	"github.com/medflow/medflow-timesheet/pkg/actor"
	"github.com/spf13/cobra"
)

type reportOptions struct {
	employee  string
	user      string
	startDate string
	weeks     int
	format    string
}

func newReportCmd(a *app) *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the weekly timesheet report",
		Long: `Print the weekly timesheet report of one employee.

Without --employee the report of --user's employee is printed. Without either
the command runs as the administrator and prints the global week overview.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.employee, "employee", "e", "", "Employee ID")
	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "Run as this user ID")
	cmd.Flags().StringVarP(&opts.startDate, "start-date", "s", "", "Anchor date (YYYY-MM-DD), defaults to today")
	cmd.Flags().IntVarP(&opts.weeks, "weeks", "w", 0, "Number of weeks, defaults to report.default_weeks")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "Output format: text, json, yaml")

	return cmd
}

func runReport(cmd *cobra.Command, a *app, opts reportOptions) error {
	if !validFormat(opts.format) {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	params := service.ReportParams{
		EmployeeID: opts.employee,
		Weeks:      opts.weeks,
	}
	if opts.startDate != "" {
		d, err := calendar.ParseDate(opts.startDate)
		if err != nil {
			return fmt.Errorf("invalid --start-date: %w", err)
		}
		params.StartDate = d
	}

	runAs := &actor.Actor{ID: a.cfg.Auth.AdministratorUser}
	if opts.user != "" {
		runAs = &actor.Actor{ID: opts.user}
	}
	ctx := actor.WithActor(context.Background(), runAs)

	employees := repository.NewEmployeeRepository(a.db)
	aggregator := service.NewAggregator(repository.NewTimesheetRepository(a.db), repository.NewTaskRepository(a.db), a.log)
	builder := service.NewReportBuilder(employees, aggregator, a.reportCache(), a.cfg.Report, a.log)
	reports := service.NewReportService(
		employees,
		repository.NewLeaveRepository(a.db),
		repository.NewHolidayRepository(a.db),
		builder,
		a.cfg.Report,
		a.cfg.Auth,
		a.log,
	)

	report, err := reports.GetTimesheetReport(ctx, params)
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), report, opts.format)
}
