package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medflow/medflow-timesheet/internal/timesheet/calendar"
	"github.com/medflow/medflow-timesheet/internal/timesheet/events"
	"github.com/medflow/medflow-timesheet/internal/timesheet/service"
	"github.com/medflow/medflow-timesheet/pkg/config"
	"github.com/medflow/medflow-timesheet/pkg/messaging"
	"github.com/spf13/cobra"
)

func newInvalidateCmd(a *app) *cobra.Command {
	var employee, date string

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Drop the cached report week containing a date",
		Long: `Drop the cached report week of an employee that contains --date.

With the database cache backend the entry is deleted directly. When RabbitMQ is
enabled an invalidation event is also published so that replicas holding a
memory cache drop their copy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := calendar.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			return runInvalidate(cmd, a, employee, d)
		},
	}

	cmd.Flags().StringVarP(&employee, "employee", "e", "", "Employee ID")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Any date of the week (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("employee")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func runInvalidate(cmd *cobra.Command, a *app, employee string, date time.Time) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()
	done := false

	if a.cfg.Cache.Backend == config.CacheBackendDatabase {
		invalidator := service.NewInvalidator(a.reportCache(), a.cfg.Report.WeekStartDay(), a.log)
		if err := invalidator.Invalidate(ctx, employee, date); err != nil {
			return err
		}
		fmt.Fprintln(out, "dropped cached week from the database")
		done = true
	}

	if a.cfg.RabbitMQ.Enabled {
		rmq, err := messaging.New(&a.cfg.RabbitMQ, a.log)
		if err != nil {
			return fmt.Errorf("connect to RabbitMQ: %w", err)
		}
		defer rmq.Close()

		publisher, err := events.NewTimesheetEventPublisher(rmq, a.log)
		if err != nil {
			return err
		}
		if err := publisher.PublishCacheInvalidate(ctx, employee, date, "timesheetctl"); err != nil {
			return err
		}
		fmt.Fprintln(out, "published invalidation event")
		done = true
	}

	if !done {
		return errors.New("nothing to invalidate: the memory cache backend needs RabbitMQ to reach the service")
	}
	return nil
}
