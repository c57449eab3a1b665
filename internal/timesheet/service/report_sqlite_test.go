package service_test

import (
	"context"
	"testing"

	"github.com/medflow/medflow-timesheet/internal/timesheet/repository"
	"github.com/medflow/medflow-timesheet/internal/timesheet/service"
	"github.com/medflow/medflow-timesheet/pkg/actor"
	"github.com/medflow/medflow-timesheet/pkg/config"
	apperrors "github.com/medflow/medflow-timesheet/pkg/errors"
	"github.com/medflow/medflow-timesheet/pkg/logger"
	"github.com/medflow/medflow-timesheet/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sqliteServices struct {
	report     *service.ReportService
	timesheets *service.TimesheetService
	seed       *testutil.Seeder
}

func newSQLiteServices(t *testing.T) *sqliteServices {
	t.Helper()

	db := testutil.NewSQLiteDB(t, repository.Schema())
	log := logger.Nop()
	reportCfg := config.ReportConfig{WeekStart: "monday", DailyNorm: 8, WorkingFrequency: "Per Day", DefaultWeeks: 4, MaxWeeks: 52}
	authCfg := config.AuthConfig{AdministratorUser: "Administrator", AdministratorRole: "admin"}

	employees := repository.NewEmployeeRepository(db)
	timesheets := repository.NewTimesheetRepository(db)
	reportCache := repository.NewReportCacheRepository(db)

	aggregator := service.NewAggregator(timesheets, repository.NewTaskRepository(db), log)
	builder := service.NewReportBuilder(employees, aggregator, reportCache, reportCfg, log)
	invalidator := service.NewInvalidator(reportCache, reportCfg.WeekStartDay(), log)

	return &sqliteServices{
		report: service.NewReportService(employees, repository.NewLeaveRepository(db), repository.NewHolidayRepository(db),
			builder, reportCfg, authCfg, log),
		timesheets: service.NewTimesheetService(timesheets, employees, invalidator, nil, log),
		seed:       testutil.NewSeeder(db),
	}
}

func TestReport_SQLiteEndToEnd(t *testing.T) {
	s := newSQLiteServices(t)
	ctx := actor.WithActor(context.Background(), &actor.Actor{ID: "user-1", Email: "jane@example.com"})

	weekStart := testutil.Date(t, "2024-01-15")
	weekEnd := testutil.Date(t, "2024-01-21")
	leaveDay := testutil.Date(t, "2024-01-17")

	s.seed.Employee(t, "HR-EMP-00001", "Jane", "user-1", "HL-2024")
	s.seed.Project(t, "PROJ-1", "Website")
	s.seed.Task(t, "Task 1", "Task 1", "PROJ-1", 10, 5)
	s.seed.Timesheet(t, "TS-1", "HR-EMP-00001", weekStart, weekEnd, repository.DocStatusDraft)
	s.seed.LogEntry(t, "TSD-1", "TS-1", "Task 1", 5, "landing page")
	s.seed.Timesheet(t, "TS-2", "HR-EMP-00001", weekStart, weekEnd, repository.DocStatusCancelled)
	s.seed.LogEntry(t, "TSD-2", "TS-2", "Task 1", 3, "cancelled work")
	s.seed.Leave(t, "LA-1", "HR-EMP-00001", leaveDay, leaveDay, true, "Approved", 1)
	s.seed.Leave(t, "LA-2", "HR-EMP-00001", leaveDay, leaveDay, false, "Rejected", 1)
	s.seed.Holiday(t, "HOL-1", "HL-2024", testutil.Date(t, "2024-01-10"), "Company Day", false)
	s.seed.Holiday(t, "HOL-2", "HL-OTHER", testutil.Date(t, "2024-01-11"), "Elsewhere", false)

	report, err := s.report.GetTimesheetReport(ctx, service.ReportParams{StartDate: leaveDay, Weeks: 2})
	require.NoError(t, err)

	require.Len(t, report.Data, 2)
	require.Contains(t, report.Data, "Jan 15 - Jan 21")
	week := report.Data["Jan 15 - Jan 21"]
	assert.Equal(t, 5.0, week.TotalHours)
	require.Contains(t, week.Tasks, "Task 1")
	assert.Equal(t, "Website", *week.Tasks["Task 1"].ProjectName)
	require.Len(t, week.Tasks["Task 1"].LogEntries, 1)
	assert.Equal(t, 5.0, week.Tasks["Task 1"].LogEntries[0].Hours)

	require.Len(t, report.Leaves, 1)
	assert.Equal(t, "LA-1", report.Leaves[0].ID)
	assert.True(t, report.Leaves[0].HalfDay)
	require.Len(t, report.Holidays, 1)
	assert.Equal(t, "Company Day", report.Holidays[0].Description)

	// a write through the service drops the cached week
	ts, err := s.timesheets.GetByID(context.Background(), "TS-1")
	require.NoError(t, err)
	ts.Details = append(ts.Details, repository.LogEntry{TaskID: testutil.PtrString("Task 1"), Hours: 2.5})
	require.NoError(t, s.timesheets.Update(context.Background(), ts))

	report, err = s.report.GetTimesheetReport(ctx, service.ReportParams{StartDate: leaveDay, Weeks: 2})
	require.NoError(t, err)
	assert.Equal(t, 7.5, report.Data["Jan 15 - Jan 21"].TotalHours)
}

func TestReport_SQLiteUnknownEmployee(t *testing.T) {
	s := newSQLiteServices(t)

	_, err := s.report.GetTimesheetReport(context.Background(), service.ReportParams{EmployeeID: "HR-EMP-99999"})

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, service.MsgEmployeeNotFound, appErr.Message)
}
