package handler

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the timesheet API under /api/v1/timesheet
func RegisterRoutes(r chi.Router, reports *ReportHandler, timesheets *TimesheetHandler, cache *CacheHandler) {
	r.Route("/api/v1/timesheet", func(r chi.Router) {
		r.Get("/report", reports.GetReport)
		r.Get("/employee", reports.GetEmployee)
		r.Get("/working-hours", reports.GetWorkingHours)

		r.Route("/timesheets", func(r chi.Router) {
			r.Post("/", timesheets.Create)
			r.Get("/{id}", timesheets.Get)
			r.Put("/{id}", timesheets.Update)
			r.Post("/{id}/submit", timesheets.Submit)
			r.Post("/{id}/cancel", timesheets.Cancel)
		})

		r.Delete("/cache", cache.Invalidate)
	})
}
