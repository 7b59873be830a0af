// Package exports provides CSV downloads of the lead book for tools that
// cannot talk to the JSON API.
package exports

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apphttp "presales_backend/internal/http"
	leadservice "presales_backend/internal/leads/service"
	"presales_backend/platform/logger"
)

// exportPageSize is how many leads are fetched per repository page while
// streaming the CSV.
const exportPageSize = 100

// Module implements http.Module for the export endpoints.
type Module struct {
	leads *leadservice.Service
	log   *logger.Logger
}

// NewModule creates the exports module.
func NewModule(leads *leadservice.Service, log *logger.Logger) *Module {
	return &Module{leads: leads, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "exports" }

// RegisterRoutes mounts the export routes on the protected API group.
func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	rc.Protected.GET("/exports/leads.csv", m.ExportLeadsCSV)
}

var csvHeader = []string{
	"id", "session_id", "client_name", "contact_info", "project_type",
	"use_case", "requirements_summary", "timeline", "budget_range",
	"summary", "follow_up_status", "created_at",
}

// ExportLeadsCSV streams the full lead book as CSV, newest first.
func (m *Module) ExportLeadsCSV(c *gin.Context) {
	filename := fmt.Sprintf("leads_%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write(csvHeader); err != nil {
		m.log.Error("csv export failed", "error", err)
		return
	}

	offset := 0
	for {
		page, err := m.leads.List(c.Request.Context(), exportPageSize, offset)
		if err != nil {
			// Headers are already sent; abort the stream.
			m.log.Error("csv export failed", "error", err)
			return
		}

		for _, lead := range page.Leads {
			record := []string{
				lead.ID.String(),
				lead.SessionID,
				lead.ClientName,
				lead.ContactInfo,
				lead.ProjectType,
				lead.UseCase,
				lead.RequirementsSummary,
				lead.Timeline,
				lead.BudgetRange,
				lead.Summary,
				string(lead.FollowUpStatus),
				lead.CreatedAt.UTC().Format(time.RFC3339),
			}
			if err := writer.Write(record); err != nil {
				m.log.Error("csv export failed", "error", err)
				return
			}
		}

		if len(page.Leads) < exportPageSize {
			break
		}
		offset += exportPageSize
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		m.log.Error("csv export flush failed", "error", err)
	}
}
