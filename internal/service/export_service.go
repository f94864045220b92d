package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/export"
)

type lessonLister interface {
	ListAll(ctx context.Context) ([]models.LessonPlan, error)
}

type auditReader interface {
	Recent(ctx context.Context, limit int) ([]models.AuditLog, error)
	MaxLimit() int
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders lesson plans and the audit log as files.
type ExportService struct {
	lessons lessonLister
	audit   auditReader
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(lessons lessonLister, audit auditReader) *ExportService {
	return &ExportService{lessons: lessons, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// ExportLessons renders every lesson plan.
func (s *ExportService) ExportLessons(ctx context.Context, rawFormat string) (*ExportFile, error) {
	format, err := parseExportFormat(rawFormat)
	if err != nil {
		return nil, err
	}

	plans, err := s.lessons.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	table := export.Table{
		Title: "Lesson plans",
		Columns: []export.Column{
			{Header: "id", Weight: 2.2},
			{Header: "title", Weight: 2.5},
			{Header: "date"},
			{Header: "time", Weight: 0.6},
			{Header: "duration", Weight: 0.7},
			{Header: "start", Weight: 1.4},
			{Header: "end", Weight: 1.4},
			{Header: "assigned_users", Weight: 0.9},
		},
	}
	for _, plan := range plans {
		table.Rows = append(table.Rows, []string{
			plan.ID,
			plan.Title,
			plan.DateString(),
			plan.Clock(),
			strconv.Itoa(plan.DurationMinutes),
			plan.Start().Format(models.MomentLayout),
			plan.End().Format(models.MomentLayout),
			strconv.Itoa(len(plan.AssignedUsers)),
		})
	}

	return s.render(format, "lesson-plans", table)
}

// ExportAuditLog renders the most recent audit entries.
func (s *ExportService) ExportAuditLog(ctx context.Context, rawFormat string) (*ExportFile, error) {
	format, err := parseExportFormat(rawFormat)
	if err != nil {
		return nil, err
	}

	logs, err := s.audit.Recent(ctx, s.audit.MaxLimit())
	if err != nil {
		return nil, err
	}

	table := export.Table{
		Title: "Audit log",
		Columns: []export.Column{
			{Header: "timestamp", Weight: 1.6},
			{Header: "event_type"},
			{Header: "username"},
			{Header: "action", Weight: 3},
		},
	}
	for _, entry := range logs {
		username := ""
		if entry.Username != nil {
			username = *entry.Username
		}
		table.Rows = append(table.Rows, []string{
			entry.CreatedAt.UTC().Format(time.RFC3339),
			string(entry.EventType),
			username,
			entry.Action,
		})
	}

	return s.render(format, "audit-log", table)
}

func (s *ExportService) render(format export.Format, prefix string, table export.Table) (*ExportFile, error) {
	body, err := export.RendererFor(format).Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("%s-%s.%s", prefix, s.now().Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func parseExportFormat(raw string) (export.Format, error) {
	format, err := export.ParseFormat(raw)
	if err != nil {
		return "", invalidField("format", "must be one of: "+strings.Join([]string{string(export.FormatCSV), string(export.FormatPDF)}, ", "), err)
	}
	return format, nil
}
