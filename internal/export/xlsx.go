// Package export renders directory and task listings as .xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the produced workbooks
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	StaffSheet = "Personal"
	TaskSheet  = "Tareas"
)

var staffHeaders = []string{
	"Cédula", "Apellidos", "Nombres", "Usuario", "Correo", "Rol",
	"Dependencia", "Teléfono", "Fecha de ingreso", "Primer acceso",
}

var taskHeaders = []string{
	"ID", "Título", "Categoría", "Prioridad", "Estado", "Municipio", "Parroquia",
	"Inicio", "Fin previsto", "Fin real", "Supervisor", "Asignado", "Unidad",
	"Cantidad", "Avance %", "Banda", "Vencida", "Visible",
}

// StaffDirectory writes one row per staff member
func StaffDirectory(staff []domain.Staff) (*bytes.Buffer, error) {
	rows := make([][]interface{}, 0, len(staff))
	for i := range staff {
		s := &staff[i]
		var username, email, role, department, firstAccess string
		if s.Account != nil {
			username = s.Account.Username
			email = s.Account.Email
			role = string(s.Account.Role)
		}
		if s.Department != nil {
			department = s.Department.Name
		}
		if s.FirstAccessAt != nil {
			firstAccess = s.FirstAccessAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []interface{}{
			s.NationalID, s.LastName, s.FirstName, username, email, role,
			department, s.Phone, s.HireDate.Format(domain.DateLayout), firstAccess,
		})
	}
	return workbook(StaffSheet, staffHeaders, rows)
}

// TaskReport writes one row per task including the derived fields as of today
func TaskReport(tasks []domain.Task, today time.Time) (*bytes.Buffer, error) {
	rows := make([][]interface{}, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		var district, locality, supervisor, assignee, actualEnd string
		if t.District != nil {
			district = t.District.Name
		}
		if t.Locality != nil {
			locality = t.Locality.Name
		}
		if t.Supervisor != nil {
			supervisor = t.Supervisor.FullName()
		}
		if t.AssignedStaff != nil {
			assignee = t.AssignedStaff.FullName()
		}
		if t.ActualEndDate != nil {
			actualEnd = t.ActualEndDate.Format(domain.DateLayout)
		}
		rows = append(rows, []interface{}{
			t.ID, t.Title, string(t.Category), string(t.Priority), string(t.Status),
			district, locality,
			t.StartDate.Format(domain.DateLayout), t.ExpectedEndDate.Format(domain.DateLayout), actualEnd,
			supervisor, assignee, t.UnitOfMeasure,
			t.Quantity.InexactFloat64(), t.ProgressPercent, string(t.Band()),
			yesNo(t.IsOverdue(today)), yesNo(t.Visible),
		})
	}
	return workbook(TaskSheet, taskHeaders, rows)
}

func yesNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}

func workbook(sheet string, headers []string, rows [][]interface{}) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.AutoFilter(sheet, "A1:"+lastCol+"1", nil); err != nil {
		return nil, fmt.Errorf("failed to add filter: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}
