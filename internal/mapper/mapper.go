package mapper

import (
	"encoding/json"
	"time"

	"github.com/planiapp/tareas-api/internal/domain"
)

func formatDate(t time.Time) string {
	return t.Format(domain.DateLayout)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func ToRegionDTO(r *domain.Region) domain.RegionDTO {
	return domain.RegionDTO{ID: r.ID, Name: r.Name, Description: r.Description}
}

func ToDistrictDTO(d *domain.District) domain.DistrictDTO {
	dto := domain.DistrictDTO{ID: d.ID, RegionID: d.RegionID, Name: d.Name, Code: d.Code}
	if d.Region != nil {
		dto.RegionName = d.Region.Name
	}
	return dto
}

func ToLocalityDTO(l *domain.Locality) domain.LocalityDTO {
	return domain.LocalityDTO{
		ID:           l.ID,
		DistrictID:   l.DistrictID,
		Name:         l.Name,
		Code:         l.Code,
		DistrictCode: l.DistrictCode,
	}
}

func ToOrganizationDTO(o *domain.Organization) *domain.OrganizationDTO {
	if o == nil {
		return nil
	}
	return &domain.OrganizationDTO{
		ID:        o.ID,
		Name:      o.Name,
		Address:   o.Address,
		Phone:     o.Phone,
		Email:     o.Email,
		Website:   o.Website,
		LogoPath:  o.LogoPath,
		CreatedAt: formatTime(o.CreatedAt),
	}
}

func ToDepartmentDTO(d *domain.Department, staffCount int64) domain.DepartmentDTO {
	dto := domain.DepartmentDTO{
		ID:            d.ID,
		Name:          d.Name,
		Type:          d.Type,
		CoordinatorID: d.CoordinatorID,
		Description:   d.Description,
		StaffCount:    staffCount,
		CreatedAt:     formatTime(d.CreatedAt),
	}
	if d.Coordinator != nil {
		dto.CoordinatorName = d.Coordinator.FullName()
	}
	return dto
}

// ToStaffRefDTO returns a compact reference, or nil for a missing staff member
func ToStaffRefDTO(s *domain.Staff) *domain.StaffRefDTO {
	if s == nil {
		return nil
	}
	return &domain.StaffRefDTO{ID: s.ID, FullName: s.FullName()}
}

func staffRef(s *domain.Staff, id uint) domain.StaffRefDTO {
	if ref := ToStaffRefDTO(s); ref != nil {
		return *ref
	}
	return domain.StaffRefDTO{ID: id}
}

func ToStaffDTO(s *domain.Staff) domain.StaffDTO {
	dto := domain.StaffDTO{
		ID:                s.ID,
		NationalID:        s.NationalID,
		FirstName:         s.FirstName,
		LastName:          s.LastName,
		FullName:          s.FullName(),
		BirthDate:         formatDate(s.BirthDate),
		HireDate:          formatDate(s.HireDate),
		DepartmentID:      s.DepartmentID,
		Phone:             s.Phone,
		Address:           s.Address,
		AccountCreated:    s.AccountCreated,
		TemporaryPassword: s.TemporaryPassword,
		FirstAccessAt:     formatTimePtr(s.FirstAccessAt),
		CreatedAt:         formatTime(s.CreatedAt),
	}
	if s.Department != nil {
		dto.DepartmentName = s.Department.Name
	}
	if s.Account != nil {
		dto.Username = s.Account.Username
		dto.Email = s.Account.Email
		dto.Role = s.Account.Role
	}
	return dto
}

func ToTaskSummaryDTO(t *domain.Task, today time.Time) domain.TaskSummaryDTO {
	return domain.TaskSummaryDTO{
		ID:              t.ID,
		Title:           t.Title,
		Category:        t.Category,
		Priority:        t.Priority,
		Status:          t.Status,
		ExpectedEndDate: formatDate(t.ExpectedEndDate),
		ProgressPercent: t.ProgressPercent,
		ProgressBand:    t.Band(),
		Overdue:         t.IsOverdue(today),
		AssignedStaff:   ToStaffRefDTO(t.AssignedStaff),
	}
}

func ToTaskSummaryDTOs(tasks []domain.Task, today time.Time) []domain.TaskSummaryDTO {
	out := make([]domain.TaskSummaryDTO, len(tasks))
	for i := range tasks {
		out[i] = ToTaskSummaryDTO(&tasks[i], today)
	}
	return out
}

func ToTaskDTO(t *domain.Task, today time.Time) domain.TaskDTO {
	participants := make([]domain.StaffRefDTO, len(t.Participants))
	for i := range t.Participants {
		participants[i] = staffRef(&t.Participants[i], t.Participants[i].ID)
	}

	dto := domain.TaskDTO{
		ID:                  t.ID,
		Title:               t.Title,
		Description:         t.Description,
		Category:            t.Category,
		Priority:            t.Priority,
		Status:              t.Status,
		DistrictID:          t.DistrictID,
		LocalityID:          t.LocalityID,
		StartDate:           formatDate(t.StartDate),
		ExpectedEndDate:     formatDate(t.ExpectedEndDate),
		ActualEndDate:       formatDatePtr(t.ActualEndDate),
		Participants:        participants,
		Supervisor:          staffRef(t.Supervisor, t.SupervisorID),
		AssignedStaff:       staffRef(t.AssignedStaff, t.AssignedStaffID),
		ReassignedStaff:     ToStaffRefDTO(t.ReassignedStaff),
		UnitOfMeasure:       t.UnitOfMeasure,
		Quantity:            t.Quantity,
		ProgressPercent:     t.ProgressPercent,
		ProgressBand:        t.Band(),
		Overdue:             t.IsOverdue(today),
		Completable:         t.IsCompletable(),
		Visible:             t.Visible,
		NonCompletionReason: t.NonCompletionReason,
		Notes:               t.Notes,
		CreatedAt:           formatTime(t.CreatedAt),
	}
	if t.District != nil {
		dto.DistrictName = t.District.Name
	}
	if t.Locality != nil {
		dto.LocalityName = t.Locality.Name
	}
	if dto.ReassignedStaff == nil && t.ReassignedStaffID != nil {
		dto.ReassignedStaff = &domain.StaffRefDTO{ID: *t.ReassignedStaffID}
	}
	return dto
}

func ToAuditEntryDTO(e *domain.AuditEntry) domain.AuditEntryDTO {
	dto := domain.AuditEntryDTO{
		ID:          e.ID,
		TaskID:      e.TaskID,
		StaffID:     e.StaffID,
		Action:      e.Action,
		Description: e.Description,
		PerformedAt: formatTime(e.PerformedAt),
	}
	if e.Staff != nil {
		dto.StaffName = e.Staff.FullName()
	}
	if len(e.PreviousValues) > 0 {
		dto.PreviousValues = json.RawMessage(e.PreviousValues)
	}
	if len(e.NewValues) > 0 {
		dto.NewValues = json.RawMessage(e.NewValues)
	}
	return dto
}
