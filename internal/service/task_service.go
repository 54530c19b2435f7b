package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/planiapp/tareas-api/internal/auth"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/planiapp/tareas-api/internal/export"
	"github.com/planiapp/tareas-api/internal/mapper"
	"github.com/planiapp/tareas-api/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// validTaskTransitions defines the allowed status changes. Completed and
// rejected are terminal.
var validTaskTransitions = map[domain.TaskStatus][]domain.TaskStatus{
	domain.TaskStatusPending:    {domain.TaskStatusInProgress, domain.TaskStatusRejected},
	domain.TaskStatusInProgress: {domain.TaskStatusCompleted, domain.TaskStatusRejected},
	domain.TaskStatusCompleted:  {},
	domain.TaskStatusRejected:   {},
}

// CanTransition reports whether a task may move from one status to another
func CanTransition(from, to domain.TaskStatus) bool {
	for _, allowed := range validTaskTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateProgress rejects percentages outside [0,100]
func ValidateProgress(progress int) error {
	if progress < domain.MinProgress || progress > domain.MaxProgress {
		return fmt.Errorf("progress must be between %d and %d", domain.MinProgress, domain.MaxProgress)
	}
	return nil
}

// maxQuantity is the first value that no longer fits a decimal(10,2) column
var maxQuantity = decimal.New(1, 8)

// ValidateQuantity rejects negative quantities, more than two decimals and
// values too large for the quantity column
func ValidateQuantity(q decimal.Decimal) error {
	if q.IsNegative() {
		return errors.New("quantity cannot be negative")
	}
	if q.GreaterThanOrEqual(maxQuantity) {
		return errors.New("quantity allows at most 8 integer digits")
	}
	if !q.Equal(q.Truncate(2)) {
		return errors.New("quantity allows at most 2 decimal places")
	}
	return nil
}

// TaskListFilters are the caller-facing filters of the task list
type TaskListFilters struct {
	Status          *domain.TaskStatus
	Priority        *domain.TaskPriority
	Category        *domain.TaskCategory
	DistrictID      *uint
	AssignedStaffID *uint
	Overdue         *bool
	IncludeHidden   bool
	Mine            bool
}

type TaskService struct {
	taskRepo  *repository.TaskRepository
	auditRepo *repository.AuditRepository
	staffRepo *repository.StaffRepository
	geoRepo   *repository.GeographyRepository
	db        *gorm.DB
	logger    *zap.Logger
	now       func() time.Time
}

func NewTaskService(
	taskRepo *repository.TaskRepository,
	auditRepo *repository.AuditRepository,
	staffRepo *repository.StaffRepository,
	geoRepo *repository.GeographyRepository,
	db *gorm.DB,
	logger *zap.Logger,
) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		auditRepo: auditRepo,
		staffRepo: staffRepo,
		geoRepo:   geoRepo,
		db:        db,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *TaskService) today() time.Time {
	return domain.DateOf(s.now())
}

// List returns a page of tasks. Hidden tasks are only included for actors
// that manage tasks.
func (s *TaskService) List(ctx context.Context, actor *auth.UserContext, f TaskListFilters, page, pageSize int) (*domain.PaginatedResponse, error) {
	filters := s.repoFilters(actor, f)
	page, pageSize, _ = repository.Page(page, pageSize)

	tasks, total, err := s.taskRepo.List(ctx, filters, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &domain.PaginatedResponse{
		Data:       mapper.ToTaskSummaryDTOs(tasks, filters.Today),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *TaskService) repoFilters(actor *auth.UserContext, f TaskListFilters) repository.TaskFilters {
	filters := repository.TaskFilters{
		Status:          f.Status,
		Priority:        f.Priority,
		Category:        f.Category,
		DistrictID:      f.DistrictID,
		AssignedStaffID: f.AssignedStaffID,
		Overdue:         f.Overdue,
		IncludeHidden:   f.IncludeHidden && actor != nil && actor.HasPermission(auth.PermissionTasksManage),
		Today:           s.today(),
	}
	if f.Mine && actor != nil && actor.StaffID != nil {
		filters.InvolvedStaffID = actor.StaffID
	}
	return filters
}

func (s *TaskService) GetByID(ctx context.Context, id uint) (*domain.TaskDTO, error) {
	task, err := s.get(ctx, s.taskRepo, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToTaskDTO(task, s.today())
	return &dto, nil
}

func (s *TaskService) get(ctx context.Context, repo *repository.TaskRepository, id uint) (*domain.Task, error) {
	task, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// History returns the audit trail of a task, most recent first
func (s *TaskService) History(ctx context.Context, id uint) ([]domain.AuditEntryDTO, error) {
	if _, err := s.get(ctx, s.taskRepo, id); err != nil {
		return nil, err
	}
	entries, err := s.auditRepo.ListByTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	dtos := make([]domain.AuditEntryDTO, len(entries))
	for i := range entries {
		dtos[i] = mapper.ToAuditEntryDTO(&entries[i])
	}
	return dtos, nil
}

// Export renders every task matching the filters as a workbook
func (s *TaskService) Export(ctx context.Context, actor *auth.UserContext, f TaskListFilters) (*bytes.Buffer, error) {
	filters := s.repoFilters(actor, f)
	tasks, err := s.taskRepo.ListAll(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	buf, err := export.TaskReport(tasks, filters.Today)
	if err != nil {
		return nil, fmt.Errorf("failed to export tasks: %w", err)
	}
	return buf, nil
}

// actorStaffID returns the staff id recorded on audit entries for actor
func actorStaffID(actor *auth.UserContext) (uint, error) {
	if actor == nil {
		return 0, ErrPermissionDenied
	}
	if actor.StaffID == nil {
		return 0, ErrNoStaffProfile
	}
	return *actor.StaffID, nil
}

// authorizeWrite allows task managers on any task and other writers only on
// tasks they supervise, are assigned to, or participate in
func authorizeWrite(actor *auth.UserContext, task *domain.Task) (uint, error) {
	staffID, err := actorStaffID(actor)
	if err != nil {
		return 0, err
	}
	if actor.HasPermission(auth.PermissionTasksManage) {
		return staffID, nil
	}
	if actor.HasPermission(auth.PermissionTasksWrite) && task.Involves(staffID) {
		return staffID, nil
	}
	return 0, ErrPermissionDenied
}

// checkRefs checks that the location and the referenced staff exist
func (s *TaskService) checkRefs(ctx context.Context, task *domain.Task, participantIDs []uint, verr *ValidationError) error {
	if _, err := s.geoRepo.GetDistrict(ctx, task.DistrictID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to get district: %w", err)
		}
		verr.Add("districtId", "District does not exist")
	}
	locality, err := s.geoRepo.GetLocality(ctx, task.LocalityID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		verr.Add("localityId", "Locality does not exist")
	case err != nil:
		return fmt.Errorf("failed to get locality: %w", err)
	case locality.DistrictID != task.DistrictID:
		verr.Add("localityId", "Locality does not belong to the selected district")
	}

	for field, id := range map[string]uint{"supervisorId": task.SupervisorID, "assignedStaffId": task.AssignedStaffID} {
		n, err := s.staffRepo.CountExisting(ctx, []uint{id})
		if err != nil {
			return fmt.Errorf("failed to check staff: %w", err)
		}
		if n == 0 {
			verr.Add(field, "Staff member does not exist")
		}
	}

	unique := uniqueIDs(participantIDs)
	if len(unique) > 0 {
		n, err := s.staffRepo.CountExisting(ctx, unique)
		if err != nil {
			return fmt.Errorf("failed to check participants: %w", err)
		}
		if n != int64(len(unique)) {
			verr.Add("participantIds", "One or more participants do not exist")
		}
	}
	return nil
}

func validateTaskFields(task *domain.Task, verr *ValidationError) {
	if strings.TrimSpace(task.Title) == "" {
		verr.Add("title", "This field is required")
	}
	if strings.TrimSpace(task.Description) == "" {
		verr.Add("description", "This field is required")
	}
	if !task.Category.IsValid() {
		verr.Add("category", "Invalid category")
	}
	if !task.Priority.IsValid() {
		verr.Add("priority", "Invalid priority")
	}
	if strings.TrimSpace(task.UnitOfMeasure) == "" {
		verr.Add("unitOfMeasure", "This field is required")
	}
	if err := ValidateProgress(task.ProgressPercent); err != nil {
		verr.Add("progressPercent", err.Error())
	}
	if err := ValidateQuantity(task.Quantity); err != nil {
		verr.Add("quantity", err.Error())
	}
	if !task.StartDate.IsZero() && !task.ExpectedEndDate.IsZero() && task.ExpectedEndDate.Before(task.StartDate) {
		verr.Add("expectedEndDate", "Expected end date cannot precede the start date")
	}
}

func parseDateField(value, field string, verr *ValidationError) time.Time {
	d, err := domain.ParseDate(value)
	if err != nil {
		verr.Add(field, "Invalid date, expected YYYY-MM-DD")
		return time.Time{}
	}
	return d
}

// Create validates and stores a new pending task with its creation audit entry
func (s *TaskService) Create(ctx context.Context, actor *auth.UserContext, req *domain.CreateTaskRequest) (*domain.TaskDTO, error) {
	staffID, err := actorStaffID(actor)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	priority := req.Priority
	if priority == "" {
		priority = domain.TaskPriorityNormal
	}
	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}

	task := &domain.Task{
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		Category:        req.Category,
		Priority:        priority,
		Status:          domain.TaskStatusPending,
		DistrictID:      req.DistrictID,
		LocalityID:      req.LocalityID,
		StartDate:       parseDateField(req.StartDate, "startDate", verr),
		ExpectedEndDate: parseDateField(req.ExpectedEndDate, "expectedEndDate", verr),
		SupervisorID:    req.SupervisorID,
		AssignedStaffID: req.AssignedStaffID,
		UnitOfMeasure:   strings.TrimSpace(req.UnitOfMeasure),
		Quantity:        req.Quantity,
		ProgressPercent: req.ProgressPercent,
		Visible:         visible,
		Notes:           req.Notes,
	}
	validateTaskFields(task, verr)
	participants := uniqueIDs(req.ParticipantIDs)
	if err := s.checkRefs(ctx, task, participants, verr); err != nil {
		return nil, err
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taskRepo := s.taskRepo.WithTx(tx)
		if err := taskRepo.Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		if err := taskRepo.ReplaceParticipants(ctx, task.ID, participants); err != nil {
			return fmt.Errorf("failed to set participants: %w", err)
		}
		return s.appendAudit(ctx, tx, task.ID, staffID, domain.AuditActionCreation,
			fmt.Sprintf("Task created: %s", task.Title), nil, taskSnapshot(task, participants))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task created", zap.Uint("task_id", task.ID), zap.Uint("actor_staff_id", staffID))
	return s.GetByID(ctx, task.ID)
}

// Update applies the fields present in req to a non-terminal task and
// records the changed fields. A request that changes nothing writes nothing.
func (s *TaskService) Update(ctx context.Context, actor *auth.UserContext, id uint, req *domain.UpdateTaskRequest) (*domain.TaskDTO, error) {
	task, err := s.get(ctx, s.taskRepo, id)
	if err != nil {
		return nil, err
	}
	staffID, err := authorizeWrite(actor, task)
	if err != nil {
		return nil, err
	}
	if task.Status.IsTerminal() {
		return nil, ErrTaskTerminal
	}

	participants := task.ParticipantIDs()
	before := taskSnapshot(task, participants)

	verr := &ValidationError{}
	applyTaskUpdate(task, req, verr)
	if req.ParticipantIDs != nil {
		participants = uniqueIDs(*req.ParticipantIDs)
	}
	validateTaskFields(task, verr)
	if err := s.checkRefs(ctx, task, participants, verr); err != nil {
		return nil, err
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	prev, next := diffSnapshots(before, taskSnapshot(task, participants))
	if len(next) == 0 {
		return s.GetByID(ctx, id)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taskRepo := s.taskRepo.WithTx(tx)
		if err := taskRepo.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		if _, changed := next["participantIds"]; changed {
			if err := taskRepo.ReplaceParticipants(ctx, task.ID, participants); err != nil {
				return fmt.Errorf("failed to set participants: %w", err)
			}
		}
		return s.appendAudit(ctx, tx, task.ID, staffID, domain.AuditActionUpdate,
			fmt.Sprintf("Task updated: %s", strings.Join(sortedKeys(next), ", ")), prev, next)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task updated", zap.Uint("task_id", id), zap.Strings("fields", sortedKeys(next)))
	return s.GetByID(ctx, id)
}

func applyTaskUpdate(task *domain.Task, req *domain.UpdateTaskRequest, verr *ValidationError) {
	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		task.Category = *req.Category
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.DistrictID != nil {
		task.DistrictID = *req.DistrictID
		task.District = nil
	}
	if req.LocalityID != nil {
		task.LocalityID = *req.LocalityID
		task.Locality = nil
	}
	if req.StartDate != nil {
		task.StartDate = parseDateField(*req.StartDate, "startDate", verr)
	}
	if req.ExpectedEndDate != nil {
		task.ExpectedEndDate = parseDateField(*req.ExpectedEndDate, "expectedEndDate", verr)
	}
	if req.SupervisorID != nil {
		task.SupervisorID = *req.SupervisorID
		task.Supervisor = nil
	}
	if req.UnitOfMeasure != nil {
		task.UnitOfMeasure = strings.TrimSpace(*req.UnitOfMeasure)
	}
	if req.Quantity != nil {
		task.Quantity = *req.Quantity
	}
	if req.ProgressPercent != nil {
		task.ProgressPercent = *req.ProgressPercent
	}
	if req.Visible != nil {
		task.Visible = *req.Visible
	}
	if req.Notes != nil {
		task.Notes = *req.Notes
	}
}

// Start moves a pending task to in progress
func (s *TaskService) Start(ctx context.Context, actor *auth.UserContext, id uint) (*domain.TaskDTO, error) {
	return s.transition(ctx, actor, id, domain.TaskStatusInProgress, domain.AuditActionUpdate,
		func(task *domain.Task) (string, error) {
			return "Task started", nil
		})
}

// Complete closes a task whose progress is 100 and stamps the actual end date
func (s *TaskService) Complete(ctx context.Context, actor *auth.UserContext, id uint) (*domain.TaskDTO, error) {
	return s.transition(ctx, actor, id, domain.TaskStatusCompleted, domain.AuditActionCompletion,
		func(task *domain.Task) (string, error) {
			if !task.IsCompletable() {
				return "", ErrTaskNotCompletable
			}
			today := s.today()
			task.ActualEndDate = &today
			return "Task completed", nil
		})
}

// Reject closes a task without completing it and keeps the reason
func (s *TaskService) Reject(ctx context.Context, actor *auth.UserContext, id uint, req *domain.RejectTaskRequest) (*domain.TaskDTO, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, &ValidationError{Fields: map[string]string{"reason": "This field is required"}}
	}
	return s.transition(ctx, actor, id, domain.TaskStatusRejected, domain.AuditActionRejection,
		func(task *domain.Task) (string, error) {
			task.NonCompletionReason = reason
			return fmt.Sprintf("Task rejected: %s", reason), nil
		})
}

func (s *TaskService) transition(
	ctx context.Context,
	actor *auth.UserContext,
	id uint,
	to domain.TaskStatus,
	action domain.AuditAction,
	apply func(task *domain.Task) (string, error),
) (*domain.TaskDTO, error) {
	task, err := s.get(ctx, s.taskRepo, id)
	if err != nil {
		return nil, err
	}
	staffID, err := authorizeWrite(actor, task)
	if err != nil {
		return nil, err
	}
	if !CanTransition(task.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, task.Status, to)
	}

	participants := task.ParticipantIDs()
	before := taskSnapshot(task, participants)
	from := task.Status

	description, err := apply(task)
	if err != nil {
		return nil, err
	}
	task.Status = to
	prev, next := diffSnapshots(before, taskSnapshot(task, participants))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.taskRepo.WithTx(tx).Update(ctx, task); err != nil {
			return fmt.Errorf("failed to update task status: %w", err)
		}
		return s.appendAudit(ctx, tx, task.ID, staffID, action, description, prev, next)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task status changed",
		zap.Uint("task_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return s.GetByID(ctx, id)
}

// Reassign hands a task to another staff member and remembers the previous
// assignee. Only task managers and the task's supervisor may reassign.
func (s *TaskService) Reassign(ctx context.Context, actor *auth.UserContext, id uint, req *domain.ReassignTaskRequest) (*domain.TaskDTO, error) {
	task, err := s.get(ctx, s.taskRepo, id)
	if err != nil {
		return nil, err
	}
	staffID, err := actorStaffID(actor)
	if err != nil {
		return nil, err
	}
	if !actor.HasPermission(auth.PermissionTasksManage) && task.SupervisorID != staffID {
		return nil, ErrPermissionDenied
	}
	if task.Status.IsTerminal() {
		return nil, ErrTaskTerminal
	}

	if req.AssignedStaffID == task.AssignedStaffID {
		return nil, &ValidationError{Fields: map[string]string{"assignedStaffId": "Task is already assigned to this staff member"}}
	}
	newAssignee, err := s.staffRepo.GetByID(ctx, req.AssignedStaffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Fields: map[string]string{"assignedStaffId": "Staff member does not exist"}}
		}
		return nil, fmt.Errorf("failed to get staff: %w", err)
	}

	participants := task.ParticipantIDs()
	before := taskSnapshot(task, participants)
	previous := task.AssignedStaffID

	task.ReassignedStaffID = &previous
	task.ReassignedStaff = nil
	task.AssignedStaffID = newAssignee.ID
	task.AssignedStaff = nil
	prev, next := diffSnapshots(before, taskSnapshot(task, participants))

	description := fmt.Sprintf("Task reassigned to %s", newAssignee.FullName())
	if note := strings.TrimSpace(req.Note); note != "" {
		description += ": " + note
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.taskRepo.WithTx(tx).Update(ctx, task); err != nil {
			return fmt.Errorf("failed to reassign task: %w", err)
		}
		return s.appendAudit(ctx, tx, task.ID, staffID, domain.AuditActionReassignment, description, prev, next)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task reassigned",
		zap.Uint("task_id", id),
		zap.Uint("from_staff_id", previous),
		zap.Uint("to_staff_id", newAssignee.ID),
	)
	return s.GetByID(ctx, id)
}

func (s *TaskService) appendAudit(
	ctx context.Context,
	tx *gorm.DB,
	taskID, staffID uint,
	action domain.AuditAction,
	description string,
	previous, current map[string]interface{},
) error {
	entry := &domain.AuditEntry{
		TaskID:      taskID,
		StaffID:     staffID,
		Action:      action,
		Description: description,
		PerformedAt: s.now().UTC(),
	}
	var err error
	if entry.PreviousValues, err = snapshotJSON(previous); err != nil {
		return err
	}
	if entry.NewValues, err = snapshotJSON(current); err != nil {
		return err
	}
	if err := s.auditRepo.WithTx(tx).Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func snapshotJSON(values map[string]interface{}) (datatypes.JSON, error) {
	if len(values) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit snapshot: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// taskSnapshot captures the audited fields of a task
func taskSnapshot(task *domain.Task, participantIDs []uint) map[string]interface{} {
	var actualEnd, reassigned interface{}
	if task.ActualEndDate != nil {
		actualEnd = task.ActualEndDate.Format(domain.DateLayout)
	}
	if task.ReassignedStaffID != nil {
		reassigned = *task.ReassignedStaffID
	}
	return map[string]interface{}{
		"title":               task.Title,
		"description":         task.Description,
		"category":            string(task.Category),
		"priority":            string(task.Priority),
		"status":              string(task.Status),
		"districtId":          task.DistrictID,
		"localityId":          task.LocalityID,
		"startDate":           task.StartDate.Format(domain.DateLayout),
		"expectedEndDate":     task.ExpectedEndDate.Format(domain.DateLayout),
		"actualEndDate":       actualEnd,
		"participantIds":      uniqueIDs(participantIDs),
		"supervisorId":        task.SupervisorID,
		"assignedStaffId":     task.AssignedStaffID,
		"reassignedStaffId":   reassigned,
		"unitOfMeasure":       task.UnitOfMeasure,
		"quantity":            task.Quantity.StringFixed(2),
		"progressPercent":     task.ProgressPercent,
		"visible":             task.Visible,
		"nonCompletionReason": task.NonCompletionReason,
		"notes":               task.Notes,
	}
}

// diffSnapshots returns the before and after values of the changed keys
func diffSnapshots(before, after map[string]interface{}) (map[string]interface{}, map[string]interface{}) {
	prev := map[string]interface{}{}
	next := map[string]interface{}{}
	for key, value := range after {
		if !reflect.DeepEqual(before[key], value) {
			prev[key] = before[key]
			next[key] = value
		}
	}
	return prev, next
}

// uniqueIDs returns ids sorted without duplicates; never nil
func uniqueIDs(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
