package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"crm_dashboard_go/models"

	"gorm.io/gorm"
)

// TaskInput is the payload for creating a reminder
type TaskInput struct {
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	DueDate     time.Time `json:"due_date"`
	Priority    string    `json:"priority"`
	ClientID    *string   `json:"client_id"`
}

func (in TaskInput) Validate() error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return newValidationError("title", "title is required")
	}
	if len(title) > 200 {
		return newValidationError("title", "title must be at most 200 characters")
	}
	if in.DueDate.IsZero() {
		return newValidationError("due_date", "due date is required")
	}
	if in.Priority != "" && !models.IsValidTaskPriority(in.Priority) {
		return newValidationError("priority", "priority must be low, medium or high")
	}
	return nil
}

// TaskQuery narrows a task list
type TaskQuery struct {
	// UserID limits the list to one owner. Empty lists every task.
	UserID string
}

type TaskService struct {
	DB *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{DB: db}
}

// List returns tasks ordered by due date, soonest first, joined with the
// name of their client
func (s *TaskService) List(ctx context.Context, q TaskQuery) ([]models.Task, error) {
	var tasks []models.Task
	query := s.DB.WithContext(ctx).Order("due_date ASC")
	if q.UserID != "" {
		query = query.Where("user_id = ?", q.UserID)
	}
	err := query.Find(&tasks).Error
	observeOp("task", "list", err)
	if err != nil {
		return nil, storeErr("fetch tasks", err)
	}

	if err := s.enrich(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := s.DB.WithContext(ctx).First(&task, "id = ?", id).Error
	observeOp("task", "get", ignoreNotFound(err))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("fetch task", err)
	}

	list := []models.Task{task}
	if err := s.enrich(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Create stores a pending task owned by the acting user
func (s *TaskService) Create(ctx context.Context, in TaskInput, userID string) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, newValidationError("user_id", "acting user is required")
	}

	task := &models.Task{
		Title:    strings.TrimSpace(in.Title),
		DueDate:  in.DueDate,
		Status:   models.TaskStatusPending,
		Priority: in.Priority,
		UserID:   userID,
	}
	if in.Description != nil {
		task.Description = emptyToNil(*in.Description)
	}
	if in.ClientID != nil {
		task.ClientID = emptyToNil(*in.ClientID)
	}

	err := s.DB.WithContext(ctx).Create(task).Error
	observeOp("task", "create", err)
	if err != nil {
		return nil, storeErr("create task", err)
	}

	list := []models.Task{*task}
	if err := s.enrich(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// MarkDone sets a task's status to completed
func (s *TaskService) MarkDone(ctx context.Context, id string) (*models.Task, error) {
	result := s.DB.WithContext(ctx).Model(&models.Task{}).
		Where("id = ?", id).
		Update("status", models.TaskStatusCompleted)
	observeOp("task", "update", result.Error)
	if result.Error != nil {
		return nil, storeErr("update task", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a task. Deleting a missing task succeeds.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	err := s.DB.WithContext(ctx).Delete(&models.Task{}, "id = ?", id).Error
	observeOp("task", "delete", err)
	if err != nil {
		return storeErr("delete task", err)
	}
	return nil
}

// SplitTasks partitions tasks by status, keeping their order
func SplitTasks(tasks []models.Task) (pending, completed []models.Task) {
	pending = make([]models.Task, 0, len(tasks))
	completed = make([]models.Task, 0)
	for _, t := range tasks {
		if t.IsCompleted() {
			completed = append(completed, t)
		} else {
			pending = append(pending, t)
		}
	}
	return pending, completed
}

// enrich joins the client name onto each task in one batched query.
// Tasks whose client no longer exists keep a nil Client.
func (s *TaskService) enrich(ctx context.Context, tasks []models.Task) error {
	seen := make(map[string]bool)
	var ids []string
	for _, t := range tasks {
		if t.ClientID != nil && *t.ClientID != "" && !seen[*t.ClientID] {
			seen[*t.ClientID] = true
			ids = append(ids, *t.ClientID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var clients []models.Client
	err := s.DB.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&clients).Error
	if err != nil {
		return storeErr("fetch task clients", err)
	}

	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	for i := range tasks {
		if tasks[i].ClientID == nil {
			continue
		}
		if name, ok := names[*tasks[i].ClientID]; ok {
			tasks[i].Client = &models.ClientRef{ID: *tasks[i].ClientID, Name: name}
		}
	}
	return nil
}
