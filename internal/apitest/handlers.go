package apitest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/propdesk/cli/internal/api"
	"gorm.io/gorm"
)

const (
	defaultLimit = 50
	maxLimit     = 500
	dateLayout   = "2006-01-02"
)

func (s *Server) routes() {
	r := s.app.Group("/api")

	r.Get("/version", s.version)
	r.Post("/auth/login", s.login)
	r.Get("/auth/me", s.requireAuth, s.me)

	r.Get("/properties", s.requireAuth, s.listProperties)
	r.Get("/properties/search", s.requireAuth, s.searchProperties)
	r.Get("/properties/:id/activity", s.requireAuth, s.listActivity)
	r.Post("/properties/:id/photos", s.requireAuth, s.uploadPhoto)

	r.Get("/tenant/messages/:thread", s.requireAuth, s.listMessages)
	r.Post("/tenant/messages/:thread", s.requireAuth, s.sendMessage)

	r.Get("/:role/activity", s.requireAuth, s.requireRole, s.listActivity)
	r.Get("/:role/activity/export", s.requireAuth, s.requireRole, s.exportActivity)
	r.Get("/:role/tasks", s.requireAuth, s.requireRole, s.listTasks)
	r.Patch("/:role/tasks/:id", s.requireAuth, s.requireRole, s.updateTask)
	r.Delete("/:role/tasks/:id", s.requireAuth, s.requireRole, s.deleteTask)
}

func (s *Server) requireRole(c *fiber.Ctx) error {
	role := c.Params("role")
	for _, r := range api.Roles() {
		if string(r) == role {
			return c.Next()
		}
	}
	return errorJSON(c, fiber.StatusNotFound, "not found")
}

func (s *Server) version(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"version": "1.4.0", "apiVersion": "v1"})
}

func (s *Server) login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if !strings.EqualFold(req.Email, s.User.Email) || req.Password != Password {
		return errorJSON(c, fiber.StatusUnauthorized, "invalid email or password")
	}

	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	return success(c, fiber.StatusOK, fiber.Map{"token": token, "user": s.User})
}

func (s *Server) me(c *fiber.Ctx) error {
	return success(c, fiber.StatusOK, s.User)
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// activityQuery applies the role scope and filters shared by list and export.
func (s *Server) activityQuery(c *fiber.Ctx) (*gorm.DB, error) {
	q := s.DB.Model(&ActivityRecord{})

	if propertyID := c.Params("id"); propertyID != "" {
		q = q.Where("property_id = ?", propertyID)
	} else if role := c.Params("role"); role != string(api.RoleAdmin) {
		q = q.Where("role = ?", role)
	}

	if v := c.Query("action"); v != "" {
		q = q.Where("action = ?", v)
	}
	if v := c.Query("resourceId"); v != "" {
		q = q.Where("resource_id = ?", v)
	}
	if v := c.Query("userId"); v != "" {
		q = q.Where("actor_id = ?", v)
	}
	if v := strings.TrimSpace(c.Query("q")); v != "" {
		like := "%" + v + "%"
		q = q.Where("(action LIKE ? OR actor_name LIKE ? OR actor_email LIKE ? OR resource_title LIKE ? OR resource_address LIKE ?)",
			like, like, like, like, like)
	}
	if v := c.Query("startDate"); v != "" {
		start, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, errors.New("startDate must be YYYY-MM-DD")
		}
		q = q.Where("created_at >= ?", start)
	}
	if v := c.Query("endDate"); v != "" {
		end, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, errors.New("endDate must be YYYY-MM-DD")
		}
		q = q.Where("created_at < ?", end.Add(24*time.Hour))
	}
	return q, nil
}

func (s *Server) listActivity(c *fiber.Ctx) error {
	q, err := s.activityQuery(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	limit, offset := pagination(c)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed loading activity")
	}
	var rows []ActivityRecord
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed loading activity")
	}

	entries := make([]api.ActivityEntry, len(rows))
	for i, r := range rows {
		entries[i] = r.entry()
	}
	return s.collection(c, entries, limit, offset, total)
}

func (s *Server) exportActivity(c *fiber.Ctx) error {
	format := strings.ToLower(strings.TrimSpace(c.Query("format", "csv")))
	if format != "csv" && format != "json" {
		return errorJSON(c, fiber.StatusBadRequest, "format must be csv or json")
	}
	q, err := s.activityQuery(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	var rows []ActivityRecord
	if err := q.Order("created_at DESC").Limit(10000).Find(&rows).Error; err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed loading activity")
	}

	if format == "json" {
		entries := make([]api.ActivityEntry, len(rows))
		for i, r := range rows {
			entries[i] = r.entry()
		}
		c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "activity.json"))
		return success(c, fiber.StatusOK, entries)
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "activity.csv"))

	writer := csv.NewWriter(c.Response().BodyWriter())
	_ = writer.Write([]string{"Timestamp", "Action", "Resource Type", "Resource ID", "IP Address", "Details"})
	for _, r := range rows {
		resourceID := ""
		if r.ResourceID != nil {
			resourceID = *r.ResourceID
		}
		_ = writer.Write([]string{
			r.CreatedAt.Format(time.RFC3339),
			r.Action,
			r.ResourceType,
			resourceID,
			r.IPAddress,
			api.DetailString(r.Details),
		})
	}
	writer.Flush()
	return nil
}

func (s *Server) listProperties(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	q := s.DB.Model(&PropertyRecord{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed loading properties")
	}
	var rows []PropertyRecord
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed loading properties")
	}
	return s.collection(c, properties(rows), limit, offset, total)
}

func (s *Server) searchProperties(c *fiber.Ctx) error {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		return errorJSON(c, fiber.StatusBadRequest, "q is required")
	}
	like := "%" + term + "%"

	var rows []PropertyRecord
	if err := s.DB.Where("title LIKE ? OR address LIKE ?", like, like).
		Order("created_at DESC").
		Limit(maxLimit).
		Find(&rows).Error; err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed searching properties")
	}
	return s.collection(c, properties(rows), maxLimit, 0, int64(len(rows)))
}

func properties(rows []PropertyRecord) []api.Property {
	out := make([]api.Property, len(rows))
	for i, r := range rows {
		out[i] = r.property()
	}
	return out
}

func (s *Server) uploadPhoto(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "property not found")
	}
	var property PropertyRecord
	if err := s.DB.First(&property, "id = ?", propertyID).Error; err != nil {
		return errorJSON(c, fiber.StatusNotFound, "property not found")
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "photo is required")
	}

	photo := PhotoRecord{
		PropertyID: propertyID,
		FileName:   file.Filename,
		Size:       file.Size,
		Caption:    c.FormValue("caption"),
	}
	if err := s.DB.Create(&photo).Error; err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed saving photo")
	}

	s.logActivity(ActivityRecord{
		Role:          string(api.RoleOwner),
		PropertyID:    propertyID.String(),
		Action:        "upload_photo",
		ResourceType:  "property",
		ResourceID:    strPtr(propertyID.String()),
		ResourceTitle: property.Title,
		Details:       map[string]interface{}{"fileName": file.Filename},
		IPAddress:     c.IP(),
	})
	return success(c, fiber.StatusCreated, fiber.Map{
		"id":       photo.ID,
		"fileName": photo.FileName,
		"size":     photo.Size,
		"caption":  photo.Caption,
	})
}

func (s *Server) listMessages(c *fiber.Ctx) error {
	thread := c.Params("thread")
	limit, offset := pagination(c)
	q := s.DB.Model(&MessageRecord{}).Where("thread_id = ?", thread)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed loading messages")
	}
	var rows []MessageRecord
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed loading messages")
	}

	msgs := make([]api.Message, len(rows))
	for i, r := range rows {
		msgs[i] = r.message()
	}
	return s.collection(c, msgs, limit, offset, total)
}

func (s *Server) sendMessage(c *fiber.Ctx) error {
	var req struct {
		Body string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Body) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "body is required")
	}

	msg := MessageRecord{
		ThreadID:    c.Params("thread"),
		SenderID:    string(s.User.ID),
		SenderName:  s.User.FirstName + " " + s.User.LastName,
		SenderEmail: s.User.Email,
		Body:        req.Body,
		CreatedAt:   s.next(),
	}
	if err := s.DB.Create(&msg).Error; err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed sending message")
	}

	s.logActivity(ActivityRecord{
		Role:         string(api.RoleTenant),
		Action:       "send_message",
		ResourceType: "message",
		ResourceID:   strPtr(msg.ID.String()),
		Details:      map[string]interface{}{"threadId": msg.ThreadID},
		IPAddress:    c.IP(),
	})
	return success(c, fiber.StatusCreated, msg.message())
}

func (s *Server) listTasks(c *fiber.Ctx) error {
	q := s.DB.Model(&TaskRecord{}).Where("role = ?", c.Params("role"))
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	limit, offset := pagination(c)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed loading tasks")
	}
	var rows []TaskRecord
	if err := q.Order("updated_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed loading tasks")
	}

	tasks := make([]api.Task, len(rows))
	for i, r := range rows {
		tasks[i] = r.task()
	}
	return s.collection(c, tasks, limit, offset, total)
}

func (s *Server) findTask(c *fiber.Ctx) (*TaskRecord, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	var task TaskRecord
	if err := s.DB.First(&task, "id = ? AND role = ?", id, c.Params("role")).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Server) updateTask(c *fiber.Ctx) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	switch req.Status {
	case api.TaskOpen, api.TaskInProgress, api.TaskCompleted, api.TaskCancelled:
	default:
		return errorJSON(c, fiber.StatusBadRequest, "invalid status")
	}

	task, err := s.findTask(c)
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "task not found")
	}
	from := task.Status
	task.Status = req.Status
	task.UpdatedAt = s.next()
	if err := s.DB.Save(task).Error; err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed updating task")
	}

	s.logActivity(ActivityRecord{
		Role:          c.Params("role"),
		PropertyID:    task.PropertyID,
		Action:        "update_task",
		ResourceType:  "task",
		ResourceID:    strPtr(task.ID.String()),
		ResourceTitle: task.Title,
		Details:       map[string]interface{}{"from": from, "status": task.Status},
		IPAddress:     c.IP(),
	})
	return success(c, fiber.StatusOK, task.task())
}

func (s *Server) deleteTask(c *fiber.Ctx) error {
	task, err := s.findTask(c)
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "task not found")
	}
	if err := s.DB.Delete(task).Error; err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed deleting task")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) logActivity(rec ActivityRecord) {
	rec.ActorID = string(s.User.ID)
	rec.ActorName = s.User.FirstName + " " + s.User.LastName
	rec.ActorEmail = s.User.Email
	rec.ActorRole = s.User.Role
	s.AddActivity(rec)
}

func strPtr(s string) *string {
	return &s
}
