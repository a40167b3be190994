package controllers

import (
	"sata_school_go/database"
	"sata_school_go/models"
	"sata_school_go/utils"

	"github.com/gofiber/fiber/v2"
)

type GroupController struct{}

type groupRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Level string `json:"level"`
}

// GetGroups lists the school's groups with student counts
func (gc *GroupController) GetGroups(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var groups []models.Group
	if err := database.DB.Where("school_id = ?", schoolID).Order("name ASC").Find(&groups).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch groups"})
	}

	type countRow struct {
		GroupID uint
		Count   int64
	}
	var counts []countRow
	database.DB.Model(&models.Student{}).
		Select("group_id, COUNT(*) AS count").
		Where("school_id = ? AND is_active = ?", schoolID, true).
		Group("group_id").Scan(&counts)
	countByGroup := make(map[uint]int64, len(counts))
	for _, r := range counts {
		countByGroup[r.GroupID] = r.Count
	}

	out := make([]fiber.Map, 0, len(groups))
	for _, g := range groups {
		out = append(out, fiber.Map{
			"id":            g.ID,
			"name":          g.Name,
			"level":         g.Level,
			"student_count": countByGroup[g.ID],
		})
	}
	return c.JSON(fiber.Map{"groups": out})
}

// GetGroup returns one group with its students
func (gc *GroupController) GetGroup(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group ID"})
	}

	var group models.Group
	if err := database.DB.Preload("Students").
		Where("id = ? AND school_id = ?", id, schoolID).First(&group).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Group not found"})
	}
	return c.JSON(fiber.Map{"group": group})
}

// CreateGroup adds a group
func (gc *GroupController) CreateGroup(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req groupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	group := models.Group{
		SchoolID: schoolID,
		Name:     utils.SanitizeString(req.Name),
		Level:    utils.SanitizeString(req.Level),
	}
	if err := database.DB.Create(&group).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create group"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"group": group})
}

// UpdateGroup renames a group
func (gc *GroupController) UpdateGroup(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group ID"})
	}

	var req groupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	result := database.DB.Model(&models.Group{}).
		Where("id = ? AND school_id = ?", id, schoolID).
		Updates(map[string]interface{}{
			"name":  utils.SanitizeString(req.Name),
			"level": utils.SanitizeString(req.Level),
		})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update group"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Group not found"})
	}
	return c.JSON(fiber.Map{"message": "Group updated"})
}

// DeleteGroup removes an empty group
func (gc *GroupController) DeleteGroup(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group ID"})
	}

	var studentCount int64
	database.DB.Model(&models.Student{}).Where("group_id = ?", id).Count(&studentCount)
	if studentCount > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Group still has students"})
	}

	result := database.DB.Where("id = ? AND school_id = ?", id, schoolID).Delete(&models.Group{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete group"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Group not found"})
	}
	return c.JSON(fiber.Map{"message": "Group deleted"})
}
