package controllers

import (
	"errors"
	"strconv"

	"sata_school_go/middleware"
	"sata_school_go/services"
	"sata_school_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// respondServiceError translates the service error taxonomy into HTTP
// status codes. Unknown errors become an opaque 500.
func respondServiceError(c *fiber.Ctx, err error) error {
	var (
		validation *services.ValidationError
		conflict   *services.ConflictError
		overpay    *services.OverpayError
		priorDebt  *services.PriorMonthDebtError
		tooSoon    *services.TooSoonError
		dwell      *services.MinimumDwellError
		recorded   *services.AlreadyRecordedError
		locked     *services.LockedError
		wrongPass  *services.WrongPasswordError
	)

	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validation.Message})
	case errors.As(err, &conflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": conflict.Message})
	case errors.As(err, &overpay):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":        "Payment exceeds the monthly fee",
			"limit":        overpay.Limit,
			"already_paid": overpay.AlreadyPaid,
			"attempted":    overpay.Attempted,
		})
	case errors.As(err, &priorDebt):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":       "Previous month is still unpaid",
			"debt_month":  priorDebt.Month.Legacy(),
			"debt_amount": priorDebt.Debt,
		})
	case errors.As(err, &tooSoon):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":        "Scan repeated too soon",
			"wait_seconds": tooSoon.WaitSeconds,
		})
	case errors.As(err, &dwell):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":        "Exit scan before minimum stay",
			"minutes_left": dwell.MinutesLeft,
		})
	case errors.As(err, &recorded):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":    "Already recorded for this day",
			"date_key": recorded.DateKey,
		})
	case errors.As(err, &locked):
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{
			"error":      "Exam session is locked",
			"session_id": locked.SessionID,
		})
	case errors.As(err, &wrongPass):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Wrong password"})
	default:
		logrus.WithError(err).Error("unhandled service error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}

// paramID parses a numeric path parameter
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// actorSchool returns the authenticated actor's school scope
func actorSchool(c *fiber.Ctx) (uint, *middleware.Actor, error) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return 0, nil, err
	}
	return actor.SchoolID, actor, nil
}

// queryMonth reads a month from the query string, accepting both the
// canonical "YYYY-MM" and the legacy "MM-YYYY" the older clients send.
// Defaults to the current month.
func queryMonth(c *fiber.Ctx, name string) (utils.MonthKey, error) {
	raw := c.Query(name)
	if raw == "" {
		return utils.MonthKeyOf(c.Context().Time()), nil
	}
	return utils.ParseAnyMonthKey(raw)
}
