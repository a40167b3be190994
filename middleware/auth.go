package middleware

import (
	"context"
	"strings"
	"time"

	"sata_school_go/config"
	"sata_school_go/database"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// Actor kinds. The token shape is the same for all staff-side actors; the
// kind tag decides which routes the token may reach. Parent tokens are a
// separate claims type signed with a separate secret.
const (
	ActorAdmin   = "admin"
	ActorStaff   = "staff"
	ActorTeacher = "teacher"
	// ActorGate is the attendance kiosk/terminal account: it may only hit
	// the attendance ingestion endpoints
	ActorGate   = "gate"
	ActorParent = "parent"
)

// Actor is the resolved identity placed in the request context. Only the
// fields valid for the kind are set: ActorID is zero for gate tokens,
// GuardianPhone is set only for parents.
type Actor struct {
	Kind          string
	SchoolID      uint
	ActorID       uint
	GuardianPhone string
}

type Claims struct {
	SchoolID uint   `json:"school_id"`
	ActorID  uint   `json:"actor_id,omitempty"`
	Kind     string `json:"kind"`
	jwt.RegisteredClaims
}

type ParentClaims struct {
	SchoolID      uint   `json:"school_id"`
	GuardianPhone string `json:"guardian_phone"`
	jwt.RegisteredClaims
}

// GenerateToken creates a staff-side JWT (admin, staff, teacher or gate)
func GenerateToken(schoolID, actorID uint, kind string) (string, error) {
	claims := &Claims{
		SchoolID: schoolID,
		ActorID:  actorID,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(config.AppConfig.JWTExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// GenerateParentToken creates a parent JWT signed with the parent secret
func GenerateParentToken(schoolID uint, guardianPhone string) (string, error) {
	claims := &ParentClaims{
		SchoolID:      schoolID,
		GuardianPhone: guardianPhone,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(config.AppConfig.JWTExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.ParentJWTSecret))
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return "", false
	}
	return tokenString, true
}

func isBlacklisted(tokenString string) bool {
	rc := database.GetRedisClient()
	if rc == nil {
		return false
	}
	n, err := rc.Exists(context.Background(), "blacklist:jwt:"+tokenString).Result()
	return err == nil && n > 0
}

// JWTMiddleware validates staff-side JWT tokens
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or malformed authorization header",
			})
		}

		if isBlacklisted(tokenString) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token revoked",
			})
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(config.AppConfig.JWTSecret), nil
		})
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token claims",
			})
		}

		c.Locals("actor", &Actor{
			Kind:     claims.Kind,
			SchoolID: claims.SchoolID,
			ActorID:  claims.ActorID,
		})
		c.Locals("token", tokenString)

		return c.Next()
	}
}

// ParentJWTMiddleware validates parent tokens with the parent secret
func ParentJWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or malformed authorization header",
			})
		}

		token, err := jwt.ParseWithClaims(tokenString, &ParentClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(config.AppConfig.ParentJWTSecret), nil
		})
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		claims, ok := token.Claims.(*ParentClaims)
		if !ok || !token.Valid || claims.GuardianPhone == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token claims",
			})
		}

		c.Locals("actor", &Actor{
			Kind:          ActorParent,
			SchoolID:      claims.SchoolID,
			GuardianPhone: claims.GuardianPhone,
		})

		return c.Next()
	}
}

// RequireKind middleware checks if the actor has one of the required kinds
func RequireKind(kinds ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := c.Locals("actor").(*Actor)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing actor context",
			})
		}

		for _, kind := range kinds {
			if actor.Kind == kind {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}
}

// RequireAdmin allows only the school admin account
func RequireAdmin() fiber.Handler {
	return RequireKind(ActorAdmin)
}

// RequireStaffOrAdmin allows back-office accounts
func RequireStaffOrAdmin() fiber.Handler {
	return RequireKind(ActorAdmin, ActorStaff)
}

// RequireTeacherOrAbove allows teachers and back-office accounts
func RequireTeacherOrAbove() fiber.Handler {
	return RequireKind(ActorAdmin, ActorStaff, ActorTeacher)
}

// RequireScanSource allows the actors that may push attendance scans:
// back-office, teachers marking their groups, and the gate terminal
func RequireScanSource() fiber.Handler {
	return RequireKind(ActorAdmin, ActorStaff, ActorTeacher, ActorGate)
}

// GetActor returns the resolved actor from the request context
func GetActor(c *fiber.Ctx) (*Actor, error) {
	actor, ok := c.Locals("actor").(*Actor)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Actor not found in context")
	}
	return actor, nil
}
