package serverutils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JwtMiddleware verifies the bearer token, stores its user_id claim in
// Locals and keeps the raw token so calls to the studio API can forward it.
func JwtMiddleware(secret string) fiber.Handler {
	return jwtHandler(secret, bearerToken)
}

// JwtQueryMiddleware is JwtMiddleware that also accepts the token query
// parameter. Only for websocket upgrades: browsers cannot set headers there.
func JwtQueryMiddleware(secret string) fiber.Handler {
	return jwtHandler(secret, func(ctx *fiber.Ctx) string {
		if tokenStr := bearerToken(ctx); tokenStr != "" {
			return tokenStr
		}
		return ctx.Query("token")
	})
}

func jwtHandler(secret string, extract func(*fiber.Ctx) string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := extract(ctx)
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid claims"))
		}
		userId, ok := claims["user_id"].(string)
		if !ok || userId == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid claims"))
		}

		ctx.Locals("user_id", userId)
		ctx.Locals("token", tokenStr)
		return ctx.Next()
	}
}

func bearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) >= 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ""
}
