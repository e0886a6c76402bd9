package middleware

import (
	"net/http"

	"foodorder/internal/repository"

	"github.com/labstack/echo/v4"
)

// JWTのtvとDBのtoken_versionの一致するか確認。
// 停止ユーザーやrole変更後のtokenも弾く。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//AuthJWTが入れたIdentityを取得する
			id, ok := IdentityFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("Not authenticated"))
			}

			//AuthJWTが入れたtoken_version(tv)を取得する
			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("Invalid token"))
			}

			//DBから最新のuserを取得する
			user, err := userRepo.FindByID(c.Request().Context(), id.UserID)
			if err != nil || user == nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("Invalid token"))
			}

			//一致しなければ強制ログアウト扱い（401）
			if user.TokenVersion != tv || !user.IsActive || user.Role != id.Role {
				return c.JSON(http.StatusUnauthorized, errorJSON("Invalid token"))
			}

			return next(c)
		}
	}
}
