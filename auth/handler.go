package auth

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Ankit-Ghildiyal-Github/clicker-game-multiplayer/domain"
)

var (
	ErrMissingTokenStr          = "missing-token"
	ErrExpiredTokenStr          = "expired-token"
	ErrServerTimeoutStr         = "server-timeout"
	ErrInvalidRequestFormatStr  = "bad-request-format"
	ErrInvalidCredentialsStr    = "invalid-credentials"
	ErrUnknownStr               = "unknown-error"
	ErrEmailAlreadyExistsStr    = "email-already-exists"
	ErrWeakPasswordStr          = "weak-password"
	ErrPasswordTooLongStr       = "password-too-long"
	ErrInvalidEmailFormatStr    = "invalid-email-format"
	ErrAccountCreatedButNoToken = "account-created-but-no-token"
)

type authHandler struct {
	authService  AuthService
	cookieMaxAge time.Duration
}

func NewAuthHandler(service AuthService, cookieMaxAge time.Duration) *authHandler {
	return &authHandler{authService: service, cookieMaxAge: cookieMaxAge}
}

// redactToken keeps enough of a JWT's signature to correlate log lines
// without logging a usable credential.
func redactToken(token string) string {
	tokenParts := strings.Split(token, ".")
	if len(tokenParts) != 3 {
		return token
	}
	sneak := tokenParts[2]
	r := []rune(tokenParts[2])
	if len(r) >= 10 {
		sneak = string(r[:10]) + strings.Repeat("*", len(r)-10)
	}
	return tokenParts[0] + "." + tokenParts[1] + "." + sneak
}

// RequireAuthMiddleware rejects requests without a valid session cookie.
// A token that fails signature checks earns the caller a slow 500 so
// forgery attempts cannot cheaply probe the verifier.
func (ah *authHandler) RequireAuthMiddleware(trollTime time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie("token")
		if err != nil {
			ctx.String(http.StatusUnauthorized, ErrMissingTokenStr)
			ctx.Abort()
			return
		}

		id, err := ah.authService.VerifyToken(token)

		if err != nil {
			clientIP := ctx.ClientIP()
			userAgent := ctx.Request.UserAgent()
			redactedToken := redactToken(token)

			switch {
			case errors.Is(err, domain.ErrInvalidSigningAlg),
				errors.Is(err, domain.ErrInvalidTokenSignature),
				errors.Is(err, domain.ErrCorruptedToken):

				log.Warn().
					Str("ip", clientIP).
					Str("userAgent", userAgent).
					Str("token", redactedToken).
					Err(err).
					Msg("RequireAuthMiddleware: suspicious token attempt")

				time.Sleep(trollTime)
				ctx.Status(http.StatusInternalServerError)
				ctx.Abort()

			case errors.Is(err, domain.ErrExpiredToken):
				log.Info().Str("ip", clientIP).Str("token", redactedToken).Msg("RequireAuthMiddleware: token expired")
				ctx.String(http.StatusUnauthorized, ErrExpiredTokenStr)
				ctx.Abort()

			default:
				log.Error().
					Str("ip", clientIP).
					Str("token", redactedToken).
					Err(err).
					Msg("RequireAuthMiddleware: internal auth error")

				ctx.String(http.StatusUnauthorized, ErrUnknownStr)
				ctx.Abort()
			}

			return
		}
		ctx.Set("id", id)
		ctx.Next()
	}
}

func (ah *authHandler) LoginHandler(ctx *gin.Context) {
	var loginCredentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	err := ctx.ShouldBindJSON(&loginCredentials)

	if err != nil {
		ctx.String(http.StatusBadRequest, ErrInvalidRequestFormatStr)
		ctx.Abort()
		return
	}

	reqCtx := ctx.Request.Context()

	token, err := ah.authService.Login(reqCtx, loginCredentials.Email, loginCredentials.Password)

	if err != nil {
		clientIP := ctx.ClientIP()
		userAgent := ctx.Request.UserAgent()
		switch {
		case errors.Is(err, ErrIncorrectPassword), errors.Is(err, domain.ErrUserNotFound):
			ctx.String(http.StatusUnauthorized, ErrInvalidCredentialsStr)
			ctx.Abort()
		case errors.Is(err, context.DeadlineExceeded):
			ctx.String(http.StatusGatewayTimeout, ErrServerTimeoutStr)
			ctx.Abort()
		case errors.Is(err, context.Canceled):
			ctx.Status(499)
			ctx.Abort()

		case errors.Is(err, domain.UnexpectedDatabaseError):
			log.Error().
				Err(err).
				Str("ip", clientIP).
				Str("userAgent", userAgent).
				Str("email", loginCredentials.Email).
				Msg("Login: database returned an unexpected error")
			ctx.String(http.StatusInternalServerError, ErrUnknownStr)
			ctx.Abort()

		case errors.Is(err, domain.UnexpectedPasswordHashComparisonError):
			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			log.Error().
				Err(err).
				Str("ip", clientIP).
				Str("userAgent", userAgent).
				Str("email", loginCredentials.Email).
				Int("passwordLen", utf8.RuneCountInString(loginCredentials.Password)).
				Uint64("memAllocMb", (mem.Alloc/1024)/1024).
				Uint64("memSysMb", (mem.Sys/1024)/1024).
				Msg("Login: hashing comparison error")
			ctx.String(http.StatusInternalServerError, ErrUnknownStr)
			ctx.Abort()

		case errors.Is(err, domain.UnexpectedTokenGenerationError):
			log.Error().
				Err(err).
				Str("ip", clientIP).
				Str("userAgent", userAgent).
				Str("email", loginCredentials.Email).
				Msg("Login: token generation error")
			ctx.String(http.StatusInternalServerError, ErrUnknownStr)
			ctx.Abort()

		default:
			log.Error().
				Err(err).
				Str("ip", clientIP).
				Str("userAgent", userAgent).
				Str("email", loginCredentials.Email).
				Msg("Login: unknown unexpected error")
			ctx.String(http.StatusInternalServerError, ErrUnknownStr)
			ctx.Abort()
		}
		return
	}

	ctx.SetCookie("token", token, int(ah.cookieMaxAge.Seconds()), "/", "", true, true)
	ctx.SetSameSite(http.SameSiteNoneMode)
	ctx.Status(http.StatusOK)
}

func (ah *authHandler) SignupHandler(ctx *gin.Context) {
	var signupCredentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	err := ctx.ShouldBindJSON(&signupCredentials)

	if err != nil {
		ctx.String(http.StatusBadRequest, ErrInvalidRequestFormatStr)
		ctx.Abort()
		return
	}

	reqCtx := ctx.Request.Context()

	token, err := ah.authService.Signup(reqCtx, signupCredentials.Email, signupCredentials.Password)

	if err != nil {
		clientIP := ctx.ClientIP()
		userAgent := ctx.Request.UserAgent()

		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			ctx.String(http.StatusConflict, ErrEmailAlreadyExistsStr)

		case errors.Is(err, ErrWeakPassword):
			ctx.String(http.StatusBadRequest, ErrWeakPasswordStr)

		case errors.Is(err, ErrPasswordTooLong):
			ctx.String(http.StatusBadRequest, ErrPasswordTooLongStr)

		case errors.Is(err, ErrInvalidEmailFormat):
			ctx.String(http.StatusBadRequest, ErrInvalidEmailFormatStr)

		case errors.Is(err, context.DeadlineExceeded):
			ctx.String(http.StatusGatewayTimeout, ErrServerTimeoutStr)

		case errors.Is(err, context.Canceled):
			ctx.Status(499) // http code for "Client Closed Request"

		case errors.Is(err, domain.UnexpectedDatabaseError):
			log.Error().
				Err(err).
				Str("ip", clientIP).
				Str("userAgent", userAgent).
				Str("email", signupCredentials.Email).
				Msg("Signup: database returned an unexpected error")
			ctx.String(http.StatusInternalServerError, ErrUnknownStr)

		case errors.Is(err, domain.UnexpectedPasswordHashingError):
			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			log.Error().
				Err(err).
				Str("ip", clientIP).
				Str("userAgent", userAgent).
				Str("email", signupCredentials.Email).
				Int("passwordLen", utf8.RuneCountInString(signupCredentials.Password)).
				Uint64("memAllocMb", (mem.Alloc/1024)/1024).
				Uint64("memSysMb", (mem.Sys/1024)/1024).
				Msg("Signup: password hashing error")
			ctx.String(http.StatusInternalServerError, ErrUnknownStr)

		case errors.Is(err, domain.UnexpectedTokenGenerationError):
			log.Error().
				Err(err).
				Str("ip", clientIP).
				Str("userAgent", userAgent).
				Str("email", signupCredentials.Email).
				Msg("Signup: token generation error")
			ctx.String(http.StatusInternalServerError, ErrAccountCreatedButNoToken)

		default:
			log.Error().
				Err(err).
				Str("ip", clientIP).
				Str("userAgent", userAgent).
				Str("email", signupCredentials.Email).
				Msg("Signup: unknown unexpected error")
			ctx.String(http.StatusInternalServerError, ErrUnknownStr)
		}
		ctx.Abort()
		return
	}

	ctx.SetCookie("token", token, int(ah.cookieMaxAge.Seconds()), "/", "", true, true)
	ctx.SetSameSite(http.SameSiteNoneMode)
	ctx.Status(http.StatusCreated)
}

func (ah *authHandler) RefreshSessionHandler(ctx *gin.Context) {
	token, err := ctx.Cookie("token")
	if err != nil {
		ctx.String(http.StatusUnauthorized, "unauthenticated")
		return
	}

	id, err := ah.authService.VerifyToken(token)
	if err != nil {
		log.Warn().
			Str("ip", ctx.ClientIP()).
			Str("userAgent", ctx.Request.UserAgent()).
			Str("token", redactToken(token)).
			Err(err).
			Msg("Refresh: invalid token provided")
		ctx.String(http.StatusUnauthorized, "bad-token")
		return
	}

	newToken, err := ah.authService.GenerateToken(id)
	if err != nil {
		log.Error().
			Str("ip", ctx.ClientIP()).
			Str("userAgent", ctx.Request.UserAgent()).
			Str("userId", id).
			Err(err).
			Msg("Refresh: failed to generate new token")
		ctx.Status(http.StatusInternalServerError)
		return
	}

	ctx.SetCookie("token", newToken, int(ah.cookieMaxAge.Seconds()), "/", "", true, true)
	ctx.SetSameSite(http.SameSiteNoneMode)
	ctx.Status(http.StatusOK)
}

func (ah *authHandler) LogoutHandler(ctx *gin.Context) {
	ctx.SetCookie("token", "", -1, "/", "", true, true)
}
