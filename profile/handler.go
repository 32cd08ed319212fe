package profile

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Ankit-Ghildiyal-Github/clicker-game-multiplayer/domain"
)

type DetailsRepo interface {
	SaveUserDetails(ctx context.Context, details domain.UserDetails) error
	GetUserDetailsByEmail(ctx context.Context, email string) (domain.UserDetails, error)
}

// UserResolver maps the authenticated session id to its account.
type UserResolver interface {
	GetUserById(ctx context.Context, id string) (domain.User, error)
}

type ProfileHandler struct {
	detailsRepo DetailsRepo
	users       UserResolver
}

func NewProfileHandler(detailsRepo DetailsRepo, users UserResolver) *ProfileHandler {
	return &ProfileHandler{detailsRepo: detailsRepo, users: users}
}

// SaveDetailsHandler upserts the caller's display profile. The email is
// taken from the session, never from the request body.
func (ph *ProfileHandler) SaveDetailsHandler(ctx *gin.Context) {
	id := ctx.GetString("id")
	if id == "" {
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unexpected-error"})
		return
	}

	var body struct {
		DisplayName string `json:"displayName"`
		Age         int    `json:"age"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.String(http.StatusBadRequest, "bad-request-format")
		ctx.Abort()
		return
	}
	if body.DisplayName == "" {
		ctx.String(http.StatusBadRequest, "missing-display-name")
		ctx.Abort()
		return
	}

	reqCtx := ctx.Request.Context()

	user, err := ph.users.GetUserById(reqCtx, id)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("SaveDetails: failed to resolve user")
		ctx.String(http.StatusInternalServerError, "unknown-error")
		ctx.Abort()
		return
	}

	details := domain.UserDetails{
		Email:       user.Email,
		DisplayName: body.DisplayName,
		Age:         body.Age,
	}

	if err := ph.detailsRepo.SaveUserDetails(reqCtx, details); err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			ctx.String(http.StatusGatewayTimeout, "server-timeout")
		case errors.Is(err, context.Canceled):
			ctx.Status(499)
		default:
			log.Error().Err(err).Str("email", user.Email).Msg("SaveDetails: failed to persist details")
			ctx.String(http.StatusInternalServerError, "unknown-error")
		}
		ctx.Abort()
		return
	}

	ctx.JSON(http.StatusOK, details)
}

func (ph *ProfileHandler) GetDetailsHandler(ctx *gin.Context) {
	email := ctx.Param("email")
	if email == "" {
		ctx.String(http.StatusBadRequest, "missing-email")
		ctx.Abort()
		return
	}

	details, err := ph.detailsRepo.GetUserDetailsByEmail(ctx.Request.Context(), email)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDetailsNotFound):
			ctx.String(http.StatusNotFound, "details-not-found")
		case errors.Is(err, context.DeadlineExceeded):
			ctx.String(http.StatusGatewayTimeout, "server-timeout")
		case errors.Is(err, context.Canceled):
			ctx.Status(499)
		default:
			log.Error().Err(err).Str("email", email).Msg("GetDetails: failed to load details")
			ctx.String(http.StatusInternalServerError, "unknown-error")
		}
		ctx.Abort()
		return
	}

	ctx.JSON(http.StatusOK, details)
}
