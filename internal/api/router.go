package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/boardsync/internal/boards"
	"github.com/lalith-99/boardsync/internal/chat"
	"github.com/lalith-99/boardsync/internal/favorites"
	"github.com/lalith-99/boardsync/internal/invitations"
	"github.com/lalith-99/boardsync/internal/membership"
	"github.com/lalith-99/boardsync/internal/middleware"
	"github.com/lalith-99/boardsync/internal/notify"
	"github.com/lalith-99/boardsync/internal/pipeline"
	"github.com/lalith-99/boardsync/internal/realtime"
	"github.com/lalith-99/boardsync/internal/repository"
	"github.com/lalith-99/boardsync/internal/teams"
	"go.uber.org/zap"
)

// Deps is everything the router wires into handlers.
type Deps struct {
	Repos *repository.Repositories

	Boards      *boards.Service
	Pipeline    *pipeline.Service
	Members     *membership.Service
	Invitations *invitations.Service
	Favorites   *favorites.Service
	Chat        *chat.Service
	Teams       *teams.Service

	Hub            *realtime.Hub
	JoinAuthorizer realtime.JoinAuthorizer
	Upgrader       *websocket.Upgrader
	Dispatcher     *notify.Dispatcher

	JWTSecret    string
	TokenTTL     time.Duration
	WSSendBuffer int
	SSEHeartbeat time.Duration
	CORSOrigin   string

	// Health reports storage reachability. Nil means always healthy.
	Health  func(ctx context.Context) error
	Metrics http.Handler
	Logger  *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.CORS(d.CORSOrigin), middleware.RequestLogger(d.Logger), gin.Recovery())

	// Public: load balancers and signup/login have no token.
	r.GET("/v1/health", healthHandler(d.Health))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	authH := NewAuthHandler(d.Repos.Users, d.JWTSecret, d.TokenTTL, d.Logger)
	r.POST("/v1/auth/signup", authH.Signup)
	r.POST("/v1/auth/login", authH.Login)

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(d.JWTSecret), middleware.BanMiddleware(d.Repos.Users, d.Logger))

	userH := NewUserHandler(d.Repos.Users, d.Logger)
	v1.GET("/users/me", userH.GetMe)
	v1.POST("/admin/users/:id/ban", userH.Ban)
	v1.POST("/admin/users/:id/unban", userH.Unban)

	boardH := NewBoardHandler(d.Boards, d.Logger)
	v1.POST("/boards", boardH.Create)
	v1.GET("/boards", boardH.List)
	v1.GET("/boards/:id", boardH.Get)
	v1.PUT("/boards/:id", boardH.Rename)
	v1.DELETE("/boards/:id", boardH.Delete)

	memberH := NewMembershipHandler(d.Members, d.Logger)
	v1.GET("/boards/:id/members", memberH.ListMembers)
	v1.PUT("/boards/:id/members/:userId", memberH.ChangeRole)
	v1.DELETE("/boards/:id/members/:userId", memberH.Remove)

	columnH := NewColumnHandler(d.Pipeline, d.Logger)
	v1.POST("/boards/:id/columns", columnH.Create)
	v1.PUT("/columns/:id", columnH.Rename)
	v1.DELETE("/columns/:id", columnH.Delete)
	v1.GET("/columns/:id/items", columnH.Items)

	itemH := NewItemHandler(d.Pipeline, d.Logger)
	v1.POST("/items", itemH.Create)
	v1.GET("/items/:id", itemH.Get)
	v1.PUT("/items/:id", itemH.Update)
	v1.PUT("/items/:id/status", itemH.UpdateStatus)
	v1.DELETE("/items/:id", itemH.Delete)
	v1.GET("/items/:id/activity", itemH.Activity)

	inviteH := NewInvitationHandler(d.Invitations, d.Logger)
	v1.POST("/boards/:id/invitations", inviteH.InviteToBoard)
	v1.POST("/teams/:id/invitations", inviteH.InviteToTeam)
	v1.GET("/invitations/board", inviteH.ListBoard)
	v1.POST("/invitations/board/:token/accept", inviteH.AcceptBoard)
	v1.POST("/invitations/board/:token/reject", inviteH.RejectBoard)
	v1.GET("/invitations/team", inviteH.ListTeam)
	v1.POST("/invitations/team/:token/accept", inviteH.AcceptTeam)
	v1.POST("/invitations/team/:token/reject", inviteH.RejectTeam)

	favH := NewFavoriteHandler(d.Favorites, d.Logger)
	v1.POST("/favorite-boards/toggle", favH.Toggle)
	v1.GET("/favorite-boards", favH.List)
	v1.GET("/favorite-boards/:boardId", favH.Get)

	teamH := NewTeamHandler(d.Teams, d.Logger)
	v1.POST("/teams", teamH.Create)
	v1.GET("/teams", teamH.List)
	v1.GET("/teams/:id/members", teamH.Members)

	chatH := NewChatHandler(d.Chat, d.Logger)
	v1.GET("/boards/:id/chat", chatH.BoardRoom)
	v1.GET("/teams/:id/chat", chatH.TeamRoom)
	v1.POST("/chat/:roomId/messages", chatH.Send)
	v1.GET("/chat/:roomId/messages", chatH.Messages)

	rtH := NewRealtimeHandler(d.Hub, d.JoinAuthorizer, d.Upgrader, d.WSSendBuffer, d.Dispatcher, d.SSEHeartbeat, d.Logger)
	v1.GET("/ws", rtH.ServeWS)
	v1.GET("/sse/invitations", rtH.ServeSSE)

	return r
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
