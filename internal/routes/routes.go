package routes

import (
	"context"
	"fmt"

	"github.com/Misikirayu/mate-finder/internal/config"
	"github.com/Misikirayu/mate-finder/internal/handlers"
	"github.com/Misikirayu/mate-finder/internal/middleware"
	"github.com/Misikirayu/mate-finder/internal/repository"
	"github.com/Misikirayu/mate-finder/internal/services"
	chatws "github.com/Misikirayu/mate-finder/internal/websocket"
	"github.com/Misikirayu/mate-finder/pkg/utils"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Dependencies struct {
	Config *config.Config
	DB     repository.DBTX
	Hub    *chatws.Hub
	Logger *zap.Logger
}

func RegisterRoutes(ctx context.Context, app *fiber.App, deps Dependencies) error {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	storageService, err := NewStorageService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	tokenCodec := utils.NewTokenCodec(cfg.JWTSecret, cfg.TokenTTL)
	userRepo := repository.NewUserRepository(deps.DB)
	messageRepo := repository.NewMessageRepository(deps.DB)

	authService := services.NewAuthService(userRepo, tokenCodec, cfg.TokenTTL, cfg.BcryptCost, logger.Named("auth"))
	profileService := services.NewProfileService(userRepo, storageService, logger.Named("profile"))
	messagingService := services.NewMessagingService(messageRepo, deps.Hub, logger.Named("messaging"))

	authHandler := handlers.NewAuthHandler(authService, profileService)
	profileHandler := handlers.NewProfileHandler(profileService)
	chatHandler := handlers.NewChatHandler(messagingService, deps.Hub, tokenCodec)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if cfg.StorageDriver == config.StorageLocal {
		app.Static(cfg.UploadURLPrefix, cfg.UploadDir, fiber.Static{
			ByteRange: true,
			Browse:    false,
		})
	}

	requireAuth := middleware.AuthRequired(tokenCodec)

	auth := app.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", requireAuth, authHandler.Me)

	user := app.Group("/user", requireAuth)
	user.Put("/update", profileHandler.UpdateProfile)
	user.Post("/upload-image", profileHandler.UploadImage)

	users := app.Group("/users", requireAuth)
	users.Get("/list", profileHandler.ListUsers)
	users.Get("/:id", profileHandler.GetUser)

	messages := app.Group("/messages", requireAuth)
	messages.Get("/unread", chatHandler.Unread)
	messages.Post("/send", chatHandler.Send)
	messages.Post("/seen", chatHandler.MarkSeen)
	messages.Post("/react", chatHandler.React)
	messages.Get("/:userId", chatHandler.GetConversation)

	app.Use("/ws", chatHandler.WebSocketAuth)
	app.Get("/ws", websocket.New(chatHandler.HandleWebSocket))

	return registerDocsRoutes(app, cfg)
}

func NewStorageService(ctx context.Context, cfg *config.Config) (services.StorageService, error) {
	switch cfg.StorageDriver {
	case config.StorageS3:
		return services.NewS3StorageService(ctx, services.S3StorageConfig{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
			Prefix:    "profile-images",
		})
	case config.StorageSupabase:
		return services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey, "profile-images"), nil
	default:
		return services.NewLocalStorageService(cfg.UploadDir, cfg.UploadURLPrefix)
	}
}
