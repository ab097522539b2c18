package main

import (
	"context"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/finsightlabs/finsight-go/api"
	"github.com/finsightlabs/finsight-go/config"
	"github.com/finsightlabs/finsight-go/services"
)

func main() {
	// .env (if present) was already applied when the config package loaded.
	if config.MongoURI == "" {
		log.Fatal("Missing MONGO_URI in environment")
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.StoreConnectTimeout)
	defer cancel()

	store, err := services.OpenStore(ctx, config.MongoURI, config.DBName, config.StoreQueryTimeout)
	if err != nil {
		log.Fatalf("Failed to connect to document store: %v", err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Printf("ERROR: store close failed: %v", err)
		}
	}()
	log.Printf("Connected to document store (db=%s)", config.DBName)

	oracle := services.NewOpenAIOracle(services.OpenAIOracleConfig{
		APIKey:  config.OpenAIAPIKey,
		BaseURL: config.OpenAIBaseURL,
		Model:   config.OpenAIModel,
		Timeout: config.OracleTimeout,
	})

	pipeline := &services.Pipeline{Frames: store, Oracle: oracle}

	r := gin.Default()
	r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
	}))

	// Tag every request with an ID for log correlation
	r.Use(func(c *gin.Context) {
		id := ulid.Make().String()
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	})

	r.GET("/", api.RootHandler)
	r.POST("/suggest-price", api.SuggestPriceHandler)

	dashboard := r.Group("/dashboard")
	{
		dashboard.POST("/generate", api.GenerateDashboardHandler(pipeline))
	}

	log.Printf("Starting server on :%s", config.Port)
	if err := r.Run(":" + config.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
