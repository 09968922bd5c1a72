package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"focusgallery/config"
	"focusgallery/controller"
	"focusgallery/database"
	"focusgallery/media"
	"focusgallery/route"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gallery REST API",
		Example: `  # Listen on BACKEND_HOST:BACKEND_PORT (0.0.0.0:8000 by default)
  focusgallery serve

  # Override the port
  focusgallery serve --port 9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != 0 {
				cfg.Port = port
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides BACKEND_PORT)")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	client, err := database.Connect(ctx, cfg.MongoURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			slog.Error("MongoDB disconnect failed", "err", err)
		}
	}()

	store := database.NewGalleryStore(client.Database(database.DatabaseName(cfg.MongoURL)))
	if err := bootstrap(ctx, store, cfg.SeedFile); err != nil {
		return err
	}

	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	gallery := controller.NewGallery(store, uploader, cfg.MediaFolder)
	router := route.New(ctx, gallery, route.Options{
		APIKey:      cfg.APIKey,
		CORSOrigins: cfg.CORSAllow,
		RateLimit:   cfg.RateLimit,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Gallery API listening", "addr", server.Addr, "https", cfg.UseHTTPS, "media", cfg.MediaBackend)
		var err error
		if cfg.UseHTTPS {
			err = server.ListenAndServeTLS(cfg.SSLCert, cfg.SSLKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "err", err)
			return err
		}
		slog.Info("Server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}

// bootstrap creates indexes and makes sure the seed categories exist.
func bootstrap(ctx context.Context, store *database.GalleryStore, seedFile string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}
	categories, err := database.LoadSeedFile(seedFile)
	if err != nil {
		return err
	}
	if err := store.SeedCategories(ctx, categories); err != nil {
		return err
	}
	slog.Info("Categories seeded", "count", len(categories))
	return nil
}

func newUploader(ctx context.Context, cfg *config.Config) (media.Uploader, error) {
	switch cfg.MediaBackend {
	case "s3":
		return media.NewS3Uploader(ctx, media.S3Options{
			Bucket:        cfg.BucketName,
			Region:        cfg.AWSRegion,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.MediaPublicURL,
		})
	case "minio":
		return media.NewMinioUploader(ctx, media.MinioOptions{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			Bucket:        cfg.MinioBucket,
			UseSSL:        cfg.MinioUseSSL,
			PublicBaseURL: cfg.MediaPublicURL,
		})
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.MediaBackend)
	}
}
