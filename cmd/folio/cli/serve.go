package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/folio-cms/folio/internal/content"
	"github.com/folio-cms/folio/internal/server"
	"github.com/folio-cms/folio/internal/service"
)

const banner = `
  __       _ _
 / _| ___ | (_) ___
| |_ / _ \| | |/ _ \
|  _| (_) | | | (_) |
|_|  \___/|_|_|\___/
`

// defaultAdminPassword is the shipped auth.admin_password value.
const defaultAdminPassword = "password"

func newServeCmd() *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Folio API server",
		Long:  "Start the HTTP server that exposes the portfolio content, contact and analytics APIs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(dev)
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().String("static-dir", "", "Serve a built frontend from this directory")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("server.static_dir", cmd.Flags().Lookup("static-dir"))

	return cmd
}

func runServe(dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, dev)
	ctx := context.Background()

	// 1. Open the store
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("store opened", "driver", st.Dialect(), "data_dir", cfg.Store.DataDir)

	// 2. Auth service and the admin credential
	authSvc, err := newAuthService(ctx, st, cfg)
	if err != nil {
		st.Close()
		return err
	}
	created, err := authSvc.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
	if err != nil {
		st.Close()
		return fmt.Errorf("seed admin credential: %w", err)
	}
	if created {
		logger.Info("admin credential created", "username", cfg.Auth.AdminUsername)
		if cfg.Auth.AdminPassword == defaultAdminPassword {
			logger.Warn("admin password is the shipped default - change it with 'folio admin reset-password'")
		}
	}

	// 3. Sample content for a fresh install
	if cfg.Content.SeedOnEmpty {
		if err := seedIfEmpty(ctx, st); err != nil {
			logger.Warn("failed to load sample content", "error", err)
		} else {
			logger.Debug("content seed check complete")
		}
	}

	// 4. Analytics recorder
	rec := service.NewRecorder(st, recorderConfig(cfg.Analytics), logger)
	rec.Start()

	// 5. Build and start HTTP server
	srvCfg := server.Config{
		Host:                 cfg.Server.Host,
		Port:                 cfg.Server.Port,
		ShutdownTimeout:      cfg.Server.ShutdownTimeout,
		CORSOrigins:          cfg.Server.CORSOrigins,
		MaxBodySize:          cfg.Server.MaxBodySize,
		StaticDir:            cfg.Server.StaticDir,
		EnableMetrics:        cfg.Server.Metrics,
		TrustProxy:           cfg.Server.TrustProxy,
		MountMCP:             true,
		Version:              versionString(),
		LoginRatePerMinute:   cfg.Auth.LoginRatePerMinute,
		ContactRatePerMinute: cfg.Contact.RatePerMinute,
		RequireCaptcha:       cfg.Contact.RequireCaptcha,
		CaptchaTTL:           cfg.Contact.CaptchaTTL,
	}

	srv := server.New(srvCfg, st, authSvc, rec, logger)

	fmt.Printf("→ Folio %s\n", versionString())
	fmt.Printf("→ Listening on http://%s\n", cfg.Server.Addr())
	fmt.Printf("→ OpenAPI:    http://%s/api/openapi.json\n", cfg.Server.Addr())
	fmt.Printf("→ Health:     http://%s/healthz\n", cfg.Server.Addr())
	if cfg.Server.StaticDir != "" {
		fmt.Printf("→ Frontend:   %s\n", cfg.Server.StaticDir)
	}
	fmt.Println()

	return srv.ListenAndServe()
}

// seedIfEmpty loads the sample portfolio when no content has been stored.
func seedIfEmpty(ctx context.Context, st contentImporter) error {
	empty, err := st.ContentEmpty(ctx)
	if err != nil || !empty {
		return err
	}
	snap, err := content.Sample()
	if err != nil {
		return err
	}
	return st.Import(ctx, snap)
}
